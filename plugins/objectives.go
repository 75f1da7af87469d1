// Copyright 2024 bbaa
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package plugins

import (
	"regexp"
	"strconv"
	"sync"

	"git.bbaa.fun/bbaa/wynn-inference/core/plugin"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin/pluginabi"
	"github.com/fatih/color"
	"github.com/samber/lo"
)

var DailyObjectivesHeader = regexp.MustCompile(`^(?:Daily )?Objectives?:$`)
var GuildObjectivesHeader = regexp.MustCompile(`^Guild Obj(?:ective)?s?:$`)
var ObjectiveLine = regexp.MustCompile(`^[-\s]*(.+?): *(\d+)/(\d+)$`)

type Objective struct {
	Goal     string
	Score    int
	MaxScore int
	Guild    bool
}

func (o Objective) Completed() bool {
	return o.Score >= o.MaxScore
}

type ObjectivesUpdatedEvent struct {
	Personal []Objective
	Guild    []Objective
}

type ObjectivesPlugin struct {
	plugin.BasePlugin
	personal []Objective
	guild    []Objective
	lock     sync.RWMutex
}

func (op *ObjectivesPlugin) Init(pm pluginabi.PluginManager) (err error) {
	err = op.BasePlugin.Init(pm, op)
	if err != nil {
		return err
	}
	err = op.RegisterSegment(plugin.ScoreboardPart{
		Matcher:  plugin.SegmentMatcher{Name: "DailyObjectives", Header: DailyObjectivesHeader},
		OnChange: func(segment plugin.ScoreboardSegment) { op.update(false, op.parse(segment, false)) },
		OnRemove: func(plugin.ScoreboardSegment) { op.update(false, nil) },
	})
	if err != nil {
		return err
	}
	return op.RegisterSegment(plugin.ScoreboardPart{
		Matcher:  plugin.SegmentMatcher{Name: "GuildObjectives", Header: GuildObjectivesHeader},
		OnChange: func(segment plugin.ScoreboardSegment) { op.update(true, op.parse(segment, true)) },
		OnRemove: func(plugin.ScoreboardSegment) { op.update(true, nil) },
	})
}

// parse skips lines it cannot read. Long goals wrap onto a second line, which
// is joined with the next line before giving up.
func (op *ObjectivesPlugin) parse(segment plugin.ScoreboardSegment, guild bool) []Objective {
	objectives := []Objective{}
	pending := ""
	for _, line := range segment.UnformattedContent() {
		text := lo.Ternary(pending == "", line, pending+" "+line)
		match := ObjectiveLine.FindStringSubmatch(text)
		if match == nil {
			if pending != "" {
				op.Println(color.RedString("无法解析目标: "), color.CyanString(pending))
			}
			pending = line
			continue
		}
		pending = ""
		score, err := strconv.Atoi(match[2])
		if err != nil {
			op.Println(color.RedString("无法解析目标分数: "), color.CyanString(text))
			continue
		}
		maxScore, err := strconv.Atoi(match[3])
		if err != nil {
			op.Println(color.RedString("无法解析目标分数: "), color.CyanString(text))
			continue
		}
		objectives = append(objectives, Objective{Goal: match[1], Score: score, MaxScore: maxScore, Guild: guild})
	}
	if pending != "" {
		op.Println(color.RedString("无法解析目标: "), color.CyanString(pending))
	}
	return objectives
}

func (op *ObjectivesPlugin) update(guild bool, objectives []Objective) {
	op.lock.Lock()
	if guild {
		op.guild = objectives
	} else {
		op.personal = objectives
	}
	ev := ObjectivesUpdatedEvent{Personal: op.personal, Guild: op.guild}
	op.lock.Unlock()
	op.Bus().Post(ev)
}

func (op *ObjectivesPlugin) Personal() []Objective {
	op.lock.RLock()
	defer op.lock.RUnlock()
	return op.personal
}

func (op *ObjectivesPlugin) Guild() []Objective {
	op.lock.RLock()
	defer op.lock.RUnlock()
	return op.guild
}

func (op *ObjectivesPlugin) Reset() {
	op.lock.Lock()
	defer op.lock.Unlock()
	op.personal = nil
	op.guild = nil
}

func (op *ObjectivesPlugin) Describe() []string {
	op.lock.RLock()
	defer op.lock.RUnlock()
	return lo.Map(append(append([]Objective{}, op.personal...), op.guild...), func(o Objective, index int) string {
		return lo.Ternary(o.Guild, "[公会] ", "") + o.Goal + " " + strconv.Itoa(o.Score) + "/" + strconv.Itoa(o.MaxScore)
	})
}

func (op *ObjectivesPlugin) DisplayName() string {
	return "每日目标"
}

func (op *ObjectivesPlugin) Name() string {
	return "ObjectivesPlugin"
}
