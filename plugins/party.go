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
	"slices"
	"strconv"
	"strings"
	"sync"

	"git.bbaa.fun/bbaa/wynn-inference/core/plugin"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin/pluginabi"
	"github.com/fatih/color"
	"github.com/samber/lo"
)

var PartySegmentHeader = regexp.MustCompile(`^Party:(?:\s*\[Lv\. \d+\])?$`)
var PartyMemberLine = regexp.MustCompile(`^[-\s]*(?:★\s*)?([A-Za-z0-9_]{1,16})(?:\s+\[(\d+)%\])?$`)
var PartyDisbandedMessage = regexp.MustCompile(`^Your party has been disbanded`)

type PartyMember struct {
	Name   string
	Leader bool
	// Health is -1 when the scoreboard does not show it.
	Health int
}

type PartyUpdatedEvent struct {
	Members []PartyMember
}

type PartyPlugin struct {
	plugin.BasePlugin
	members []PartyMember
	lock    sync.RWMutex
}

func (pp *PartyPlugin) Init(pm pluginabi.PluginManager) (err error) {
	err = pp.BasePlugin.Init(pm, pp)
	if err != nil {
		return err
	}
	err = pp.RegisterSegment(plugin.ScoreboardPart{
		Matcher:  plugin.SegmentMatcher{Name: "Party", Header: PartySegmentHeader},
		OnChange: func(segment plugin.ScoreboardSegment) { pp.set(pp.parse(segment)) },
		OnRemove: func(plugin.ScoreboardSegment) { pp.set(nil) },
	})
	if err != nil {
		return err
	}
	return pp.RegisterChatHandler(PartyDisbandedMessage, func(*plugin.ChatMessageEvent, []string) {
		pp.set(nil)
	})
}

func (pp *PartyPlugin) parse(segment plugin.ScoreboardSegment) []PartyMember {
	return lo.FilterMap(segment.UnformattedContent(), func(line string, index int) (PartyMember, bool) {
		match := PartyMemberLine.FindStringSubmatch(line)
		if match == nil {
			pp.Println(color.RedString("无法解析队伍成员: "), color.CyanString(line))
			return PartyMember{}, false
		}
		member := PartyMember{Name: match[1], Health: -1, Leader: strings.ContainsRune(line, '★')}
		if match[2] != "" {
			health, err := strconv.Atoi(match[2])
			if err == nil {
				member.Health = health
			}
		}
		return member, true
	})
}

func (pp *PartyPlugin) set(members []PartyMember) {
	pp.lock.Lock()
	if slices.Equal(pp.members, members) {
		pp.lock.Unlock()
		return
	}
	pp.members = members
	pp.lock.Unlock()
	pp.Bus().Post(PartyUpdatedEvent{Members: members})
}

func (pp *PartyPlugin) Members() []PartyMember {
	pp.lock.RLock()
	defer pp.lock.RUnlock()
	return pp.members
}

func (pp *PartyPlugin) InParty(name string) bool {
	return slices.ContainsFunc(pp.Members(), func(m PartyMember) bool { return m.Name == name })
}

func (pp *PartyPlugin) Reset() {
	pp.lock.Lock()
	defer pp.lock.Unlock()
	pp.members = nil
}

func (pp *PartyPlugin) Describe() []string {
	return lo.Map(pp.Members(), func(m PartyMember, index int) string {
		return lo.Ternary(m.Leader, "★ ", "") + m.Name + lo.Ternary(m.Health >= 0, " "+strconv.Itoa(m.Health)+"%", "")
	})
}

func (pp *PartyPlugin) DisplayName() string {
	return "队伍"
}

func (pp *PartyPlugin) Name() string {
	return "PartyPlugin"
}
