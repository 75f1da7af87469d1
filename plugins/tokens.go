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

var TokenSegmentHeader = regexp.MustCompile(`^(?:Gatekeepers|Tokens):$`)
// TokenLine accepts both `- name [n/m]` and `- name: n/m`.
var TokenLine = regexp.MustCompile(`^[-\s]*(.+?):?\s*\[?(\d+)/(\d+)\]?$`)

type TokenGatekeeper struct {
	Name  string
	Count int
	Max   int
}

func (g TokenGatekeeper) Done() bool {
	return g.Count >= g.Max
}

type TokensUpdatedEvent struct {
	Gatekeepers []TokenGatekeeper
}

type TokenPlugin struct {
	plugin.BasePlugin
	gatekeepers []TokenGatekeeper
	lock        sync.RWMutex
}

func (tp *TokenPlugin) Init(pm pluginabi.PluginManager) (err error) {
	err = tp.BasePlugin.Init(pm, tp)
	if err != nil {
		return err
	}
	return tp.RegisterSegment(plugin.ScoreboardPart{
		Matcher:  plugin.SegmentMatcher{Name: "Tokens", Header: TokenSegmentHeader},
		OnChange: func(segment plugin.ScoreboardSegment) { tp.set(tp.parse(segment)) },
		OnRemove: func(plugin.ScoreboardSegment) { tp.set(nil) },
	})
}

func (tp *TokenPlugin) parse(segment plugin.ScoreboardSegment) []TokenGatekeeper {
	return lo.FilterMap(segment.UnformattedContent(), func(line string, index int) (TokenGatekeeper, bool) {
		match := TokenLine.FindStringSubmatch(line)
		if match == nil {
			tp.Println(color.RedString("无法解析代币行: "), color.CyanString(line))
			return TokenGatekeeper{}, false
		}
		count, err := strconv.Atoi(match[2])
		if err != nil {
			tp.Println(color.RedString("无法解析代币数量: "), color.CyanString(line))
			return TokenGatekeeper{}, false
		}
		maxCount, err := strconv.Atoi(match[3])
		if err != nil {
			tp.Println(color.RedString("无法解析代币数量: "), color.CyanString(line))
			return TokenGatekeeper{}, false
		}
		return TokenGatekeeper{Name: match[1], Count: count, Max: maxCount}, true
	})
}

func (tp *TokenPlugin) set(gatekeepers []TokenGatekeeper) {
	tp.lock.Lock()
	tp.gatekeepers = gatekeepers
	tp.lock.Unlock()
	tp.Bus().Post(TokensUpdatedEvent{Gatekeepers: gatekeepers})
}

func (tp *TokenPlugin) Gatekeepers() []TokenGatekeeper {
	tp.lock.RLock()
	defer tp.lock.RUnlock()
	return tp.gatekeepers
}

func (tp *TokenPlugin) Reset() {
	tp.lock.Lock()
	defer tp.lock.Unlock()
	tp.gatekeepers = nil
}

func (tp *TokenPlugin) Describe() []string {
	return lo.Map(tp.Gatekeepers(), func(g TokenGatekeeper, index int) string {
		return g.Name + " " + strconv.Itoa(g.Count) + "/" + strconv.Itoa(g.Max)
	})
}

func (tp *TokenPlugin) DisplayName() string {
	return "代币追踪"
}

func (tp *TokenPlugin) Name() string {
	return "TokenPlugin"
}
