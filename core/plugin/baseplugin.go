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

package plugin

import (
	"fmt"
	"regexp"

	"git.bbaa.fun/bbaa/wynn-inference/core/config"
	"git.bbaa.fun/bbaa/wynn-inference/core/event"
	"git.bbaa.fun/bbaa/wynn-inference/core/item"
	"git.bbaa.fun/bbaa/wynn-inference/core/netfetch"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin/pluginabi"
	"github.com/fatih/color"
)

type BasePlugin struct {
	pm             pluginabi.PluginManager
	p              pluginabi.Plugin
	worldState     *WorldStateCore
	scoreboardCore *ScoreboardCore
	chatCore       *ChatCore
	characterCore  *CharacterCore
	itemCore       *ItemCore
}

func (bp *BasePlugin) Println(a ...any) (int, error) {
	return bp.pm.Println(color.BlueString(bp.p.DisplayName()), a...)
}

func (bp *BasePlugin) Printf(format string, a ...any) (int, error) {
	return bp.pm.Printf(color.BlueString(bp.p.DisplayName()), format, a...)
}

func (bp *BasePlugin) Init(pm pluginabi.PluginManager, plugin pluginabi.Plugin) error {
	bp.pm = pm
	bp.p = plugin
	ignoreErr := false
	switch plugin.(type) {
	case *WorldStateCore, *ScoreboardCore, *ChatCore, *CharacterCore, *ItemCore:
		ignoreErr = true
	}

	ws := pm.GetPlugin("WorldStateCore")
	if ws == nil {
		if !ignoreErr {
			return fmt.Errorf("no world state instance")
		}
	} else {
		bp.worldState = ws.(*WorldStateCore)
	}

	sc := pm.GetPlugin("ScoreboardCore")
	if sc == nil {
		if !ignoreErr {
			return fmt.Errorf("no scoreboard instance")
		}
	} else {
		bp.scoreboardCore = sc.(*ScoreboardCore)
	}

	cc := pm.GetPlugin("ChatCore")
	if cc == nil {
		if !ignoreErr {
			return fmt.Errorf("no chat instance")
		}
	} else {
		bp.chatCore = cc.(*ChatCore)
	}

	ch := pm.GetPlugin("CharacterCore")
	if ch == nil {
		if !ignoreErr {
			return fmt.Errorf("no character instance")
		}
	} else {
		bp.characterCore = ch.(*CharacterCore)
	}

	ic := pm.GetPlugin("ItemCore")
	if ic == nil {
		if !ignoreErr {
			return fmt.Errorf("no item instance")
		}
	} else {
		bp.itemCore = ic.(*ItemCore)
	}
	return nil
}

func (bp *BasePlugin) Bus() *event.Bus {
	return bp.pm.Bus()
}

func (bp *BasePlugin) Config() *config.Config {
	return bp.pm.Config()
}

func (bp *BasePlugin) Fetcher() *netfetch.Fetcher {
	return bp.pm.Fetcher()
}

func (bp *BasePlugin) DataDir() string {
	return bp.pm.DataDir()
}

func (bp *BasePlugin) RunOnMain(task func()) bool {
	return bp.pm.RunOnMain(task)
}

func (bp *BasePlugin) RegisterCommand(command string, commandFunc func(args ...string)) error {
	return bp.pm.RegisterCommand(bp.p, command, commandFunc)
}

func (bp *BasePlugin) RegisterSegment(part ScoreboardPart) error {
	if bp.scoreboardCore == nil {
		return fmt.Errorf("no scoreboard instance")
	}
	return bp.scoreboardCore.RegisterPart(bp.p, part)
}

func (bp *BasePlugin) RegisterChatHandler(pattern *regexp.Regexp, handler func(msg *ChatMessageEvent, match []string)) error {
	if bp.chatCore == nil {
		return fmt.Errorf("no chat instance")
	}
	return bp.chatCore.RegisterChatHandler(bp.p, pattern, handler)
}

func (bp *BasePlugin) AddToStatistics(kind StatisticKind, amount int64) {
	if bp.characterCore == nil {
		return
	}
	bp.characterCore.AddToStatistics(kind, amount)
}

func (bp *BasePlugin) GetStatistic(kind StatisticKind) (StatisticEntry, bool) {
	if bp.characterCore == nil {
		return StatisticEntry{}, false
	}
	return bp.characterCore.GetStatistic(kind)
}

func (bp *BasePlugin) WorldState() WorldState {
	if bp.worldState == nil {
		return NotConnected
	}
	return bp.worldState.State()
}

func (bp *BasePlugin) CurrentWorld() string {
	if bp.worldState == nil {
		return ""
	}
	return bp.worldState.World()
}

// WorldGeneration changes on every world state transition. Async callbacks
// compare it with the value captured at request time to detect staleness.
func (bp *BasePlugin) WorldGeneration() uint64 {
	if bp.worldState == nil {
		return 0
	}
	return bp.worldState.Generation()
}

func (bp *BasePlugin) SetItemReference(ref *item.Reference) {
	if bp.itemCore == nil {
		return
	}
	bp.itemCore.SetReference(ref)
}

func (bp *BasePlugin) Name() string {
	return "BasePlugin"
}

func (bp *BasePlugin) DisplayName() string {
	return "基础插件"
}

func (bp *BasePlugin) Pause() {

}

func (bp *BasePlugin) Start() {

}
