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

	"git.bbaa.fun/bbaa/wynn-inference/core/event"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin/pluginabi"
	"github.com/fatih/color"
)

var DeathMessage = regexp.MustCompile(`^\s*You (?:have )?died`)
var LevelUpMessage = regexp.MustCompile(`^\s*(?:\[!\]\s*)?Congratulations to (\w+) for reaching combat level (\d+)!?$`)
var DungeonCompletedMessage = regexp.MustCompile(`^\s*Great job! You've completed the (.+?) dungeon`)
var LootChestTitle = regexp.MustCompile(`^Loot Chest`)

// StatisticsPlugin turns chat lines and screens into per-character
// statistics.
type StatisticsPlugin struct {
	plugin.BasePlugin
}

func (sp *StatisticsPlugin) Init(pm pluginabi.PluginManager) (err error) {
	err = sp.BasePlugin.Init(pm, sp)
	if err != nil {
		return err
	}
	err = sp.RegisterChatHandler(DeathMessage, func(*plugin.ChatMessageEvent, []string) {
		sp.AddToStatistics(plugin.StatDeaths, 1)
	})
	if err != nil {
		return err
	}
	err = sp.RegisterChatHandler(LevelUpMessage, sp.onLevelUp)
	if err != nil {
		return err
	}
	err = sp.RegisterChatHandler(DungeonCompletedMessage, func(*plugin.ChatMessageEvent, []string) {
		sp.AddToStatistics(plugin.StatDungeonsCompleted, 1)
	})
	if err != nil {
		return err
	}
	event.Subscribe(sp.Bus(), event.Normal, func(ev plugin.ScreenOpenedEvent) {
		if ev.Title.Trim().MatchesUnformatted(LootChestTitle) {
			sp.AddToStatistics(plugin.StatLootChestsOpened, 1)
		}
	})
	return nil
}

// onLevelUp records the reached level, so the entry's max is the highest
// level seen.
func (sp *StatisticsPlugin) onLevelUp(msg *plugin.ChatMessageEvent, match []string) {
	player := sp.Config().String("player.name", "")
	if player != "" && player != match[1] {
		return
	}
	level, err := strconv.Atoi(match[2])
	if err != nil {
		sp.Println(color.RedString("无法解析等级: "), color.CyanString(msg.Message.Unformatted()))
		return
	}
	sp.AddToStatistics(plugin.StatLevelUps, int64(level))
}

func (sp *StatisticsPlugin) DisplayName() string {
	return "统计"
}

func (sp *StatisticsPlugin) Name() string {
	return "StatisticsPlugin"
}
