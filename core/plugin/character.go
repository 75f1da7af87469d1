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
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"git.bbaa.fun/bbaa/wynn-inference/core/plugin/pluginabi"
	"github.com/fatih/color"
	"github.com/samber/lo"
	"golang.org/x/exp/maps"
)

type StatisticKind string

const (
	StatDeaths            StatisticKind = "deaths"
	StatQuestsCompleted   StatisticKind = "questsCompleted"
	StatLevelUps          StatisticKind = "levelUps"
	StatLootChestsOpened  StatisticKind = "lootChestsOpened"
	StatDungeonsCompleted StatisticKind = "dungeonsCompleted"
)

// StatisticEntry aggregates every amount added to one kind.
type StatisticEntry struct {
	Count int64 `json:"count"`
	Total int64 `json:"total"`
	Min   int64 `json:"min"`
	Max   int64 `json:"max"`
}

func (e StatisticEntry) Add(amount int64) StatisticEntry {
	if e.Count == 0 {
		return StatisticEntry{Count: 1, Total: amount, Min: amount, Max: amount}
	}
	return StatisticEntry{
		Count: e.Count + 1,
		Total: e.Total + amount,
		Min:   min(e.Min, amount),
		Max:   max(e.Max, amount),
	}
}

func (e StatisticEntry) Average() float64 {
	if e.Count == 0 {
		return 0
	}
	return float64(e.Total) / float64(e.Count)
}

type characterStatistics map[StatisticKind]StatisticEntry

// CharacterCore owns the statistics of every character seen so far. Additions
// made while no character is selected go to a scratch map that is dropped on
// reset and never saved.
type CharacterCore struct {
	BasePlugin
	characters map[string]characterStatistics
	scratch    characterStatistics
	active     string
	lock       sync.RWMutex
}

func (cc *CharacterCore) Init(pm pluginabi.PluginManager) error {
	err := cc.BasePlugin.Init(pm, cc)
	if err != nil {
		return err
	}
	cc.characters = make(map[string]characterStatistics)
	cc.scratch = make(characterStatistics)
	err = cc.Load()
	if err != nil {
		cc.Println(color.RedString("加载存储的统计数据失败: "), color.MagentaString(err.Error()))
	}
	return nil
}

func (cc *CharacterCore) path() string {
	return filepath.Join(cc.DataDir(), "statistics.json")
}

func (cc *CharacterCore) Load() error {
	data, err := os.ReadFile(cc.path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	loaded := make(map[string]characterStatistics)
	err = json.Unmarshal(data, &loaded)
	if err != nil {
		return err
	}
	for id, stats := range loaded {
		if stats == nil {
			loaded[id] = make(characterStatistics)
		}
	}
	cc.lock.Lock()
	defer cc.lock.Unlock()
	cc.characters = loaded
	return nil
}

func (cc *CharacterCore) Commit() error {
	cc.lock.RLock()
	saveData, err := json.MarshalIndent(cc.characters, "", "\t")
	cc.lock.RUnlock()
	if err != nil {
		return err
	}
	err = os.MkdirAll(filepath.Dir(cc.path()), 0755)
	if err != nil {
		return err
	}
	tmp := cc.path() + ".tmp"
	err = os.WriteFile(tmp, saveData, 0644)
	if err != nil {
		return err
	}
	return os.Rename(tmp, cc.path())
}

func (cc *CharacterCore) SelectCharacter(id string) {
	cc.lock.Lock()
	previous := cc.active
	if previous == id {
		cc.lock.Unlock()
		return
	}
	cc.active = id
	if id != "" {
		if cc.characters[id] == nil {
			cc.characters[id] = make(characterStatistics)
		}
	}
	cc.lock.Unlock()
	if previous != "" {
		cc.commit()
	}
	cc.Println(color.YellowString("切换角色: "), color.GreenString(id))
	cc.Bus().Post(CharacterSelectedEvent{Previous: previous, ID: id})
}

func (cc *CharacterCore) Active() string {
	cc.lock.RLock()
	defer cc.lock.RUnlock()
	return cc.active
}

// view must be called with the lock held.
func (cc *CharacterCore) view() characterStatistics {
	if cc.active == "" {
		return cc.scratch
	}
	return cc.characters[cc.active]
}

func (cc *CharacterCore) AddToStatistics(kind StatisticKind, amount int64) {
	cc.lock.Lock()
	defer cc.lock.Unlock()
	view := cc.view()
	view[kind] = view[kind].Add(amount)
}

func (cc *CharacterCore) GetStatistic(kind StatisticKind) (StatisticEntry, bool) {
	cc.lock.RLock()
	defer cc.lock.RUnlock()
	entry, ok := cc.view()[kind]
	return entry, ok
}

func (cc *CharacterCore) Snapshot() map[StatisticKind]StatisticEntry {
	cc.lock.RLock()
	defer cc.lock.RUnlock()
	return maps.Clone(cc.view())
}

func (cc *CharacterCore) Characters() []string {
	cc.lock.RLock()
	defer cc.lock.RUnlock()
	keys := maps.Keys(cc.characters)
	slices.Sort(keys)
	return keys
}

func (cc *CharacterCore) commit() {
	err := cc.Commit()
	if err != nil {
		cc.Println(color.RedString("保存统计数据失败: "), color.MagentaString(err.Error()))
	}
}

func (cc *CharacterCore) Reset() {
	cc.lock.Lock()
	active := cc.active
	cc.active = ""
	cc.scratch = make(characterStatistics)
	cc.lock.Unlock()
	if active != "" {
		cc.commit()
	}
}

func (cc *CharacterCore) Describe() []string {
	snapshot := cc.Snapshot()
	kinds := maps.Keys(snapshot)
	slices.Sort(kinds)
	return lo.Map(kinds, func(kind StatisticKind, index int) string {
		entry := snapshot[kind]
		return fmt.Sprintf("%s: count=%d total=%d min=%d max=%d", kind, entry.Count, entry.Total, entry.Min, entry.Max)
	})
}

func (cc *CharacterCore) Pause() {
	cc.commit()
}

func (cc *CharacterCore) Name() string {
	return "CharacterCore"
}

func (cc *CharacterCore) DisplayName() string {
	return "角色核心"
}
