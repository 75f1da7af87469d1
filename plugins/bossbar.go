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
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"git.bbaa.fun/bbaa/wynn-inference/core/event"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin/pluginabi"
	"github.com/fatih/color"
	"github.com/samber/lo"
)

type BarKind string

const (
	ManaBankBar  BarKind = "ManaBank"
	BloodPoolBar BarKind = "BloodPool"
	AwakenedBar  BarKind = "Awakened"
	FocusBar     BarKind = "Focus"
	CorruptedBar BarKind = "Corrupted"
)

// TrackedBar follows one kind of boss bar. Its pattern is matched against the
// unformatted title and names the groups "current" and, optionally, "max".
// Bars without a max group use FixedMax.
type TrackedBar struct {
	Kind     BarKind
	Pattern  *regexp.Regexp
	FixedMax int
	current  int
	max      int
	active   bool
	barID    string
}

func NewTrackedBar(kind BarKind, pattern string, fixedMax int) *TrackedBar {
	return &TrackedBar{Kind: kind, Pattern: regexp.MustCompile(pattern), FixedMax: fixedMax}
}

func (b *TrackedBar) CurrentAndMax() (int, int) {
	return b.current, b.max
}

func (b *TrackedBar) Active() bool {
	return b.active
}

// Update parses title. It reports whether the title belongs to this bar. A
// title that belongs to the bar but does not parse leaves the state untouched
// and returns the error.
func (b *TrackedBar) Update(title string) (matched bool, err error) {
	match := b.Pattern.FindStringSubmatch(title)
	if match == nil {
		return false, nil
	}
	current, err := strconv.Atoi(match[b.Pattern.SubexpIndex("current")])
	if err != nil {
		return true, fmt.Errorf("parse current of %s: %w", b.Kind, err)
	}
	maxValue := b.FixedMax
	if idx := b.Pattern.SubexpIndex("max"); idx >= 0 {
		maxValue, err = strconv.Atoi(match[idx])
		if err != nil {
			return true, fmt.Errorf("parse max of %s: %w", b.Kind, err)
		}
	}
	b.current = current
	b.max = maxValue
	b.active = true
	return true, nil
}

func (b *TrackedBar) deactivate() {
	b.active = false
	b.barID = ""
}

type BarState struct {
	Kind    BarKind
	Current int
	Max     int
	Active  bool
}

type BarUpdatedEvent struct {
	BarState
}

func DefaultTrackedBars() []*TrackedBar {
	return []*TrackedBar{
		NewTrackedBar(ManaBankBar, `^\W*Mana Bank \[(?P<current>\d+)/(?P<max>\d+)\]$`, 0),
		NewTrackedBar(BloodPoolBar, `^\W*Blood Pool \[(?P<current>\d+)%\]$`, 100),
		NewTrackedBar(AwakenedBar, `^\W*Awaken(?:ed|ing) \[(?P<current>\d+)/(?P<max>\d+)\]$`, 0),
		NewTrackedBar(FocusBar, `^\W*Focus \[(?P<current>\d+)/(?P<max>\d+)\]$`, 0),
		NewTrackedBar(CorruptedBar, `^\W*Corrupted \[(?P<current>\d+)%\]$`, 100),
	}
}

type BossBarPlugin struct {
	plugin.BasePlugin
	bars []*TrackedBar
	lock sync.RWMutex
}

func (bb *BossBarPlugin) Init(pm pluginabi.PluginManager) (err error) {
	err = bb.BasePlugin.Init(pm, bb)
	if err != nil {
		return err
	}
	bb.bars = DefaultTrackedBars()
	event.Subscribe(bb.Bus(), event.Normal, bb.onBossBar)
	event.Subscribe(bb.Bus(), event.Normal, func(plugin.WorldStateEvent) {
		bb.deactivateAll()
	})
	return nil
}

func (bb *BossBarPlugin) onBossBar(ev plugin.BossBarEvent) {
	switch ev.Op {
	case plugin.BossBarAdd, plugin.BossBarUpdate:
		bb.update(ev.ID, ev.Title.Unformatted())
	case plugin.BossBarRemove:
		bb.lock.Lock()
		for _, bar := range bb.bars {
			if bar.barID == ev.ID {
				bar.deactivate()
			}
		}
		bb.lock.Unlock()
	}
}

func (bb *BossBarPlugin) update(id string, title string) {
	bb.lock.Lock()
	var updated *BarState
	for _, bar := range bb.bars {
		matched, err := bar.Update(title)
		if !matched {
			continue
		}
		if err != nil {
			bb.Println(color.RedString("无法解析 Boss 栏: "), color.CyanString(title), color.RedString(" "), color.MagentaString(err.Error()))
			break
		}
		bar.barID = id
		updated = &BarState{Kind: bar.Kind, Current: bar.current, Max: bar.max, Active: bar.active}
		break
	}
	bb.lock.Unlock()
	if updated != nil {
		bb.Bus().Post(BarUpdatedEvent{BarState: *updated})
	}
}

func (bb *BossBarPlugin) deactivateAll() {
	bb.lock.Lock()
	defer bb.lock.Unlock()
	for _, bar := range bb.bars {
		bar.deactivate()
	}
}

func (bb *BossBarPlugin) Bar(kind BarKind) (BarState, bool) {
	bb.lock.RLock()
	defer bb.lock.RUnlock()
	bar, ok := lo.Find(bb.bars, func(bar *TrackedBar) bool { return bar.Kind == kind })
	if !ok {
		return BarState{}, false
	}
	return BarState{Kind: bar.Kind, Current: bar.current, Max: bar.max, Active: bar.active}, true
}

func (bb *BossBarPlugin) Describe() []string {
	bb.lock.RLock()
	defer bb.lock.RUnlock()
	return lo.FilterMap(bb.bars, func(bar *TrackedBar, index int) (string, bool) {
		return fmt.Sprintf("%s %d/%d", bar.Kind, bar.current, bar.max), bar.active
	})
}

func (bb *BossBarPlugin) DisplayName() string {
	return "Boss 栏"
}

func (bb *BossBarPlugin) Name() string {
	return "BossBarPlugin"
}
