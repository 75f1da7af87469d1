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
	"slices"
	"strconv"
	"sync"
	"time"

	"git.bbaa.fun/bbaa/wynn-inference/core/event"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin/pluginabi"
	"github.com/fatih/color"
	"github.com/samber/lo"
	"golang.org/x/exp/maps"
)

var MobTotemName = regexp.MustCompile(`^§f§l(.+)'s§6§l Mob Totem$`)
var MobTotemTimer = regexp.MustCompile(`^§c§l(\d+):(\d+)$`)

// A timer label is attached to the totem whose name label is this close.
const totemTimerDistance = 2.0

type MobTotem struct {
	ID        int
	Owner     string
	Position  plugin.Position
	Remaining time.Duration
}

type MobTotemEvent struct {
	Totem   MobTotem
	Removed bool
}

type TotemPlugin struct {
	plugin.BasePlugin
	totems map[int]*MobTotem
	timers map[int]int
	lock   sync.RWMutex
}

func (tp *TotemPlugin) Init(pm pluginabi.PluginManager) (err error) {
	err = tp.BasePlugin.Init(pm, tp)
	if err != nil {
		return err
	}
	tp.totems = make(map[int]*MobTotem)
	tp.timers = make(map[int]int)
	event.Subscribe(tp.Bus(), event.Normal, tp.onLabel)
	event.Subscribe(tp.Bus(), event.Normal, tp.onRemoved)
	return nil
}

func (tp *TotemPlugin) onLabel(ev plugin.EntityLabelEvent) {
	if match := ev.Text.Match(MobTotemName); match != nil {
		totem := &MobTotem{ID: ev.ID, Owner: match[1], Position: ev.Position}
		tp.lock.Lock()
		tp.totems[ev.ID] = totem
		tp.lock.Unlock()
		tp.Println(color.YellowString("发现 "), color.GreenString(totem.Owner), color.YellowString(" 的怪物图腾 @ "), color.CyanString(totem.Position.String()))
		tp.Bus().Post(MobTotemEvent{Totem: *totem})
		return
	}
	match := ev.Text.Match(MobTotemTimer)
	if match == nil {
		return
	}
	minutes, err := strconv.Atoi(match[1])
	if err != nil {
		tp.Println(color.RedString("无法解析图腾计时: "), color.CyanString(ev.Text.Unformatted()))
		return
	}
	seconds, err := strconv.Atoi(match[2])
	if err != nil {
		tp.Println(color.RedString("无法解析图腾计时: "), color.CyanString(ev.Text.Unformatted()))
		return
	}
	tp.lock.Lock()
	totem := tp.totemFor(ev.ID, ev.Position)
	if totem == nil {
		tp.lock.Unlock()
		return
	}
	tp.timers[ev.ID] = totem.ID
	totem.Remaining = time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second
	snapshot := *totem
	tp.lock.Unlock()
	tp.Bus().Post(MobTotemEvent{Totem: snapshot})
}

// totemFor must be called with the lock held.
func (tp *TotemPlugin) totemFor(timerID int, position plugin.Position) *MobTotem {
	if id, ok := tp.timers[timerID]; ok {
		if totem, ok := tp.totems[id]; ok {
			return totem
		}
	}
	var nearest *MobTotem
	for _, totem := range tp.totems {
		distance := totem.Position.Distance(position)
		if distance > totemTimerDistance {
			continue
		}
		if nearest == nil || distance < nearest.Position.Distance(position) {
			nearest = totem
		}
	}
	return nearest
}

func (tp *TotemPlugin) onRemoved(ev plugin.EntityRemovedEvent) {
	tp.lock.Lock()
	delete(tp.timers, ev.ID)
	totem, ok := tp.totems[ev.ID]
	if ok {
		delete(tp.totems, ev.ID)
		maps.DeleteFunc(tp.timers, func(timer int, id int) bool { return id == ev.ID })
	}
	tp.lock.Unlock()
	if ok {
		tp.Bus().Post(MobTotemEvent{Totem: *totem, Removed: true})
	}
}

func (tp *TotemPlugin) Totems() []MobTotem {
	tp.lock.RLock()
	defer tp.lock.RUnlock()
	ids := maps.Keys(tp.totems)
	slices.Sort(ids)
	return lo.Map(ids, func(id int, index int) MobTotem {
		return *tp.totems[id]
	})
}

func (tp *TotemPlugin) Reset() {
	tp.lock.Lock()
	defer tp.lock.Unlock()
	clear(tp.totems)
	clear(tp.timers)
}

func (tp *TotemPlugin) Describe() []string {
	return lo.Map(tp.Totems(), func(totem MobTotem, index int) string {
		return fmt.Sprintf("%s @ %s %s", totem.Owner, totem.Position, totem.Remaining)
	})
}

func (tp *TotemPlugin) DisplayName() string {
	return "怪物图腾"
}

func (tp *TotemPlugin) Name() string {
	return "TotemPlugin"
}
