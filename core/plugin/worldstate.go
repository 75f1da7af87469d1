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
	"regexp"
	"strings"
	"sync"

	"git.bbaa.fun/bbaa/wynn-inference/core/plugin/pluginabi"
	"git.bbaa.fun/bbaa/wynn-inference/core/styled"
	"github.com/fatih/color"
)

type WorldState int

const (
	NotConnected WorldState = iota
	Connecting
	CharacterSelection
	Hub
	Interim
	InWorld
)

func (ws WorldState) String() string {
	switch ws {
	case NotConnected:
		return "NOT_CONNECTED"
	case Connecting:
		return "CONNECTING"
	case CharacterSelection:
		return "CHARACTER_SELECTION"
	case Hub:
		return "HUB"
	case Interim:
		return "INTERIM"
	case InWorld:
		return "WORLD"
	}
	return "UNKNOWN"
}

func (ws WorldState) DisplayName() string {
	if name, ok := worldStateName[ws]; ok {
		return name
	}
	return ws.String()
}

// WorldStateEvent is posted on every transition. World is only set for
// InWorld.
type WorldStateEvent struct {
	Old   WorldState
	New   WorldState
	World string
}

var WynncraftHost = regexp.MustCompile(`(?i)^(?:(?:beta|play|media|lobby)\.)?wynncraft\.(?:com|net|org)\.?(?::\d+)?$`)
var CharacterSelectionTitle = regexp.MustCompile(`^Select a Character$`)
var TabHeaderWorld = regexp.MustCompile(`Global \[(.+?)\]`)
var TabHeaderHub = regexp.MustCompile(`(?i)Wynncraft Hub`)
var HubWorldName = regexp.MustCompile(`(?i)^(?:Wynn)?Hub(?:-?\d+)?$`)

type WorldStateCore struct {
	BasePlugin
	state      WorldState
	world      string
	generation uint64
	lock       sync.RWMutex
}

func (wc *WorldStateCore) Init(pm pluginabi.PluginManager) error {
	return wc.BasePlugin.Init(pm, wc)
}

func (wc *WorldStateCore) State() WorldState {
	wc.lock.RLock()
	defer wc.lock.RUnlock()
	return wc.state
}

func (wc *WorldStateCore) World() string {
	wc.lock.RLock()
	defer wc.lock.RUnlock()
	return wc.world
}

func (wc *WorldStateCore) Generation() uint64 {
	wc.lock.RLock()
	defer wc.lock.RUnlock()
	return wc.generation
}

func (wc *WorldStateCore) OnConnect(host string) {
	host = strings.TrimSpace(host)
	if !WynncraftHost.MatchString(host) {
		wc.Println(color.YellowString("连接的服务器 "), color.CyanString(host), color.YellowString(" 不是 Wynncraft，忽略"))
		return
	}
	wc.setState(Connecting, "")
}

func (wc *WorldStateCore) OnDisconnect() {
	wc.setState(NotConnected, "")
}

func (wc *WorldStateCore) OnScreenOpened(title styled.Text) {
	if wc.State() == NotConnected {
		return
	}
	if title.Trim().MatchesUnformatted(CharacterSelectionTitle) {
		wc.setState(CharacterSelection, "")
	}
}

func (wc *WorldStateCore) OnTabHeader(header styled.Text) {
	if wc.State() == NotConnected {
		return
	}
	if header.MatchesUnformatted(TabHeaderHub) {
		wc.setState(Hub, "")
		return
	}
	match := header.MatchUnformatted(TabHeaderWorld)
	if len(match) < 2 {
		return
	}
	world := strings.TrimSpace(match[1])
	if HubWorldName.MatchString(world) {
		wc.setState(Hub, "")
		return
	}
	wc.setState(InWorld, world)
}

// OnRespawn handles respawn and dimension change packets. Leaving a world or
// the hub this way always passes through Interim until the next tab header
// says where we are.
func (wc *WorldStateCore) OnRespawn() {
	switch wc.State() {
	case InWorld, Hub:
		wc.setState(Interim, "")
	}
}

func (wc *WorldStateCore) setState(state WorldState, world string) {
	wc.lock.Lock()
	old := wc.state
	if old == state && wc.world == world {
		wc.lock.Unlock()
		return
	}
	wc.state = state
	wc.world = world
	wc.generation++
	wc.lock.Unlock()

	if world != "" {
		wc.Println(color.YellowString("世界状态: "), color.BlueString(old.DisplayName()), color.YellowString(" -> "), color.GreenString(state.DisplayName()), color.YellowString(" ["), color.CyanString(world), color.YellowString("]"))
	} else {
		wc.Println(color.YellowString("世界状态: "), color.BlueString(old.DisplayName()), color.YellowString(" -> "), color.GreenString(state.DisplayName()))
	}
	if state == NotConnected {
		wc.resetAll()
	}
	wc.Bus().Post(WorldStateEvent{Old: old, New: state, World: world})
}

// resetAll drops per-connection state of every plugin, in registration order.
func (wc *WorldStateCore) resetAll() {
	for _, p := range wc.pm.Plugins() {
		resettable, ok := p.(pluginabi.Resettable)
		if !ok {
			continue
		}
		wc.pm.SafeCall(p.DisplayName(), resettable.Reset)
	}
}

func (wc *WorldStateCore) Describe() []string {
	wc.lock.RLock()
	defer wc.lock.RUnlock()
	if wc.world != "" {
		return []string{wc.state.String() + " " + wc.world}
	}
	return []string{wc.state.String()}
}

func (wc *WorldStateCore) Name() string {
	return "WorldStateCore"
}

func (wc *WorldStateCore) DisplayName() string {
	return "世界状态核心"
}
