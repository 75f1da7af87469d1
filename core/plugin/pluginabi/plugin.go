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

package pluginabi

import (
	"git.bbaa.fun/bbaa/wynn-inference/core/config"
	"git.bbaa.fun/bbaa/wynn-inference/core/event"
	"git.bbaa.fun/bbaa/wynn-inference/core/netfetch"
)

type Plugin interface {
	Init(PluginManager) error
	Start()
	Pause()
	Name() string
	DisplayName() string
}

type PluginName interface {
	Name() string
	DisplayName() string
}

type PluginNameWrapper struct {
	PluginName        string
	PluginDisplayName string
}

func (p *PluginNameWrapper) Name() string {
	return p.PluginName
}

func (p *PluginNameWrapper) DisplayName() string {
	if p.PluginDisplayName == "" {
		return p.PluginName
	}
	return p.PluginDisplayName
}

// Resettable plugins drop all per-connection state when the client
// disconnects.
type Resettable interface {
	Reset()
}

// Describer plugins can dump their current state for the console.
type Describer interface {
	Describe() []string
}

type PluginManager interface {
	Printf(scope string, format string, a ...any) (n int, err error)
	Println(scope string, a ...any) (n int, err error)
	RegisterPlugin(plugin Plugin) (err error)
	GetPlugin(pluginName string) Plugin
	Plugins() []Plugin
	RegisterCommand(context PluginName, command string, commandFunc func(args ...string)) error

	Bus() *event.Bus
	Config() *config.Config
	Fetcher() *netfetch.Fetcher
	DataDir() string
	// RunOnMain queues task for the tick thread. It is safe from any goroutine.
	RunOnMain(task func()) bool
	SafeCall(scope string, f func()) bool
}
