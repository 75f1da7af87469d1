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
	"context"
	"strings"

	"git.bbaa.fun/bbaa/wynn-inference/core/event"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin/pluginabi"
	"github.com/fatih/color"
)

const ChangelogSourceKey = "changelog.source"

type ChangelogEvent struct {
	Changelog string
}

// ChangelogPlugin fetches the changelog once per connection, when the first
// world is joined. A response that arrives after the world changed is stale
// and dropped.
type ChangelogPlugin struct {
	plugin.BasePlugin
	Source    string
	requested bool
	changelog string
}

func (cp *ChangelogPlugin) Init(pm pluginabi.PluginManager) (err error) {
	err = cp.BasePlugin.Init(pm, cp)
	if err != nil {
		return err
	}
	if cp.Source == "" {
		cp.Source = cp.Config().String(ChangelogSourceKey, "")
	}
	event.Subscribe(cp.Bus(), event.Normal, cp.onWorldState)
	return cp.RegisterCommand("changelog", func(args ...string) {
		if cp.changelog == "" {
			cp.Println(color.YellowString("暂无更新日志"))
			return
		}
		for _, line := range strings.Split(cp.changelog, "\n") {
			cp.Println(line)
		}
	})
}

func (cp *ChangelogPlugin) onWorldState(ev plugin.WorldStateEvent) {
	if ev.New != plugin.InWorld || cp.requested || cp.Source == "" {
		return
	}
	cp.requested = true
	generation := cp.WorldGeneration()
	cp.Fetcher().FetchAsync(context.Background(), cp.Source, func(data []byte, err error) {
		if generation != cp.WorldGeneration() {
			cp.Println(color.YellowString("世界已切换，丢弃过期的更新日志"))
			cp.requested = false
			return
		}
		if err != nil {
			cp.Println(color.RedString("获取更新日志失败: "), color.MagentaString(err.Error()))
			return
		}
		cp.changelog = strings.TrimSpace(string(data))
		cp.Bus().Post(ChangelogEvent{Changelog: cp.changelog})
	})
}

func (cp *ChangelogPlugin) Changelog() string {
	return cp.changelog
}

func (cp *ChangelogPlugin) Reset() {
	cp.requested = false
	cp.changelog = ""
}

func (cp *ChangelogPlugin) DisplayName() string {
	return "更新日志"
}

func (cp *ChangelogPlugin) Name() string {
	return "ChangelogPlugin"
}
