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
	"time"

	"git.bbaa.fun/bbaa/wynn-inference/core/item"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin/pluginabi"
	"github.com/fatih/color"
	"github.com/go-co-op/gocron/v2"
)

const ReferenceSourceKey = "reference.source"

// ReferencePlugin keeps the item reference data of the annotation chain up to
// date. Source is a URL or a local file.
type ReferencePlugin struct {
	plugin.BasePlugin
	Source   string
	Interval time.Duration
	cron     gocron.Scheduler
	loaded   int
}

func (rp *ReferencePlugin) Init(pm pluginabi.PluginManager) (err error) {
	err = rp.BasePlugin.Init(pm, rp)
	if err != nil {
		return err
	}
	if rp.Source == "" {
		rp.Source = rp.Config().String(ReferenceSourceKey, "")
	}
	if rp.Interval <= 0 {
		rp.Interval = 6 * time.Hour
	}
	rp.cron, err = gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = rp.cron.NewJob(gocron.DurationJob(rp.Interval), gocron.NewTask(rp.Refresh), gocron.WithSingletonMode(gocron.LimitModeReschedule))
	if err != nil {
		return err
	}
	return rp.RegisterCommand("reference", func(args ...string) {
		rp.Refresh()
	})
}

// Refresh starts a background fetch. The parsed data replaces the current
// reference on the main thread.
func (rp *ReferencePlugin) Refresh() {
	if rp.Source == "" {
		return
	}
	rp.Println(color.YellowString("正在获取物品数据: "), color.CyanString(rp.Source))
	rp.Fetcher().FetchAsync(context.Background(), rp.Source, func(data []byte, err error) {
		if err != nil {
			rp.Println(color.RedString("获取物品数据失败: "), color.MagentaString(err.Error()))
			return
		}
		ref, err := item.ParseReference(data)
		if err != nil {
			rp.Println(color.RedString("解析物品数据失败: "), color.MagentaString(err.Error()))
			return
		}
		rp.loaded++
		rp.SetItemReference(ref)
	})
}

// Loaded counts the successful refreshes.
func (rp *ReferencePlugin) Loaded() int {
	return rp.loaded
}

func (rp *ReferencePlugin) Start() {
	rp.cron.Start()
	rp.Refresh()
}

func (rp *ReferencePlugin) Pause() {
	rp.cron.StopJobs()
}

func (rp *ReferencePlugin) DisplayName() string {
	return "物品数据"
}

func (rp *ReferencePlugin) Name() string {
	return "ReferencePlugin"
}
