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

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.bbaa.fun/bbaa/wynn-inference/core"
	"git.bbaa.fun/bbaa/wynn-inference/plugins"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	godotenv.Load()

	dataDir := pflag.StringP("data", "d", envOr("WYNN_DATA_DIR", "data"), "数据目录")
	reference := pflag.String("reference", os.Getenv("WYNN_REFERENCE_URL"), "物品数据 URL 或文件")
	changelog := pflag.String("changelog-url", os.Getenv("WYNN_CHANGELOG_URL"), "更新日志 URL")
	noREPL := pflag.Bool("no-repl", false, "不启动终端命令")
	pflag.Parse()

	manager, err := core.NewManager(core.Options{DataDir: *dataDir, WatchConfig: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("启动失败: %s", err.Error()))
		os.Exit(1)
	}
	manager.RegisterPlugin(&plugins.QuestPlugin{})
	manager.RegisterPlugin(&plugins.ObjectivesPlugin{})
	manager.RegisterPlugin(&plugins.TokenPlugin{})
	manager.RegisterPlugin(&plugins.PartyPlugin{})
	manager.RegisterPlugin(&plugins.BossBarPlugin{})
	manager.RegisterPlugin(&plugins.ActionBarPlugin{})
	manager.RegisterPlugin(&plugins.TotemPlugin{})
	manager.RegisterPlugin(&plugins.StatisticsPlugin{})
	manager.RegisterPlugin(&plugins.TranslationPlugin{})
	manager.RegisterPlugin(&plugins.ReferencePlugin{Source: *reference})
	manager.RegisterPlugin(&plugins.ChangelogPlugin{Source: *changelog})
	manager.RegisterPlugin(&plugins.BackupPlugin{})
	manager.RegisterPlugin(&plugins.StatusPlugin{})
	manager.Start()
	defer manager.Close()

	if *noREPL {
		sysSignals := make(chan os.Signal, 1)
		signal.Notify(sysSignals, syscall.SIGINT, syscall.SIGTERM)
		ticker := time.NewTicker(core.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				manager.Tick()
			case <-sysSignals:
				return
			}
		}
	}
	err = core.NewREPL(manager).Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("终端错误: %s", err.Error()))
	}
}

func envOr(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
