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
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"git.bbaa.fun/bbaa/wynn-inference/core/plugin"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin/pluginabi"
	"github.com/fatih/color"
	"github.com/go-co-op/gocron/v2"
	"github.com/otiai10/copy"
	"github.com/samber/lo"
)

const BackupPlugin_MaxBackups = 10

// BackupPlugin snapshots the data directory (config, statistics, translation
// cache) on a schedule.
type BackupPlugin struct {
	plugin.BasePlugin
	Dest       string // backup dest, <data>/snapshots by default
	MaxBackups int
	Schedule   string
	backupLock sync.Mutex
	cron       gocron.Scheduler
}

func (bp *BackupPlugin) DisplayName() string {
	return "简单备份"
}

func (bp *BackupPlugin) Name() string {
	return "BackupPlugin"
}

func (bp *BackupPlugin) SaveSize(src string) (int64, error) {
	var size int64
	err := filepath.Walk(src, func(file string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && !bp.skipped(file) {
			size += info.Size()
		}
		return err
	})
	return size, err
}

// skipped reports whether a file under the data directory stays out of the
// snapshot.
func (bp *BackupPlugin) skipped(path string) bool {
	rel, err := filepath.Rel(bp.DataDir(), path)
	if err != nil {
		return false
	}
	top := strings.Split(filepath.ToSlash(rel), "/")[0]
	if slices.Contains([]string{"backups", "crash-reports"}, top) {
		return true
	}
	if abs, err := filepath.Abs(path); err == nil {
		if dest, err := filepath.Abs(bp.Dest); err == nil && (abs == dest || strings.HasPrefix(abs, dest+string(filepath.Separator))) {
			return true
		}
	}
	return strings.HasSuffix(path, ".tmp")
}

// MakeBackup copies the data directory and returns the snapshot path.
func (bp *BackupPlugin) MakeBackup(comment string) (string, error) {
	now := time.Now()
	if !bp.backupLock.TryLock() {
		bp.Println(color.YellowString("已有正在进行的备份进程，"), color.RedString("本次备份操作取消"))
		return "", fmt.Errorf("backup in progress")
	}
	defer bp.backupLock.Unlock()
	dest := filepath.Join(bp.Dest, comment+"_"+now.Format("2006_01_02_15_04_05"))
	size, err := bp.SaveSize(bp.DataDir())
	if err != nil {
		bp.Println(color.RedString("统计数据大小失败: "), color.MagentaString(err.Error()))
	}
	bp.Println(color.YellowString("正在备份数据 "), color.GreenString(comment), color.YellowString(" 大小: "), color.GreenString("%.2fKiB", float64(size)/1024))
	err = copy.Copy(bp.DataDir(), dest, copy.Options{
		Skip: func(srcinfo os.FileInfo, src, dest string) (bool, error) {
			return bp.skipped(src), nil
		},
		PreserveTimes: true,
	})
	if err != nil {
		bp.Println(color.RedString("备份失败: "), color.MagentaString(err.Error()))
		return "", err
	}
	bp.Println(color.GreenString("备份完成: "), color.CyanString(dest))
	bp.prune()
	return dest, nil
}

func (bp *BackupPlugin) List() []string {
	entries, err := os.ReadDir(bp.Dest)
	if err != nil {
		return nil
	}
	entries = slices.DeleteFunc(entries, func(entry fs.DirEntry) bool { return !entry.IsDir() })
	slices.SortFunc(entries, func(a fs.DirEntry, b fs.DirEntry) int {
		stata, err := a.Info()
		if err != nil {
			return 0
		}
		statb, err := b.Info()
		if err != nil {
			return 0
		}
		return statb.ModTime().Compare(stata.ModTime())
	})
	return lo.Map(entries, func(item fs.DirEntry, index int) string {
		return item.Name()
	})
}

func (bp *BackupPlugin) prune() {
	backups := bp.List()
	if len(backups) <= bp.MaxBackups {
		return
	}
	for _, name := range backups[bp.MaxBackups:] {
		err := os.RemoveAll(filepath.Join(bp.Dest, name))
		if err != nil {
			bp.Println(color.RedString("删除旧备份失败: "), color.MagentaString(err.Error()))
			continue
		}
		bp.Println(color.YellowString("删除旧备份: "), color.CyanString(name))
	}
}

func (bp *BackupPlugin) Cli(args ...string) {
	if len(args) == 0 {
		bp.Println(color.RedString("未知的命令"))
		return
	}
	switch args[0] {
	case "make":
		if len(args) < 2 {
			bp.Println(color.RedString("没有填写备注"))
			return
		}
		bp.MakeBackup(strings.Join(args[1:], "_"))
	case "list":
		for index, name := range bp.List() {
			bp.Println(color.GreenString("%d.", index+1), color.YellowString(name))
		}
	default:
		bp.Println(color.RedString("未知的命令"))
	}
}

func (bp *BackupPlugin) Init(pm pluginabi.PluginManager) (err error) {
	err = bp.BasePlugin.Init(pm, bp)
	if err != nil {
		return err
	}
	if bp.Dest == "" {
		bp.Dest = filepath.Join(bp.DataDir(), "snapshots")
	}
	if bp.MaxBackups <= 0 {
		bp.MaxBackups = BackupPlugin_MaxBackups
	}
	if bp.Schedule == "" {
		bp.Schedule = "*/30 * * * *"
	}
	bp.cron, err = gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = bp.cron.NewJob(gocron.CronJob(bp.Schedule, false), gocron.NewTask(func() {
		bp.MakeBackup("AutoBackup")
	}), gocron.WithSingletonMode(gocron.LimitModeReschedule))
	if err != nil {
		return err
	}
	return bp.RegisterCommand("backup", bp.Cli)
}

func (bp *BackupPlugin) Start() {
	bp.cron.Start()
}

func (bp *BackupPlugin) Pause() {
	bp.cron.StopJobs()
}
