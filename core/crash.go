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

package core

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Screen is the part of a host UI screen the crash boundary needs.
type Screen interface {
	Title() string
	Close()
}

// SafeCall runs f and recovers any panic it raises. The panic is logged and
// written to a crash report, f's caller keeps running.
func (m *Manager) SafeCall(scope string, f func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			m.crashed(scope, r, debug.Stack())
		}
	}()
	f()
	return true
}

// GuardScreen runs op for screen. A panic force-closes the screen instead of
// propagating into the host render loop.
func (m *Manager) GuardScreen(screen Screen, op func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			m.crashed("Screen "+screen.Title(), r, debug.Stack())
			m.SafeCall("Screen "+screen.Title(), screen.Close)
		}
	}()
	op()
	return true
}

func (m *Manager) crashed(scope string, recovered any, stack []byte) {
	m.kPrintln(color.RedString("%s 出现异常: ", scope), color.MagentaString("%v", recovered))
	path, err := m.writeCrashReport(scope, recovered, stack)
	if err != nil {
		m.kPrintln(color.RedString("写入崩溃报告失败: "), color.MagentaString(err.Error()))
		return
	}
	m.kPrintln(color.YellowString("崩溃报告已保存到 "), color.GreenString(path))
}

func (m *Manager) writeCrashReport(scope string, recovered any, stack []byte) (string, error) {
	now := time.Now()
	dir := filepath.Join(m.dataDir, "crash-reports")
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return "", err
	}
	report := &strings.Builder{}
	fmt.Fprintf(report, "Time: %s\n", now.Format(time.RFC3339Nano))
	fmt.Fprintf(report, "Scope: %s\n", scope)
	fmt.Fprintf(report, "Panic: %v\n", recovered)
	fmt.Fprintf(report, "Goroutines: %d\n", runtime.NumGoroutine())
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := proc.MemoryInfo(); err == nil {
			fmt.Fprintf(report, "Process RSS: %.2fMiB\n", float64(info.RSS)/1024/1024)
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		fmt.Fprintf(report, "System Memory: %.2fMiB / %.2fMiB (%.1f%%)\n", float64(vm.Used)/1024/1024, float64(vm.Total)/1024/1024, vm.UsedPercent)
	}
	fmt.Fprintf(report, "\n%s", stack)

	path := filepath.Join(dir, "crash-"+now.Format("2006_01_02_15_04_05.000000")+".txt")
	err = os.WriteFile(path, []byte(report.String()), 0644)
	if err != nil {
		return "", err
	}
	return path, nil
}
