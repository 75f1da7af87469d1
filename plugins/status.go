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
	"math"
	"os"
	"slices"
	"strings"
	"time"

	"git.bbaa.fun/bbaa/wynn-inference/core/event"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin/pluginabi"
	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/shirou/gopsutil/v3/cpu"
	load "github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// ticks averaged into one tick time sample
const statusSampleTicks = 20

type Status_NetStat struct {
	time time.Time
	stat net.IOCountersStat
}

// StatusPlugin reports host load and watches the tick time trend.
type StatusPlugin struct {
	plugin.BasePlugin
	LastBroadcastMspt float64
	LastMspt          []float64
	lastTick          time.Time
	tickSum           time.Duration
	tickCount         int
	lastnetStat       *Status_NetStat
}

func (s *StatusPlugin) DisplayName() string {
	return "状态监控"
}

func (s *StatusPlugin) Name() string {
	return "StatusPlugin"
}

func (s *StatusPlugin) Init(pm pluginabi.PluginManager) (err error) {
	err = s.BasePlugin.Init(pm, s)
	if err != nil {
		return err
	}
	event.Subscribe(s.Bus(), event.Lowest, func(ev plugin.TickEvent) {
		s.onTick(time.Now())
	})
	return s.RegisterCommand("status", s.status)
}

func (s *StatusPlugin) onTick(now time.Time) {
	if !s.lastTick.IsZero() {
		s.tickSum += now.Sub(s.lastTick)
		s.tickCount++
	}
	s.lastTick = now
	if s.tickCount < statusSampleTicks {
		return
	}
	s.addSample(float64(s.tickSum.Microseconds()) / 1000 / float64(s.tickCount))
	s.tickSum = 0
	s.tickCount = 0
}

// addSample feeds one average tick time in ms and reports a sharp trend
// change.
func (s *StatusPlugin) addSample(mspt float64) {
	if len(s.LastMspt) == 4 {
		s.LastMspt = s.LastMspt[1:]
	}
	s.LastMspt = append(s.LastMspt, mspt)
	if len(s.LastMspt) < 2 {
		return
	}
	K := s.leastsquares(s.LastMspt)
	if math.Abs(K) <= 2.0 {
		return
	}
	if K > 0 && math.Abs(slices.Max(s.LastMspt)-s.LastBroadcastMspt) > 8 {
		s.LastBroadcastMspt = slices.Max(s.LastMspt)
		s.Println(color.RedString("检测到 Tick 负载增加: "), s.msptLevel(mspt)("%.2fms", mspt))
	} else if K < 0 && math.Abs(slices.Min(s.LastMspt)-s.LastBroadcastMspt) > 8 {
		s.LastBroadcastMspt = slices.Min(s.LastMspt)
		s.Println(color.GreenString("检测到 Tick 负载减少: "), s.msptLevel(mspt)("%.2fms", mspt))
	}
}

func (s *StatusPlugin) leastsquares(series []float64) float64 {
	xAvg := (1 + float64(len(series))) / 2
	yAvg := 0.0
	for _, val := range series {
		yAvg += val
	}
	yAvg /= float64(len(series))

	xySum := 0.0
	xSquareSum := 0.0
	for i, val := range series {
		xySum += (float64(i+1) * val)
		xSquareSum += math.Pow(float64(i+1), 2)
	}

	return (xySum - float64(len(series))*xAvg*yAvg) / (xSquareSum - float64(len(series))*math.Pow(xAvg, 2))
}

func (s *StatusPlugin) floatLevel(f float64) func(format string, a ...interface{}) string {
	if f < 0.4 {
		return color.GreenString
	}
	if f < 0.7 {
		return color.YellowString
	}
	return color.RedString
}

func (s *StatusPlugin) msptLevel(mspt float64) func(format string, a ...interface{}) string {
	if mspt < 55 {
		return color.GreenString
	}
	if mspt < 65 {
		return color.YellowString
	}
	return color.RedString
}

func (s *StatusPlugin) getNetio() (o net.IOCountersStat, err error) {
	netio, err := net.IOCounters(true)
	if err != nil {
		return
	}
	for _, nic := range netio {
		if strings.HasPrefix(nic.Name, "eth") || strings.HasPrefix(nic.Name, "en") || strings.HasPrefix(nic.Name, "wl") {
			o.BytesRecv += nic.BytesRecv
			o.BytesSent += nic.BytesSent
		}
	}
	o.Name = "all"
	return
}

func (s *StatusPlugin) status(args ...string) {
	s.Println(color.GreenString("============ 系统负载 ============"))
	cpuCount, _ := cpu.Counts(true)
	cpuUsage, err := cpu.Percent(0, true)
	if err == nil && len(cpuUsage) > 0 {
		cpuUsageAvg := lo.Sum(cpuUsage) / float64(len(cpuUsage)) / 100.0
		usageBar := int(math.RoundToEven(cpuUsageAvg * 32.0))
		s.Println(
			color.CyanString("CPU使用率: "),
			color.YellowString("["),
			color.RedString(strings.Repeat("|", max(usageBar, 0))),
			color.GreenString(strings.Repeat("|", max(32-usageBar, 0))),
			color.YellowString("]"),
			s.floatLevel(cpuUsageAvg)(" %.2f%%", cpuUsageAvg*100),
		)
	}
	systemLoad, err := load.Avg()
	if err == nil && cpuCount != 0 {
		s.Println(
			color.CyanString("系统负载: "),
			color.YellowString("1min: "), s.floatLevel(systemLoad.Load1/float64(cpuCount))("%.2f", systemLoad.Load1),
			color.YellowString(" 5min: "), s.floatLevel(systemLoad.Load5/float64(cpuCount))("%.2f", systemLoad.Load5),
			color.YellowString(" 15min: "), s.floatLevel(systemLoad.Load15/float64(cpuCount))("%.2f", systemLoad.Load15),
		)
	}
	sysMem, err := mem.VirtualMemory()
	if err == nil {
		s.Println(
			color.CyanString("内存占用: "),
			s.floatLevel(sysMem.UsedPercent/100)("%.2fMiB", float64(sysMem.Used)/1024/1024),
			color.YellowString(" / "),
			color.GreenString("%.2fMiB", float64(sysMem.Total)/1024/1024),
		)
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := proc.MemoryInfo(); err == nil {
			s.Println(color.CyanString("进程内存: "), color.GreenString("%.2fMiB", float64(info.RSS)/1024/1024))
		}
	}
	now := time.Now()
	netio, err := s.getNetio()
	if err == nil {
		if s.lastnetStat != nil && now.Sub(s.lastnetStat.time) > 0 {
			seconds := now.Sub(s.lastnetStat.time).Seconds()
			upSpeed := float64(netio.BytesSent-s.lastnetStat.stat.BytesSent) * 8.0 / seconds / 1024.0 / 1024.0
			downSpeed := float64(netio.BytesRecv-s.lastnetStat.stat.BytesRecv) * 8.0 / seconds / 1024.0 / 1024.0
			s.Println(color.CyanString("网络: "), color.MagentaString("%.2f", upSpeed), color.YellowString(" Mbps↑ "), color.MagentaString("%.2f", downSpeed), color.YellowString(" Mbps↓"))
		}
		s.lastnetStat = &Status_NetStat{time: now, stat: netio}
	}
	if len(s.LastMspt) > 0 {
		mspt := s.LastMspt[len(s.LastMspt)-1]
		s.Println(color.CyanString("Tick 时间: "), s.msptLevel(mspt)("%.2fms", mspt))
	}
	s.Println(color.CyanString("世界: "), color.GreenString(s.WorldState().String()), color.YellowString(" "), color.GreenString(s.CurrentWorld()))
	s.Println(color.GreenString(fmt.Sprintf("============ %s ============", now.Format(time.TimeOnly))))
}
