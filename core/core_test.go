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
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"git.bbaa.fun/bbaa/wynn-inference/core/event"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin/pluginabi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, output io.Writer) *Manager {
	if output == nil {
		output = io.Discard
	}
	m, err := NewManager(Options{DataDir: t.TempDir(), Output: output})
	require.NoError(t, err)
	return m
}

func TestTaskQueue(t *testing.T) {
	q := NewTaskQueue(2)
	var ran []int
	assert.True(t, q.Submit(func() { ran = append(ran, 1) }))
	assert.True(t, q.Submit(func() {
		ran = append(ran, 2)
		q.Submit(func() { ran = append(ran, 3) })
	}))
	assert.False(t, q.Submit(func() { ran = append(ran, 4) }))
	assert.Equal(t, uint64(1), q.Dropped())

	assert.Equal(t, 2, q.Drain(func(task func()) { task() }))
	assert.Equal(t, []int{1, 2}, ran)
	assert.Equal(t, 1, q.Len())

	assert.Equal(t, 1, q.Drain(func(task func()) { task() }))
	assert.Equal(t, []int{1, 2, 3}, ran)
	assert.Equal(t, 0, q.Drain(func(task func()) { task() }))
}

func TestSafeCallWritesCrashReport(t *testing.T) {
	out := &bytes.Buffer{}
	m := newTestManager(t, out)

	assert.True(t, m.SafeCall("fine", func() {}))
	assert.False(t, m.SafeCall("exploding", func() { panic("boom") }))

	reports, err := filepath.Glob(filepath.Join(m.DataDir(), "crash-reports", "crash-*.txt"))
	require.NoError(t, err)
	require.Len(t, reports, 1)
	data, err := os.ReadFile(reports[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Scope: exploding")
	assert.Contains(t, string(data), "Panic: boom")
	assert.Contains(t, out.String(), "崩溃报告已保存到")
}

type testScreen struct {
	title  string
	closed int
}

func (s *testScreen) Title() string { return s.title }
func (s *testScreen) Close()        { s.closed++ }

func TestGuardScreenClosesOnPanic(t *testing.T) {
	m := newTestManager(t, nil)
	screen := &testScreen{title: "Loot Chest"}

	assert.True(t, m.GuardScreen(screen, func() {}))
	assert.Equal(t, 0, screen.closed)

	assert.False(t, m.GuardScreen(screen, func() { panic(errors.New("bad slot")) }))
	assert.Equal(t, 1, screen.closed)
}

func TestBusPanicIsReported(t *testing.T) {
	m := newTestManager(t, nil)
	event.Subscribe(m.Bus(), event.Normal, func(plugin.ScreenOpenedEvent) { panic("listener") })
	screen := &testScreen{title: "Select a Character"}
	m.Connect("play.wynncraft.com")
	assert.True(t, m.HandleScreenOpened(screen))
	assert.Equal(t, plugin.CharacterSelection, m.WorldState().State())

	reports, err := filepath.Glob(filepath.Join(m.DataDir(), "crash-reports", "*.txt"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

type failingPlugin struct {
	plugin.BasePlugin
}

func (p *failingPlugin) Init(pm pluginabi.PluginManager) error {
	return errors.New("no luck")
}

func (p *failingPlugin) Name() string {
	return "Failing"
}

type countingPlugin struct {
	plugin.BasePlugin
	started int
	paused  int
}

func (p *countingPlugin) Init(pm pluginabi.PluginManager) error {
	return p.BasePlugin.Init(pm, p)
}

func (p *countingPlugin) Start() { p.started++ }
func (p *countingPlugin) Pause() { p.paused++ }

func (p *countingPlugin) Name() string {
	return "Counting"
}

func TestRegisterPlugin(t *testing.T) {
	m := newTestManager(t, nil)
	assert.ErrorIs(t, m.RegisterPlugin(&plugin.WorldStateCore{}), ErrPluginExists)

	assert.EqualError(t, m.RegisterPlugin(&failingPlugin{}), "no luck")
	assert.Nil(t, m.GetPlugin("Failing"))

	p := &countingPlugin{}
	require.NoError(t, m.RegisterPlugin(p))
	assert.Same(t, p, m.GetPlugin("Counting"))
	assert.Equal(t, 0, p.started)

	m.Start()
	m.Start()
	assert.Equal(t, 1, p.started)
	late := &lateCountingPlugin{}
	require.NoError(t, m.RegisterPlugin(late))
	assert.Equal(t, 1, late.started)

	m.Close()
	assert.Equal(t, 1, p.paused)

	names := []string{}
	for _, p := range m.Plugins() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"WorldStateCore", "ScoreboardCore", "ChatCore", "CharacterCore", "ItemCore", "Counting", "LateCounting"}, names)
}

type lateCountingPlugin struct {
	countingPlugin
}

func (p *lateCountingPlugin) Init(pm pluginabi.PluginManager) error {
	return p.BasePlugin.Init(pm, p)
}

func (p *lateCountingPlugin) Name() string {
	return "LateCounting"
}

func TestCommands(t *testing.T) {
	m := newTestManager(t, nil)
	owner := &pluginabi.PluginNameWrapper{PluginName: "Tester"}
	var got []string
	require.NoError(t, m.RegisterCommand(owner, "echo", func(args ...string) { got = args }))
	assert.ErrorIs(t, m.RegisterCommand(owner, "echo", nil), ErrCommandExists)
	require.NoError(t, m.RegisterCommand(owner, "boom", func(args ...string) { panic("boom") }))

	assert.True(t, m.RunCommand("echo  a b"))
	assert.Equal(t, []string{"a", "b"}, got)
	assert.False(t, m.RunCommand("missing"))
	assert.False(t, m.RunCommand("   "))
	assert.True(t, m.RunCommand("boom"))
	assert.Equal(t, []string{"boom", "echo"}, m.Commands())
}

func TestRunOnMainRunsOnTick(t *testing.T) {
	m := newTestManager(t, nil)
	var ticks []uint64
	event.Subscribe(m.Bus(), event.Normal, func(ev plugin.TickEvent) {
		ticks = append(ticks, ev.Tick)
	})

	ran := false
	require.True(t, m.RunOnMain(func() { ran = true }))
	require.True(t, m.RunOnMain(func() { panic("task") }))
	assert.False(t, ran)

	m.Tick()
	assert.True(t, ran)
	m.Tick()
	assert.Equal(t, []uint64{1, 2}, ticks)
	assert.Equal(t, 0, m.Queue().Len())
}

func TestConfigIsCreated(t *testing.T) {
	m := newTestManager(t, nil)
	_, err := os.Stat(filepath.Join(m.DataDir(), "config.json"))
	assert.NoError(t, err)
}

func TestREPLDrivesScoreboard(t *testing.T) {
	out := &bytes.Buffer{}
	m := newTestManager(t, out)
	var segments []plugin.ScoreboardSegment
	require.NoError(t, m.Scoreboard().RegisterPart(&pluginabi.PluginNameWrapper{PluginName: "Tester"}, plugin.ScoreboardPart{
		Matcher:  plugin.SegmentMatcher{Name: "Quest", Header: regexp.MustCompile(`^Tracked Quest:$`)},
		OnChange: func(s plugin.ScoreboardSegment) { segments = append(segments, s) },
	}))

	r := NewREPL(m)
	script := []string{
		"connect",
		"tab &fGlobal [WC3]",
		"score 3 &eTracked Quest:",
		"score 2 &eGather Info",
		"score 1 Find the merchant",
	}
	for _, line := range script {
		assert.False(t, r.Exec(line), line)
	}
	assert.Equal(t, plugin.InWorld, m.WorldState().State())
	assert.Equal(t, "WC3", m.WorldState().World())
	require.Len(t, segments, 3)
	assert.Equal(t, []string{"Gather Info", "Find the merchant"}, segments[2].UnformattedContent())
	assert.Equal(t, "§eGather Info", segments[2].Content[0].String())

	assert.False(t, r.Exec("score remove 1"))
	require.Len(t, segments, 4)
	assert.Equal(t, []string{"Gather Info"}, segments[3].UnformattedContent())

	assert.False(t, r.Exec("frobnicate"))
	assert.Contains(t, out.String(), "未知的命令")
	assert.True(t, r.Exec("exit"))
}

func TestREPLServeReleasesReaderOnExit(t *testing.T) {
	m := newTestManager(t, nil)
	r := NewREPL(m)
	script := []string{"connect", "exit", "disconnect"}
	readLine := func() (string, error) {
		if len(script) == 0 {
			return "", io.EOF
		}
		line := script[0]
		script = script[1:]
		return line, nil
	}
	require.NoError(t, r.serve(readLine))
	assert.Equal(t, plugin.Connecting, m.WorldState().State())

	done := make(chan struct{})
	close(done)
	finished := make(chan struct{})
	go func() {
		r.readLines(func() (string, error) { return "help", nil }, make(chan string), make(chan error, 1), done)
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("reader kept blocking after exit")
	}
}

func TestREPLServeStopsOnEOF(t *testing.T) {
	r := NewREPL(newTestManager(t, nil))
	assert.NoError(t, r.serve(func() (string, error) { return "", io.EOF }))
	boom := errors.New("boom")
	assert.ErrorIs(t, r.serve(func() (string, error) { return "", boom }), boom)
}
