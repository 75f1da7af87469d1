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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"git.bbaa.fun/bbaa/wynn-inference/core/config"
	"git.bbaa.fun/bbaa/wynn-inference/core/event"
	"git.bbaa.fun/bbaa/wynn-inference/core/item"
	"git.bbaa.fun/bbaa/wynn-inference/core/netfetch"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin/pluginabi"
	"git.bbaa.fun/bbaa/wynn-inference/core/styled"
	"github.com/fatih/color"
	"github.com/samber/lo"
	"golang.org/x/exp/maps"
)

var ErrPluginExists = errors.New("plugin exists")
var ErrCommandExists = errors.New("command exists")

type Options struct {
	DataDir string
	// Output receives every log line, color.Output when nil.
	Output      io.Writer
	WatchConfig bool
}

type registeredCommand struct {
	owner pluginabi.PluginName
	fn    func(args ...string)
}

// Manager is the composition root. It owns every service the plugins share
// and is the only entry point for host input.
type Manager struct {
	dataDir     string
	output      io.Writer
	outputLock  sync.Mutex
	watchConfig bool

	bus     *event.Bus
	queue   *TaskQueue
	config  *config.Config
	watcher *config.Watcher
	fetcher *netfetch.Fetcher

	plugins    []pluginabi.Plugin
	pluginLock sync.RWMutex
	commands   map[string]*registeredCommand
	cmdLock    sync.RWMutex
	started    atomic.Bool
	tick       uint64

	worldState *plugin.WorldStateCore
	scoreboard *plugin.ScoreboardCore
	chat       *plugin.ChatCore
	character  *plugin.CharacterCore
	items      *plugin.ItemCore
}

func NewManager(opts Options) (*Manager, error) {
	m := &Manager{
		dataDir:     opts.DataDir,
		output:      opts.Output,
		watchConfig: opts.WatchConfig,
		bus:         event.NewBus(),
		queue:       NewTaskQueue(TaskQueueSize),
		commands:    make(map[string]*registeredCommand),
	}
	if m.dataDir == "" {
		m.dataDir = "data"
	}
	if m.output == nil {
		m.output = color.Output
	}
	err := os.MkdirAll(m.dataDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	m.bus.OnPanic = func(e any, recovered any) {
		m.crashed(fmt.Sprintf("事件 %s", reflect.TypeOf(e)), recovered, debug.Stack())
	}
	m.fetcher = netfetch.NewFetcher(m.RunOnMain)
	m.config = config.New(filepath.Join(m.dataDir, "config.json"), filepath.Join(m.dataDir, "backups"), config.DefaultUpfixers()...)
	m.loadConfig()
	m.kPrintln(color.YellowString("正在加载内置插件"))
	m.loadBuiltinPlugin()
	return m, nil
}

func (m *Manager) loadConfig() (changed []string) {
	_, statErr := os.Stat(m.config.Path())
	changed, err := m.config.Load()
	if err != nil {
		m.kPrintln(color.RedString("加载配置失败，使用默认配置: "), color.MagentaString(err.Error()))
		return nil
	}
	missing := errors.Is(statErr, os.ErrNotExist)
	if missing {
		m.kPrintln(color.YellowString("配置文件不存在，创建默认配置: "), color.GreenString(m.config.Path()))
	}
	if len(changed) > 0 {
		m.kPrintln(color.YellowString("配置已升级: "), color.GreenString(strings.Join(changed, ", ")))
	}
	if missing || len(changed) > 0 {
		err = m.config.Save()
		if err != nil {
			m.kPrintln(color.RedString("保存配置失败: "), color.MagentaString(err.Error()))
		}
	}
	return changed
}

func (m *Manager) reloadConfig() {
	changed := m.loadConfig()
	m.kPrintln(color.YellowString("配置文件已重新加载"))
	m.bus.Post(plugin.ConfigReloadedEvent{Changed: changed})
}

func (m *Manager) Printf(scope string, format string, a ...any) (n int, err error) {
	m.outputLock.Lock()
	defer m.outputLock.Unlock()
	return fmt.Fprintf(m.output, color.YellowString("[")+"%s"+color.YellowString("] ")+strings.TrimRight(format, "\r\n")+"\r\n", append([]any{scope}, a...)...)
}

func (m *Manager) Println(scope string, a ...any) (n int, err error) {
	return m.Printf(scope, "%s", strings.TrimRight(fmt.Sprint(a...), "\r\n"))
}

func (m *Manager) kPrintln(a ...any) (n int, err error) {
	return m.Println(color.RedString("WynnManager"), a...)
}

func (m *Manager) RegisterPlugin(p pluginabi.Plugin) (err error) {
	pluginName := p.Name()
	pluginDisplayName := p.DisplayName()
	m.pluginLock.Lock()
	if slices.ContainsFunc(m.plugins, func(item pluginabi.Plugin) bool { return item.Name() == pluginName }) {
		m.pluginLock.Unlock()
		m.kPrintln(color.YellowString("插件 "), color.BlueString(pluginDisplayName), color.RedString(" 已经加载，"), color.YellowString("本次加载请求忽略"))
		return ErrPluginExists
	}
	m.plugins = append(m.plugins, p)
	m.pluginLock.Unlock()

	m.kPrintln(color.YellowString("注册并加载新插件 "), color.BlueString(pluginDisplayName))
	err = p.Init(m)
	if err != nil {
		m.kPrintln(color.YellowString("插件 "), color.BlueString(pluginDisplayName), color.RedString(" 加载失败: "), color.MagentaString(err.Error()))
		m.pluginLock.Lock()
		m.plugins = slices.DeleteFunc(m.plugins, func(item pluginabi.Plugin) bool { return item == p })
		m.pluginLock.Unlock()
		return err
	}
	m.kPrintln(color.YellowString("插件 "), color.BlueString(pluginDisplayName), color.GreenString(" 加载成功"))
	if m.started.Load() {
		m.SafeCall(pluginDisplayName, p.Start)
	}
	return nil
}

func (m *Manager) GetPlugin(pluginName string) pluginabi.Plugin {
	m.pluginLock.RLock()
	defer m.pluginLock.RUnlock()
	p, _ := lo.Find(m.plugins, func(item pluginabi.Plugin) bool { return item.Name() == pluginName })
	return p
}

// Plugins returns the plugins in registration order.
func (m *Manager) Plugins() []pluginabi.Plugin {
	m.pluginLock.RLock()
	defer m.pluginLock.RUnlock()
	return slices.Clone(m.plugins)
}

func (m *Manager) RegisterCommand(context pluginabi.PluginName, command string, commandFunc func(args ...string)) error {
	m.cmdLock.Lock()
	defer m.cmdLock.Unlock()
	if _, ok := m.commands[command]; ok {
		m.kPrintln(color.YellowString("插件 "), color.BlueString(context.DisplayName()), color.RedString(" 尝试注册已注册的命令: "), color.GreenString(command))
		return ErrCommandExists
	}
	m.kPrintln(color.YellowString("插件 "), color.BlueString(context.DisplayName()), color.YellowString(" 注册了一条新命令: "), color.GreenString(command))
	m.commands[command] = &registeredCommand{owner: context, fn: commandFunc}
	return nil
}

// RunCommand runs a registered command and reports whether one was found.
func (m *Manager) RunCommand(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	m.cmdLock.RLock()
	cmd, ok := m.commands[fields[0]]
	m.cmdLock.RUnlock()
	if !ok {
		return false
	}
	m.SafeCall(cmd.owner.DisplayName(), func() { cmd.fn(fields[1:]...) })
	return true
}

func (m *Manager) Commands() []string {
	m.cmdLock.RLock()
	defer m.cmdLock.RUnlock()
	keys := maps.Keys(m.commands)
	slices.Sort(keys)
	return keys
}

func (m *Manager) Bus() *event.Bus {
	return m.bus
}

func (m *Manager) Config() *config.Config {
	return m.config
}

func (m *Manager) Fetcher() *netfetch.Fetcher {
	return m.fetcher
}

func (m *Manager) DataDir() string {
	return m.dataDir
}

func (m *Manager) Queue() *TaskQueue {
	return m.queue
}

func (m *Manager) RunOnMain(task func()) bool {
	if !m.queue.Submit(task) {
		m.kPrintln(color.RedString("主线程任务队列已满，任务被丢弃"))
		return false
	}
	return true
}

func (m *Manager) loadBuiltinPlugin() {
	m.worldState = &plugin.WorldStateCore{}
	m.scoreboard = &plugin.ScoreboardCore{}
	m.chat = &plugin.ChatCore{}
	m.character = &plugin.CharacterCore{}
	m.items = &plugin.ItemCore{}
	m.RegisterPlugin(m.worldState)
	m.RegisterPlugin(m.scoreboard)
	m.RegisterPlugin(m.chat)
	m.RegisterPlugin(m.character)
	m.RegisterPlugin(m.items)
}

func (m *Manager) Start() {
	if m.started.Swap(true) {
		return
	}
	if m.watchConfig && m.watcher == nil {
		watcher, err := config.Watch(m.config.Path(), func() {
			m.RunOnMain(m.reloadConfig)
		}, func(err error) {
			m.kPrintln(color.RedString("配置文件监听出错: "), color.MagentaString(err.Error()))
		})
		if err != nil {
			m.kPrintln(color.RedString("无法监听配置文件: "), color.MagentaString(err.Error()))
		} else {
			m.watcher = watcher
		}
	}
	m.kPrintln(color.YellowString("通知插件启动"))
	for _, p := range m.Plugins() {
		m.SafeCall(p.DisplayName(), p.Start)
	}
}

func (m *Manager) Close() {
	if !m.started.Swap(false) {
		return
	}
	for _, p := range m.Plugins() {
		m.SafeCall(p.DisplayName(), p.Pause)
	}
	if m.watcher != nil {
		m.watcher.Close()
		m.watcher = nil
	}
	m.kPrintln(color.YellowString("已关闭"))
}

func (m *Manager) WorldState() *plugin.WorldStateCore {
	return m.worldState
}

func (m *Manager) Scoreboard() *plugin.ScoreboardCore {
	return m.scoreboard
}

func (m *Manager) Chat() *plugin.ChatCore {
	return m.chat
}

func (m *Manager) Character() *plugin.CharacterCore {
	return m.character
}

func (m *Manager) Items() *plugin.ItemCore {
	return m.items
}

func (m *Manager) Connect(host string) {
	m.SafeCall("Connect", func() { m.worldState.OnConnect(host) })
}

func (m *Manager) Disconnect() {
	m.SafeCall("Disconnect", m.worldState.OnDisconnect)
}

func (m *Manager) Respawn() {
	m.SafeCall("Respawn", m.worldState.OnRespawn)
}

func (m *Manager) HandleTabHeader(header styled.Text) {
	m.SafeCall("TabHeader", func() { m.worldState.OnTabHeader(header) })
}

func (m *Manager) HandleScreenOpened(screen Screen) bool {
	return m.GuardScreen(screen, func() {
		title := styled.FromString(screen.Title())
		m.bus.Post(plugin.ScreenOpenedEvent{Title: title})
		m.worldState.OnScreenOpened(title)
	})
}

// HandleChat reports whether the line should be shown.
func (m *Manager) HandleChat(msg styled.Text) (shown bool) {
	m.SafeCall("Chat", func() { shown = m.chat.Receive(msg) })
	return shown
}

func (m *Manager) HandleScoreboard(lines []plugin.ScoreboardLine) {
	m.SafeCall("Scoreboard", func() { m.scoreboard.Update(lines) })
}

func (m *Manager) HandleBossBarAdd(id string, title styled.Text, progress float32) {
	m.postSafe("BossBar", plugin.BossBarEvent{Op: plugin.BossBarAdd, ID: id, Title: title, Progress: progress})
}

func (m *Manager) HandleBossBarUpdate(id string, title styled.Text, progress float32) {
	m.postSafe("BossBar", plugin.BossBarEvent{Op: plugin.BossBarUpdate, ID: id, Title: title, Progress: progress})
}

func (m *Manager) HandleBossBarRemove(id string) {
	m.postSafe("BossBar", plugin.BossBarEvent{Op: plugin.BossBarRemove, ID: id})
}

func (m *Manager) HandleActionBar(text styled.Text) {
	m.postSafe("ActionBar", plugin.ActionBarEvent{Text: text})
}

func (m *Manager) HandleEntityLabel(id int, text styled.Text, position plugin.Position) {
	m.postSafe("EntityLabel", plugin.EntityLabelEvent{ID: id, Text: text, Position: position})
}

func (m *Manager) HandleEntityRemoved(id int) {
	m.postSafe("EntityRemoved", plugin.EntityRemovedEvent{ID: id})
}

func (m *Manager) SelectCharacter(id string) {
	m.SafeCall("Character", func() { m.character.SelectCharacter(id) })
}

func (m *Manager) AnnotateItem(stack *item.ItemStack) (annotation item.Annotation) {
	m.SafeCall("Item", func() { annotation = m.items.Annotate(stack) })
	return annotation
}

// Tick runs the queued main-thread work and then notifies the plugins.
func (m *Manager) Tick() {
	m.queue.Drain(func(task func()) {
		m.SafeCall("Task", task)
	})
	m.tick++
	m.postSafe("Tick", plugin.TickEvent{Tick: m.tick})
}

func (m *Manager) postSafe(scope string, e any) {
	m.SafeCall(scope, func() { m.bus.Post(e) })
}
