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
	"errors"
	"regexp"
	"slices"
	"sync"

	"git.bbaa.fun/bbaa/wynn-inference/core/event"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin/pluginabi"
	"git.bbaa.fun/bbaa/wynn-inference/core/styled"
	"github.com/fatih/color"
	"github.com/samber/lo"
)

const ChatTabsKey = "chatTabs.tabs"

const chatHistorySize = 256

var ErrChatHandlerExists = errors.New("chat handler exists")

// ChatMessageEvent is posted for every chat line before it is routed to the
// registered handlers. Canceling it hides the line.
type ChatMessageEvent struct {
	event.Cancelation
	Message styled.Text
}

type ChatTab struct {
	Name   string `json:"name"`
	Filter string `json:"filter,omitempty"`
	Unread bool   `json:"-"`
	filter *regexp.Regexp
}

func (t *ChatTab) Accepts(msg styled.Text) bool {
	return t.filter == nil || msg.MatchesUnformatted(t.filter)
}

type chatHandler struct {
	owner   pluginabi.PluginName
	pattern *regexp.Regexp
	handler func(msg *ChatMessageEvent, match []string)
}

// ChatCore routes chat lines. Tabs are also touched by translation callbacks,
// so they sit behind tabLock.
type ChatCore struct {
	BasePlugin
	handlers    []*chatHandler
	handlerLock sync.RWMutex
	tabs        []*ChatTab
	focused     string
	tabLock     sync.RWMutex
	history     []styled.Text
}

func (cc *ChatCore) Init(pm pluginabi.PluginManager) error {
	err := cc.BasePlugin.Init(pm, cc)
	if err != nil {
		return err
	}
	cc.loadTabs()
	event.Subscribe(cc.Bus(), event.Normal, func(ConfigReloadedEvent) {
		cc.loadTabs()
	})
	return nil
}

func defaultTabs() []*ChatTab {
	return []*ChatTab{{Name: "All"}}
}

func (cc *ChatCore) loadTabs() {
	var tabs []*ChatTab
	if cc.Config() != nil {
		err := cc.Config().Decode(ChatTabsKey, &tabs)
		if err != nil {
			cc.Println(color.RedString("聊天标签配置无效: "), color.MagentaString(err.Error()))
			tabs = nil
		}
	}
	tabs = lo.Filter(tabs, func(tab *ChatTab, index int) bool {
		if tab == nil || tab.Name == "" {
			return false
		}
		if tab.Filter == "" {
			return true
		}
		re, err := regexp.Compile(tab.Filter)
		if err != nil {
			cc.Println(color.RedString("聊天标签 "), color.GreenString(tab.Name), color.RedString(" 的过滤器无效: "), color.MagentaString(err.Error()))
			return false
		}
		tab.filter = re
		return true
	})
	if len(tabs) == 0 {
		tabs = defaultTabs()
	}
	cc.tabLock.Lock()
	cc.tabs = tabs
	if !slices.ContainsFunc(tabs, func(tab *ChatTab) bool { return tab.Name == cc.focused }) {
		cc.focused = ""
	}
	cc.tabLock.Unlock()
}

func (cc *ChatCore) RegisterChatHandler(context pluginabi.PluginName, pattern *regexp.Regexp, handler func(msg *ChatMessageEvent, match []string)) error {
	cc.handlerLock.Lock()
	defer cc.handlerLock.Unlock()
	if slices.ContainsFunc(cc.handlers, func(h *chatHandler) bool {
		return h.owner.Name() == context.Name() && h.pattern.String() == pattern.String()
	}) {
		cc.Println(color.YellowString("插件 "), color.BlueString(context.DisplayName()), color.RedString(" 尝试注册已注册的聊天处理器: "), color.GreenString(pattern.String()))
		return ErrChatHandlerExists
	}
	cc.Println(color.YellowString("插件 "), color.BlueString(context.DisplayName()), color.YellowString(" 注册了一个聊天处理器: "), color.GreenString(pattern.String()))
	cc.handlers = append(cc.handlers, &chatHandler{owner: context, pattern: pattern, handler: handler})
	return nil
}

// Receive handles one incoming chat line and reports whether it was shown.
func (cc *ChatCore) Receive(msg styled.Text) bool {
	ev := &ChatMessageEvent{Message: msg}
	if cc.Bus().Post(ev) {
		return false
	}
	cc.handlerLock.RLock()
	handlers := slices.Clone(cc.handlers)
	cc.handlerLock.RUnlock()
	for _, h := range handlers {
		match := msg.MatchUnformatted(h.pattern)
		if match == nil {
			continue
		}
		cc.pm.SafeCall(h.owner.DisplayName(), func() { h.handler(ev, match) })
	}
	cc.AddLine(msg)
	return true
}

// AddLine appends a line to the chat history and flags every tab that shows
// it, except the focused one.
func (cc *ChatCore) AddLine(msg styled.Text) {
	cc.tabLock.Lock()
	defer cc.tabLock.Unlock()
	cc.history = append(cc.history, msg)
	if len(cc.history) > chatHistorySize {
		cc.history = slices.Delete(cc.history, 0, len(cc.history)-chatHistorySize)
	}
	for _, tab := range cc.tabs {
		if tab.Name != cc.focused && tab.Accepts(msg) {
			tab.Unread = true
		}
	}
}

func (cc *ChatCore) FocusTab(name string) bool {
	cc.tabLock.Lock()
	defer cc.tabLock.Unlock()
	tab, ok := lo.Find(cc.tabs, func(tab *ChatTab) bool { return tab.Name == name })
	if !ok {
		return false
	}
	cc.focused = name
	tab.Unread = false
	return true
}

func (cc *ChatCore) Focused() string {
	cc.tabLock.RLock()
	defer cc.tabLock.RUnlock()
	return cc.focused
}

func (cc *ChatCore) Tabs() []ChatTab {
	cc.tabLock.RLock()
	defer cc.tabLock.RUnlock()
	return lo.Map(cc.tabs, func(tab *ChatTab, index int) ChatTab {
		return *tab
	})
}

// History returns the lines of the focused tab, or every line when no tab is
// focused.
func (cc *ChatCore) History() []styled.Text {
	cc.tabLock.RLock()
	defer cc.tabLock.RUnlock()
	tab, ok := lo.Find(cc.tabs, func(tab *ChatTab) bool { return tab.Name == cc.focused })
	if !ok {
		return slices.Clone(cc.history)
	}
	return lo.Filter(cc.history, func(msg styled.Text, index int) bool {
		return tab.Accepts(msg)
	})
}

func (cc *ChatCore) Reset() {
	cc.tabLock.Lock()
	defer cc.tabLock.Unlock()
	cc.focused = ""
	cc.history = nil
	for _, tab := range cc.tabs {
		tab.Unread = false
	}
}

func (cc *ChatCore) Describe() []string {
	focused := cc.Focused()
	return lo.Map(cc.Tabs(), func(tab ChatTab, index int) string {
		return tab.Name + lo.Ternary(tab.Name == focused, " *", "") + lo.Ternary(tab.Unread, " (未读)", "")
	})
}

func (cc *ChatCore) Name() string {
	return "ChatCore"
}

func (cc *ChatCore) DisplayName() string {
	return "聊天核心"
}
