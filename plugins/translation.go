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
	"path/filepath"
	"sync"
	"time"

	"git.bbaa.fun/bbaa/wynn-inference/core/event"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin/pluginabi"
	"git.bbaa.fun/bbaa/wynn-inference/core/styled"
	"git.bbaa.fun/bbaa/wynn-inference/core/translation"
	"github.com/fatih/color"
)

const (
	TranslationEnabledKey  = "translation.enabled"
	TranslationLanguageKey = "translation.language"
	TranslationEndpointKey = "translation.endpoint"
)

const translateTimeout = 10 * time.Second

type ChatTranslatedEvent struct {
	Original   styled.Text
	Translated string
	Language   string
}

// TranslationPlugin translates chat lines after every other handler had its
// say. Cache misses are translated in the background and come back through
// the main thread queue.
type TranslationPlugin struct {
	plugin.BasePlugin
	// Translator overrides the HTTP translator built from the config.
	Translator translation.Translator
	cache      *translation.Cache
	pending    map[string]struct{}
	lock       sync.Mutex
}

func (tp *TranslationPlugin) Init(pm pluginabi.PluginManager) (err error) {
	err = tp.BasePlugin.Init(pm, tp)
	if err != nil {
		return err
	}
	tp.pending = make(map[string]struct{})
	tp.cache = translation.NewCache(filepath.Join(tp.DataDir(), "translations.json"), func(err error) {
		tp.Println(color.RedString("保存翻译缓存失败: "), color.MagentaString(err.Error()))
	})
	err = tp.cache.Load()
	if err != nil {
		tp.Println(color.RedString("加载翻译缓存失败: "), color.MagentaString(err.Error()))
	}
	event.Subscribe(tp.Bus(), event.Low, tp.onChat)
	return nil
}

func (tp *TranslationPlugin) translator() translation.Translator {
	if tp.Translator != nil {
		return tp.Translator
	}
	endpoint := tp.Config().String(TranslationEndpointKey, "")
	if endpoint == "" {
		return nil
	}
	return &translation.HTTPTranslator{Fetcher: tp.Fetcher(), Endpoint: endpoint}
}

func (tp *TranslationPlugin) onChat(ev *plugin.ChatMessageEvent) {
	if !tp.Config().Bool(TranslationEnabledKey, false) {
		return
	}
	text := ev.Message.Normalized().Unformatted()
	if text == "" {
		return
	}
	language := tp.Config().String(TranslationLanguageKey, "zh")
	if translated, ok := tp.cache.Get(language, text); ok {
		tp.deliver(ev.Message, translated, language)
		return
	}
	translator := tp.translator()
	if translator == nil {
		return
	}
	key := language + "\x00" + text
	if !tp.markPending(key) {
		return
	}
	generation := tp.WorldGeneration()
	var translated string
	tp.Fetcher().GoOrElse(func() (err error) {
		ctx, cancel := context.WithTimeout(context.Background(), translateTimeout)
		defer cancel()
		translated, err = translator.Translate(ctx, text, language)
		return err
	}, func(err error) {
		tp.clearPending(key)
		if err != nil {
			tp.Println(color.RedString("翻译失败: "), color.MagentaString(err.Error()))
			return
		}
		tp.cache.Put(language, text, translated)
		if generation != tp.WorldGeneration() {
			return
		}
		tp.deliver(ev.Message, translated, language)
	}, func(err error) {
		tp.clearPending(key)
		if err == nil {
			tp.cache.Put(language, text, translated)
		}
	})
}

func (tp *TranslationPlugin) markPending(key string) bool {
	tp.lock.Lock()
	defer tp.lock.Unlock()
	if _, ok := tp.pending[key]; ok {
		return false
	}
	tp.pending[key] = struct{}{}
	return true
}

func (tp *TranslationPlugin) clearPending(key string) {
	tp.lock.Lock()
	defer tp.lock.Unlock()
	delete(tp.pending, key)
}

func (tp *TranslationPlugin) deliver(original styled.Text, translated string, language string) {
	tp.Println(color.CyanString(original.Unformatted()), color.YellowString(" => "), color.GreenString(translated))
	tp.Bus().Post(ChatTranslatedEvent{Original: original, Translated: translated, Language: language})
}

func (tp *TranslationPlugin) Cache() *translation.Cache {
	return tp.cache
}

func (tp *TranslationPlugin) Pause() {
	err := tp.cache.Close()
	if err != nil {
		tp.Println(color.RedString("保存翻译缓存失败: "), color.MagentaString(err.Error()))
	}
}

func (tp *TranslationPlugin) DisplayName() string {
	return "聊天翻译"
}

func (tp *TranslationPlugin) Name() string {
	return "TranslationPlugin"
}
