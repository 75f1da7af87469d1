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

package plugins_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"git.bbaa.fun/bbaa/wynn-inference/core/event"
	"git.bbaa.fun/bbaa/wynn-inference/core/item"
	"git.bbaa.fun/bbaa/wynn-inference/core/styled"
	"git.bbaa.fun/bbaa/wynn-inference/plugins"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranslator struct {
	calls atomic.Int32
}

func (f *fakeTranslator) Translate(ctx context.Context, text string, language string) (string, error) {
	f.calls.Add(1)
	return "[" + language + "] " + text, nil
}

func TestTranslation(t *testing.T) {
	translator := &fakeTranslator{}
	tp := &plugins.TranslationPlugin{Translator: translator}
	m, _ := newManager(t, tp)
	t.Cleanup(func() { tp.Cache().Close() })
	var translated []plugins.ChatTranslatedEvent
	event.Subscribe(m.Bus(), event.Normal, func(ev plugins.ChatTranslatedEvent) {
		translated = append(translated, ev)
	})

	m.HandleChat(styled.FromString("Hello there"))
	assert.Equal(t, int32(0), translator.calls.Load(), "disabled by default")

	m.Config().Set(plugins.TranslationEnabledKey, true)
	m.Config().Set(plugins.TranslationLanguageKey, "de")
	m.HandleChat(styled.FromString("§fHello there"))
	m.HandleChat(styled.FromString("Hello there"))
	assert.Empty(t, translated, "misses are delivered on a later tick")
	tickUntil(t, m, func() bool { return len(translated) > 0 })
	assert.Equal(t, "[de] Hello there", translated[0].Translated)
	assert.Equal(t, "de", translated[0].Language)
	assert.Equal(t, int32(1), translator.calls.Load())

	// cache hit is synchronous
	m.HandleChat(styled.FromString("Hello there"))
	require.Len(t, translated, 2)
	assert.Equal(t, int32(1), translator.calls.Load())
	cached, ok := tp.Cache().Get("de", "Hello there")
	require.True(t, ok)
	assert.Equal(t, "[de] Hello there", cached)
}

func TestTranslationDropsStaleResult(t *testing.T) {
	tp := &plugins.TranslationPlugin{Translator: &fakeTranslator{}}
	m, _ := newManager(t, tp)
	t.Cleanup(func() { tp.Cache().Close() })
	m.Config().Set(plugins.TranslationEnabledKey, true)
	var translated int
	event.Subscribe(m.Bus(), event.Normal, func(plugins.ChatTranslatedEvent) { translated++ })

	joinWorld(m, "WC1")
	m.HandleChat(styled.FromString("See you later"))
	m.HandleTabHeader(styled.FromString("Global [WC2]"))
	tickUntil(t, m, func() bool {
		_, ok := tp.Cache().Get("zh", "See you later")
		return ok
	})
	assert.Equal(t, 0, translated)
}

func TestTranslationRetriesAfterDroppedDelivery(t *testing.T) {
	translator := &fakeTranslator{}
	tp := &plugins.TranslationPlugin{Translator: translator}
	m, _ := newManager(t, tp)
	t.Cleanup(func() { tp.Cache().Close() })
	m.Config().Set(plugins.TranslationEnabledKey, true)
	var translated []plugins.ChatTranslatedEvent
	event.Subscribe(m.Bus(), event.Normal, func(ev plugins.ChatTranslatedEvent) {
		translated = append(translated, ev)
	})

	for m.Queue().Submit(func() {}) {
	}
	m.HandleChat(styled.FromString("Queue is full"))
	require.Eventually(t, func() bool {
		_, ok := tp.Cache().Get("zh", "Queue is full")
		return ok
	}, 5*time.Second, 5*time.Millisecond)
	m.Tick()
	assert.Empty(t, translated)

	m.HandleChat(styled.FromString("Queue is full"))
	require.Len(t, translated, 1)
	assert.Equal(t, "[zh] Queue is full", translated[0].Translated)
	assert.Equal(t, int32(1), translator.calls.Load())

	m.HandleChat(styled.FromString("Another line"))
	tickUntil(t, m, func() bool { return len(translated) == 2 })
	assert.Equal(t, int32(2), translator.calls.Load())
}

func TestReferenceRefresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"gear":[{"name":"Phoenix Prince","type":"Helmet","tier":"Legendary","level":100}],"ingredients":[{"name":"Rotten Flesh","tier":0,"level":1}]}`), 0644))
	rp := &plugins.ReferencePlugin{Source: path}
	m, _ := newManager(t, rp)

	stack := item.NewItemStack("diamond_helmet", "§bPhoenix Prince", 1)
	assert.Nil(t, m.AnnotateItem(stack))

	rp.Refresh()
	tickUntil(t, m, func() bool { return rp.Loaded() == 1 })
	annotation := m.AnnotateItem(stack)
	require.NotNil(t, annotation)
	assert.Equal(t, item.KindGear, annotation.Kind())
	assert.Len(t, m.Items().Reference().Ingredients, 1)

	require.True(t, m.RunCommand("reference"))
	tickUntil(t, m, func() bool { return rp.Loaded() == 2 })
}

func TestReferenceBadData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0644))
	rp := &plugins.ReferencePlugin{Source: path}
	m, out := newManager(t, rp)
	before := m.Items().Reference()
	rp.Refresh()
	tickUntil(t, m, func() bool { return strings.Contains(out.String(), "解析物品数据失败") })
	assert.Equal(t, 0, rp.Loaded())
	assert.Same(t, before, m.Items().Reference())
}

func TestChangelog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changelog.txt")
	require.NoError(t, os.WriteFile(path, []byte("v2.1\n- fixed things\n"), 0644))
	cp := &plugins.ChangelogPlugin{Source: path}
	m, out := newManager(t, cp)
	var events []string
	event.Subscribe(m.Bus(), event.Normal, func(ev plugins.ChangelogEvent) {
		events = append(events, ev.Changelog)
	})

	joinWorld(m, "WC1")
	m.Respawn()
	tickUntil(t, m, func() bool { return strings.Contains(out.String(), "丢弃过期") })
	assert.Empty(t, cp.Changelog())
	assert.Empty(t, events)

	m.HandleTabHeader(styled.FromString("Global [WC2]"))
	tickUntil(t, m, func() bool { return cp.Changelog() != "" })
	assert.Equal(t, "v2.1\n- fixed things", cp.Changelog())
	assert.Equal(t, []string{"v2.1\n- fixed things"}, events)

	// only once per connection
	m.HandleTabHeader(styled.FromString("Global [WC3]"))
	for range 10 {
		m.Tick()
	}
	assert.Len(t, events, 1)

	m.Disconnect()
	assert.Empty(t, cp.Changelog())
}

func TestBackup(t *testing.T) {
	bp := &plugins.BackupPlugin{MaxBackups: 2}
	m, _ := newManager(t, bp)
	require.NoError(t, os.MkdirAll(filepath.Join(m.DataDir(), "crash-reports"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(m.DataDir(), "crash-reports", "crash.txt"), []byte("boom"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(m.DataDir(), "statistics.json.tmp"), []byte("{}"), 0644))

	dest, err := bp.MakeBackup("first")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(m.DataDir(), "snapshots"), filepath.Dir(dest))
	assert.FileExists(t, filepath.Join(dest, "config.json"))
	assert.NoFileExists(t, filepath.Join(dest, "statistics.json.tmp"))
	assert.NoDirExists(t, filepath.Join(dest, "crash-reports"))
	assert.NoDirExists(t, filepath.Join(dest, "snapshots"))

	_, err = bp.MakeBackup("second")
	require.NoError(t, err)
	_, err = bp.MakeBackup("third")
	require.NoError(t, err)
	assert.Len(t, bp.List(), 2)

	require.True(t, m.RunCommand("backup make by hand"))
	assert.Len(t, bp.List(), 2)
}
