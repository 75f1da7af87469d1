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

package translation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	gocache "github.com/patrickmn/go-cache"
)

// FlushEvery is how many writes go by between two disk flushes.
const FlushEvery = 16

const keySeparator = "\x00"

// Cache maps (language, text) to a translation. It is safe for use from the
// tick thread and from translation callbacks at the same time. The file on
// disk lags behind the memory content until the next flush.
type Cache struct {
	path    string
	items   *gocache.Cache
	writes  atomic.Uint64
	flushes atomic.Uint64
	request chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	saveMu  sync.Mutex
	onError func(error)
	closed  atomic.Bool
}

func NewCache(path string, onError func(error)) *Cache {
	c := &Cache{
		path:    path,
		items:   gocache.New(gocache.NoExpiration, 0),
		request: make(chan struct{}, 1),
		done:    make(chan struct{}),
		onError: onError,
	}
	c.wg.Add(1)
	go c.worker()
	return c
}

func key(language, text string) string {
	return language + keySeparator + text
}

// Load merges the file into memory. On failure the cache simply stays as it
// was, usually empty.
func (c *Cache) Load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read translation cache: %w", err)
	}
	var stored map[string]map[string]string
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("parse translation cache: %w", err)
	}
	for language, texts := range stored {
		for text, translated := range texts {
			c.items.Set(key(language, text), translated, gocache.NoExpiration)
		}
	}
	return nil
}

func (c *Cache) Get(language, text string) (string, bool) {
	v, ok := c.items.Get(key(language, text))
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Put never blocks on disk I/O. Every FlushEvery-th write asks the worker
// for a flush; requests made while one is pending are folded into it.
func (c *Cache) Put(language, text, translated string) {
	c.items.Set(key(language, text), translated, gocache.NoExpiration)
	if c.writes.Add(1)%FlushEvery == 0 {
		select {
		case c.request <- struct{}{}:
		default:
		}
	}
}

func (c *Cache) Len() int {
	return c.items.ItemCount()
}

// Flushes counts the flushes done by the background worker.
func (c *Cache) Flushes() uint64 {
	return c.flushes.Load()
}

func (c *Cache) worker() {
	defer c.wg.Done()
	for {
		select {
		case <-c.request:
			if err := c.Flush(); err != nil && c.onError != nil {
				c.onError(err)
			}
			c.flushes.Add(1)
		case <-c.done:
			return
		}
	}
}

// Flush writes the current content synchronously.
func (c *Cache) Flush() error {
	stored := map[string]map[string]string{}
	for k, item := range c.items.Items() {
		language, text, ok := strings.Cut(k, keySeparator)
		if !ok {
			continue
		}
		translated, ok := item.Object.(string)
		if !ok {
			continue
		}
		if stored[language] == nil {
			stored[language] = map[string]string{}
		}
		stored[language][text] = translated
	}
	data, err := json.MarshalIndent(stored, "", "\t")
	if err != nil {
		return err
	}
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}

// Close stops the worker and writes a final flush.
func (c *Cache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)
	c.wg.Wait()
	return c.Flush()
}
