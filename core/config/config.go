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

// Package config holds the flat, dotted-key JSON config of the add-on.
//
// The file may contain comments. On load it is migrated by the registered
// upfixers before any typed value is read from it; a copy of the file as it
// was is written to the backup directory first.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/tidwall/jsonc"
	"golang.org/x/exp/maps"
)

type Config struct {
	path      string
	backupDir string
	upfixers  []Upfixer
	values    map[string]any
	lock      sync.RWMutex
}

func New(path string, backupDir string, upfixers ...Upfixer) *Config {
	return &Config{path: path, backupDir: backupDir, upfixers: upfixers, values: map[string]any{}}
}

func (c *Config) Path() string {
	return c.path
}

// Load replaces the in-memory values with the file content. A missing file is
// not an error. On any other failure the config is left empty and the error
// returned, the caller keeps running on defaults.
func (c *Config) Load() (changed []string, err error) {
	values := map[string]any{}
	defer func() {
		c.lock.Lock()
		c.values = values
		c.lock.Unlock()
	}()

	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		RunUpfixers(values, c.upfixers)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), &values); err != nil {
		values = map[string]any{}
		return nil, fmt.Errorf("parse config %s: %w", c.path, err)
	}
	if values == nil {
		values = map[string]any{}
	}
	if len(PendingUpfixers(values, c.upfixers)) == 0 {
		return nil, nil
	}
	if c.backupDir != "" {
		if _, err := Backup(c.path, c.backupDir); err != nil {
			values = map[string]any{}
			return nil, fmt.Errorf("backup config before upfixing: %w", err)
		}
	}
	changed = RunUpfixers(values, c.upfixers)
	return changed, nil
}

// Save writes the values atomically.
func (c *Config) Save() error {
	c.lock.RLock()
	data, err := json.MarshalIndent(c.values, "", "\t")
	c.lock.RUnlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}

func (c *Config) Keys() []string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	keys := maps.Keys(c.values)
	slices.Sort(keys)
	return keys
}

func (c *Config) Get(key string) (any, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

func (c *Config) Set(key string, value any) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.values[key] = value
}

func (c *Config) Delete(key string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	delete(c.values, key)
}

func (c *Config) Bool(key string, def bool) bool {
	if v, ok := c.Get(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func (c *Config) Int(key string, def int) int {
	if v, ok := c.Get(key); ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

func (c *Config) String(key string, def string) string {
	if v, ok := c.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func (c *Config) Strings(key string) []string {
	var out []string
	if err := c.Decode(key, &out); err != nil {
		return nil
	}
	return out
}

// Decode re-marshals the value under key into v. A missing key leaves v alone.
func (c *Config) Decode(key string, v any) error {
	raw, ok := c.Get(key)
	if !ok {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
