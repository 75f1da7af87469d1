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

package config

import (
	"slices"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/exp/maps"
)

// UpfixersKey holds the names of upfixers already applied to a config object.
const UpfixersKey = "upfixers"

// Upfixer migrates a persisted config object in place. Apply reports whether
// it changed anything and must be a no-op on its own output.
type Upfixer interface {
	Name() string
	Apply(obj map[string]any) bool
}

type KeyRename struct {
	Old string
	New string
}

// move puts obj[old] under new unless new is already set, and drops old.
func move(obj map[string]any, old, new string) bool {
	value, ok := obj[old]
	if !ok {
		return false
	}
	if _, exists := obj[new]; !exists {
		obj[new] = value
	}
	delete(obj, old)
	return true
}

type RenamedKeysUpfixer struct {
	ID      string
	Renames []KeyRename
}

func (u *RenamedKeysUpfixer) Name() string {
	return u.ID
}

func (u *RenamedKeysUpfixer) Apply(obj map[string]any) (changed bool) {
	for _, r := range u.Renames {
		if move(obj, r.Old, r.New) {
			changed = true
		}
	}
	return changed
}

type RenamedPrefixesUpfixer struct {
	ID       string
	Prefixes []KeyRename
}

func (u *RenamedPrefixesUpfixer) Name() string {
	return u.ID
}

func (u *RenamedPrefixesUpfixer) Apply(obj map[string]any) (changed bool) {
	for _, r := range u.Prefixes {
		keys := maps.Keys(obj)
		slices.Sort(keys)
		for _, key := range keys {
			if !strings.HasPrefix(key, r.Old) {
				continue
			}
			if move(obj, key, r.New+strings.TrimPrefix(key, r.Old)) {
				changed = true
			}
		}
	}
	return changed
}

// SplitKeyUpfixer replaces one key by the keys Split derives from its value.
// Keys that already exist are not overwritten.
type SplitKeyUpfixer struct {
	ID    string
	Key   string
	Split func(value any) map[string]any
}

func (u *SplitKeyUpfixer) Name() string {
	return u.ID
}

func (u *SplitKeyUpfixer) Apply(obj map[string]any) bool {
	value, ok := obj[u.Key]
	if !ok {
		return false
	}
	for k, v := range u.Split(value) {
		if _, exists := obj[k]; !exists {
			obj[k] = v
		}
	}
	delete(obj, u.Key)
	return true
}

// SplitObject flattens a nested object into prefix.<field> keys.
func SplitObject(prefix string) func(value any) map[string]any {
	return func(value any) map[string]any {
		nested, ok := value.(map[string]any)
		if !ok {
			return nil
		}
		return lo.MapKeys(nested, func(v any, k string) string {
			return prefix + "." + k
		})
	}
}

func appliedUpfixers(obj map[string]any) []string {
	raw, ok := obj[UpfixersKey].([]any)
	if !ok {
		return nil
	}
	return lo.FilterMap(raw, func(item any, index int) (string, bool) {
		s, ok := item.(string)
		return s, ok
	})
}

// PendingUpfixers lists the upfixers that have not been recorded on obj yet.
func PendingUpfixers(obj map[string]any, upfixers []Upfixer) []Upfixer {
	applied := appliedUpfixers(obj)
	return lo.Filter(upfixers, func(u Upfixer, index int) bool {
		return !slices.Contains(applied, u.Name())
	})
}

// RunUpfixers applies the pending upfixers in order and records their names.
// It returns the names of the upfixers that changed the object.
func RunUpfixers(obj map[string]any, upfixers []Upfixer) (changed []string) {
	pending := PendingUpfixers(obj, upfixers)
	if len(pending) == 0 {
		return nil
	}
	applied := appliedUpfixers(obj)
	for _, u := range pending {
		if u.Apply(obj) {
			changed = append(changed, u.Name())
		}
		applied = append(applied, u.Name())
	}
	obj[UpfixersKey] = lo.Map(applied, func(item string, index int) any {
		return item
	})
	return changed
}

// DefaultUpfixers migrates keys written by older releases.
func DefaultUpfixers() []Upfixer {
	return []Upfixer{
		&RenamedKeysUpfixer{ID: "chatTabsToTabs", Renames: []KeyRename{{Old: "chatTabs", New: "chatTabs.tabs"}}},
		&RenamedPrefixesUpfixer{ID: "translatorToTranslation", Prefixes: []KeyRename{{Old: "translator.", New: "translation."}}},
		&SplitKeyUpfixer{ID: "splitBossBars", Key: "bossBars", Split: SplitObject("bossBars")},
		&RenamedKeysUpfixer{ID: "hiddenSegments", Renames: []KeyRename{{Old: "scoreboard.hidden", New: "scoreboard.hiddenSegments"}}},
	}
}
