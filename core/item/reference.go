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

package item

import (
	"encoding/json"
	"fmt"
)

type GearInfo struct {
	Name  string   `json:"name"`
	Type  string   `json:"type"`
	Tier  GearTier `json:"tier"`
	Level int      `json:"level"`
}

type IngredientInfo struct {
	Name  string `json:"name"`
	Tier  int    `json:"tier"`
	Level int    `json:"level"`
}

// Reference is the item database fetched from the companion web service.
// It is replaced as a whole, never mutated after parsing.
type Reference struct {
	Gear        map[string]GearInfo       `json:"gear"`
	Ingredients map[string]IngredientInfo `json:"ingredients"`
}

func EmptyReference() *Reference {
	return &Reference{Gear: map[string]GearInfo{}, Ingredients: map[string]IngredientInfo{}}
}

func ParseReference(data []byte) (*Reference, error) {
	var raw struct {
		Gear        []GearInfo       `json:"gear"`
		Ingredients []IngredientInfo `json:"ingredients"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse item reference: %w", err)
	}
	ref := EmptyReference()
	for _, g := range raw.Gear {
		if g.Name == "" {
			continue
		}
		ref.Gear[g.Name] = g
	}
	for _, i := range raw.Ingredients {
		if i.Name == "" {
			continue
		}
		ref.Ingredients[i.Name] = i
	}
	return ref, nil
}

func (r *Reference) GearByName(name string) (GearInfo, bool) {
	g, ok := r.Gear[name]
	return g, ok
}

func (r *Reference) IngredientByName(name string) (IngredientInfo, bool) {
	i, ok := r.Ingredients[name]
	return i, ok
}
