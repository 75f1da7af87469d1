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
	"strconv"

	"git.bbaa.fun/bbaa/wynn-inference/core/styled"
	"github.com/cespare/xxhash/v2"
)

type ItemStack struct {
	Material string
	Name     styled.Text
	Lore     []styled.Text
	Count    int

	annotation  Annotation
	annotated   bool
	contentHash uint64
	chainID     uint64
}

func NewItemStack(material string, name string, count int, lore ...string) *ItemStack {
	stack := &ItemStack{Material: material, Name: styled.FromString(name), Count: count}
	for _, line := range lore {
		stack.Lore = append(stack.Lore, styled.FromString(line))
	}
	return stack
}

// ContentHash changes whenever anything an annotator looks at changes.
func (s *ItemStack) ContentHash() uint64 {
	d := xxhash.New()
	d.WriteString(s.Material)
	d.WriteString("\x00")
	d.WriteString(s.Name.String())
	d.WriteString("\x00")
	d.WriteString(strconv.Itoa(s.Count))
	for _, line := range s.Lore {
		d.WriteString("\x00")
		d.WriteString(line.String())
	}
	return d.Sum64()
}

// Annotation returns the cached annotation, nil if the stack was never
// annotated or no annotator recognised it.
func (s *ItemStack) Annotation() Annotation {
	return s.annotation
}

func (s *ItemStack) UnformattedLore() []string {
	lore := make([]string, len(s.Lore))
	for i, line := range s.Lore {
		lore[i] = line.Unformatted()
	}
	return lore
}
