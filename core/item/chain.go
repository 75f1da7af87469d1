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
	"sync/atomic"

	"git.bbaa.fun/bbaa/wynn-inference/core/styled"
	"github.com/samber/lo"
)

// Annotator recognises one kind of item. It returns nil when the stack is not
// of its kind and must not touch anything but its return value.
type Annotator interface {
	Annotate(stack *ItemStack, name styled.Text) Annotation
}

type Logger interface {
	Println(a ...any) (int, error)
}

type discardLogger struct{}

func (discardLogger) Println(a ...any) (int, error) { return 0, nil }

var chainIDs atomic.Uint64

// Chain tries its annotators in a fixed order, the first non-nil result wins.
type Chain struct {
	id    uint64
	links []link
}

type link struct {
	kind      Kind
	annotator Annotator
}

// NewChain builds the chain in its documented precedence. Overlapping
// patterns exist (a gear box name also reads as a generic unidentified item,
// an emerald pouch name starts like an emerald), so the order is part of the
// contract.
func NewChain(ref *Reference, logger Logger) *Chain {
	if ref == nil {
		ref = EmptyReference()
	}
	if logger == nil {
		logger = discardLogger{}
	}
	return &Chain{
		id: chainIDs.Add(1),
		links: []link{
			{KindGearBox, &GearBoxAnnotator{}},
			{KindUnidentified, &UnidentifiedAnnotator{}},
			{KindCraftedGear, &CraftedGearAnnotator{}},
			{KindGear, &GearAnnotator{ref: ref, logger: logger}},
			{KindIngredient, &IngredientAnnotator{ref: ref, logger: logger}},
			{KindMaterial, &MaterialAnnotator{}},
			{KindPowder, &PowderAnnotator{}},
			{KindEmeraldPouch, &EmeraldPouchAnnotator{}},
			{KindEmerald, &EmeraldAnnotator{}},
			{KindAmplifier, &AmplifierAnnotator{}},
			{KindTeleportScroll, &TeleportScrollAnnotator{}},
			{KindGatheringTool, &GatheringToolAnnotator{}},
			{KindServerSelect, &ServerSelectAnnotator{}},
			{KindSoulPoint, &SoulPointAnnotator{}},
			{KindSkillPoint, &SkillPointAnnotator{}},
			{KindDungeonKey, &DungeonKeyAnnotator{}},
			{KindCosmetic, &CosmeticAnnotator{}},
		},
	}
}

// Annotate returns the stack's annotation, running the chain only when the
// stack content or the chain changed since the last call.
func (c *Chain) Annotate(stack *ItemStack) Annotation {
	hash := stack.ContentHash()
	if stack.annotated && stack.contentHash == hash && stack.chainID == c.id {
		return stack.annotation
	}
	stack.annotation = c.Resolve(stack)
	stack.annotated = true
	stack.contentHash = hash
	stack.chainID = c.id
	return stack.annotation
}

// Resolve runs the chain without touching the stack's cached annotation.
func (c *Chain) Resolve(stack *ItemStack) Annotation {
	name := stack.Name.Normalized()
	for _, l := range c.links {
		if annotation := l.annotator.Annotate(stack, name); annotation != nil {
			return annotation
		}
	}
	return nil
}

// Matching lists every kind whose annotator recognises the stack, in chain
// order. Only the first one is ever used as the annotation.
func (c *Chain) Matching(stack *ItemStack) []Kind {
	name := stack.Name.Normalized()
	return lo.FilterMap(c.links, func(l link, index int) (Kind, bool) {
		annotation := l.annotator.Annotate(stack, name)
		if annotation == nil {
			return "", false
		}
		return annotation.Kind(), true
	})
}

// Kinds lists the kinds the chain recognises, in the order they are tried.
func (c *Chain) Kinds() []Kind {
	return lo.Map(c.links, func(l link, index int) Kind {
		return l.kind
	})
}
