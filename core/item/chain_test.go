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
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Println(a ...any) (int, error) {
	l.lines = append(l.lines, fmt.Sprint(a...))
	return 0, nil
}

func testReference() *Reference {
	ref := EmptyReference()
	ref.Gear["Cataclysm"] = GearInfo{Name: "Cataclysm", Type: "Dagger", Tier: Mythic, Level: 93}
	ref.Ingredients["Rotten Flesh"] = IngredientInfo{Name: "Rotten Flesh", Tier: 1, Level: 5}
	return ref
}

func TestAnnotators(t *testing.T) {
	chain := NewChain(testReference(), nil)
	tests := []struct {
		name     string
		stack    *ItemStack
		expected Annotation
	}{
		{
			name:     "gear box",
			stack:    NewItemStack("stone_shovel", "§5Unidentified Wand", 1, "§7- Lv. Range: §f40-45"),
			expected: GearBoxItem{GearType: "Wand", Tier: Mythic, LevelMin: 40, LevelMax: 45},
		},
		{
			name:     "unidentified",
			stack:    NewItemStack("book", "§dUnidentified Tome", 1),
			expected: UnidentifiedItem{Name: "Tome", Tier: Rare},
		},
		{
			name:     "crafted gear",
			stack:    NewItemStack("iron_axe", "§3Hammer of Doom§b [95%]", 1),
			expected: CraftedGearItem{Name: "Hammer of Doom", Effectiveness: 95, Instance: &GearInstance{}},
		},
		{
			name:     "ingredient",
			stack:    NewItemStack("rotten_flesh", "§7Rotten Flesh§6 [§e✫§8✫✫§6]", 1),
			expected: IngredientItem{Name: "Rotten Flesh", Tier: 1},
		},
		{
			name:     "material",
			stack:    NewItemStack("oak_log", "§fOak Wood§6 [§e✫✫§8✫§6]", 1),
			expected: MaterialItem{Name: "Oak Wood", Tier: 2},
		},
		{
			name:     "powder",
			stack:    NewItemStack("red_dye", "§c✹ Fire Powder IV", 1),
			expected: PowderItem{Element: "Fire", Tier: 4},
		},
		{
			name:     "emerald pouch",
			stack:    NewItemStack("diamond_axe", "§aEmerald Pouch§2 [Tier IV]", 1),
			expected: EmeraldPouchItem{Tier: 4},
		},
		{
			name:     "emerald block",
			stack:    NewItemStack("emerald_block", "§aEmerald Block", 3),
			expected: EmeraldItem{Unit: EmeraldBlock, Amount: 3},
		},
		{
			name:     "amplifier",
			stack:    NewItemStack("diamond_axe", "§bCorkian Amplifier III", 1),
			expected: AmplifierItem{Tier: 3},
		},
		{
			name:     "teleport scroll",
			stack:    NewItemStack("paper", "§bCinfras Teleport Scroll", 1),
			expected: TeleportScrollItem{Destination: "Cinfras"},
		},
		{
			name:     "gathering tool",
			stack:    NewItemStack("stone_axe", "§fⒷ §aGathering Axe T5", 1),
			expected: GatheringToolItem{ToolType: "Axe", Tier: 5},
		},
		{
			name:     "server select",
			stack:    NewItemStack("green_concrete", "§b§lWorld 12§3 (Recommended)", 1),
			expected: ServerSelectItem{World: 12, Recommended: true},
		},
		{
			name:     "soul points from lore",
			stack:    NewItemStack("nether_star", "§bSoul Points", 1, "§7You have §b12§7 soul points"),
			expected: SoulPointItem{Count: 12},
		},
		{
			name:     "skill point",
			stack:    NewItemStack("book", "§a§l✤ Strength", 20),
			expected: SkillPointItem{Skill: "Strength", Points: 20},
		},
		{
			name:     "corrupted dungeon key",
			stack:    NewItemStack("tripwire_hook", "§5Corrupted Decrepit Sewers Key", 1),
			expected: DungeonKeyItem{Dungeon: "Decrepit Sewers", Corrupted: true},
		},
		{
			name:     "cosmetic",
			stack:    NewItemStack("leather_helmet", "§fParty Hat", 1, "§5Epic Reward"),
			expected: CosmeticItem{Name: "Party Hat", Rarity: "Epic"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, chain.Annotate(tt.stack))
		})
	}
}

func TestUnrecognisedItem(t *testing.T) {
	chain := NewChain(testReference(), nil)
	stack := NewItemStack("stick", "§7Stick", 1)
	assert.Nil(t, chain.Annotate(stack))
	assert.Empty(t, chain.Matching(stack))
}

func TestChainOrder(t *testing.T) {
	chain := NewChain(testReference(), nil)
	assert.Equal(t, []Kind{
		KindGearBox,
		KindUnidentified,
		KindCraftedGear,
		KindGear,
		KindIngredient,
		KindMaterial,
		KindPowder,
		KindEmeraldPouch,
		KindEmerald,
		KindAmplifier,
		KindTeleportScroll,
		KindGatheringTool,
		KindServerSelect,
		KindSoulPoint,
		KindSkillPoint,
		KindDungeonKey,
		KindCosmetic,
	}, chain.Kinds())
}

// Items recognised by more than one annotator get the earliest one's result.
func TestPrecedence(t *testing.T) {
	chain := NewChain(testReference(), nil)
	tests := []struct {
		name     string
		stack    *ItemStack
		matching []Kind
	}{
		{
			name:     "gear box before unidentified",
			stack:    NewItemStack("stone_shovel", "§5Unidentified Wand", 1),
			matching: []Kind{KindGearBox, KindUnidentified},
		},
		{
			name:     "emerald pouch before emerald",
			stack:    NewItemStack("diamond_axe", "§aEmerald Pouch§2 [Tier II]", 1),
			matching: []Kind{KindEmeraldPouch, KindEmerald},
		},
		{
			name:     "teleport scroll before cosmetic",
			stack:    NewItemStack("paper", "§bCinfras Teleport Scroll", 1, "§dRare Reward"),
			matching: []Kind{KindTeleportScroll, KindCosmetic},
		},
		{
			name:     "gear before cosmetic",
			stack:    NewItemStack("shears", "§5Cataclysm", 1, "§5Epic Reward"),
			matching: []Kind{KindGear, KindCosmetic},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.matching, chain.Matching(tt.stack))
			assert.Less(t, slices.Index(chain.Kinds(), tt.matching[0]), slices.Index(chain.Kinds(), tt.matching[1]))
			annotation := chain.Annotate(tt.stack)
			require.NotNil(t, annotation)
			assert.Equal(t, tt.matching[0], annotation.Kind())
		})
	}
}

func TestGearInstance(t *testing.T) {
	chain := NewChain(testReference(), nil)
	stack := NewItemStack("shears", "§5⬡ Shiny Cataclysm", 1,
		"§7Combat Lv. Min: 93",
		"§a+12%§7 Walk Speed",
		"§c-5/3s§2*** §7Mana Steal",
		"§7[2/3] Powder Slots [✹ ✹]",
		"§5Mythic Item [4]",
	)
	annotation, ok := chain.Annotate(stack).(GearItem)
	require.True(t, ok)
	assert.True(t, annotation.Shiny)
	assert.Equal(t, "Dagger", annotation.Info.Type)
	require.NotNil(t, annotation.Instance)
	assert.Equal(t, []Identification{
		{Name: "Walk Speed", Value: 12, Unit: "%"},
		{Name: "Mana Steal", Value: -5, Unit: "/3s", Stars: 3},
	}, annotation.Instance.Identifications)
	assert.Equal(t, 2, annotation.Instance.PowdersUsed)
	assert.Equal(t, 3, annotation.Instance.PowderSlots)
	assert.Equal(t, []string{"✹", "✹"}, annotation.Instance.Powders)
	assert.Equal(t, 4, annotation.Instance.Rerolls)
	assert.Equal(t, 93, annotation.Instance.Level)
	assert.True(t, annotation.Instance.Identified)
}

func TestReferenceMismatchFailsClosed(t *testing.T) {
	logger := &recordingLogger{}
	chain := NewChain(testReference(), logger)

	assert.Nil(t, chain.Annotate(NewItemStack("rotten_flesh", "§7Rotten Flesh§5 [§e✫✫§8✫§5]", 1)))
	assert.Len(t, logger.lines, 1)

	assert.Nil(t, chain.Annotate(NewItemStack("shears", "§bCataclysm", 1)))
	assert.Len(t, logger.lines, 2)

	assert.Nil(t, chain.Annotate(NewItemStack("rotten_flesh", "§7Unknown Goo§6 [§e✫§8✫✫§6]", 1)))
	assert.Len(t, logger.lines, 2)
}

func TestAnnotationCachedUntilContentChanges(t *testing.T) {
	chain := NewChain(testReference(), nil)
	stack := NewItemStack("emerald", "§aEmerald", 3)

	first := chain.Annotate(stack)
	assert.Equal(t, EmeraldItem{Unit: Emerald, Amount: 3}, first)
	assert.Equal(t, first, stack.Annotation())

	stack.Count = 5
	assert.Equal(t, EmeraldItem{Unit: Emerald, Amount: 5}, chain.Annotate(stack))

	stack.Name = NewItemStack("", "§aLiquid Emerald", 1).Name
	assert.Equal(t, EmeraldItem{Unit: LiquidEmerald, Amount: 5}, chain.Annotate(stack))
}

func TestNewReferenceReannotates(t *testing.T) {
	stack := NewItemStack("shears", "§5Cataclysm", 1)
	assert.Nil(t, NewChain(EmptyReference(), nil).Annotate(stack))
	annotation := NewChain(testReference(), nil).Annotate(stack)
	require.NotNil(t, annotation)
	assert.Equal(t, KindGear, annotation.Kind())
}

func TestParseReference(t *testing.T) {
	ref, err := ParseReference([]byte(`{"gear":[{"name":"Cataclysm","type":"Dagger","tier":"Mythic","level":93},{"name":""}],"ingredients":[{"name":"Rotten Flesh","tier":1}]}`))
	require.NoError(t, err)
	assert.Len(t, ref.Gear, 1)
	g, ok := ref.GearByName("Cataclysm")
	require.True(t, ok)
	assert.Equal(t, Mythic, g.Tier)
	_, err = ParseReference([]byte(`{`))
	assert.Error(t, err)
}

func TestRomanToInt(t *testing.T) {
	assert.Equal(t, 4, RomanToInt("IV"))
	assert.Equal(t, 10, RomanToInt("X"))
	assert.Equal(t, 0, RomanToInt("XI"))
}
