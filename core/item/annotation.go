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

type Kind string

var (
	KindGearBox        Kind = "GearBox"
	KindUnidentified   Kind = "Unidentified"
	KindCraftedGear    Kind = "CraftedGear"
	KindGear           Kind = "Gear"
	KindIngredient     Kind = "Ingredient"
	KindMaterial       Kind = "Material"
	KindPowder         Kind = "Powder"
	KindEmeraldPouch   Kind = "EmeraldPouch"
	KindEmerald        Kind = "Emerald"
	KindAmplifier      Kind = "Amplifier"
	KindTeleportScroll Kind = "TeleportScroll"
	KindGatheringTool  Kind = "GatheringTool"
	KindServerSelect   Kind = "ServerSelect"
	KindSoulPoint      Kind = "SoulPoint"
	KindSkillPoint     Kind = "SkillPoint"
	KindDungeonKey     Kind = "DungeonKey"
	KindCosmetic       Kind = "Cosmetic"
)

type Annotation interface {
	Kind() Kind
}

type GearBoxItem struct {
	GearType string
	Tier     GearTier
	LevelMin int
	LevelMax int
}

func (GearBoxItem) Kind() Kind { return KindGearBox }

type UnidentifiedItem struct {
	Name string
	Tier GearTier
}

func (UnidentifiedItem) Kind() Kind { return KindUnidentified }

type CraftedGearItem struct {
	Name          string
	Effectiveness int
	Instance      *GearInstance
}

func (CraftedGearItem) Kind() Kind { return KindCraftedGear }

type GearItem struct {
	Info     GearInfo
	Shiny    bool
	Instance *GearInstance
}

func (GearItem) Kind() Kind { return KindGear }

type IngredientItem struct {
	Name string
	Tier int
}

func (IngredientItem) Kind() Kind { return KindIngredient }

type MaterialItem struct {
	Name string
	Tier int
}

func (MaterialItem) Kind() Kind { return KindMaterial }

type PowderItem struct {
	Element string
	Tier    int
}

func (PowderItem) Kind() Kind { return KindPowder }

type EmeraldPouchItem struct {
	Tier int
}

func (EmeraldPouchItem) Kind() Kind { return KindEmeraldPouch }

type EmeraldUnit string

var (
	Emerald       EmeraldUnit = "Emerald"
	EmeraldBlock  EmeraldUnit = "EmeraldBlock"
	LiquidEmerald EmeraldUnit = "LiquidEmerald"
)

// Value in plain emeralds of one unit.
func (u EmeraldUnit) Value() int {
	switch u {
	case EmeraldBlock:
		return 64
	case LiquidEmerald:
		return 64 * 64
	}
	return 1
}

type EmeraldItem struct {
	Unit   EmeraldUnit
	Amount int
}

func (EmeraldItem) Kind() Kind { return KindEmerald }

type AmplifierItem struct {
	Tier int
}

func (AmplifierItem) Kind() Kind { return KindAmplifier }

type TeleportScrollItem struct {
	Destination string
}

func (TeleportScrollItem) Kind() Kind { return KindTeleportScroll }

type GatheringToolItem struct {
	ToolType string
	Tier     int
}

func (GatheringToolItem) Kind() Kind { return KindGatheringTool }

type ServerSelectItem struct {
	World       int
	Recommended bool
}

func (ServerSelectItem) Kind() Kind { return KindServerSelect }

type SoulPointItem struct {
	Count int
}

func (SoulPointItem) Kind() Kind { return KindSoulPoint }

type SkillPointItem struct {
	Skill  string
	Points int
}

func (SkillPointItem) Kind() Kind { return KindSkillPoint }

type DungeonKeyItem struct {
	Dungeon   string
	Corrupted bool
}

func (DungeonKeyItem) Kind() Kind { return KindDungeonKey }

type CosmeticItem struct {
	Name   string
	Rarity string
}

func (CosmeticItem) Kind() Kind { return KindCosmetic }
