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
	"regexp"
	"strconv"
	"strings"

	"git.bbaa.fun/bbaa/wynn-inference/core/styled"
	"github.com/samber/lo"
)

var EmeraldPouchName = regexp.MustCompile(`^§aEmerald Pouch§2 \[Tier ([IVX]+)\]$`)
var EmeraldName = regexp.MustCompile(`^§a(Liquid Emerald|Emerald Block|Emerald)`)
var AmplifierName = regexp.MustCompile(`^§bCorkian Amplifier (I{1,3})$`)
var TeleportScrollName = regexp.MustCompile(`^§b(.+) Teleport Scroll$`)
var GatheringToolName = regexp.MustCompile(`^(?:§f[ⒸⒷⒿⒾ] )?§aGathering (Axe|Rod|Scythe|Pickaxe) T(\d+)$`)
var ServerSelectName = regexp.MustCompile(`^§[baec](?:§l)?World (\d+)(§3 \(Recommended\))?$`)
var SoulPointName = regexp.MustCompile(`^Soul Points?$`)
var SoulPointLore = regexp.MustCompile(`^You have (\d+) soul points?`)
var SkillPointName = regexp.MustCompile(`^§[0-9a-f]§l[✤✦❉✹❋] (Strength|Dexterity|Intelligence|Defence|Agility)$`)
var DungeonKeyName = regexp.MustCompile(`^§[56](Corrupted )?(.+) Key$`)
var CosmeticRarityLore = regexp.MustCompile(`^(Common|Uncommon|Rare|Epic|Godly|Black Market) (?:Reward|Cosmetic)$`)

type EmeraldPouchAnnotator struct{}

func (a *EmeraldPouchAnnotator) Annotate(stack *ItemStack, name styled.Text) Annotation {
	match := name.Match(EmeraldPouchName)
	if match == nil {
		return nil
	}
	tier := RomanToInt(match[1])
	if tier == 0 {
		return nil
	}
	return EmeraldPouchItem{Tier: tier}
}

type EmeraldAnnotator struct{}

func (a *EmeraldAnnotator) Annotate(stack *ItemStack, name styled.Text) Annotation {
	match := name.Match(EmeraldName)
	if match == nil {
		return nil
	}
	unit := Emerald
	switch match[1] {
	case "Liquid Emerald":
		unit = LiquidEmerald
	case "Emerald Block":
		unit = EmeraldBlock
	}
	return EmeraldItem{Unit: unit, Amount: stack.Count}
}

type AmplifierAnnotator struct{}

func (a *AmplifierAnnotator) Annotate(stack *ItemStack, name styled.Text) Annotation {
	match := name.Match(AmplifierName)
	if match == nil {
		return nil
	}
	return AmplifierItem{Tier: RomanToInt(match[1])}
}

type TeleportScrollAnnotator struct{}

func (a *TeleportScrollAnnotator) Annotate(stack *ItemStack, name styled.Text) Annotation {
	match := name.Match(TeleportScrollName)
	if match == nil {
		return nil
	}
	return TeleportScrollItem{Destination: styled.StripFormatting(match[1])}
}

type GatheringToolAnnotator struct{}

func (a *GatheringToolAnnotator) Annotate(stack *ItemStack, name styled.Text) Annotation {
	match := name.Match(GatheringToolName)
	if match == nil {
		return nil
	}
	tier, err := strconv.Atoi(match[2])
	if err != nil {
		return nil
	}
	return GatheringToolItem{ToolType: match[1], Tier: tier}
}

type ServerSelectAnnotator struct{}

func (a *ServerSelectAnnotator) Annotate(stack *ItemStack, name styled.Text) Annotation {
	match := name.Match(ServerSelectName)
	if match == nil {
		return nil
	}
	world, err := strconv.Atoi(match[1])
	if err != nil {
		return nil
	}
	return ServerSelectItem{World: world, Recommended: match[2] != ""}
}

type SoulPointAnnotator struct{}

func (a *SoulPointAnnotator) Annotate(stack *ItemStack, name styled.Text) Annotation {
	if !SoulPointName.MatchString(strings.TrimSpace(name.Unformatted())) {
		return nil
	}
	for _, line := range stack.UnformattedLore() {
		if match := SoulPointLore.FindStringSubmatch(strings.TrimSpace(line)); match != nil {
			if count, err := strconv.Atoi(match[1]); err == nil {
				return SoulPointItem{Count: count}
			}
		}
	}
	return SoulPointItem{Count: stack.Count}
}

type SkillPointAnnotator struct{}

func (a *SkillPointAnnotator) Annotate(stack *ItemStack, name styled.Text) Annotation {
	match := name.Match(SkillPointName)
	if match == nil {
		return nil
	}
	return SkillPointItem{Skill: match[1], Points: stack.Count}
}

type DungeonKeyAnnotator struct{}

func (a *DungeonKeyAnnotator) Annotate(stack *ItemStack, name styled.Text) Annotation {
	match := name.Match(DungeonKeyName)
	if match == nil {
		return nil
	}
	return DungeonKeyItem{Dungeon: styled.StripFormatting(match[2]), Corrupted: match[1] != ""}
}

type CosmeticAnnotator struct{}

func (a *CosmeticAnnotator) Annotate(stack *ItemStack, name styled.Text) Annotation {
	rarity, ok := lo.Find(lo.Map(stack.UnformattedLore(), func(line string, index int) string {
		if match := CosmeticRarityLore.FindStringSubmatch(strings.TrimSpace(line)); match != nil {
			return match[1]
		}
		return ""
	}), func(item string) bool {
		return item != ""
	})
	if !ok {
		return nil
	}
	return CosmeticItem{Name: strings.TrimSpace(name.Unformatted()), Rarity: rarity}
}
