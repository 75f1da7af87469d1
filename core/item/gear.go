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
	"github.com/fatih/color"
)

var GearBoxName = regexp.MustCompile(`^§([5abcdef])Unidentified (Helmet|Chestplate|Leggings|Boots|Ring|Bracelet|Necklace|Wand|Bow|Spear|Dagger|Relik)$`)
var GearBoxLevelRange = regexp.MustCompile(`^- Lv\. Range: (\d+)-(\d+)$`)
var UnidentifiedName = regexp.MustCompile(`^§([0-9a-f])Unidentified (.+)$`)
var CraftedGearName = regexp.MustCompile(`^§3(?:§o)?(.+?)(?:§b)? \[(\d+)%\]$`)
var ShinyPrefix = regexp.MustCompile(`^⬡ Shiny `)

var GearIdentificationLine = regexp.MustCompile(`^([-+]\d+)(%|/3s|/5s|/4s| tier)?(\*{0,3}) (.+)$`)
var GearPowderSlotsLine = regexp.MustCompile(`^\[(\d+)/(\d+)\] Powder Slots(?: \[(.+)\])?$`)
var GearTierLine = regexp.MustCompile(`^(Normal|Unique|Rare|Legendary|Fabled|Mythic|Set|Crafted) Item(?: \[(\d+)\])?$`)
var GearLevelLine = regexp.MustCompile(`^Combat Lv\. Min: (\d+)$`)

type Identification struct {
	Name  string
	Value int
	Unit  string
	Stars int
}

// GearInstance is what the lore says about one particular piece of gear. It
// is rebuilt from scratch on every re-annotation.
type GearInstance struct {
	Identifications []Identification
	PowderSlots     int
	PowdersUsed     int
	Powders         []string
	Rerolls         int
	Level           int
	Identified      bool
}

func ParseGearInstance(lore []string) *GearInstance {
	instance := &GearInstance{}
	for _, line := range lore {
		line = strings.TrimSpace(line)
		if match := GearIdentificationLine.FindStringSubmatch(line); match != nil {
			value, err := strconv.Atoi(match[1])
			if err != nil {
				continue
			}
			instance.Identifications = append(instance.Identifications, Identification{
				Name:  match[4],
				Value: value,
				Unit:  strings.TrimSpace(match[2]),
				Stars: len(match[3]),
			})
			continue
		}
		if match := GearPowderSlotsLine.FindStringSubmatch(line); match != nil {
			instance.PowdersUsed, _ = strconv.Atoi(match[1])
			instance.PowderSlots, _ = strconv.Atoi(match[2])
			if match[3] != "" {
				instance.Powders = strings.Fields(match[3])
			}
			continue
		}
		if match := GearTierLine.FindStringSubmatch(line); match != nil {
			if match[2] != "" {
				instance.Rerolls, _ = strconv.Atoi(match[2])
			}
			continue
		}
		if match := GearLevelLine.FindStringSubmatch(line); match != nil {
			instance.Level, _ = strconv.Atoi(match[1])
		}
	}
	instance.Identified = len(instance.Identifications) > 0
	return instance
}

type GearBoxAnnotator struct{}

func (a *GearBoxAnnotator) Annotate(stack *ItemStack, name styled.Text) Annotation {
	match := name.Match(GearBoxName)
	if match == nil {
		return nil
	}
	tier, _ := GearTierFromCode([]rune(match[1])[0])
	box := GearBoxItem{GearType: match[2], Tier: tier}
	for _, line := range stack.UnformattedLore() {
		if r := GearBoxLevelRange.FindStringSubmatch(strings.TrimSpace(line)); r != nil {
			box.LevelMin, _ = strconv.Atoi(r[1])
			box.LevelMax, _ = strconv.Atoi(r[2])
			break
		}
	}
	return box
}

type UnidentifiedAnnotator struct{}

func (a *UnidentifiedAnnotator) Annotate(stack *ItemStack, name styled.Text) Annotation {
	match := name.Match(UnidentifiedName)
	if match == nil {
		return nil
	}
	tier, _ := GearTierFromCode([]rune(match[1])[0])
	return UnidentifiedItem{Name: styled.StripFormatting(match[2]), Tier: tier}
}

type CraftedGearAnnotator struct{}

func (a *CraftedGearAnnotator) Annotate(stack *ItemStack, name styled.Text) Annotation {
	match := name.Match(CraftedGearName)
	if match == nil {
		return nil
	}
	effectiveness, err := strconv.Atoi(match[2])
	if err != nil {
		return nil
	}
	return CraftedGearItem{
		Name:          styled.StripFormatting(match[1]),
		Effectiveness: effectiveness,
		Instance:      ParseGearInstance(stack.UnformattedLore()),
	}
}

// GearAnnotator resolves named gear against the reference database.
type GearAnnotator struct {
	ref    *Reference
	logger Logger
}

func (a *GearAnnotator) Annotate(stack *ItemStack, name styled.Text) Annotation {
	plain := strings.TrimSpace(name.Unformatted())
	shiny := ShinyPrefix.MatchString(plain)
	plain = ShinyPrefix.ReplaceAllString(plain, "")
	info, ok := a.ref.GearByName(plain)
	if !ok {
		return nil
	}
	if tier, ok := GearTierFromName(name.String()); ok && tier != info.Tier {
		a.logger.Println(color.YellowString("装备 "), color.CyanString(plain), color.YellowString(" 的品质与数据库不一致: "), color.RedString("%s", tier), color.YellowString(" != "), color.GreenString("%s", info.Tier))
		return nil
	}
	return GearItem{Info: info, Shiny: shiny, Instance: ParseGearInstance(stack.UnformattedLore())}
}
