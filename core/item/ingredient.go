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
	"unicode/utf8"

	"git.bbaa.fun/bbaa/wynn-inference/core/styled"
	"github.com/fatih/color"
)

var IngredientName = regexp.MustCompile(`^§7(.+?)§([3567]) \[((?:§[8e]✫+)+)§[3567]\]$`)
var MaterialName = regexp.MustCompile(`^§f(.+?)§6 \[§e(✫+)(?:§8✫*)?§6\]$`)
var PowderName = regexp.MustCompile(`^§[2ebcf8].? ?(Earth|Thunder|Water|Fire|Air) Powder ([IV]{1,3})$`)

type IngredientAnnotator struct {
	ref    *Reference
	logger Logger
}

func (a *IngredientAnnotator) Annotate(stack *ItemStack, name styled.Text) Annotation {
	match := name.Match(IngredientName)
	if match == nil {
		return nil
	}
	ingredient := styled.StripFormatting(match[1])
	tier, ok := IngredientTierFromCode([]rune(match[2])[0])
	if !ok {
		return nil
	}
	info, ok := a.ref.IngredientByName(ingredient)
	if !ok {
		return nil
	}
	if info.Tier != tier {
		a.logger.Println(color.YellowString("材料 "), color.CyanString(ingredient), color.YellowString(" 的星级与数据库不一致: "), color.RedString("%d", tier), color.YellowString(" != "), color.GreenString("%d", info.Tier))
		return nil
	}
	return IngredientItem{Name: ingredient, Tier: tier}
}

type MaterialAnnotator struct{}

func (a *MaterialAnnotator) Annotate(stack *ItemStack, name styled.Text) Annotation {
	match := name.Match(MaterialName)
	if match == nil {
		return nil
	}
	return MaterialItem{Name: styled.StripFormatting(match[1]), Tier: utf8.RuneCountInString(match[2])}
}

type PowderAnnotator struct{}

func (a *PowderAnnotator) Annotate(stack *ItemStack, name styled.Text) Annotation {
	match := name.Match(PowderName)
	if match == nil {
		return nil
	}
	tier := RomanToInt(match[2])
	if tier == 0 || tier > 6 {
		return nil
	}
	return PowderItem{Element: match[1], Tier: tier}
}
