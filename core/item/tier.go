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
	"strings"
)

type GearTier string

var (
	Normal    GearTier = "Normal"
	Unique    GearTier = "Unique"
	Rare      GearTier = "Rare"
	Legendary GearTier = "Legendary"
	Fabled    GearTier = "Fabled"
	Mythic    GearTier = "Mythic"
	Set       GearTier = "Set"
	Crafted   GearTier = "Crafted"
)

// Colour code of the item name for each tier.
var gearTierCodes = map[rune]GearTier{
	'f': Normal,
	'e': Unique,
	'd': Rare,
	'b': Legendary,
	'c': Fabled,
	'5': Mythic,
	'a': Set,
	'3': Crafted,
}

func GearTierFromCode(code rune) (GearTier, bool) {
	tier, ok := gearTierCodes[code]
	return tier, ok
}

// GearTierFromName reads the tier from the first colour code in a coded name.
func GearTierFromName(name string) (GearTier, bool) {
	runes := []rune(name)
	for i := 0; i+1 < len(runes); i++ {
		if runes[i] != '§' {
			break
		}
		if tier, ok := gearTierCodes[runes[i+1]]; ok {
			return tier, true
		}
		i++
	}
	return "", false
}

// Ingredient tier by the colour of the bracket around the stars.
var ingredientTierCodes = map[rune]int{
	'7': 0,
	'6': 1,
	'5': 2,
	'3': 3,
}

func IngredientTierFromCode(code rune) (int, bool) {
	tier, ok := ingredientTierCodes[code]
	return tier, ok
}

var romanNumerals = map[string]int{
	"I":    1,
	"II":   2,
	"III":  3,
	"IV":   4,
	"V":    5,
	"VI":   6,
	"VII":  7,
	"VIII": 8,
	"IX":   9,
	"X":    10,
}

// RomanToInt converts I through X. Anything else yields 0.
func RomanToInt(s string) int {
	return romanNumerals[strings.TrimSpace(s)]
}
