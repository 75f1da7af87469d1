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

package styled

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// The server pads some strings with À runs and sprinkles ֎ as a spacer glyph.
// "ÀÀÀ" must be listed before "À" so the triple wins at the same offset.
var badStrings = strings.NewReplacer(
	"ÀÀÀ", " ",
	"À", "",
	"֎", "",
	"\u2019", "'",
	"\u2018", "'",
	"\u00a0", " ",
)

func Normalize(s string) string {
	s = badStrings.Replace(s)
	out, _, err := transform.String(transform.Chain(runes.Remove(runes.In(unicode.Cf)), norm.NFC), s)
	if err != nil {
		return s
	}
	return out
}

func (t Text) Normalized() Text {
	return Text{raw: Normalize(t.raw)}
}
