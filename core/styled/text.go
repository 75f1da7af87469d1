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

// Package styled wraps §-coded server strings.
//
// A Text is compared and hashed by its raw coded form, so two strings that
// render identically but carry different codes are different values.
package styled

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"github.com/samber/lo"
)

const CodePrefix = '§'

var formattingCode = regexp.MustCompile(`§.?`)

type Text struct {
	raw string
}

func FromString(s string) Text {
	return Text{raw: s}
}

// Join concatenates parts with sep placed between them.
func Join(parts []Text, sep string) Text {
	return Text{raw: strings.Join(lo.Map(parts, func(item Text, index int) string {
		return item.raw
	}), sep)}
}

func StripFormatting(s string) string {
	return formattingCode.ReplaceAllString(s, "")
}

func (t Text) String() string {
	return t.raw
}

func (t Text) Unformatted() string {
	return StripFormatting(t.raw)
}

// Match runs re against the coded string.
func (t Text) Match(re *regexp.Regexp) []string {
	return re.FindStringSubmatch(t.raw)
}

// MatchUnformatted runs re against the visible text only.
func (t Text) MatchUnformatted(re *regexp.Regexp) []string {
	return re.FindStringSubmatch(t.Unformatted())
}

func (t Text) Matches(re *regexp.Regexp) bool {
	return re.MatchString(t.raw)
}

func (t Text) MatchesUnformatted(re *regexp.Regexp) bool {
	return re.MatchString(t.Unformatted())
}

func (t Text) HasPrefix(prefix string) bool {
	return strings.HasPrefix(t.raw, prefix)
}

func (t Text) Contains(s string) bool {
	return strings.Contains(t.Unformatted(), s)
}

func (t Text) Concat(others ...Text) Text {
	var b strings.Builder
	b.WriteString(t.raw)
	for _, o := range others {
		b.WriteString(o.raw)
	}
	return Text{raw: b.String()}
}

func (t Text) AppendString(s string) Text {
	return Text{raw: t.raw + s}
}

// Trim drops whitespace at both ends of the visible text. Codes before the
// first visible rune are kept so the text keeps its colour, codes after the
// last visible rune are dropped.
func (t Text) Trim() Text {
	runes := []rune(t.raw)
	start := 0
	var codes []rune
	for start < len(runes) {
		if runes[start] == CodePrefix && start+1 < len(runes) {
			codes = append(codes, runes[start], runes[start+1])
			start += 2
			continue
		}
		if unicode.IsSpace(runes[start]) {
			start++
			continue
		}
		break
	}
	end := len(runes)
	for end > start {
		if unicode.IsSpace(runes[end-1]) {
			end--
			continue
		}
		if end-2 >= start && runes[end-2] == CodePrefix {
			end -= 2
			continue
		}
		break
	}
	if start >= end {
		return Text{}
	}
	return Text{raw: string(codes) + string(runes[start:end])}
}

func (t Text) Lines() []Text {
	if t.raw == "" {
		return nil
	}
	return lo.Map(strings.Split(t.raw, "\n"), func(item string, index int) Text {
		return Text{raw: item}
	})
}

func (t Text) Equals(o Text) bool {
	return t.raw == o.raw
}

func (t Text) Hash() uint64 {
	return xxhash.Sum64String(t.raw)
}

// IsEmpty reports whether nothing visible would be rendered.
func (t Text) IsEmpty() bool {
	return strings.TrimSpace(t.Unformatted()) == ""
}

// IsBlank reports whether the raw string itself is empty.
func (t Text) IsBlank() bool {
	return t.raw == ""
}
