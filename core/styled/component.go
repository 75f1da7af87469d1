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
	"bytes"
	"encoding/json"
	"strings"
)

type Color string

var (
	Black        Color = "black"
	Dark_Blue    Color = "dark_blue"
	Dark_Green   Color = "dark_green"
	Dark_Aqua    Color = "dark_aqua"
	Dark_Red     Color = "dark_red"
	Dark_Purple  Color = "dark_purple"
	Gold         Color = "gold"
	Gray         Color = "gray"
	Dark_Gray    Color = "dark_gray"
	Blue         Color = "blue"
	Green        Color = "green"
	Aqua         Color = "aqua"
	Red          Color = "red"
	Light_Purple Color = "light_purple"
	Yellow       Color = "yellow"
	White        Color = "white"
)

var colorCodes = map[Color]rune{
	Black:        '0',
	Dark_Blue:    '1',
	Dark_Green:   '2',
	Dark_Aqua:    '3',
	Dark_Red:     '4',
	Dark_Purple:  '5',
	Gold:         '6',
	Gray:         '7',
	Dark_Gray:    '8',
	Blue:         '9',
	Green:        'a',
	Aqua:         'b',
	Red:          'c',
	Light_Purple: 'd',
	Yellow:       'e',
	White:        'f',
}

// ColorOf maps a colour code character back to its name.
func ColorOf(code rune) (Color, bool) {
	for color, c := range colorCodes {
		if c == code {
			return color, true
		}
	}
	return "", false
}

func (c Color) Code() string {
	code, ok := colorCodes[c]
	if !ok {
		return ""
	}
	return string([]rune{CodePrefix, code})
}

// Component is a JSON chat component as sent by the server.
type Component struct {
	Text          string      `json:"text"`
	Translate     string      `json:"translate,omitempty"`
	Color         Color       `json:"color,omitempty"`
	Bold          bool        `json:"bold,omitempty"`
	Italic        bool        `json:"italic,omitempty"`
	Underlined    bool        `json:"underlined,omitempty"`
	Strikethrough bool        `json:"strikethrough,omitempty"`
	Obfuscated    bool        `json:"obfuscated,omitempty"`
	Extra         []Component `json:"extra,omitempty"`
}

func (c *Component) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Component{Text: s}
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var parts []Component
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		*c = Component{Extra: parts}
		return nil
	}
	type plain Component
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = Component(p)
	return nil
}

type componentStyle struct {
	color                                                  Color
	bold, italic, underlined, strikethrough, obfuscated bool
}

func (s componentStyle) inherit(c *Component) componentStyle {
	if c.Color != "" {
		s.color = c.Color
	}
	s.bold = s.bold || c.Bold
	s.italic = s.italic || c.Italic
	s.underlined = s.underlined || c.Underlined
	s.strikethrough = s.strikethrough || c.Strikethrough
	s.obfuscated = s.obfuscated || c.Obfuscated
	return s
}

func (s componentStyle) codes() string {
	var b strings.Builder
	if s.color != "" {
		b.WriteString(s.color.Code())
	}
	for _, f := range []struct {
		set  bool
		code string
	}{{s.obfuscated, "§k"}, {s.bold, "§l"}, {s.strikethrough, "§m"}, {s.underlined, "§n"}, {s.italic, "§o"}} {
		if f.set {
			b.WriteString(f.code)
		}
	}
	return b.String()
}

func FromComponent(c Component) Text {
	var b strings.Builder
	var last *componentStyle
	var walk func(c *Component, parent componentStyle)
	walk = func(c *Component, parent componentStyle) {
		style := parent.inherit(c)
		text := c.Text
		if text == "" {
			text = c.Translate
		}
		if text != "" {
			if last == nil || *last != style {
				if last != nil && style.color == "" {
					b.WriteString("§r")
				}
				b.WriteString(style.codes())
				last = &style
			}
			b.WriteString(text)
		}
		for i := range c.Extra {
			walk(&c.Extra[i], style)
		}
	}
	walk(&c, componentStyle{})
	return Text{raw: b.String()}
}

// FromJSON accepts a component object, an array of components or a bare string.
func FromJSON(data []byte) (Text, error) {
	var c Component
	if err := json.Unmarshal(data, &c); err != nil {
		return Text{}, err
	}
	return FromComponent(c), nil
}
