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

package plugins

import (
	"regexp"
	"strconv"
	"sync"

	"git.bbaa.fun/bbaa/wynn-inference/core/event"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin/pluginabi"
	"github.com/fatih/color"
	"github.com/samber/lo"
)

type ActionBarSegmentKind string

const (
	HealthSegment      ActionBarSegmentKind = "Health"
	ManaSegment        ActionBarSegmentKind = "Mana"
	CoordinatesSegment ActionBarSegmentKind = "Coordinates"
)

var ActionBarSeparator = regexp.MustCompile(`\s{2,}`)

type actionBarMatcher struct {
	kind    ActionBarSegmentKind
	pattern *regexp.Regexp
}

// Segments are tried in this order, the first match claims the segment.
var actionBarMatchers = []actionBarMatcher{
	{HealthSegment, regexp.MustCompile(`^❤ ?(\d+)/(\d+)$`)},
	{ManaSegment, regexp.MustCompile(`^✺ ?(\d+)/(\d+)$`)},
	{CoordinatesSegment, regexp.MustCompile(`^(-?\d+) (-?\d+) (-?\d+)$`)},
}

type ActionBarSegment struct {
	Kind    ActionBarSegmentKind
	Text    string
	Current int
	Max     int
	// Position is only set for CoordinatesSegment.
	Position plugin.Position
}

type ActionBarSegmentEvent struct {
	Segment ActionBarSegment
}

type ActionBarPlugin struct {
	plugin.BasePlugin
	segments map[ActionBarSegmentKind]ActionBarSegment
	lock     sync.RWMutex
}

func (ap *ActionBarPlugin) Init(pm pluginabi.PluginManager) (err error) {
	err = ap.BasePlugin.Init(pm, ap)
	if err != nil {
		return err
	}
	ap.segments = make(map[ActionBarSegmentKind]ActionBarSegment)
	event.Subscribe(ap.Bus(), event.Normal, func(ev plugin.ActionBarEvent) {
		ap.Update(ev.Text.Normalized().Unformatted())
	})
	return nil
}

// Update splits the action bar on runs of spaces and reports every known
// segment whose text changed.
func (ap *ActionBarPlugin) Update(text string) {
	for _, part := range ActionBarSeparator.Split(text, -1) {
		for _, matcher := range actionBarMatchers {
			match := matcher.pattern.FindStringSubmatch(part)
			if match == nil {
				continue
			}
			segment, err := parseActionBarSegment(matcher.kind, part, match)
			if err != nil {
				ap.Println(color.RedString("无法解析动作栏: "), color.CyanString(part), color.RedString(" "), color.MagentaString(err.Error()))
				break
			}
			ap.lock.Lock()
			old, ok := ap.segments[matcher.kind]
			ap.segments[matcher.kind] = segment
			ap.lock.Unlock()
			if !ok || old.Text != segment.Text {
				ap.Bus().Post(ActionBarSegmentEvent{Segment: segment})
			}
			break
		}
	}
}

func parseActionBarSegment(kind ActionBarSegmentKind, text string, match []string) (ActionBarSegment, error) {
	segment := ActionBarSegment{Kind: kind, Text: text}
	switch kind {
	case HealthSegment, ManaSegment:
		var err error
		segment.Current, err = strconv.Atoi(match[1])
		if err != nil {
			return segment, err
		}
		segment.Max, err = strconv.Atoi(match[2])
		if err != nil {
			return segment, err
		}
	case CoordinatesSegment:
		position, err := plugin.ParsePosition(text)
		if err != nil {
			return segment, err
		}
		segment.Position = position
	}
	return segment, nil
}

func (ap *ActionBarPlugin) Segment(kind ActionBarSegmentKind) (ActionBarSegment, bool) {
	ap.lock.RLock()
	defer ap.lock.RUnlock()
	segment, ok := ap.segments[kind]
	return segment, ok
}

func (ap *ActionBarPlugin) Reset() {
	ap.lock.Lock()
	defer ap.lock.Unlock()
	clear(ap.segments)
}

func (ap *ActionBarPlugin) Describe() []string {
	ap.lock.RLock()
	defer ap.lock.RUnlock()
	return lo.FilterMap(actionBarMatchers, func(matcher actionBarMatcher, index int) (string, bool) {
		segment, ok := ap.segments[matcher.kind]
		return string(segment.Kind) + ": " + segment.Text, ok
	})
}

func (ap *ActionBarPlugin) DisplayName() string {
	return "动作栏"
}

func (ap *ActionBarPlugin) Name() string {
	return "ActionBarPlugin"
}
