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

package plugin

import (
	"cmp"
	"errors"
	"regexp"
	"slices"
	"strings"
	"sync"

	"git.bbaa.fun/bbaa/wynn-inference/core/plugin/pluginabi"
	"git.bbaa.fun/bbaa/wynn-inference/core/styled"
	"github.com/fatih/color"
	"github.com/samber/lo"
)

const HiddenSegmentsKey = "scoreboard.hiddenSegments"

var ErrSegmentExists = errors.New("segment exists")

type ScoreboardLine struct {
	Text  styled.Text
	Score int
}

// SegmentMatcher identifies a segment by its header line. Header is matched
// against the trimmed unformatted text. End is optional and terminates the
// segment before the line it matches.
type SegmentMatcher struct {
	Name   string
	Header *regexp.Regexp
	End    *regexp.Regexp
}

type ScoreboardSegment struct {
	Matcher *SegmentMatcher
	Header  styled.Text
	Content []styled.Text
	Visible bool
}

func (s ScoreboardSegment) Name() string {
	if s.Matcher == nil {
		return ""
	}
	return s.Matcher.Name
}

func (s ScoreboardSegment) UnformattedContent() []string {
	return lo.Map(s.Content, func(item styled.Text, index int) string {
		return item.Unformatted()
	})
}

func (s ScoreboardSegment) Equal(o ScoreboardSegment) bool {
	return s.Matcher == o.Matcher && s.Visible == o.Visible && s.Header.Equals(o.Header) &&
		slices.EqualFunc(s.Content, o.Content, styled.Text.Equals)
}

type ScoreboardPart struct {
	Matcher  SegmentMatcher
	OnChange func(ScoreboardSegment)
	OnRemove func(ScoreboardSegment)
}

type scoreboardPart struct {
	owner pluginabi.PluginName
	part  *ScoreboardPart
}

type ScoreboardCore struct {
	BasePlugin
	parts     []*scoreboardPart
	segments  map[string]ScoreboardSegment
	lines     []ScoreboardLine
	ambiguous map[string]struct{}
	lock      sync.RWMutex
}

func (sc *ScoreboardCore) Init(pm pluginabi.PluginManager) error {
	err := sc.BasePlugin.Init(pm, sc)
	if err != nil {
		return err
	}
	sc.segments = make(map[string]ScoreboardSegment)
	sc.ambiguous = make(map[string]struct{})
	return nil
}

func (sc *ScoreboardCore) RegisterPart(context pluginabi.PluginName, part ScoreboardPart) error {
	if part.Matcher.Header == nil {
		return errors.New("segment without header pattern")
	}
	sc.lock.Lock()
	defer sc.lock.Unlock()
	if slices.ContainsFunc(sc.parts, func(p *scoreboardPart) bool { return p.part.Matcher.Name == part.Matcher.Name }) {
		sc.Println(color.YellowString("插件 "), color.BlueString(context.DisplayName()), color.RedString(" 尝试注册已注册的记分板段: "), color.GreenString(part.Matcher.Name))
		return ErrSegmentExists
	}
	sc.Println(
		color.YellowString("插件 "),
		color.BlueString(context.DisplayName()),
		color.YellowString(" 注册了一个 "),
		color.GreenString(part.Matcher.Name),
		color.YellowString("["),
		color.CyanString(part.Matcher.Header.String()),
		color.YellowString("]"),
		color.YellowString("记分板段"),
	)
	sc.parts = append(sc.parts, &scoreboardPart{owner: context, part: &part})
	return nil
}

// headerOf returns the part whose header matches text. More than one match is
// a configuration error, the header is then reported as ambiguous and not
// routed anywhere.
func (sc *ScoreboardCore) headerOf(text string) (part *scoreboardPart, isHeader bool) {
	matched := lo.Filter(sc.parts, func(p *scoreboardPart, index int) bool {
		return p.part.Matcher.Header.MatchString(text)
	})
	switch len(matched) {
	case 0:
		return nil, false
	case 1:
		return matched[0], true
	}
	if _, ok := sc.ambiguous[text]; !ok {
		sc.ambiguous[text] = struct{}{}
		sc.Println(color.RedString("记分板段标题 "), color.CyanString(text), color.RedString(" 同时匹配了 "), color.YellowString(strings.Join(lo.Map(matched, func(p *scoreboardPart, index int) string {
			return p.part.Matcher.Name
		}), ", ")), color.RedString("，忽略该段"))
	}
	return nil, true
}

func sortLines(lines []ScoreboardLine) []ScoreboardLine {
	sorted := slices.Clone(lines)
	slices.SortStableFunc(sorted, func(a, b ScoreboardLine) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return strings.Compare(a.Text.String(), b.Text.String())
	})
	return sorted
}

// Update replaces the scoreboard with lines and reports every segment whose
// content changed or disappeared since the previous update.
func (sc *ScoreboardCore) Update(lines []ScoreboardLine) {
	sorted := sortLines(lines)
	hidden := sc.hiddenSegments()

	sc.lock.Lock()
	sc.lines = sorted
	found := make(map[string]ScoreboardSegment)
	var current *ScoreboardSegment
	closeCurrent := func() {
		if current == nil {
			return
		}
		if _, ok := found[current.Matcher.Name]; !ok {
			found[current.Matcher.Name] = *current
		}
		current = nil
	}
	for _, line := range sorted {
		text := line.Text.Trim()
		unformatted := text.Unformatted()
		if part, isHeader := sc.headerOf(unformatted); isHeader {
			closeCurrent()
			if part != nil {
				current = &ScoreboardSegment{
					Matcher: &part.part.Matcher,
					Header:  text,
					Content: []styled.Text{},
					Visible: !slices.Contains(hidden, part.part.Matcher.Name),
				}
			}
			continue
		}
		if current == nil {
			continue
		}
		if text.IsEmpty() || (current.Matcher.End != nil && current.Matcher.End.MatchString(unformatted)) {
			closeCurrent()
			continue
		}
		current.Content = append(current.Content, text)
	}
	closeCurrent()

	previous := sc.segments
	sc.segments = found
	parts := slices.Clone(sc.parts)
	sc.lock.Unlock()

	for _, p := range parts {
		name := p.part.Matcher.Name
		segment, ok := found[name]
		if !ok {
			if old, existed := previous[name]; existed {
				sc.fireRemove(p, old)
			}
			continue
		}
		if old, existed := previous[name]; existed && old.Equal(segment) {
			continue
		}
		if len(segment.Content) == 0 {
			sc.Println(color.RedString("记分板段 "), color.GreenString(name), color.RedString(" 没有内容"))
		}
		sc.fireChange(p, segment)
	}
}

func (sc *ScoreboardCore) fireChange(p *scoreboardPart, segment ScoreboardSegment) {
	if p.part.OnChange != nil {
		sc.pm.SafeCall(p.owner.DisplayName(), func() { p.part.OnChange(segment) })
	}
	sc.Bus().Post(SegmentChangedEvent{Segment: segment})
}

func (sc *ScoreboardCore) fireRemove(p *scoreboardPart, segment ScoreboardSegment) {
	if p.part.OnRemove != nil {
		sc.pm.SafeCall(p.owner.DisplayName(), func() { p.part.OnRemove(segment) })
	}
	sc.Bus().Post(SegmentRemovedEvent{Segment: segment})
}

func (sc *ScoreboardCore) hiddenSegments() []string {
	if sc.Config() == nil {
		return nil
	}
	return sc.Config().Strings(HiddenSegmentsKey)
}

func (sc *ScoreboardCore) Segment(name string) (ScoreboardSegment, bool) {
	sc.lock.RLock()
	defer sc.lock.RUnlock()
	segment, ok := sc.segments[name]
	return segment, ok
}

func (sc *ScoreboardCore) Segments() []ScoreboardSegment {
	sc.lock.RLock()
	defer sc.lock.RUnlock()
	return lo.FilterMap(sc.parts, func(p *scoreboardPart, index int) (ScoreboardSegment, bool) {
		segment, ok := sc.segments[p.part.Matcher.Name]
		return segment, ok
	})
}

func (sc *ScoreboardCore) Lines() []ScoreboardLine {
	sc.lock.RLock()
	defer sc.lock.RUnlock()
	return slices.Clone(sc.lines)
}

func (sc *ScoreboardCore) Reset() {
	sc.lock.Lock()
	previous := sc.segments
	sc.segments = make(map[string]ScoreboardSegment)
	sc.lines = nil
	sc.ambiguous = make(map[string]struct{})
	parts := slices.Clone(sc.parts)
	sc.lock.Unlock()
	for _, p := range parts {
		if old, ok := previous[p.part.Matcher.Name]; ok {
			sc.fireRemove(p, old)
		}
	}
}

func (sc *ScoreboardCore) Describe() []string {
	return lo.Map(sc.Segments(), func(segment ScoreboardSegment, index int) string {
		return segment.Name() + ": " + strings.Join(segment.UnformattedContent(), " | ")
	})
}

func (sc *ScoreboardCore) Name() string {
	return "ScoreboardCore"
}

func (sc *ScoreboardCore) DisplayName() string {
	return "记分板核心"
}
