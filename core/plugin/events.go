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
	"git.bbaa.fun/bbaa/wynn-inference/core/styled"
)

type BossBarOp int

const (
	BossBarAdd BossBarOp = iota
	BossBarUpdate
	BossBarRemove
)

type BossBarEvent struct {
	Op       BossBarOp
	ID       string
	Title    styled.Text
	Progress float32
}

type ActionBarEvent struct {
	Text styled.Text
}

type EntityLabelEvent struct {
	ID       int
	Text     styled.Text
	Position Position
}

type EntityRemovedEvent struct {
	ID int
}

type ScreenOpenedEvent struct {
	Title styled.Text
}

type TickEvent struct {
	Tick uint64
}

// ConfigReloadedEvent is posted on the main thread after the config file was
// re-read from disk.
type ConfigReloadedEvent struct {
	Changed []string
}

type CharacterSelectedEvent struct {
	Previous string
	ID       string
}

type SegmentChangedEvent struct {
	Segment ScoreboardSegment
}

type SegmentRemovedEvent struct {
	Segment ScoreboardSegment
}
