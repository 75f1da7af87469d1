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

package plugins_test

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"git.bbaa.fun/bbaa/wynn-inference/core"
	"git.bbaa.fun/bbaa/wynn-inference/core/event"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin/pluginabi"
	"git.bbaa.fun/bbaa/wynn-inference/core/styled"
	"git.bbaa.fun/bbaa/wynn-inference/plugins"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	buf  bytes.Buffer
	lock sync.Mutex
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.String()
}

func newManager(t *testing.T, ps ...pluginabi.Plugin) (*core.Manager, *syncBuffer) {
	out := &syncBuffer{}
	m, err := core.NewManager(core.Options{DataDir: t.TempDir(), Output: out})
	require.NoError(t, err)
	for _, p := range ps {
		require.NoError(t, m.RegisterPlugin(p))
	}
	return m, out
}

// tickUntil ticks the manager until cond holds, so background results get
// delivered on the calling goroutine.
func tickUntil(t *testing.T, m *core.Manager, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition never held")
		}
		m.Tick()
		time.Sleep(5 * time.Millisecond)
	}
}

func joinWorld(m *core.Manager, world string) {
	m.Connect("play.wynncraft.com")
	m.HandleTabHeader(styled.FromString("§fGlobal [" + world + "]"))
}

func board(texts ...string) []plugin.ScoreboardLine {
	lines := make([]plugin.ScoreboardLine, len(texts))
	for i, text := range texts {
		lines[i] = plugin.ScoreboardLine{Text: styled.FromString(text), Score: len(texts) - i}
	}
	return lines
}

func TestQuestTracking(t *testing.T) {
	qp := &plugins.QuestPlugin{}
	m, _ := newManager(t, qp)
	var tracked []plugins.QuestTrackedEvent
	event.Subscribe(m.Bus(), event.Normal, func(ev plugins.QuestTrackedEvent) {
		tracked = append(tracked, ev)
	})

	m.HandleScoreboard(board("§eTracked Quest:", "§eGather Info", "Find the merchant"))
	quest, ok := qp.Tracked()
	require.True(t, ok)
	assert.Equal(t, plugins.QuestInfo{Name: "Gather Info", NextTask: "Find the merchant"}, quest)
	require.Len(t, tracked, 1)

	// a wrapped task is joined
	m.HandleScoreboard(board("§eTracked Quest:", "§eGather Info", "Find the merchant", "in  Ragni"))
	quest, _ = qp.Tracked()
	assert.Equal(t, "Find the merchant in Ragni", quest.NextTask)
	require.Len(t, tracked, 2)

	m.HandleScoreboard(board("§eTracked Quest:", "only a task"))
	_, ok = qp.Tracked()
	assert.False(t, ok)
	require.Len(t, tracked, 3)
	assert.Nil(t, tracked[2].Quest)

	m.HandleScoreboard(board("§eTracked Quest:", "§eGather Info", "Find the merchant"))
	m.HandleScoreboard(board("Something else"))
	_, ok = qp.Tracked()
	assert.False(t, ok)
	assert.Len(t, tracked, 5)
}

func TestQuestCompleted(t *testing.T) {
	m, _ := newManager(t, &plugins.QuestPlugin{})
	var completed []string
	event.Subscribe(m.Bus(), event.Normal, func(ev plugins.QuestCompletedEvent) {
		completed = append(completed, ev.Name)
	})
	m.HandleChat(styled.FromString("§6[Quest Completed] §aGather Info"))
	assert.Equal(t, []string{"Gather Info"}, completed)
	entry, ok := m.Character().GetStatistic(plugin.StatQuestsCompleted)
	require.True(t, ok)
	assert.Equal(t, int64(1), entry.Count)
}

func TestParseQuestSegment(t *testing.T) {
	tests := []struct {
		name     string
		content  []string
		expected plugins.QuestInfo
	}{
		{"simple", []string{"§eGather Info", "Find the merchant"}, plugins.QuestInfo{Name: "Gather Info", NextTask: "Find the merchant"}},
		{"wrapped name", []string{"§eThe Order of", "§eThe Grook", "§7Talk to Bart"}, plugins.QuestInfo{Name: "The Order of The Grook", NextTask: "Talk to Bart"}},
		{"no task", []string{"§eKing's Recruit"}, plugins.QuestInfo{Name: "King's Recruit"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segment := plugin.ScoreboardSegment{}
			for _, line := range tt.content {
				segment.Content = append(segment.Content, styled.FromString(line))
			}
			assert.Equal(t, tt.expected, plugins.ParseQuestSegment(segment))
		})
	}
}

func TestWorldResetCascade(t *testing.T) {
	qp := &plugins.QuestPlugin{}
	tp := &plugins.TotemPlugin{}
	pp := &plugins.PartyPlugin{}
	m, _ := newManager(t, qp, tp, pp, &plugins.StatisticsPlugin{})
	m.Config().Set(plugin.ChatTabsKey, []any{map[string]any{"name": "All"}, map[string]any{"name": "Guild", "filter": `^\[Guild\]`}})
	m.Bus().Post(plugin.ConfigReloadedEvent{})

	joinWorld(m, "WC1")
	require.Equal(t, plugin.InWorld, m.WorldState().State())
	require.True(t, m.Chat().FocusTab("All"))
	m.HandleChat(styled.FromString("[Guild] hi"))
	m.HandleChat(styled.FromString("You have died..."))
	m.HandleScoreboard(board("§eTracked Quest:", "§eGather Info", "Find the merchant", "", "Party:", "- ★ bbaa [100%]", "- Steve"))
	m.HandleEntityLabel(1, styled.FromString("§f§lbbaa's§6§l Mob Totem"), plugin.Position{X: 1, Y: 2, Z: 3})
	_, ok := m.Character().GetStatistic(plugin.StatDeaths)
	require.True(t, ok)
	require.True(t, pp.InParty("Steve"))

	m.Disconnect()
	assert.Equal(t, plugin.NotConnected, m.WorldState().State())
	_, ok = qp.Tracked()
	assert.False(t, ok)
	assert.Empty(t, tp.Totems())
	assert.Empty(t, pp.Members())
	assert.Equal(t, "", m.Chat().Focused())
	assert.Empty(t, m.Chat().History())
	for _, tab := range m.Chat().Tabs() {
		assert.False(t, tab.Unread, tab.Name)
	}
	assert.Empty(t, m.Character().Snapshot())
}

func TestParty(t *testing.T) {
	pp := &plugins.PartyPlugin{}
	m, _ := newManager(t, pp)
	m.HandleScoreboard(board("§6Party: [Lv. 12]", "§7- §c★ bbaa [80%]", "§7- Steve", "§7- ??? broken ???"))
	assert.Equal(t, []plugins.PartyMember{
		{Name: "bbaa", Leader: true, Health: 80},
		{Name: "Steve", Health: -1},
	}, pp.Members())

	m.HandleChat(styled.FromString("§eYour party has been disbanded."))
	assert.Empty(t, pp.Members())
	assert.False(t, pp.InParty("bbaa"))
}

func TestTokens(t *testing.T) {
	tp := &plugins.TokenPlugin{}
	m, _ := newManager(t, tp)
	var updates int
	event.Subscribe(m.Bus(), event.Normal, func(plugins.TokensUpdatedEvent) { updates++ })

	m.HandleScoreboard(board("Tokens:", "- Gatekeeper of Light [2/5]", "- Ragni Guard: [5/5]", "- nonsense"))
	require.Equal(t, []plugins.TokenGatekeeper{
		{Name: "Gatekeeper of Light", Count: 2, Max: 5},
		{Name: "Ragni Guard", Count: 5, Max: 5},
	}, tp.Gatekeepers())
	assert.False(t, tp.Gatekeepers()[0].Done())
	assert.True(t, tp.Gatekeepers()[1].Done())

	m.HandleScoreboard(board("Gatekeepers:", "- Ragni Guard: 3/5", "- Detlas Keeper 1/4"))
	require.Equal(t, []plugins.TokenGatekeeper{
		{Name: "Ragni Guard", Count: 3, Max: 5},
		{Name: "Detlas Keeper", Count: 1, Max: 4},
	}, tp.Gatekeepers())

	m.HandleScoreboard(nil)
	assert.Empty(t, tp.Gatekeepers())
	assert.Equal(t, 3, updates)
}

func TestObjectives(t *testing.T) {
	op := &plugins.ObjectivesPlugin{}
	m, _ := newManager(t, op)
	m.HandleScoreboard(board(
		"§aDaily Objectives:",
		"- Slay 50 mobs: 12/50",
		"- Open a very long",
		"chest thing: 3/3",
		"§bGuild Objectives:",
		"- Win a war: 0/1",
	))
	assert.Equal(t, []plugins.Objective{
		{Goal: "Slay 50 mobs", Score: 12, MaxScore: 50},
		{Goal: "Open a very long chest thing", Score: 3, MaxScore: 3},
	}, op.Personal())
	assert.True(t, op.Personal()[1].Completed())
	assert.Equal(t, []plugins.Objective{{Goal: "Win a war", Score: 0, MaxScore: 1, Guild: true}}, op.Guild())

	m.HandleScoreboard(board("§bGuild Objectives:", "- Win a war: 1/1"))
	assert.Empty(t, op.Personal())
	require.Len(t, op.Guild(), 1)
	assert.True(t, op.Guild()[0].Completed())
}

func TestTrackedBarUpdate(t *testing.T) {
	tests := []struct {
		name    string
		kind    plugins.BarKind
		title   string
		matched bool
		err     bool
		current int
		max     int
	}{
		{"mana bank", plugins.ManaBankBar, "Mana Bank [120/300]", true, false, 120, 300},
		{"blood pool uses fixed max", plugins.BloodPoolBar, "Blood Pool [45%]", true, false, 45, 100},
		{"awakening", plugins.AwakenedBar, "Awakening [3/200]", true, false, 3, 200},
		{"leading symbols", plugins.FocusBar, "✦ Focus [2/3]", true, false, 2, 3},
		{"other bar", plugins.ManaBankBar, "Corrupted [10%]", false, false, 0, 0},
		{"overflow", plugins.ManaBankBar, "Mana Bank [99999999999999999999/300]", true, true, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar, ok := findBar(tt.kind)
			require.True(t, ok)
			matched, err := bar.Update(tt.title)
			assert.Equal(t, tt.matched, matched)
			if tt.err {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			current, max := bar.CurrentAndMax()
			assert.Equal(t, tt.current, current)
			assert.Equal(t, tt.max, max)
			assert.Equal(t, tt.matched && !tt.err, bar.Active())
		})
	}
}

func findBar(kind plugins.BarKind) (*plugins.TrackedBar, bool) {
	for _, bar := range plugins.DefaultTrackedBars() {
		if bar.Kind == kind {
			return bar, true
		}
	}
	return nil, false
}

func TestBossBarPlugin(t *testing.T) {
	bb := &plugins.BossBarPlugin{}
	m, _ := newManager(t, bb)
	var updates []plugins.BarUpdatedEvent
	event.Subscribe(m.Bus(), event.Normal, func(ev plugins.BarUpdatedEvent) {
		updates = append(updates, ev)
	})

	m.HandleBossBarAdd("b1", styled.FromString("§bMana Bank §f[120/300]"), 0.4)
	m.HandleBossBarAdd("b2", styled.FromString("§cBlood Pool [45%]"), 0.45)
	require.Len(t, updates, 2)
	assert.Equal(t, plugins.BarState{Kind: plugins.ManaBankBar, Current: 120, Max: 300, Active: true}, updates[0].BarState)

	m.HandleBossBarUpdate("b1", styled.FromString("Mana Bank [99999999999999999999/300]"), 0.4)
	assert.Len(t, updates, 2)
	state, ok := bb.Bar(plugins.ManaBankBar)
	require.True(t, ok)
	assert.Equal(t, plugins.BarState{Kind: plugins.ManaBankBar, Current: 120, Max: 300, Active: true}, state)

	m.HandleBossBarRemove("b1")
	state, _ = bb.Bar(plugins.ManaBankBar)
	assert.False(t, state.Active)
	state, _ = bb.Bar(plugins.BloodPoolBar)
	assert.True(t, state.Active)

	m.Connect("play.wynncraft.com")
	state, _ = bb.Bar(plugins.BloodPoolBar)
	assert.False(t, state.Active)
	assert.Empty(t, bb.Describe())
}

func TestActionBar(t *testing.T) {
	ap := &plugins.ActionBarPlugin{}
	m, _ := newManager(t, ap)
	var events []plugins.ActionBarSegment
	event.Subscribe(m.Bus(), event.Normal, func(ev plugins.ActionBarSegmentEvent) {
		events = append(events, ev.Segment)
	})

	m.HandleActionBar(styled.FromString("§c❤ 120/150§r    §7-100 64 300    §b✺ 20/20"))
	require.Len(t, events, 3)
	health, ok := ap.Segment(plugins.HealthSegment)
	require.True(t, ok)
	assert.Equal(t, 120, health.Current)
	assert.Equal(t, 150, health.Max)
	coords, ok := ap.Segment(plugins.CoordinatesSegment)
	require.True(t, ok)
	assert.Equal(t, plugin.Position{X: -100, Y: 64, Z: 300}, coords.Position)

	m.HandleActionBar(styled.FromString("§c❤ 100/150§r    §7-100 64 300    §b✺ 20/20"))
	require.Len(t, events, 4)
	assert.Equal(t, plugins.HealthSegment, events[3].Kind)
	assert.Equal(t, 100, events[3].Current)

	m.Connect("play.wynncraft.com")
	m.Disconnect()
	_, ok = ap.Segment(plugins.HealthSegment)
	assert.False(t, ok)
}

func TestMobTotem(t *testing.T) {
	tp := &plugins.TotemPlugin{}
	m, _ := newManager(t, tp)
	var events []plugins.MobTotemEvent
	event.Subscribe(m.Bus(), event.Normal, func(ev plugins.MobTotemEvent) {
		events = append(events, ev)
	})

	m.HandleEntityLabel(10, styled.FromString("§f§lbbaa's§6§l Mob Totem"), plugin.Position{X: 0, Y: 70, Z: 0})
	m.HandleEntityLabel(11, styled.FromString("§c§l4:30"), plugin.Position{X: 0, Y: 69.5, Z: 0})
	m.HandleEntityLabel(12, styled.FromString("§c§l1:00"), plugin.Position{X: 10, Y: 70, Z: 0})
	require.Len(t, tp.Totems(), 1)
	assert.Equal(t, 4*time.Minute+30*time.Second, tp.Totems()[0].Remaining)
	assert.Equal(t, "bbaa", tp.Totems()[0].Owner)

	// the timer keeps its totem even if it drifts
	m.HandleEntityLabel(11, styled.FromString("§c§l4:29"), plugin.Position{X: 5, Y: 69.5, Z: 0})
	assert.Equal(t, 4*time.Minute+29*time.Second, tp.Totems()[0].Remaining)

	// plain text is not a totem
	m.HandleEntityLabel(13, styled.FromString("bbaa's Mob Totem"), plugin.Position{})
	assert.Len(t, tp.Totems(), 1)

	m.HandleEntityRemoved(10)
	assert.Empty(t, tp.Totems())
	require.Len(t, events, 4)
	assert.True(t, events[3].Removed)
	assert.Equal(t, 10, events[3].Totem.ID)
}

func TestStatistics(t *testing.T) {
	m, _ := newManager(t, &plugins.StatisticsPlugin{})
	m.SelectCharacter("warrior-1")
	m.Config().Set("player.name", "bbaa")

	m.HandleChat(styled.FromString("§4You have died..."))
	m.HandleChat(styled.FromString("§6[!] Congratulations to bbaa for reaching combat level 42!"))
	m.HandleChat(styled.FromString("§6[!] Congratulations to Steve for reaching combat level 99!"))
	m.HandleChat(styled.FromString("Great job! You've completed the Decrepit Sewers dungeon!"))
	m.HandleScreenOpened(&screen{title: "§8Loot Chest §7[§fII§7]"})
	m.HandleScreenOpened(&screen{title: "Bank"})

	tests := []struct {
		kind     plugin.StatisticKind
		expected plugin.StatisticEntry
	}{
		{plugin.StatDeaths, plugin.StatisticEntry{Count: 1, Total: 1, Min: 1, Max: 1}},
		{plugin.StatLevelUps, plugin.StatisticEntry{Count: 1, Total: 42, Min: 42, Max: 42}},
		{plugin.StatDungeonsCompleted, plugin.StatisticEntry{Count: 1, Total: 1, Min: 1, Max: 1}},
		{plugin.StatLootChestsOpened, plugin.StatisticEntry{Count: 1, Total: 1, Min: 1, Max: 1}},
	}
	for _, tt := range tests {
		entry, ok := m.Character().GetStatistic(tt.kind)
		require.True(t, ok, tt.kind)
		assert.Equal(t, tt.expected, entry, tt.kind)
	}
}

type screen struct {
	title string
}

func (s *screen) Title() string { return s.title }
func (s *screen) Close()        {}

func TestStatusSamplesTicks(t *testing.T) {
	sp := &plugins.StatusPlugin{}
	m, out := newManager(t, sp)
	for range 21 {
		m.Tick()
	}
	assert.Len(t, sp.LastMspt, 1)

	joinWorld(m, "WC7")
	require.True(t, m.RunCommand("status"))
	assert.Contains(t, out.String(), "Tick 时间")
	assert.Contains(t, out.String(), "WC7")
}
