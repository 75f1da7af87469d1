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
	"strings"
	"sync"

	"git.bbaa.fun/bbaa/wynn-inference/core/plugin"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin/pluginabi"
	"github.com/fatih/color"
)

var QuestSegmentHeader = regexp.MustCompile(`^Tracked Quest:$`)
var QuestCompletedMessage = regexp.MustCompile(`^\s*\[Quest Completed\]\s*(.*)$`)

// QuestInfo is rebuilt from the scoreboard every time the segment changes.
type QuestInfo struct {
	Name     string
	NextTask string
}

// QuestTrackedEvent carries the tracked quest, or nil when tracking stopped.
type QuestTrackedEvent struct {
	Quest *QuestInfo
}

type QuestCompletedEvent struct {
	Name string
}

// ParseQuestSegment reads the quest name from the yellow lines and the next
// task from every other line.
func ParseQuestSegment(segment plugin.ScoreboardSegment) QuestInfo {
	var name, task []string
	for _, line := range segment.Content {
		text := strings.Fields(line.Unformatted())
		if line.HasPrefix("§e") {
			name = append(name, text...)
		} else {
			task = append(task, text...)
		}
	}
	return QuestInfo{Name: strings.Join(name, " "), NextTask: strings.Join(task, " ")}
}

type QuestPlugin struct {
	plugin.BasePlugin
	tracked *QuestInfo
	lock    sync.RWMutex
}

func (qp *QuestPlugin) Init(pm pluginabi.PluginManager) (err error) {
	err = qp.BasePlugin.Init(pm, qp)
	if err != nil {
		return err
	}
	err = qp.RegisterSegment(plugin.ScoreboardPart{
		Matcher:  plugin.SegmentMatcher{Name: "TrackedQuest", Header: QuestSegmentHeader},
		OnChange: qp.onSegmentChange,
		OnRemove: qp.onSegmentRemove,
	})
	if err != nil {
		return err
	}
	return qp.RegisterChatHandler(QuestCompletedMessage, qp.onQuestCompleted)
}

func (qp *QuestPlugin) onSegmentChange(segment plugin.ScoreboardSegment) {
	quest := ParseQuestSegment(segment)
	if quest.Name == "" {
		qp.Println(color.RedString("无法解析任务名称: "), color.CyanString(strings.Join(segment.UnformattedContent(), " | ")))
		qp.setTracked(nil)
		return
	}
	qp.setTracked(&quest)
}

func (qp *QuestPlugin) onSegmentRemove(plugin.ScoreboardSegment) {
	qp.setTracked(nil)
}

func (qp *QuestPlugin) onQuestCompleted(msg *plugin.ChatMessageEvent, match []string) {
	name := strings.TrimSpace(match[1])
	qp.AddToStatistics(plugin.StatQuestsCompleted, 1)
	qp.Println(color.GreenString("任务完成: "), color.CyanString(name))
	qp.Bus().Post(QuestCompletedEvent{Name: name})
}

func (qp *QuestPlugin) setTracked(quest *QuestInfo) {
	qp.lock.Lock()
	old := qp.tracked
	qp.tracked = quest
	qp.lock.Unlock()
	if old == nil && quest == nil {
		return
	}
	if old != nil && quest != nil && *old == *quest {
		return
	}
	qp.Bus().Post(QuestTrackedEvent{Quest: quest})
}

func (qp *QuestPlugin) Tracked() (QuestInfo, bool) {
	qp.lock.RLock()
	defer qp.lock.RUnlock()
	if qp.tracked == nil {
		return QuestInfo{}, false
	}
	return *qp.tracked, true
}

func (qp *QuestPlugin) Reset() {
	qp.lock.Lock()
	defer qp.lock.Unlock()
	qp.tracked = nil
}

func (qp *QuestPlugin) Describe() []string {
	quest, ok := qp.Tracked()
	if !ok {
		return nil
	}
	return []string{quest.Name + ": " + quest.NextTask}
}

func (qp *QuestPlugin) DisplayName() string {
	return "任务追踪"
}

func (qp *QuestPlugin) Name() string {
	return "QuestPlugin"
}

