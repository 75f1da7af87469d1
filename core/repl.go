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

package core

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"git.bbaa.fun/bbaa/wynn-inference/core/item"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin/pluginabi"
	"git.bbaa.fun/bbaa/wynn-inference/core/styled"
	"github.com/fatih/color"
	"github.com/samber/lo"
	"golang.org/x/exp/maps"
	"golang.org/x/term"
)

const TickInterval = 50 * time.Millisecond

// replScreen is what the console opens for the "screen" command.
type replScreen struct {
	title string
	r     *REPL
}

func (s *replScreen) Title() string {
	return s.title
}

func (s *replScreen) Close() {
	s.r.Println(color.YellowString("界面 "), color.CyanString(s.title), color.YellowString(" 已关闭"))
}

// REPL replays host input typed on the console. It is the only tick source
// when no game is attached.
type REPL struct {
	m        *Manager
	terminal *term.Terminal
	state    *term.State
	lines    map[int]string
}

func NewREPL(m *Manager) *REPL {
	return &REPL{m: m, lines: make(map[int]string)}
}

func (r *REPL) DisplayName() string {
	return "终端命令"
}

func (r *REPL) Name() string {
	return "REPL"
}

func (r *REPL) Println(a ...any) (int, error) {
	return r.m.Println(color.MagentaString(r.DisplayName()), a...)
}

func (r *REPL) initTerminal() (t *term.Terminal, err error) {
	r.state, err = term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return nil, err
	}
	terminal := struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}
	t = term.NewTerminal(terminal, "Wynn > ")
	return t, nil
}

// Run reads console lines until "exit" or EOF while ticking the manager.
func (r *REPL) Run() error {
	var err error
	r.terminal, err = r.initTerminal()
	if err != nil {
		return err
	}
	defer term.Restore(int(os.Stdin.Fd()), r.state)

	return r.serve(r.terminal.ReadLine)
}

// serve executes lines from readLine and ticks the manager until exit or a
// read error.
func (r *REPL) serve(readLine func() (string, error)) error {
	input := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go r.readLines(readLine, input, readErr, done)

	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	for {
		select {
		case line := <-input:
			if r.Exec(line) {
				return nil
			}
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case <-ticker.C:
			r.m.Tick()
		}
	}
}

func (r *REPL) readLines(readLine func() (string, error), input chan<- string, readErr chan<- error, done <-chan struct{}) {
	for {
		line, err := readLine()
		if err != nil {
			readErr <- err
			return
		}
		select {
		case input <- line:
		case <-done:
			return
		}
	}
}

// Exec runs one console line and reports whether the console should exit.
func (r *REPL) Exec(line string) (exit bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch command {
	case "exit":
		return true
	case "help":
		r.Println(color.YellowString("内置命令: "), color.GreenString("chat score bossbar actionbar connect disconnect respawn tab screen character item label unlabel tick state exit"))
		r.Println(color.YellowString("插件命令: "), color.GreenString(strings.Join(r.m.Commands(), " ")))
	case "chat":
		r.m.HandleChat(decodeText(rest))
	case "score":
		r.score(rest)
	case "bossbar":
		r.bossbar(rest)
	case "actionbar":
		r.m.HandleActionBar(decodeText(rest))
	case "connect":
		r.m.Connect(lo.Ternary(rest == "", "play.wynncraft.com", rest))
	case "disconnect":
		r.m.Disconnect()
	case "respawn":
		r.m.Respawn()
	case "tab":
		r.m.HandleTabHeader(decodeText(rest))
	case "screen":
		r.m.HandleScreenOpened(&replScreen{title: decodeText(rest).String(), r: r})
	case "character":
		r.m.SelectCharacter(rest)
	case "item":
		r.item(rest)
	case "label":
		r.label(rest)
	case "unlabel":
		id, err := strconv.Atoi(rest)
		if err != nil {
			r.Println(color.RedString("无效的实体 ID: "), color.CyanString(rest))
			return false
		}
		r.m.HandleEntityRemoved(id)
	case "tick":
		n, err := strconv.Atoi(rest)
		if err != nil || n <= 0 {
			n = 1
		}
		for range n {
			r.m.Tick()
		}
	case "state":
		r.describe()
	default:
		if !r.m.RunCommand(line) {
			r.Println(color.RedString("未知的命令: "), color.CyanString(command))
		}
	}
	return false
}

// decodeText accepts & as an alias for § so codes can be typed.
func decodeText(s string) styled.Text {
	return styled.FromString(AmpersandCode.ReplaceAllString(s, "§$1"))
}

// score edits the replayed scoreboard: "<score> <text>" sets a line,
// "remove <score>" drops it, "clear" empties it.
func (r *REPL) score(args string) {
	switch {
	case args == "clear":
		clear(r.lines)
	case strings.HasPrefix(args, "remove "):
		score, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(args, "remove ")))
		if err != nil {
			r.Println(color.RedString("无效的分数: "), color.CyanString(args))
			return
		}
		delete(r.lines, score)
	default:
		match := ScoreLine.FindStringSubmatch(args)
		if match == nil {
			r.Println(color.RedString("格式: score <分数> <文本> | score remove <分数> | score clear"))
			return
		}
		score, _ := strconv.Atoi(match[1])
		r.lines[score] = match[2]
	}
	scores := maps.Keys(r.lines)
	slices.Sort(scores)
	r.m.HandleScoreboard(lo.Map(scores, func(score int, index int) plugin.ScoreboardLine {
		return plugin.ScoreboardLine{Text: decodeText(r.lines[score]), Score: score}
	}))
}

func (r *REPL) bossbar(args string) {
	op, rest, _ := strings.Cut(args, " ")
	match := BossBarLine.FindStringSubmatch(strings.TrimSpace(rest))
	switch op {
	case "add", "update":
		if match == nil {
			r.Println(color.RedString("格式: bossbar add|update <ID> <标题>"))
			return
		}
		if op == "add" {
			r.m.HandleBossBarAdd(match[1], decodeText(match[2]), 1)
		} else {
			r.m.HandleBossBarUpdate(match[1], decodeText(match[2]), 1)
		}
	case "remove":
		r.m.HandleBossBarRemove(strings.TrimSpace(rest))
	default:
		r.Println(color.RedString("格式: bossbar add|update|remove ..."))
	}
}

// item takes "<name>|<lore>|<lore>...".
func (r *REPL) item(args string) {
	parts := strings.Split(args, "|")
	lore := lo.Map(parts[1:], func(line string, index int) string {
		return decodeText(line).String()
	})
	stack := item.NewItemStack("", decodeText(parts[0]).String(), 1, lore...)
	annotation := r.m.AnnotateItem(stack)
	if annotation == nil {
		r.Println(color.YellowString("无法识别的物品"))
		return
	}
	r.Println(color.YellowString("物品类型: "), color.GreenString(string(annotation.Kind())), color.CyanString(" %+v", annotation))
}

func (r *REPL) label(args string) {
	match := LabelLine.FindStringSubmatch(args)
	if match == nil {
		r.Println(color.RedString("格式: label <ID> <x> <y> <z> <文本>"))
		return
	}
	id, _ := strconv.Atoi(match[1])
	position, err := plugin.ParsePosition(strings.Join(match[2:5], " "))
	if err != nil {
		r.Println(color.RedString(err.Error()))
		return
	}
	r.m.HandleEntityLabel(id, decodeText(match[5]), position)
}

func (r *REPL) describe() {
	for _, p := range r.m.Plugins() {
		describer, ok := p.(pluginabi.Describer)
		if !ok {
			continue
		}
		lines := describer.Describe()
		if len(lines) == 0 {
			continue
		}
		r.Println(color.BlueString(p.DisplayName()), color.YellowString(":"))
		for _, line := range lines {
			r.Println(fmt.Sprintf("  %s", line))
		}
	}
}
