package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-bake/engine"
	"github.com/Carmen-Shannon/oxy-bake/engine/bakery"
	"github.com/Carmen-Shannon/oxy-bake/engine/scene"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	visibleInstances = 12
	timeScaleStep    = 0.25
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
)

type tickMsg time.Time

// inspector drives the engine one tick per frame and shows the first instances of the scene.
type inspector struct {
	eng   engine.Engine
	scene scene.Scene
	set   *bakery.BakedAnimationSet

	clip     int
	lastTick time.Time
}

func newInspector(eng engine.Engine, s scene.Scene, set *bakery.BakedAnimationSet, clip int) inspector {
	return inspector{eng: eng, scene: s, set: set, clip: clip}
}

func (m inspector) tickEvery() tea.Cmd {
	return tea.Tick(m.eng.TickRate(), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m inspector) Init() tea.Cmd {
	return m.tickEvery()
}

func (m inspector) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.eng.Quit()
			return m, tea.Quit
		case "n":
			m.clip = (m.clip + 1) % len(m.set.Clips)
			m.scene.PlayAll(uint32(m.clip))
		case " ":
			m.scene.SetPaused(!m.scene.Paused())
		case "+", "=":
			m.scene.SetGlobalTimeScale(m.scene.GlobalTimeScale() + timeScaleStep)
		case "-":
			m.scene.SetGlobalTimeScale(max(m.scene.GlobalTimeScale()-timeScaleStep, 0))
		}

	case tickMsg:
		now := time.Time(msg)
		dt := float32(0)
		if !m.lastTick.IsZero() {
			dt = float32(now.Sub(m.lastTick).Seconds())
		}
		m.lastTick = now
		m.eng.Tick(dt)
		return m, m.tickEvery()
	}

	return m, nil
}

func (m inspector) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("oxy-play"))
	b.WriteString("\n")

	field := func(name, value string) {
		b.WriteString(headerStyle.Render(name + ": "))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}

	c := m.set.Clips[m.clip]
	field("Set", m.set.ID.String())
	field("Clip", fmt.Sprintf("%s (%d/%d, %d frames, %.2fs, %s)", c.Name, m.clip+1, len(m.set.Clips), c.FrameCount, c.Duration, c.WrapMode))
	state := "playing"
	if m.scene.Paused() {
		state = "paused"
	}
	field("State", fmt.Sprintf("%s at %.2fx", state, m.scene.GlobalTimeScale()))

	stats := m.eng.Profiler().Last()
	field("Instances", fmt.Sprintf("%d (%.0f/s)", m.scene.Len(), stats.InstancesPerSecond))
	field("Ticks", fmt.Sprintf("%.1f/s  heap %.1fMB  rss %.1fMB  cpu %.1f%%", stats.TicksPerSecond, stats.HeapMB, stats.RSSMB, stats.CPUPercent))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render(fmt.Sprintf("%6s  %-16s %8s %6s %8s %6s", "id", "clip", "time", "frame", "offset", "scale")))
	b.WriteString("\n")
	for _, info := range m.scene.Instances(visibleInstances) {
		b.WriteString(valueStyle.Render(fmt.Sprintf("%6d  %-16s %8.3f %6d %8d %6.2f",
			info.ID, truncate(info.ClipName, 16), info.State.NormalizedTime, info.Frame, info.Offset, info.TimeScale)))
		if info.Warnings != 0 {
			b.WriteString(warnStyle.Render("  " + info.Warnings.String()))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("n: next clip  space: pause  +/-: time scale  q: quit"))

	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
