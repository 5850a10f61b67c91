// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 the s21ctl authors

package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/aircomm/s21ctl/pkg/s21"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive TUI dashboard for the unit",
	Long: `Monitor and control the unit via an interactive terminal UI.

The dashboard shows the live device state, protocol statistics and an event
log. Keys toggle power and swing, cycle mode and fan speed, and 't' opens a
text prompt for the target temperature.

Key bindings:
  p       toggle power
  m       cycle operating mode
  f       cycle fan speed
  v / h   toggle vertical / horizontal swing
  t       set target temperature
  q       quit

Supports both serial and WebSocket connections.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	drv := s21.NewDriver(s21.NewTransport(newPumpPort(conn), nil), nil)

	m := newMonitorModel(drv, connInfo)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

// engineTickMsg drives the protocol engine from the bubbletea event loop.
type engineTickMsg time.Time

// refreshTickMsg requests a periodic state rescan.
type refreshTickMsg time.Time

func engineTick() tea.Cmd {
	return tea.Tick(20*time.Millisecond, func(t time.Time) tea.Msg {
		return engineTickMsg(t)
	})
}

func refreshTick() tea.Cmd {
	return tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
		return refreshTickMsg(t)
	})
}

var modeCycle = []s21.ClimateMode{
	s21.ModeAuto, s21.ModeDry, s21.ModeCool, s21.ModeHeat, s21.ModeFan,
}

var fanCycle = []s21.FanMode{
	s21.FanAuto, s21.FanSilent,
	s21.FanSpeed1, s21.FanSpeed2, s21.FanSpeed3, s21.FanSpeed4, s21.FanSpeed5,
}

type monitorModel struct {
	drv      *s21.Driver
	connInfo string

	tempInput textinput.Model
	editing   bool

	events []string
	width  int
}

func newMonitorModel(drv *s21.Driver, connInfo string) monitorModel {
	ti := textinput.New()
	ti.Placeholder = "22.5"
	ti.CharLimit = 5
	ti.Width = 8

	return monitorModel{
		drv:       drv,
		connInfo:  connInfo,
		tempInput: ti,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(engineTick(), refreshTick())
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case engineTickMsg:
		result := m.drv.Tick()
		switch result {
		case s21.Nak, s21.Error, s21.Timeout:
			m.addEvent(fmt.Sprintf("%s  %s", time.Now().Format("15:04:05"), result))
		}
		return m, engineTick()

	case refreshTickMsg:
		m.drv.RequestRefresh()
		return m, refreshTick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *monitorModel) addEvent(s string) {
	m.events = append(m.events, s)
	if len(m.events) > 8 {
		m.events = m.events[len(m.events)-8:]
	}
}

func (m monitorModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		switch msg.String() {
		case "enter":
			m.editing = false
			m.tempInput.Blur()
			if degC, err := strconv.ParseFloat(m.tempInput.Value(), 64); err == nil {
				m.setClimate(func(s *s21.Settings) { s.Setpoint = degC })
			}
			return m, nil
		case "esc":
			m.editing = false
			m.tempInput.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.tempInput, cmd = m.tempInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "p":
		m.setClimate(func(s *s21.Settings) { s.PowerOn = !s.PowerOn })

	case "m":
		m.setClimate(func(s *s21.Settings) {
			s.Mode = nextIn(modeCycle, s.Mode)
			s.PowerOn = true
		})

	case "f":
		m.setClimate(func(s *s21.Settings) { s.Fan = nextIn(fanCycle, s.Fan) })

	case "v":
		state := m.drv.State()
		m.drv.SetSwing(!state.SwingV, state.SwingH)

	case "h":
		state := m.drv.State()
		m.drv.SetSwing(state.SwingV, !state.SwingH)

	case "t":
		m.editing = true
		m.tempInput.SetValue("")
		m.tempInput.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

// setClimate applies a mutation on top of the current state.
func (m *monitorModel) setClimate(mutate func(*s21.Settings)) {
	if !m.drv.IsReady() {
		m.addEvent("not ready yet, change ignored")
		return
	}
	state := m.drv.State()
	settings := s21.Settings{
		PowerOn:  state.PowerOn,
		Mode:     state.Mode,
		Setpoint: s21.C10ToCelsius(state.Setpoint),
		Fan:      state.Fan,
	}
	mutate(&settings)
	m.drv.SetClimate(settings)
}

// nextIn returns the element after cur, wrapping around. Unknown values
// map to the first element.
func nextIn[T comparable](cycle []T, cur T) T {
	for i, v := range cycle {
		if v == cur {
			return cycle[(i+1)%len(cycle)]
		}
	}
	return cycle[0]
}

var (
	monTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	monHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	monLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12"))

	monValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	monEventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	monHelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

func (m monitorModel) View() string {
	var b []byte

	b = fmt.Appendf(b, "%s\n", monTitleStyle.Render("s21ctl monitor"))
	b = fmt.Appendf(b, "%s\n\n", monHeaderStyle.Render(m.connInfo))

	if !m.drv.IsReady() {
		b = fmt.Appendf(b, "waiting for the unit...\n\n")
	} else {
		for _, line := range stateLines(m.drv.State()) {
			b = fmt.Appendf(b, "%s %s\n",
				monLabelStyle.Render(line[0]), monValueStyle.Render(line[1]))
		}
		b = append(b, '\n')
	}

	if m.drv.PendingWrite() {
		b = fmt.Appendf(b, "%s\n\n", monEventStyle.Render("applying change..."))
	}

	if m.editing {
		b = fmt.Appendf(b, "Target temperature (C): %s\n\n", m.tempInput.View())
	}

	stats := m.drv.Stats()
	stats.CalculateRates()
	b = fmt.Appendf(b, "%s %s\n\n", monLabelStyle.Render("  Stats:"), stats)

	for _, ev := range m.events {
		b = fmt.Appendf(b, "%s\n", monEventStyle.Render(ev))
	}

	b = fmt.Appendf(b, "\n%s\n", monHelpStyle.Render(
		"p power · m mode · f fan · v/h swing · t target · q quit"))
	return string(b)
}

// stateLines formats the device state as label/value pairs for the view.
func stateLines(s s21.DeviceState) [][2]string {
	power := "off"
	if s.PowerOn {
		power = "on"
	}
	return [][2]string{
		{"  Power:", power},
		{"   Mode:", s.Mode.String()},
		{" Target:", fmt.Sprintf("%.1f C", s21.C10ToCelsius(s.Setpoint))},
		{"    Fan:", fmt.Sprintf("%s (%d rpm)", s.Fan, s.FanRPM)},
		{"  Swing:", fmt.Sprintf("H:%t V:%t", s.SwingH, s.SwingV)},
		{" Inside:", fmt.Sprintf("%.1f C", s21.C10ToCelsius(s.TempInside))},
		{"Outside:", fmt.Sprintf("%.1f C", s21.C10ToCelsius(s.TempOutside))},
		{"   Coil:", fmt.Sprintf("%.1f C", s21.C10ToCelsius(s.TempCoil))},
		{"  Compr:", fmt.Sprintf("%d Hz", s.CompressorHz)},
	}
}
