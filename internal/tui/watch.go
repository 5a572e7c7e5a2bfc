package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gaamiranda/Claude-Checker/internal/poller"
)

const barWidth = 24

// Triggerer requests an immediate re-poll; satisfied by poller.Runner.
type Triggerer interface {
	Trigger()
}

type updateMsg poller.Update

// WatchModel is the live usage dashboard. It consumes the runner's update
// stream and renders one card per provider.
type WatchModel struct {
	updates  <-chan poller.Update
	trigger  Triggerer
	interval time.Duration

	spinner spinner.Model
	styles  *Styles

	order  []string
	states map[string]poller.PollState

	quitting bool
}

// NewWatchModel creates the watch view over the runner's update stream.
// initial seeds the cards so last-known data shows before the first poll
// completes.
func NewWatchModel(updates <-chan poller.Update, trigger Triggerer, interval time.Duration, initial []poller.PollState) WatchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(DefaultTheme().Primary)

	m := WatchModel{
		updates:  updates,
		trigger:  trigger,
		interval: interval,
		spinner:  sp,
		styles:   NewStyles(),
		states:   make(map[string]poller.PollState),
	}
	for _, st := range initial {
		m.order = append(m.order, st.Provider)
		m.states[st.Provider] = st
	}
	return m
}

func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForUpdate())
}

func (m WatchModel) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		u, ok := <-m.updates
		if !ok {
			return tea.Quit()
		}
		return updateMsg(u)
	}
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			if m.trigger != nil {
				m.trigger.Trigger()
			}
		}
	case updateMsg:
		if _, seen := m.states[msg.Provider]; !seen {
			m.order = append(m.order, msg.Provider)
		}
		m.states[msg.Provider] = msg.State
		return m, m.waitForUpdate()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Usage"))
	b.WriteString("\n\n")

	for _, provider := range m.order {
		b.WriteString(m.styles.Card.Render(m.renderProvider(m.states[provider])))
		b.WriteString("\n")
	}

	help := fmt.Sprintf("r refresh · q quit · polling every %s", m.interval)
	b.WriteString(m.styles.Muted.Render(help))
	b.WriteString("\n")
	return b.String()
}

func (m WatchModel) renderProvider(st poller.PollState) string {
	var b strings.Builder

	header := m.styles.Bold.Render(providerTitle(st.Provider))
	if st.Snapshot != nil && st.Snapshot.AccountEmail != "" {
		header += m.styles.Muted.Render("  " + st.Snapshot.AccountEmail)
	}
	if st.Loading {
		header += "  " + m.spinner.View()
	}
	b.WriteString(header)
	b.WriteString("\n")

	if st.LastError != nil {
		b.WriteString(m.styles.Error.Render("✗ " + st.LastError.Message))
		if st.LastError.Hint != "" {
			b.WriteString("\n" + m.styles.Muted.Render("  "+st.LastError.Hint))
		}
		b.WriteString("\n")
	}

	snap := st.Snapshot
	if snap == nil {
		if st.LastError == nil {
			b.WriteString(m.styles.Muted.Render("waiting for first poll…"))
			b.WriteString("\n")
		}
		return b.String()
	}

	writeWindow := func(label string, w *poller.WindowStat) {
		if w == nil {
			return
		}
		line := fmt.Sprintf("%-8s %s", label, m.styles.RenderBar(w.Percent, barWidth))
		if w.ResetsAt != nil {
			line += m.styles.Muted.Render("  resets " + formatReset(*w.ResetsAt))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	writeWindow("Session", snap.Session)
	writeWindow("Weekly", snap.Weekly)
	writeWindow("Model", snap.Model)

	if snap.Overage != nil {
		b.WriteString(m.styles.RenderKeyValue("Extra", fmt.Sprintf("$%.2f / $%.2f", snap.Overage.SpentUSD, snap.Overage.LimitUSD)))
		b.WriteString("\n")
	}

	if !st.LastUpdated.IsZero() {
		b.WriteString(m.styles.Muted.Render("updated " + formatAgo(st.LastUpdated)))
		b.WriteString("\n")
	}
	return b.String()
}

func providerTitle(provider string) string {
	switch provider {
	case poller.ProviderClaude:
		return "Claude"
	case poller.ProviderCursor:
		return "Cursor"
	}
	return provider
}

func formatReset(t time.Time) string {
	d := time.Until(t)
	if d <= 0 {
		return "now"
	}
	if d < time.Hour {
		return fmt.Sprintf("in %dm", int(d.Minutes()))
	}
	if d < 48*time.Hour {
		return fmt.Sprintf("in %dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("in %dd", int(d.Hours()/24))
}

func formatAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}
