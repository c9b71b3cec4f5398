package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/price-getter/business/pricing/domain"
	"github.com/fd1az/price-getter/pkg/ui/components"
)

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"
	PhaseDashboard Phase = "dashboard"
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

// Pricer resolves a batch of tokens.
type Pricer interface {
	Snapshot(ctx context.Context, ids []domain.TokenIdentifier) (*domain.PriceSnapshot, error)
}

// BlockSource reports the block prices are cached against.
type BlockSource interface {
	CurrentBlock(ctx context.Context) (uint64, error)
}

// Options configures the board.
type Options struct {
	Pricer  Pricer
	Blocks  BlockSource
	Tokens  []domain.TokenIdentifier
	Anchor  string
	Source  string
	Timeout time.Duration
	// Places is the number of decimals shown for USD prices.
	Places int32
}

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	opts Options

	prices  *components.PricesComponent
	status  *components.StatusComponent
	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	phase        Phase
	welcomeStart time.Time

	width      int
	height     int
	quitting   bool
	loading    bool
	snapshotID string
	lastUpdate time.Time
	lastTook   time.Duration
	refreshes  int
	errors     []ErrorEntry
}

// New creates a new TUI model.
func New(opts Options) Model {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Places <= 0 {
		opts.Places = 12
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorSecondary)

	return Model{
		opts:         opts,
		prices:       components.NewPricesComponent(opts.Anchor, 12),
		status:       components.NewStatusComponent(),
		keys:         DefaultKeyMap(),
		help:         help.New(),
		spinner:      sp,
		phase:        PhaseWelcome,
		welcomeStart: time.Now(),
		errors:       make([]ErrorEntry, 0, 3),
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.spinner.Tick)
}

// tickCmd sends a tick every second to refresh the block status.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m Model) refreshCmd() tea.Cmd {
	pricer, tokens, timeout := m.opts.Pricer, m.opts.Tokens, m.opts.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start := time.Now()
		snap, err := pricer.Snapshot(ctx, tokens)
		return SnapshotMsg{Snapshot: snap, Err: err, Took: time.Since(start)}
	}
}

func (m Model) blockCmd() tea.Cmd {
	if m.opts.Blocks == nil {
		return nil
	}
	blocks := m.opts.Blocks
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		round, err := blocks.CurrentBlock(ctx)
		if err != nil {
			return BlockMsg{State: "disconnected", Err: err}
		}
		return BlockMsg{Round: round, State: "connected"}
	}
}

func (m *Model) startRefresh() tea.Cmd {
	if m.loading {
		return nil
	}
	m.loading = true
	return tea.Batch(m.refreshCmd(), m.spinner.Tick)
}

func (m *Model) enterDashboard() tea.Cmd {
	if m.phase == PhaseDashboard {
		return nil
	}
	m.phase = PhaseDashboard
	return m.startRefresh()
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		// During welcome phase, any other key skips to the board.
		if m.phase == PhaseWelcome {
			return m, m.enterDashboard()
		}
		switch {
		case key.Matches(msg, m.keys.Refresh):
			return m, m.startRefresh()
		case key.Matches(msg, m.keys.Up):
			m.prices.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.prices.ScrollDown()
		case key.Matches(msg, m.keys.Clear):
			m.errors = m.errors[:0]
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case TickMsg:
		var cmd tea.Cmd
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			cmd = m.enterDashboard()
		}
		return m, tea.Batch(tickCmd(), m.blockCmd(), cmd)

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case SnapshotMsg:
		m.loading = false
		m.lastTook = msg.Took
		if msg.Err != nil {
			m.addError(msg.Err.Error())
			return m, nil
		}
		m.refreshes++
		m.snapshotID = msg.Snapshot.ID
		m.lastUpdate = msg.Snapshot.Timestamp
		m.prices.Update(rowsFromSnapshot(msg.Snapshot, m.opts.Tokens, m.opts.Places))

	case BlockMsg:
		m.status.Update(components.ConnectionStatus{
			Name:       m.opts.Source,
			State:      msg.State,
			Round:      msg.Round,
			LastUpdate: time.Now(),
		})

	case ErrorMsg:
		m.addError(msg.Error.Error())
	}

	return m, nil
}

func (m *Model) addError(msg string) {
	m.errors = append(m.errors, ErrorEntry{Message: msg, Timestamp: time.Now()})
	if len(m.errors) > 3 {
		m.errors = m.errors[len(m.errors)-3:]
	}
}

// rowsFromSnapshot orders rows as requested, failed tokens included.
func rowsFromSnapshot(snap *domain.PriceSnapshot, tokens []domain.TokenIdentifier, places int32) []components.PriceRow {
	byID := make(map[domain.TokenIdentifier]components.PriceRow, len(snap.Quotes)+len(snap.Errors))

	for _, q := range snap.Quotes {
		row := components.PriceRow{
			Ticker: q.Token.ID.Ticker(),
			ID:     q.Token.ID.String(),
			Price:  q.Price.Decimal(places),
		}
		if !q.Direct() {
			row.Pool = q.Pair.Bech32()
			row.BridgeReserve = q.BridgeReserve.StringFixed(2)
			row.CounterpartReserve = q.CounterpartReserve.StringFixed(2)
		}
		byID[q.Token.ID] = row
	}
	for id, err := range snap.Errors {
		byID[id] = components.PriceRow{Ticker: id.Ticker(), ID: id.String(), Err: err.Error()}
	}

	rows := make([]components.PriceRow, 0, len(byID))
	for _, id := range tokens {
		if row, ok := byID[id]; ok {
			rows = append(rows, row)
			delete(byID, id)
		}
	}
	// Anything left was not requested by id, e.g. duplicates resolved once.
	rest := make([]string, 0, len(byID))
	for id := range byID {
		rest = append(rest, string(id))
	}
	sort.Strings(rest)
	for _, id := range rest {
		rows = append(rows, byID[domain.TokenIdentifier(id)])
	}
	return rows
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}
	if m.phase == PhaseWelcome {
		return m.renderWelcomeScreen()
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(" xExchange Price Board "))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	width := m.width - 4
	if width < 40 {
		width = 96
	}
	b.WriteString(BoxStyle.Width(width).Render(m.prices.View()))
	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		errorStyle := lipgloss.NewStyle().Foreground(ColorDanger)
		errorHeader := lipgloss.NewStyle().Bold(true).Foreground(ColorDanger)

		b.WriteString(errorHeader.Render("ERRORS"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(errorStyle.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(MutedValue.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keys))

	return b.String()
}

// renderWelcomeScreen renders the welcome screen.
func (m Model) renderWelcomeScreen() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	mutedStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	greenStyle := lipgloss.NewStyle().Foreground(ColorSecondary)

	elapsed := time.Since(m.welcomeStart)
	dots := strings.Repeat(".", int(elapsed.Milliseconds()/300)%4)

	var sb strings.Builder
	sb.WriteString("\n\n\n\n")
	sb.WriteString(titleStyle.Render("          P R I C E   G E T T E R"))
	sb.WriteString("\n\n")
	sb.WriteString(mutedStyle.Render(fmt.Sprintf("          xExchange tokens in %s", m.opts.Anchor)))
	sb.WriteString("\n\n\n")
	sb.WriteString(greenStyle.Render(fmt.Sprintf("          Pricing %d tokens%s", len(m.opts.Tokens), dots)))
	sb.WriteString("\n\n")
	sb.WriteString(mutedStyle.Render("          Press any key to skip, or wait..."))
	sb.WriteString("\n")

	return sb.String()
}

func (m Model) renderStatusBar() string {
	var parts []string

	if m.loading {
		parts = append(parts, m.spinner.View()+" Refreshing")
	}

	parts = append(parts, m.status.View())

	if m.refreshes > 0 {
		parts = append(parts, PositiveValue.Render(fmt.Sprintf("Snapshots: %d", m.refreshes)))
	}

	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Updated: %s ago (%s)", ago, m.lastTook.Round(time.Millisecond))))
	}
	if m.snapshotID != "" {
		parts = append(parts, MutedValue.Render("#"+m.snapshotID[:min(8, len(m.snapshotID))]))
	}

	return strings.Join(parts, "  │  ")
}

// Run starts the board and blocks until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
