// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// PriceRow represents a row in the price table.
type PriceRow struct {
	Ticker string
	ID     string
	Price  decimal.Decimal
	// Pool is the pair address, empty for tokens priced without a pool.
	Pool               string
	BridgeReserve      string
	CounterpartReserve string
	Err                string
}

// PricesComponent renders the USD price table.
type PricesComponent struct {
	rows    []PriceRow
	anchor  string
	offset  int
	visible int
}

// NewPricesComponent creates a new prices component.
func NewPricesComponent(anchor string, visible int) *PricesComponent {
	if visible <= 0 {
		visible = 10
	}
	return &PricesComponent{
		anchor:  anchor,
		visible: visible,
	}
}

// Update replaces the rows and keeps the scroll position in range.
func (p *PricesComponent) Update(rows []PriceRow) {
	p.rows = rows
	p.clamp()
}

// Rows returns the current rows.
func (p *PricesComponent) Rows() []PriceRow {
	return p.rows
}

// ScrollUp moves the window one row up.
func (p *PricesComponent) ScrollUp() {
	p.offset--
	p.clamp()
}

// ScrollDown moves the window one row down.
func (p *PricesComponent) ScrollDown() {
	p.offset++
	p.clamp()
}

func (p *PricesComponent) clamp() {
	maxOffset := len(p.rows) - p.visible
	if p.offset > maxOffset {
		p.offset = maxOffset
	}
	if p.offset < 0 {
		p.offset = 0
	}
}

// View renders the prices component.
func (p *PricesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	priceStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("PRICES (%s)", p.anchor)))
	b.WriteString("\n\n")

	if len(p.rows) == 0 {
		b.WriteString(dimStyle.Render("  Press r to fetch prices"))
		return b.String()
	}

	fmt.Fprintf(&b, "  %-10s  %-14s  %22s  %s\n", "Token", "Identifier", "USD", "Pool reserves")
	b.WriteString(dimStyle.Render("  "+strings.Repeat("─", 78)) + "\n")

	end := min(p.offset+p.visible, len(p.rows))
	for _, row := range p.rows[p.offset:end] {
		if row.Err != "" {
			fmt.Fprintf(&b, "  %-10s  %-14s  %s\n", row.Ticker, row.ID, errStyle.Render(row.Err))
			continue
		}

		reserves := dimStyle.Render("direct")
		if row.Pool != "" {
			reserves = dimStyle.Render(row.CounterpartReserve + " / " + row.BridgeReserve)
		}
		fmt.Fprintf(&b, "  %-10s  %-14s  %s  %s\n",
			row.Ticker,
			row.ID,
			priceStyle.Render(fmt.Sprintf("%22s", "$"+row.Price.String())),
			reserves,
		)
	}

	if len(p.rows) > p.visible {
		b.WriteString(dimStyle.Render(fmt.Sprintf("\n  rows %d-%d of %d", p.offset+1, end, len(p.rows))))
	}

	return b.String()
}
