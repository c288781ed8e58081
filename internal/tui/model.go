// Package tui is the terminal dashboard: the holdings table, the summary, the
// live status badge and the sell / delete / price lookup flows.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/trogers1052/portfolio-dashboard/internal/models"
	"github.com/trogers1052/portfolio-dashboard/internal/portfolio"
	"github.com/trogers1052/portfolio-dashboard/internal/render"
	"github.com/trogers1052/portfolio-dashboard/internal/trading"
)

// PriceLookup fetches a symbol's current price
type PriceLookup interface {
	FetchCurrentPrice(ctx context.Context, symbol string) (*models.PriceQuote, error)
}

// Reloader refreshes the row model after a trade
type Reloader interface {
	Reload(ctx context.Context) error
}

type mode int

const (
	modeBrowse mode = iota
	modeSell
	modeConfirmDelete
	modePrice
)

// SnapshotMsg carries a new projection of the row model
type SnapshotMsg struct{ Snapshot portfolio.Snapshot }

// StatusMsg carries a live channel status change
type StatusMsg struct{ Connected bool }

type sellDoneMsg struct {
	symbol    string
	quantity  string
	deleted   bool
	err       error
	reloadErr error
}

type priceMsg struct {
	symbol string
	quote  *models.PriceQuote
	err    error
}

// Model is the bubbletea model of the dashboard
type Model struct {
	ctx      context.Context
	seller   trading.Submitter
	prices   PriceLookup
	reloader Reloader

	holdings  []models.Holding
	dash      render.Dashboard
	connected bool
	selected  int

	mode    mode
	draft   *trading.SellDraft
	input   string
	message string
	isError bool
	width   int
}

// New creates the dashboard model from an initial snapshot. reloader may be
// nil; otherwise it runs after every successful sell.
func New(ctx context.Context, initial portfolio.Snapshot, seller trading.Submitter, prices PriceLookup, reloader Reloader) Model {
	m := Model{ctx: ctx, seller: seller, prices: prices, reloader: reloader}
	m.setSnapshot(initial)
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m *Model) setSnapshot(s portfolio.Snapshot) {
	m.holdings = s.Holdings
	m.dash = render.Project(s)
	if m.selected >= len(m.holdings) {
		m.selected = len(m.holdings) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m *Model) info(format string, args ...interface{}) {
	m.message, m.isError = fmt.Sprintf(format, args...), false
}

func (m *Model) fail(err error) {
	m.message, m.isError = err.Error(), true
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SnapshotMsg:
		m.setSnapshot(msg.Snapshot)
		return m, nil

	case StatusMsg:
		m.connected = msg.Connected
		return m, nil

	case sellDoneMsg:
		switch {
		case msg.err != nil:
			m.fail(msg.err)
		case msg.deleted:
			m.info("Sold all %s shares of %s", msg.quantity, msg.symbol)
		default:
			m.info("Sold %s shares of %s", msg.quantity, msg.symbol)
		}
		if msg.err == nil && msg.reloadErr != nil {
			m.message += " (holdings not refreshed: " + msg.reloadErr.Error() + ")"
		}
		return m, nil

	case priceMsg:
		if msg.err != nil {
			m.message, m.isError = render.LookupFailure(msg.symbol, msg.err), true
		} else {
			m.info("%s: %s", msg.quote.Symbol, render.CurrentPrice(msg.quote.CurrentPrice))
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeSell:
			return m.updateSell(msg)
		case modeConfirmDelete:
			return m.updateConfirm(msg)
		case modePrice:
			return m.updatePrice(msg)
		default:
			return m.updateBrowse(msg)
		}
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.holdings)-1 {
			m.selected++
		}
	case "s", "d":
		draft, err := m.prepare()
		if err != nil {
			m.fail(err)
			return m, nil
		}
		m.draft, m.input, m.message = draft, "", ""
		if msg.String() == "s" {
			m.mode = modeSell
		} else {
			m.mode = modeConfirmDelete
		}
	case "p":
		m.mode, m.input, m.message = modePrice, "", ""
	}
	return m, nil
}

func (m Model) updateSell(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode, m.draft = modeBrowse, nil
		m.info("Sell cancelled")
		return m, nil
	case tea.KeyEnter:
		if err := m.draft.SetQuantity(m.input); err != nil {
			m.fail(err)
			return m, nil
		}
		draft := m.draft
		m.mode, m.draft = modeBrowse, nil
		return m, m.submit(draft)
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
		return m, nil
	case tea.KeyRunes:
		if string(msg.Runes) == "a" {
			if err := m.draft.SellAll(); err != nil {
				m.fail(err)
				return m, nil
			}
			m.input = m.draft.Quantity.String()
			return m, nil
		}
		m.input += string(msg.Runes)
	}
	return m, nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		draft := m.draft
		m.mode, m.draft = modeBrowse, nil
		return m, m.delete(draft)
	case "n", "N", "esc":
		m.mode, m.draft = modeBrowse, nil
		m.info("Deletion cancelled")
	}
	return m, nil
}

func (m Model) updatePrice(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		return m, nil
	case tea.KeyEnter:
		symbol := strings.ToUpper(strings.TrimSpace(m.input))
		m.mode = modeBrowse
		return m, m.lookup(symbol)
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeyRunes:
		m.input += strings.ToUpper(string(msg.Runes))
	}
	return m, nil
}

func (m Model) prepare() (*trading.SellDraft, error) {
	if len(m.holdings) == 0 {
		return nil, trading.ErrDraftUnavailable
	}
	return trading.DraftFor(m.holdings[m.selected])
}

func (m Model) submit(d *trading.SellDraft) tea.Cmd {
	ctx, seller := m.ctx, m.seller
	return func() tea.Msg {
		msg := sellDoneMsg{symbol: d.Symbol, quantity: d.Quantity.String()}
		if msg.err = d.Submit(ctx, seller); msg.err == nil {
			msg.reloadErr = m.reload()
		}
		return msg
	}
}

func (m Model) delete(d *trading.SellDraft) tea.Cmd {
	ctx, seller := m.ctx, m.seller
	// The user already answered the prompt shown in the confirm mode.
	confirmed := trading.ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
	return func() tea.Msg {
		msg := sellDoneMsg{symbol: d.Symbol, quantity: d.MaxSharesDisplay, deleted: true}
		if _, msg.err = trading.ConfirmDelete(ctx, d, confirmed, seller); msg.err == nil {
			msg.reloadErr = m.reload()
		}
		return msg
	}
}

// reload refreshes the rows; the new snapshot reaches the model as a
// SnapshotMsg through the recalculator's views.
func (m Model) reload() error {
	if m.reloader == nil {
		return nil
	}
	return m.reloader.Reload(m.ctx)
}

func (m Model) lookup(symbol string) tea.Cmd {
	ctx, prices := m.ctx, m.prices
	return func() tea.Msg {
		quote, err := prices.FetchCurrentPrice(ctx, symbol)
		return priceMsg{symbol: symbol, quote: quote, err: err}
	}
}
