// internal/ui/dashboard.go
package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/tradedesk/internal/domain"
	"github.com/rovshanmuradov/tradedesk/internal/events"
	"github.com/rovshanmuradov/tradedesk/internal/trading"
	"github.com/rovshanmuradov/tradedesk/internal/ui/component"
	"github.com/rovshanmuradov/tradedesk/internal/ui/style"
)

// Trader is the synchronizer surface the dashboard drives.
type Trader interface {
	Subscriber
	Snapshot() trading.Snapshot
	State() trading.SessionState
	SubmitTrade(ctx context.Context, req domain.TradeRequest) (domain.TradeResult, error)
	Refresh(ctx context.Context) error
	NewQuoteField(deliver func(trading.QuoteResult)) *trading.QuoteField
}

type pane int

const (
	paneQuote pane = iota
	paneOrder
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusSuccess
	statusError
)

const (
	fieldSymbol   = "symbol"
	fieldQuantity = "quantity"
	fieldSide     = "side"
)

// requestTimeout bounds commands started from the dashboard.
const requestTimeout = 15 * time.Second

// Dashboard is the single-screen trading view. All state shown comes from
// the trader's snapshot; events only tell it when to look again.
type Dashboard struct {
	trader Trader
	msgs   chan tea.Msg
	sender *UpdateSender
	sub    events.Subscription
	logger *zap.Logger
	keys   KeyMap

	header   *component.StatusHeader
	cards    *component.SummaryCards
	holdings *component.Table
	helpBar  *component.HelpBar
	order    *component.Form
	logs     *component.LogPanel

	quoteInput textinput.Model
	quoteField *trading.QuoteField
	quote      *domain.Quote
	quoteErr   error

	snapshot   trading.Snapshot
	focus      pane
	submitting bool
	status     string
	statusKind statusKind
	width      int
}

// NewDashboard wires a dashboard to trader. Bridged events and quote
// results arrive on msgs.
func NewDashboard(trader Trader, msgs chan tea.Msg, logger *zap.Logger) *Dashboard {
	sender := NewUpdateSender(msgs, logger.Named("ui_updates"))

	qi := textinput.New()
	qi.Placeholder = "AAPL"
	qi.CharLimit = 12
	qi.Width = 14
	qi.Focus()

	order := component.NewForm().
		AddField(fieldSymbol, component.FieldTypeText, "Symbol", true, "AAPL").
		AddField(fieldQuantity, component.FieldTypeNumber, "Quantity", true, "0").
		AddSelect(fieldSide, "Side", []string{string(domain.SideBuy), string(domain.SideSell)})
	order.SetFieldValidation(fieldQuantity, func(s string) error {
		_, err := parseQuantity(s)
		return err
	})

	d := &Dashboard{
		trader:     trader,
		msgs:       msgs,
		sender:     sender,
		logger:     logger.Named("dashboard"),
		keys:       DefaultKeyMap(),
		header:     component.NewStatusHeader(),
		cards:      component.NewSummaryCards(),
		holdings:   component.NewTable(),
		helpBar:    component.NewHelpBar(),
		order:      order,
		quoteInput: qi,
	}
	d.holdings.
		AddColumn("Symbol", 8, lipgloss.Left).
		AddColumn("Shares", 8, lipgloss.Right).
		AddColumn("Avg cost", 12, lipgloss.Right).
		AddColumn("Price", 12, lipgloss.Right).
		AddColumn("Value", 14, lipgloss.Right).
		AddColumn("Gain", 9, lipgloss.Right).
		SetSelectable(true).
		SetEmptyText("No holdings yet")

	d.quoteField = trader.NewQuoteField(func(r trading.QuoteResult) {
		sender.SendUpdate(QuoteMsg{Result: r})
	})
	d.sub = BridgeEvents(trader, sender)
	d.reload()
	return d
}

// ShowLogs adds a panel with the newest entries from src.
func (d *Dashboard) ShowLogs(src component.LogSource) {
	d.logs = component.NewLogPanel(src, 5)
	d.logs.SetWidth(d.width)
}

// Close releases the quote field and the event bridge.
func (d *Dashboard) Close() {
	d.sub.Unsubscribe()
	d.quoteField.Close()
	d.sender.Close()
}

// Init starts listening for bridged messages.
func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(Listen(d.msgs), textinput.Blink)
}

// Update handles one message.
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.setWidth(msg.Width)
		return d, nil

	case EventMsg:
		d.handleEvent(msg.Event)
		return d, Listen(d.msgs)

	case QuoteMsg:
		d.handleQuote(msg.Result)
		return d, Listen(d.msgs)

	case TradeDoneMsg:
		d.handleTradeDone(msg)
		return d, nil

	case RefreshDoneMsg:
		d.reload()
		if msg.Err != nil {
			d.setStatus(statusError, DescribeError(msg.Err))
		} else {
			d.setStatus(statusSuccess, "Refreshed")
		}
		return d, nil

	case tea.KeyMsg:
		return d, d.handleKey(msg)
	}
	return d, nil
}

func (d *Dashboard) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, d.keys.Quit):
		return tea.Quit
	case key.Matches(msg, d.keys.Refresh):
		d.setStatus(statusInfo, "Refreshing…")
		return d.refreshCmd()
	case key.Matches(msg, d.keys.SwitchPane):
		return d.switchPane()
	case key.Matches(msg, d.keys.ToggleLogs):
		if d.logs != nil {
			d.logs.Toggle()
		}
		return nil
	}

	if d.focus == paneOrder {
		if key.Matches(msg, d.keys.Submit) {
			return d.submit()
		}
		var cmd tea.Cmd
		d.order, cmd = d.order.Update(msg)
		return cmd
	}

	switch {
	case key.Matches(msg, d.keys.UseQuote):
		if d.quote == nil {
			return nil
		}
		d.order.SetFieldValue(fieldSymbol, d.quote.Symbol)
		return d.switchPane()
	case key.Matches(msg, d.keys.Up):
		d.holdings.MoveUp()
		return nil
	case key.Matches(msg, d.keys.Down):
		d.holdings.MoveDown()
		return nil
	}

	before := d.quoteInput.Value()
	var cmd tea.Cmd
	d.quoteInput, cmd = d.quoteInput.Update(msg)
	if after := d.quoteInput.Value(); after != before {
		d.quoteField.Input(after)
		if strings.TrimSpace(after) == "" {
			d.quote, d.quoteErr = nil, nil
		}
	}
	return cmd
}

func (d *Dashboard) switchPane() tea.Cmd {
	if d.focus == paneQuote {
		d.focus = paneOrder
		d.quoteInput.Blur()
		return d.order.Focus()
	}
	d.focus = paneQuote
	d.order.Blur()
	return d.quoteInput.Focus()
}

func (d *Dashboard) handleEvent(e events.Event) {
	d.reload()
	switch e := e.(type) {
	case events.SessionChangedEvent:
		switch {
		case e.Authenticated:
			d.setStatus(statusInfo, "Signed in")
		case e.Reason == "invalidated":
			d.setStatus(statusError, "Session expired, run `tradedesk login` to sign in again")
		default:
			d.setStatus(statusInfo, "Signed out")
		}
	case events.ProfileUpdatedEvent, events.PortfolioUpdatedEvent:
		if d.trader.State() == trading.Authenticated {
			d.header.SetSyncStatus(component.SyncStatus{OK: true, LastSync: e.Timestamp()})
		}
	case events.SyncFailedEvent:
		d.header.SetSyncStatus(component.SyncStatus{Target: e.Target, Message: DescribeError(e.Error)})
	}
}

func (d *Dashboard) handleQuote(r trading.QuoteResult) {
	if r.Symbol != domain.CanonicalSymbol(d.quoteInput.Value()) {
		return
	}
	if r.Err != nil {
		d.quote, d.quoteErr = nil, r.Err
		return
	}
	q := r.Quote
	d.quote, d.quoteErr = &q, nil
}

func (d *Dashboard) submit() tea.Cmd {
	if d.submitting {
		d.setStatus(statusError, DescribeError(domain.ErrTradeInProgress))
		return nil
	}
	if !d.order.Validate() {
		return nil
	}
	qty, _ := parseQuantity(d.order.GetValue(fieldQuantity))
	req := domain.TradeRequest{
		Symbol:   d.order.GetValue(fieldSymbol),
		Quantity: qty,
		Side:     domain.Side(d.order.GetValue(fieldSide)),
	}

	d.submitting = true
	d.setStatus(statusInfo, fmt.Sprintf("Submitting %s…", req))
	trader := d.trader
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := trader.SubmitTrade(ctx, req)
		return TradeDoneMsg{Request: req, Result: res, Err: err}
	}
}

func (d *Dashboard) handleTradeDone(msg TradeDoneMsg) {
	d.submitting = false
	d.reload()
	if msg.Err != nil {
		d.setStatus(statusError, fmt.Sprintf("%s failed: %s", msg.Request, DescribeError(msg.Err)))
		return
	}
	verb := "Bought"
	if msg.Request.Side == domain.SideSell {
		verb = "Sold"
	}
	d.setStatus(statusSuccess, fmt.Sprintf("%s %d %s, cash now %s",
		verb, msg.Request.Quantity, domain.CanonicalSymbol(msg.Request.Symbol),
		domain.FormatUSD(d.snapshot.Profile.CashBalance)))
	d.order.Reset()
}

func (d *Dashboard) refreshCmd() tea.Cmd {
	trader := d.trader
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return RefreshDoneMsg{Err: trader.Refresh(ctx)}
	}
}

// reload copies the trader's snapshot into the view components.
func (d *Dashboard) reload() {
	d.snapshot = d.trader.Snapshot()
	profile := d.snapshot.Profile
	user := profile.Username
	if profile.DisplayName != "" {
		user = fmt.Sprintf("%s (%s)", profile.DisplayName, profile.Username)
	}
	d.header.SetUser(user)
	d.cards.SetValuation(d.snapshot.Valuation())

	palette := style.DefaultPalette()
	holdings := d.snapshot.Portfolio.Holdings()
	rows := make([][]string, len(holdings))
	for i, h := range holdings {
		rows[i] = []string{
			h.Symbol,
			strconv.FormatInt(h.Shares, 10),
			domain.FormatUSD(h.AverageCost),
			domain.FormatUSD(h.CurrentPrice),
			domain.FormatUSD(h.MarketValue()),
			domain.FormatPercent(h.GainPercent()),
		}
	}
	d.holdings.SetRows(rows)
	for i, h := range holdings {
		d.holdings.SetRowForeground(i, palette.GainColor(h.UnrealizedGain()))
	}
}

func (d *Dashboard) setStatus(kind statusKind, text string) {
	d.statusKind = kind
	d.status = text
}

func (d *Dashboard) setWidth(width int) {
	d.width = width
	d.header.SetWidth(width)
	d.cards.SetWidth(width)
	d.helpBar.SetWidth(width)
	if d.logs != nil {
		d.logs.SetWidth(width)
	}
}

// View renders the dashboard
func (d *Dashboard) View() string {
	d.helpBar.SetKeyBindings(d.keys.ContextualHelp(d.focus))

	sections := []string{
		d.header.View(),
		d.cards.View(),
		style.SubHeaderStyle.Render("Holdings"),
		d.holdings.View(),
		lipgloss.JoinHorizontal(lipgloss.Top, d.quotePanel(), d.orderPanel()),
	}
	if d.status != "" {
		sections = append(sections, d.statusLine())
	}
	if d.logs != nil && d.logs.Visible() {
		sections = append(sections, d.logs.View())
	}
	sections = append(sections, d.helpBar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (d *Dashboard) panelStyle(p pane) lipgloss.Style {
	if d.focus == p {
		return style.ActivePanelStyle
	}
	return style.PanelStyle
}

func (d *Dashboard) quotePanel() string {
	lines := []string{
		style.TitleStyle.Render("Quote"),
		d.quoteInput.View(),
	}
	switch {
	case d.quoteErr != nil:
		lines = append(lines, style.ErrorStyle.Render(DescribeError(d.quoteErr)))
	case d.quote != nil:
		lines = append(lines, fmt.Sprintf("%s %s", d.quote.Symbol, domain.FormatUSD(d.quote.Price)))
		if d.quote.Name != "" {
			lines = append(lines, style.MutedStyle.Render(d.quote.Name))
		}
		if est, ok := d.estimate(); ok {
			lines = append(lines, d.renderEstimate(est))
		}
	default:
		lines = append(lines, style.MutedStyle.Render("type a symbol"))
	}
	return d.panelStyle(paneQuote).Width(44).Render(strings.Join(lines, "\n"))
}

// estimate previews the order form against the displayed quote.
func (d *Dashboard) estimate() (domain.TradeEstimate, bool) {
	qty, err := parseQuantity(d.order.GetValue(fieldQuantity))
	if err != nil || d.quote == nil {
		return domain.TradeEstimate{}, false
	}
	req := domain.TradeRequest{
		Symbol:   domain.CanonicalSymbol(d.order.GetValue(fieldSymbol)),
		Quantity: qty,
		Side:     domain.Side(d.order.GetValue(fieldSide)),
	}
	if req.Symbol != d.quote.Symbol {
		return domain.TradeEstimate{}, false
	}
	return domain.EstimateTrade(req, d.quote.Price, d.snapshot.Profile.CashBalance, d.snapshot.Portfolio), true
}

func (d *Dashboard) renderEstimate(est domain.TradeEstimate) string {
	label := "Est. cost"
	if est.Request.Side == domain.SideSell {
		label = "Est. proceeds"
	}
	text := fmt.Sprintf("%s %s, cash after %s", label, domain.FormatUSD(est.Amount), domain.FormatUSD(est.CashAfter))
	if !est.Feasible {
		return style.WarningStyle.Render(text)
	}
	return style.MutedStyle.Render(text)
}

func (d *Dashboard) orderPanel() string {
	body := style.TitleStyle.Render("Order") + "\n" + d.order.View()
	return d.panelStyle(paneOrder).Width(44).Render(body)
}

func (d *Dashboard) statusLine() string {
	switch d.statusKind {
	case statusError:
		return style.ErrorStyle.Render(d.status)
	case statusSuccess:
		return style.SuccessStyle.Render(d.status)
	}
	return style.MutedStyle.Render(d.status)
}

func parseQuantity(s string) (int64, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("enter a whole number of shares")
	}
	return n, nil
}

// Run shows the dashboard until the user quits or ctx ends. logs may be nil.
func Run(ctx context.Context, trader Trader, logs component.LogSource, logger *zap.Logger) error {
	msgs := make(chan tea.Msg, 256)
	d := NewDashboard(trader, msgs, logger)
	defer d.Close()
	if logs != nil {
		d.ShowLogs(logs)
	}

	p := tea.NewProgram(NewSafeModel(d, logger), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
