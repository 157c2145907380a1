// internal/simulator/ledger.go
package simulator

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/rovshanmuradov/tradedesk/internal/config"
	"github.com/rovshanmuradov/tradedesk/internal/domain"
)

// Errors returned by the ledger. Their text is sent to clients verbatim.
var (
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrUnauthorized       = errors.New("Missing or invalid token")
	ErrTokenExpired       = errors.New("Token has expired")
	ErrEmailExists        = errors.New("Email already exists")
	ErrUsernameExists     = errors.New("Username already exists")
	ErrInvalidSymbol      = errors.New("invalid symbol")
	ErrQuantity           = errors.New("quantity must be positive")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
)

// Options configures a Ledger.
type Options struct {
	StartingCash decimal.Decimal
	TokenTTL     time.Duration
	Prices       map[string]decimal.Decimal
}

// OptionsFromConfig converts the simulator configuration section.
func OptionsFromConfig(cfg config.SimulatorConfig) Options {
	prices := make(map[string]decimal.Decimal, len(cfg.Prices))
	for symbol, p := range cfg.Prices {
		prices[domain.CanonicalSymbol(symbol)] = decimal.NewFromFloat(p).Round(2)
	}
	return Options{
		StartingCash: cfg.StartingCashAmount(),
		TokenTTL:     cfg.TokenTTL,
		Prices:       prices,
	}
}

type position struct {
	symbol  string
	shares  int64
	avgCost decimal.Decimal
}

func positionLess(a, b position) bool { return a.symbol < b.symbol }

type account struct {
	id           int64
	username     string
	email        string
	fullNames    string
	passwordHash []byte
	cash         decimal.Decimal
	positions    *btree.BTreeG[position]
	history      []Transaction
}

type tokenEntry struct {
	accountID int64
	expiresAt time.Time
}

// Account is a read-only view of an account.
type Account struct {
	ID        int64
	Username  string
	Email     string
	FullNames string
	Cash      decimal.Decimal
}

// Position is one holding valued at the current price.
type Position struct {
	Symbol       string
	Shares       int64
	AverageCost  decimal.Decimal
	CurrentPrice decimal.Decimal
}

// Transaction is one executed order.
type Transaction struct {
	ID        int64
	Symbol    string
	Quantity  int64
	Price     decimal.Decimal
	Side      domain.Side
	Timestamp time.Time
}

// Fill is the outcome of an executed order.
type Fill struct {
	Transaction Transaction
	NewBalance  decimal.Decimal
}

// Ledger is an in-memory brokerage: accounts, sessions, prices and
// positions. It is safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	opts     Options
	now      func() time.Time
	accounts map[int64]*account
	byName   map[string]int64
	byEmail  map[string]int64
	tokens   map[string]tokenEntry
	prices   map[string]decimal.Decimal
	opens    map[string]decimal.Decimal
	nextID   int64
	nextTxID int64
}

// NewLedger creates an empty ledger.
func NewLedger(opts Options) *Ledger {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Duration(config.DefaultTokenTTLMs) * time.Millisecond
	}
	prices := make(map[string]decimal.Decimal, len(opts.Prices))
	opens := make(map[string]decimal.Decimal, len(opts.Prices))
	for symbol, p := range opts.Prices {
		prices[domain.CanonicalSymbol(symbol)] = p
		opens[domain.CanonicalSymbol(symbol)] = p
	}
	return &Ledger{
		opts:     opts,
		now:      time.Now,
		accounts: make(map[int64]*account),
		byName:   make(map[string]int64),
		byEmail:  make(map[string]int64),
		tokens:   make(map[string]tokenEntry),
		prices:   prices,
		opens:    opens,
	}
}

// Register creates an account funded with the starting cash.
func (l *Ledger) Register(fullNames, username, email, password string) (Account, error) {
	nameKey := strings.ToLower(username)
	emailKey := strings.ToLower(email)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.byEmail[emailKey]; ok {
		return Account{}, ErrEmailExists
	}
	if _, ok := l.byName[nameKey]; ok {
		return Account{}, ErrUsernameExists
	}

	l.nextID++
	a := &account{
		id:           l.nextID,
		username:     username,
		email:        email,
		fullNames:    fullNames,
		passwordHash: hash,
		cash:         l.opts.StartingCash,
		positions:    btree.NewG(8, positionLess),
	}
	l.accounts[a.id] = a
	l.byName[nameKey] = a.id
	l.byEmail[emailKey] = a.id
	return a.view(), nil
}

// Login checks credentials and issues a token valid for the configured TTL.
func (l *Ledger) Login(usernameOrEmail, password string) (string, Account, error) {
	key := strings.ToLower(strings.TrimSpace(usernameOrEmail))

	l.mu.Lock()
	id, ok := l.byName[key]
	if !ok {
		id, ok = l.byEmail[key]
	}
	var a *account
	if ok {
		a = l.accounts[id]
	}
	l.mu.Unlock()

	if a == nil {
		return "", Account{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		return "", Account{}, ErrInvalidCredentials
	}

	token := uuid.NewString()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens[token] = tokenEntry{accountID: a.id, expiresAt: l.now().Add(l.opts.TokenTTL)}
	return token, a.view(), nil
}

// Logout revokes token.
func (l *Ledger) Logout(token string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.tokens, token)
}

// Revoke ends every session of username, as an administrator would.
func (l *Ledger) Revoke(username string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	id, ok := l.byName[strings.ToLower(username)]
	if !ok {
		return 0
	}
	n := 0
	for token, e := range l.tokens {
		if e.accountID == id {
			delete(l.tokens, token)
			n++
		}
	}
	return n
}

// Authenticate resolves token to an account id.
func (l *Ledger) Authenticate(token string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.tokens[token]
	if !ok {
		return 0, ErrUnauthorized
	}
	if !l.now().Before(e.expiresAt) {
		delete(l.tokens, token)
		return 0, ErrTokenExpired
	}
	return e.accountID, nil
}

// Account returns the account with id.
func (l *Ledger) Account(id int64) (Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[id]
	if !ok {
		return Account{}, ErrUnauthorized
	}
	return a.view(), nil
}

// Positions returns the holdings of account id, ordered by symbol.
func (l *Ledger) Positions(id int64) (Account, []Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[id]
	if !ok {
		return Account{}, nil, ErrUnauthorized
	}
	out := make([]Position, 0, a.positions.Len())
	a.positions.Ascend(func(p position) bool {
		out = append(out, Position{
			Symbol:       p.symbol,
			Shares:       p.shares,
			AverageCost:  p.avgCost,
			CurrentPrice: l.prices[p.symbol],
		})
		return true
	})
	return a.view(), out, nil
}

// Price returns the current price of symbol.
func (l *Ledger) Price(symbol string) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.prices[domain.CanonicalSymbol(symbol)]
	if !ok {
		return decimal.Zero, ErrInvalidSymbol
	}
	return p, nil
}

// SetPrice changes or lists a symbol. The first price of a symbol is its
// open.
func (l *Ledger) SetPrice(symbol string, price decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	symbol = domain.CanonicalSymbol(symbol)
	l.prices[symbol] = price
	if _, ok := l.opens[symbol]; !ok {
		l.opens[symbol] = price
	}
}

var hundred = decimal.NewFromInt(100)

// Movers returns up to n top gainers followed by up to n top losers,
// measured against each symbol's open.
func (l *Ledger) Movers(n int) []domain.Mover {
	l.mu.Lock()
	var gainers, losers []domain.Mover
	for symbol, p := range l.prices {
		open := l.opens[symbol]
		if open.IsZero() || p.Equal(open) {
			continue
		}
		m := domain.Mover{
			Symbol:        symbol,
			Price:         p,
			ChangePercent: p.Sub(open).Div(open).Mul(hundred).Round(2),
		}
		if m.ChangePercent.IsPositive() {
			gainers = append(gainers, m)
		} else {
			losers = append(losers, m)
		}
	}
	l.mu.Unlock()

	sort.Slice(gainers, func(i, j int) bool { return moverBefore(gainers[i], gainers[j], true) })
	sort.Slice(losers, func(i, j int) bool { return moverBefore(losers[i], losers[j], false) })
	if len(gainers) > n {
		gainers = gainers[:n]
	}
	if len(losers) > n {
		losers = losers[:n]
	}
	return append(gainers, losers...)
}

func moverBefore(a, b domain.Mover, up bool) bool {
	if c := a.ChangePercent.Cmp(b.ChangePercent); c != 0 {
		return (c > 0) == up
	}
	return a.Symbol < b.Symbol
}

// Prices returns every listed symbol and its price, ordered by symbol.
func (l *Ledger) Prices() []domain.MarketTick {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.MarketTick, 0, len(l.prices))
	for symbol, p := range l.prices {
		out = append(out, domain.MarketTick{Symbol: symbol, Price: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Buy fills an order for quantity shares at the current price.
func (l *Ledger) Buy(id int64, symbol string, quantity int64) (Fill, error) {
	return l.fill(id, domain.SideBuy, symbol, quantity)
}

// Sell fills a sell order at the current price.
func (l *Ledger) Sell(id int64, symbol string, quantity int64) (Fill, error) {
	return l.fill(id, domain.SideSell, symbol, quantity)
}

func (l *Ledger) fill(id int64, side domain.Side, symbol string, quantity int64) (Fill, error) {
	symbol = domain.CanonicalSymbol(symbol)

	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.accounts[id]
	if !ok {
		return Fill{}, ErrUnauthorized
	}
	price, ok := l.prices[symbol]
	if !ok {
		return Fill{}, ErrInvalidSymbol
	}
	if quantity <= 0 {
		return Fill{}, ErrQuantity
	}

	amount := price.Mul(decimal.NewFromInt(quantity))
	pos, held := a.positions.Get(position{symbol: symbol})

	switch side {
	case domain.SideBuy:
		if amount.GreaterThan(a.cash) {
			return Fill{}, ErrInsufficientFunds
		}
		total := pos.shares + quantity
		cost := pos.avgCost.Mul(decimal.NewFromInt(pos.shares)).Add(amount)
		pos = position{symbol: symbol, shares: total, avgCost: cost.Div(decimal.NewFromInt(total)).Round(4)}
		a.positions.ReplaceOrInsert(pos)
		a.cash = a.cash.Sub(amount)
	case domain.SideSell:
		if !held || pos.shares < quantity {
			return Fill{}, ErrInsufficientShares
		}
		pos.shares -= quantity
		if pos.shares == 0 {
			a.positions.Delete(pos)
		} else {
			a.positions.ReplaceOrInsert(pos)
		}
		a.cash = a.cash.Add(amount)
	}

	l.nextTxID++
	tx := Transaction{
		ID:        l.nextTxID,
		Symbol:    symbol,
		Quantity:  quantity,
		Price:     price,
		Side:      side,
		Timestamp: l.now().UTC(),
	}
	a.history = append(a.history, tx)
	return Fill{Transaction: tx, NewBalance: a.cash}, nil
}

// History returns the executed orders of account id, newest first.
func (l *Ledger) History(id int64) ([]Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[id]
	if !ok {
		return nil, ErrUnauthorized
	}
	out := make([]Transaction, len(a.history))
	for i, tx := range a.history {
		out[len(a.history)-1-i] = tx
	}
	return out, nil
}

func (a *account) view() Account {
	return Account{
		ID:        a.id,
		Username:  a.username,
		Email:     a.email,
		FullNames: a.fullNames,
		Cash:      a.cash,
	}
}
