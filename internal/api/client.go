// internal/api/client.go

// Package api is the HTTP client for the trading service.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/tradedesk/internal/domain"
)

// RequestIDHeader carries a per-request id for server-side correlation.
const RequestIDHeader = "X-Request-ID"

// Client talks to the trading API. It never retries: every call is sent
// at most once and its failure is reported to the caller.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// LoginResult is a successful authentication.
type LoginResult struct {
	Token   string
	Profile domain.Profile
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	log := logger.Named("api")

	rc := resty.New()
	rc.SetBaseURL(strings.TrimRight(baseURL, "/"))
	rc.SetTimeout(timeout)
	rc.SetRetryCount(0)
	rc.SetLogger(log.Sugar())
	rc.SetHeader("Accept", "application/json")

	rc.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if r.Header.Get(RequestIDHeader) == "" {
			r.SetHeader(RequestIDHeader, uuid.NewString())
		}
		return nil
	})
	rc.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		log.Debug("API response",
			zap.String("method", resp.Request.Method),
			zap.String("url", resp.Request.URL),
			zap.Int("status", resp.StatusCode()),
			zap.Duration("latency", resp.Time()),
			zap.String("request_id", resp.Request.Header.Get(RequestIDHeader)))
		return nil
	})

	return &Client{http: rc, logger: log}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.http.BaseURL }

func (c *Client) request(ctx context.Context, token string) *resty.Request {
	r := c.http.R().SetContext(ctx)
	if token != "" {
		r.SetAuthToken(token)
	}
	return r
}

// do executes r and decodes a 2xx body into out (when non-nil).
func (c *Client) do(r *resty.Request, method, path string, authenticated bool, out interface{}) error {
	resp, err := r.Execute(method, path)
	if err := classify(resp, err, authenticated); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", ErrTransport, method, path, err)
	}
	return nil
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, identifier, password string) (LoginResult, error) {
	var out LoginResponse
	r := c.request(ctx, "").SetBody(LoginRequest{UsernameOrEmail: identifier, Password: password})
	if err := c.do(r, resty.MethodPost, "/api/login", false, &out); err != nil {
		return LoginResult{}, err
	}
	if out.AccessToken == "" {
		return LoginResult{}, fmt.Errorf("%w: login response without access_token", ErrTransport)
	}
	return LoginResult{Token: out.AccessToken, Profile: out.User.toProfile()}, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (domain.Profile, error) {
	var out RegisterResponse
	r := c.request(ctx, "").SetBody(req)
	if err := c.do(r, resty.MethodPost, "/api/register", false, &out); err != nil {
		return domain.Profile{}, err
	}
	return out.User.toProfile(), nil
}

// Logout revokes token on the server.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(c.request(ctx, token), resty.MethodPost, "/api/logout", true, nil)
}

// Profile fetches the account profile and cash balance.
func (c *Client) Profile(ctx context.Context, token string) (domain.Profile, error) {
	var out User
	if err := c.do(c.request(ctx, token), resty.MethodGet, "/api/user", true, &out); err != nil {
		return domain.Profile{}, err
	}
	return out.toProfile(), nil
}

// Portfolio fetches the current holdings.
func (c *Client) Portfolio(ctx context.Context, token string) (domain.Portfolio, error) {
	var out PortfolioResponse
	if err := c.do(c.request(ctx, token), resty.MethodGet, "/api/portfolio", true, &out); err != nil {
		return domain.Portfolio{}, err
	}
	holdings := make([]domain.Holding, 0, len(out.Holdings))
	for _, h := range out.Holdings {
		holdings = append(holdings, domain.Holding{
			Symbol:       h.Symbol,
			Shares:       h.Quantity,
			AverageCost:  h.AverageCost,
			CurrentPrice: h.CurrentPrice,
		})
	}
	return domain.NewPortfolio(holdings), nil
}

// Quote fetches the current price of symbol.
func (c *Client) Quote(ctx context.Context, token, symbol string) (domain.Quote, error) {
	var out QuoteResponse
	r := c.request(ctx, token).SetBody(QuoteRequest{Symbol: domain.CanonicalSymbol(symbol)})
	if err := c.do(r, resty.MethodPost, "/api/quote", token != "", &out); err != nil {
		return domain.Quote{}, err
	}
	return domain.Quote{Symbol: domain.CanonicalSymbol(out.Symbol), Name: out.Name, Price: out.Price}, nil
}

// Trade submits an order. req must already be normalized.
func (c *Client) Trade(ctx context.Context, token string, req domain.TradeRequest) (domain.TradeResult, error) {
	var out TradeResponse
	r := c.request(ctx, token).SetBody(TradeRequest{Symbol: req.Symbol, Quantity: req.Quantity})
	if err := c.do(r, resty.MethodPost, "/api/"+req.Side.Lower(), true, &out); err != nil {
		return domain.TradeResult{}, err
	}
	result := domain.TradeResult{
		AppliedQuantity: out.Quantity,
		Message:         out.Message,
	}
	if result.AppliedQuantity == 0 {
		result.AppliedQuantity = req.Quantity
	}
	if out.NewBalance != nil {
		result.NewBalance = *out.NewBalance
		result.BalanceReported = true
	}
	return result, nil
}

// History fetches executed transactions, newest first.
func (c *Client) History(ctx context.Context, token string) ([]domain.Transaction, error) {
	var out HistoryResponse
	if err := c.do(c.request(ctx, token), resty.MethodGet, "/api/history", true, &out); err != nil {
		return nil, err
	}
	txs := make([]domain.Transaction, 0, len(out.Transactions))
	for _, t := range out.Transactions {
		side, err := domain.ParseSide(t.TransactionType)
		if err != nil {
			c.logger.Warn("Skipping transaction with unknown type",
				zap.Int64("id", t.ID), zap.String("type", t.TransactionType))
			continue
		}
		txs = append(txs, domain.Transaction{
			ID:        t.ID,
			Symbol:    domain.CanonicalSymbol(t.Symbol),
			Quantity:  t.Quantity,
			Price:     t.Price,
			Side:      side,
			Timestamp: t.Timestamp,
		})
	}
	return txs, nil
}

// Market fetches the public market snapshot.
func (c *Client) Market(ctx context.Context) ([]domain.MarketTick, error) {
	var out []MarketTick
	if err := c.do(c.request(ctx, ""), resty.MethodGet, "/api/market-snapshot", false, &out); err != nil {
		return nil, err
	}
	ticks := make([]domain.MarketTick, 0, len(out))
	for _, t := range out {
		ticks = append(ticks, domain.MarketTick{Symbol: domain.CanonicalSymbol(t.Symbol), Price: t.Price})
	}
	return ticks, nil
}

// Trending fetches the public list of top gainers and losers.
func (c *Client) Trending(ctx context.Context) ([]domain.Mover, error) {
	var out TrendingResponse
	if err := c.do(c.request(ctx, ""), resty.MethodGet, "/api/trending", false, &out); err != nil {
		return nil, err
	}
	movers := make([]domain.Mover, 0, len(out.Stocks))
	for _, m := range out.Stocks {
		change, err := decimal.NewFromString(strings.TrimSuffix(strings.TrimSpace(m.Change), "%"))
		if err != nil {
			return nil, fmt.Errorf("%w: trending change %q", ErrTransport, m.Change)
		}
		movers = append(movers, domain.Mover{Symbol: domain.CanonicalSymbol(m.Symbol), Price: m.Price, ChangePercent: change})
	}
	return movers, nil
}

// Health probes the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(c.request(ctx, ""), resty.MethodGet, "/healthz", false, nil)
}

func (u User) toProfile() domain.Profile {
	display := u.FullNames
	if display == "" {
		display = u.Username
	}
	return domain.Profile{
		Username:    u.Username,
		DisplayName: display,
		Email:       u.Email,
		CashBalance: u.Cash,
	}
}
