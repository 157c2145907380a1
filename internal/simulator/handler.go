// internal/simulator/handler.go
package simulator

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/tradedesk/internal/api"
	"github.com/rovshanmuradov/tradedesk/internal/domain"
)

type handler struct {
	ledger *Ledger
	logger *zap.Logger
}

// register handles POST /api/register.
func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	fields := []struct{ name, value string }{
		{"full_names", req.FullNames},
		{"username", req.Username},
		{"email", req.Email},
		{"password", req.Password},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			writeError(w, http.StatusBadRequest, "Missing field: "+f.name)
			return
		}
	}
	if req.Confirmation != "" && req.Confirmation != req.Password {
		writeError(w, http.StatusBadRequest, "Passwords do not match")
		return
	}

	acct, err := h.ledger.Register(req.FullNames, req.Username, req.Email, req.Password)
	if err != nil {
		h.fail(w, "register", err)
		return
	}
	h.logger.Info("Account registered", zap.String("username", acct.Username))
	writeJSON(w, http.StatusCreated, api.RegisterResponse{Message: "User registered successfully", User: toUser(acct)})
}

// login handles POST /api/login.
func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UsernameOrEmail == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username/email and password required")
		return
	}

	token, acct, err := h.ledger.Login(req.UsernameOrEmail, req.Password)
	if err != nil {
		h.fail(w, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, api.LoginResponse{AccessToken: token, User: toUser(acct)})
}

// logout handles POST /api/logout.
func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	token, _ := r.Context().Value(tokenKey).(string)
	h.ledger.Logout(token)
	writeJSON(w, http.StatusOK, api.MessageResponse{Message: "Logout successful"})
}

// user handles GET /api/user.
func (h *handler) user(w http.ResponseWriter, r *http.Request) {
	acct, err := h.ledger.Account(accountID(r))
	if err != nil {
		h.fail(w, "user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUser(acct))
}

// portfolio handles GET /api/portfolio.
func (h *handler) portfolio(w http.ResponseWriter, r *http.Request) {
	acct, positions, err := h.ledger.Positions(accountID(r))
	if err != nil {
		h.fail(w, "portfolio", err)
		return
	}
	out := api.PortfolioResponse{Holdings: make([]api.Holding, 0, len(positions)), Cash: acct.Cash}
	for _, p := range positions {
		out.Holdings = append(out.Holdings, api.Holding{
			Symbol:       p.Symbol,
			Quantity:     p.Shares,
			AverageCost:  p.AverageCost,
			CurrentPrice: p.CurrentPrice,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// quote handles POST /api/quote.
func (h *handler) quote(w http.ResponseWriter, r *http.Request) {
	var req api.QuoteRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidSymbol.Error())
		return
	}
	symbol := domain.CanonicalSymbol(req.Symbol)
	price, err := h.ledger.Price(symbol)
	if err != nil {
		h.fail(w, "quote", err)
		return
	}
	writeJSON(w, http.StatusOK, api.QuoteResponse{Symbol: symbol, Name: symbol, Price: price})
}

func (h *handler) buy(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, domain.SideBuy)
}

func (h *handler) sell(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, domain.SideSell)
}

// trade handles POST /api/buy and POST /api/sell.
func (h *handler) trade(w http.ResponseWriter, r *http.Request, side domain.Side) {
	var req api.TradeRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := accountID(r)
	var (
		fill Fill
		err  error
	)
	if side == domain.SideBuy {
		fill, err = h.ledger.Buy(id, req.Symbol, req.Quantity)
	} else {
		fill, err = h.ledger.Sell(id, req.Symbol, req.Quantity)
	}
	if err != nil {
		h.fail(w, side.Lower(), err)
		return
	}

	h.logger.Info("Order filled",
		zap.Int64("account", id),
		zap.String("side", string(side)),
		zap.String("symbol", fill.Transaction.Symbol),
		zap.Int64("quantity", fill.Transaction.Quantity),
		zap.String("price", fill.Transaction.Price.StringFixed(2)))

	message := "Purchase successful"
	if side == domain.SideSell {
		message = "Stock sold successfully"
	}
	balance := fill.NewBalance
	writeJSON(w, http.StatusOK, api.TradeResponse{
		Message:    message,
		NewBalance: &balance,
		Quantity:   fill.Transaction.Quantity,
	})
}

// history handles GET /api/history.
func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	txs, err := h.ledger.History(accountID(r))
	if err != nil {
		h.fail(w, "history", err)
		return
	}
	out := api.HistoryResponse{Transactions: make([]api.Transaction, 0, len(txs))}
	for _, tx := range txs {
		out.Transactions = append(out.Transactions, api.Transaction{
			ID:              tx.ID,
			Symbol:          tx.Symbol,
			Quantity:        tx.Quantity,
			Price:           tx.Price,
			TransactionType: string(tx.Side),
			Timestamp:       tx.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// market handles GET /api/market-snapshot.
func (h *handler) market(w http.ResponseWriter, r *http.Request) {
	ticks := h.ledger.Prices()
	out := make([]api.MarketTick, 0, len(ticks))
	for _, t := range ticks {
		out = append(out, api.MarketTick{Symbol: t.Symbol, Price: t.Price})
	}
	writeJSON(w, http.StatusOK, out)
}

// trendingCount is how many gainers and how many losers are listed.
const trendingCount = 5

func (h *handler) trending(w http.ResponseWriter, r *http.Request) {
	movers := h.ledger.Movers(trendingCount)
	out := api.TrendingResponse{Stocks: make([]api.Mover, 0, len(movers))}
	for _, m := range movers {
		out.Stocks = append(out.Stocks, api.Mover{
			Symbol: m.Symbol,
			Price:  m.Price,
			Change: m.ChangePercent.StringFixed(2) + "%",
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("op", op), zap.Error(err))
		writeError(w, status, "internal error")
		return
	}
	h.logger.Debug("Request rejected", zap.String("op", op), zap.Error(err))
	writeError(w, status, err.Error())
}

func toUser(a Account) api.User {
	return api.User{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		FullNames: a.FullNames,
		Cash:      a.Cash,
	}
}
