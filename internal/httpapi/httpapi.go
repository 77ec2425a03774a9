package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"lanepos/backend/internal/catalog"
	"lanepos/backend/internal/checkout"
	"lanepos/backend/internal/domain"
	"lanepos/backend/internal/journal"
	"lanepos/backend/internal/money"
	"lanepos/backend/internal/salesapi"
)

type API struct {
	engine        *checkout.Engine
	catalog       catalog.Gateway
	sales         salesapi.Client
	journal       journal.Store
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
}

func New(engine *checkout.Engine, cat catalog.Gateway, sales salesapi.Client, jrnl journal.Store, auth *AuthManager, allowedOrigin string) *API {
	return &API{
		engine:        engine,
		catalog:       cat,
		sales:         sales,
		journal:       jrnl,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)

	mux.HandleFunc("/api/v1/channels", a.requireAuth(a.handleChannels, "cashier", "admin"))
	mux.HandleFunc("/api/v1/channels/", a.requireAuth(a.handleChannelActions, "cashier", "admin"))
	mux.HandleFunc("/api/v1/checkout/receipt", a.requireAuth(a.handleReceipt, "cashier", "admin"))
	mux.HandleFunc("/api/v1/customers", a.requireAuth(a.handleCustomers, "cashier", "admin"))
	mux.HandleFunc("/api/v1/products", a.requireAuth(a.handleProductSearch, "cashier", "admin"))

	mux.HandleFunc("/api/v1/journal/sales", a.requireAuth(a.handleJournalSales, "admin"))
	mux.HandleFunc("/api/v1/journal/audit", a.requireAuth(a.handleJournalAudit, "admin"))
	mux.HandleFunc("/api/v1/users/cashiers", a.requireAuth(a.handleCashiers, "admin"))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(checkout.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleChannels(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"channels":  a.engine.Channels(),
			"active_id": a.engine.ActiveChannelID(),
		})
	case http.MethodPost:
		view, err := a.engine.CreateChannel()
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"channel": view})
	default:
		writeMethodNotAllowed(w)
	}
}

// handleChannelActions dispatches /api/v1/channels/{id}/... sub-resources.
func (a *API) handleChannelActions(w http.ResponseWriter, r *http.Request) {
	prefix := "/api/v1/channels/"
	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if tail == "" {
		writeError(w, http.StatusBadRequest, errors.New("channel id required"))
		return
	}

	parts := strings.Split(tail, "/")
	channelID := parts[0]
	rest := parts[1:]

	if len(rest) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("channel action required"))
		return
	}

	switch rest[0] {
	case "activate":
		a.handleActivate(w, r, channelID)
	case "close":
		a.handleClose(w, r, channelID)
	case "scan":
		a.handleScan(w, r, channelID)
	case "lines":
		a.handleLines(w, r, channelID, rest[1:])
	case "customer":
		a.handleCustomer(w, r, channelID)
	case "cart":
		a.handleCart(w, r, channelID)
	case "totals":
		a.handleTotals(w, r, channelID)
	case "pay":
		a.handlePay(w, r, channelID, rest[1:])
	default:
		writeError(w, http.StatusNotFound, errors.New("unknown channel action"))
	}
}

func (a *API) handleActivate(w http.ResponseWriter, r *http.Request, channelID string) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if err := a.engine.SwitchActive(channelID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"active_id": channelID})
}

func (a *API) handleClose(w http.ResponseWriter, r *http.Request, channelID string) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req struct {
		Confirmed bool `json:"confirmed"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := a.engine.CloseChannel(r.Context(), channelID, req.Confirmed); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"closed":    channelID,
		"active_id": a.engine.ActiveChannelID(),
	})
}

func (a *API) handleScan(w http.ResponseWriter, r *http.Request, channelID string) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req struct {
		Barcode string `json:"barcode"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Barcode) == "" {
		writeError(w, http.StatusBadRequest, errors.New("barcode required"))
		return
	}

	result, err := a.engine.Scan(r.Context(), channelID, req.Barcode)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleLines(w http.ResponseWriter, r *http.Request, channelID string, rest []string) {
	if len(rest) == 0 || rest[0] == "" {
		writeError(w, http.StatusBadRequest, errors.New("product id required"))
		return
	}
	productID := rest[0]

	if len(rest) > 1 && rest[1] == "discount" {
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		var req struct {
			Percent int    `json:"percent"`
			Note    string `json:"note"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := a.engine.ApplyDiscount(channelID, productID, req.Percent, req.Note); err != nil {
			writeEngineError(w, err)
			return
		}
		a.writeChannelTotals(w, channelID)
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var req struct {
			Quantity int `json:"quantity"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := a.engine.SetQuantity(channelID, productID, req.Quantity); err != nil {
			writeEngineError(w, err)
			return
		}
		a.writeChannelTotals(w, channelID)
	case http.MethodDelete:
		if err := a.engine.RemoveLine(channelID, productID); err != nil {
			writeEngineError(w, err)
			return
		}
		a.writeChannelTotals(w, channelID)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCustomer(w http.ResponseWriter, r *http.Request, channelID string) {
	switch r.Method {
	case http.MethodPut:
		var req struct {
			Customer *domain.Customer `json:"customer"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := a.engine.SelectCustomer(channelID, req.Customer); err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"customer": req.Customer})
	case http.MethodDelete:
		if err := a.engine.SelectCustomer(channelID, nil); err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"customer": nil})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCart(w http.ResponseWriter, r *http.Request, channelID string) {
	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w)
		return
	}
	if err := a.engine.ClearCart(channelID); err != nil {
		writeEngineError(w, err)
		return
	}
	a.writeChannelTotals(w, channelID)
}

func (a *API) handleTotals(w http.ResponseWriter, r *http.Request, channelID string) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	a.writeChannelTotals(w, channelID)
}

func (a *API) writeChannelTotals(w http.ResponseWriter, channelID string) {
	totals, err := a.engine.Totals(channelID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"totals": totals})
}

func (a *API) handlePay(w http.ResponseWriter, r *http.Request, channelID string, rest []string) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if len(rest) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("payment mode required"))
		return
	}

	switch rest[0] {
	case "quick":
		var req struct {
			Method string `json:"method"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		method := domain.PaymentMethod(strings.ToLower(strings.TrimSpace(req.Method)))
		if !domain.IsSupportedPaymentMethod(method) {
			writeError(w, http.StatusBadRequest, errors.New("unsupported payment method"))
			return
		}

		sale, err := a.engine.QuickPay(r.Context(), channelID, method)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"sale": sale, "change": money.Format(sale.ChangeCents)})
	case "mixed":
		var req struct {
			Cash string `json:"cash"`
			Card string `json:"card"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		cashCents, err := parseAmount(req.Cash)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		cardCents, err := parseAmount(req.Card)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		sale, change, err := a.engine.MixedPay(r.Context(), channelID, cashCents, cardCents)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"sale": sale, "change": money.Format(change)})
	default:
		writeError(w, http.StatusNotFound, errors.New("unknown payment mode"))
	}
}

// parseAmount treats a missing field as zero tender for that method.
func parseAmount(raw string) (int64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	return money.Parse(raw)
}

func (a *API) handleReceipt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	sale, ok := a.engine.LastSale()
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no committed sale yet"))
		return
	}
	writeJSON(w, http.StatusOK, buildReceipt(sale))
}

func (a *API) handleCustomers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	customers, err := a.sales.ListCustomers(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
}

func (a *API) handleProductSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("search"))
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 20, 100)

	products, err := a.catalog.Search(r.Context(), query, limit)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleJournalSales(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 500)
	sales, err := a.journal.ListSales(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": sales})
}

func (a *API) handleJournalAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)
	entries, err := a.journal.ListAudit(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (a *API) handleCashiers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cashiers := a.auth.ListCashiers()
		writeJSON(w, http.StatusOK, map[string]any{"cashiers": cashiers})
	case http.MethodPost:
		var req domain.CashierCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		cashier, err := a.auth.CreateCashier(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{"cashier": cashier})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

// writeEngineError maps engine and client sentinels onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusUnprocessableEntity
	switch {
	case errors.Is(err, checkout.ErrChannelNotFound), errors.Is(err, checkout.ErrProductNotFound):
		status = http.StatusNotFound
	case errors.Is(err, checkout.ErrChannelLimit),
		errors.Is(err, checkout.ErrLastChannel),
		errors.Is(err, checkout.ErrCloseNeedsConfirm),
		errors.Is(err, checkout.ErrChannelBusy),
		errors.Is(err, checkout.ErrCartChanged):
		status = http.StatusConflict
	case errors.Is(err, checkout.ErrInvalidDiscount), errors.Is(err, checkout.ErrInvalidPayment):
		status = http.StatusBadRequest
	case errors.Is(err, checkout.ErrOutOfStock),
		errors.Is(err, checkout.ErrInsufficientStock),
		errors.Is(err, checkout.ErrInsufficientTender),
		errors.Is(err, checkout.ErrCustomerRequired),
		errors.Is(err, checkout.ErrEmptyCart):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, checkout.ErrLookupFailed),
		errors.Is(err, salesapi.ErrTransport),
		errors.Is(err, catalog.ErrUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, salesapi.ErrRejected):
		status = http.StatusUnprocessableEntity
	}
	writeError(w, status, err)
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx responses get a generic message so internals never leak to clients.
	msg := err.Error()
	if status >= 500 && status != http.StatusBadGateway {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
