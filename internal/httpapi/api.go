package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"kitabu.org/internal/audit"
	"kitabu.org/internal/book"
	"kitabu.org/internal/obs"
	"kitabu.org/internal/tenant"
)

// ReadyProbe checks readiness, typically by pinging the database.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer over the bookkeeping service.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	book       book.Service
	verifier   *tenant.Verifier
	version    string

	rateBurst  int
	ratePerSec int
}

func New(svc book.Service, verifier *tenant.Verifier, rp ReadyProbe, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		book:       svc,
		verifier:   verifier,
		version:    version,
		rateBurst:  50,
		ratePerSec: 25,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/seed", a.handleSeed)
	a.mux.HandleFunc("/v1/accounts", a.handleAccountsCollection)
	a.mux.HandleFunc("/v1/accounts/mapping", a.handleAccountMapping)
	a.mux.HandleFunc("/v1/accounts/", a.handleAccountResource)
	a.mux.HandleFunc("/v1/journal-entries", a.handleEntriesCollection)
	a.mux.HandleFunc("/v1/journal-entries/", a.handleEntryResource)
	a.mux.HandleFunc("/v1/balances", a.handleBalances)
	a.mux.HandleFunc("/v1/reports/trial-balance", a.handleTrialBalance)
	a.mux.HandleFunc("/v1/reports/profit-and-loss", a.handleProfitAndLoss)
	a.mux.HandleFunc("/v1/reports/cash-flow", a.handleCashFlow)
	a.mux.HandleFunc("/v1/reports/balance-sheet", a.handleBalanceSheet)
	a.mux.HandleFunc("/v1/assets", a.handleAssetsCollection)
	a.mux.HandleFunc("/v1/assets/", a.handleAssetResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := a.withTenant(a.mux)
	h = RequestID(h)
	h = MaxBodyBytes(h, 1<<20)
	h = SecurityHeaders(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = Logging(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "kitabu-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "kitabu-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) audit(ctx context.Context, event string, fields map[string]any) {
	_ = audit.LogEvent(ctx, event, fields)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
