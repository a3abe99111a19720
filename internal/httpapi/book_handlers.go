package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kitabu.org/internal/book"
	"kitabu.org/internal/obs"
)

const dateLayout = "2006-01-02"

type seedRequest struct {
	Kind string `json:"kind"`
}

type journalLineRequest struct {
	AccountID   string `json:"account_id,omitempty"`
	AccountCode string `json:"account_code,omitempty"`
	Debit       string `json:"debit,omitempty"`
	Credit      string `json:"credit,omitempty"`
	Memo        string `json:"memo,omitempty"`
}

type createEntryRequest struct {
	Date      string               `json:"date"`
	Reference string               `json:"reference,omitempty"`
	Lines     []journalLineRequest `json:"lines"`
}

type listEntriesResponse struct {
	Items     []book.JournalEntry `json:"items"`
	NextAfter uint64              `json:"next_after"`
	AsOf      time.Time           `json:"as_of"`
}

type createAssetRequest struct {
	AccountCode        string `json:"account_code"`
	Name               string `json:"name"`
	Cost               string `json:"cost"`
	AcquiredOn         string `json:"acquired_on"`
	Serial             string `json:"serial,omitempty"`
	Warranty           string `json:"warranty,omitempty"`
	PaymentAccountCode string `json:"payment_account_code,omitempty"`
}

type depreciateRequest struct {
	Amount string `json:"amount"`
	Date   string `json:"date"`
}

type disposeRequest struct {
	Proceeds string `json:"proceeds"`
	Date     string `json:"date"`
}

// --- seeding ---

func (a *API) handleSeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	var req seedRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	kind := book.TenantKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	if kind != book.TenantFamily && kind != book.TenantBusiness {
		writeError(w, r, http.StatusBadRequest, "kind must be family or business")
		return
	}

	if err := a.book.SeedChartOfAccounts(r.Context(), tenantID, kind); err != nil {
		a.handleBookError(w, r, err)
		return
	}
	if err := a.book.SeedCategories(r.Context(), tenantID, kind); err != nil {
		a.handleBookError(w, r, err)
		return
	}
	if err := a.book.SeedPaymentMethods(r.Context(), tenantID); err != nil {
		a.handleBookError(w, r, err)
		return
	}

	a.audit(r.Context(), "book.seed", map[string]any{"kind": string(kind)})
	writeJSON(w, http.StatusOK, map[string]any{"status": "seeded", "kind": kind})
}

// --- accounts ---

func (a *API) handleAccountsCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	accounts, err := a.book.ListAccounts(r.Context(), tenantID)
	if err != nil {
		a.handleBookError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": accounts})
}

func (a *API) handleAccountMapping(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	acc, err := a.book.GetAccountMapping(r.Context(), tenantID, r.URL.Query().Get("hint"))
	if err != nil {
		a.handleBookError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (a *API) handleAccountResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/accounts/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if strings.HasSuffix(path, "/balance") {
		id := strings.TrimSuffix(strings.TrimSuffix(path, "/balance"), "/")
		if id == "" {
			writeError(w, r, http.StatusNotFound, "account not found")
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.getAccountBalance(w, r, id)
		return
	}
	writeError(w, r, http.StatusNotFound, "resource not found")
}

func (a *API) getAccountBalance(w http.ResponseWriter, r *http.Request, id string) {
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	asOf, err := parseDateParam(r, "as_of")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	balance, err := a.book.GetAccountBalance(r.Context(), tenantID, id, asOf)
	if err != nil {
		a.handleBookError(w, r, err)
		return
	}
	resp := map[string]any{"account_id": id, "balance": balance}
	if asOf != nil {
		resp["as_of"] = asOf.Format(dateLayout)
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- journal ---

func (a *API) handleEntriesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createEntry(w, r)
	case http.MethodGet:
		a.listEntries(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleEntryResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/journal-entries/")
	if strings.HasSuffix(path, "/void") {
		id := strings.TrimSuffix(strings.TrimSuffix(path, "/void"), "/")
		if id == "" {
			writeError(w, r, http.StatusNotFound, "entry not found")
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.voidEntry(w, r, id)
		return
	}
	writeError(w, r, http.StatusNotFound, "resource not found")
}

func (a *API) createEntry(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	var req createEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if len(req.Lines) == 0 {
		writeError(w, r, http.StatusBadRequest, "lines are required")
		return
	}

	// Lines may name accounts by code; resolve them before posting.
	var codes []string
	for _, line := range req.Lines {
		if line.AccountID == "" && line.AccountCode != "" {
			codes = append(codes, line.AccountCode)
		}
	}
	resolved := map[string]string{}
	if len(codes) > 0 {
		resolved, err = a.book.ResolveAccountIDs(r.Context(), tenantID, codes)
		if err != nil {
			a.handleBookError(w, r, err)
			return
		}
	}

	lines := make([]book.LineInput, len(req.Lines))
	for i, line := range req.Lines {
		debit, err := parseAmount(line.Debit)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "line "+strconv.Itoa(i)+": "+err.Error())
			return
		}
		credit, err := parseAmount(line.Credit)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "line "+strconv.Itoa(i)+": "+err.Error())
			return
		}
		accountID := line.AccountID
		if accountID == "" {
			accountID = resolved[line.AccountCode]
		}
		lines[i] = book.LineInput{AccountID: accountID, Debit: debit, Credit: credit, Memo: line.Memo}
	}

	entry, err := a.book.CreateJournalEntry(r.Context(), tenantID, date, req.Reference, lines)
	if err != nil {
		a.handleBookError(w, r, err)
		return
	}

	obs.EntryPosted()
	a.audit(r.Context(), "book.entry.post", map[string]any{
		"entry_id": entry.ID,
		"lines":    len(entry.Lines),
	})
	w.Header().Set("Location", "/v1/journal-entries/"+entry.ID)
	writeJSON(w, http.StatusCreated, entry)
}

func (a *API) voidEntry(w http.ResponseWriter, r *http.Request, id string) {
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	rev, err := a.book.VoidJournalEntry(r.Context(), tenantID, id)
	if err != nil {
		a.handleBookError(w, r, err)
		return
	}
	obs.EntryVoided()
	a.audit(r.Context(), "book.entry.void", map[string]any{
		"entry_id":    id,
		"reversal_id": rev.ID,
	})
	writeJSON(w, http.StatusOK, rev)
}

func (a *API) listEntries(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 100, 1, 1000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var after uint64
	if raw := strings.TrimSpace(r.URL.Query().Get("after")); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "after must be a non-negative integer")
			return
		}
		after = v
	}

	items, next, err := a.book.ListJournalEntries(r.Context(), tenantID, limit, after)
	if err != nil {
		a.handleBookError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listEntriesResponse{Items: items, NextAfter: next, AsOf: time.Now().UTC()})
}

// --- balances and reports ---

func (a *API) handleBalances(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	asOf, err := parseDateParam(r, "as_of")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	balances, err := a.book.GetAllAccountBalances(r.Context(), tenantID, asOf)
	if err != nil {
		a.handleBookError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balances": balances})
}

func (a *API) handleTrialBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	asOf, err := parseDateParam(r, "as_of")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	tb, err := a.book.GetTrialBalance(r.Context(), tenantID, asOf)
	if err != nil {
		a.handleBookError(w, r, err)
		return
	}
	obs.ReportGenerated("trial_balance")
	writeJSON(w, http.StatusOK, tb)
}

func (a *API) handleProfitAndLoss(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	from, to, err := parseWindow(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	pl, err := a.book.GetProfitAndLoss(r.Context(), tenantID, from, to)
	if err != nil {
		a.handleBookError(w, r, err)
		return
	}
	obs.ReportGenerated("profit_and_loss")
	writeJSON(w, http.StatusOK, pl)
}

func (a *API) handleCashFlow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	from, to, err := parseWindow(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	cf, err := a.book.GetCashFlow(r.Context(), tenantID, from, to)
	if err != nil {
		a.handleBookError(w, r, err)
		return
	}
	obs.ReportGenerated("cash_flow")
	writeJSON(w, http.StatusOK, cf)
}

func (a *API) handleBalanceSheet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	asOf, err := parseDateParam(r, "as_of")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	bs, err := a.book.GetBalanceSheet(r.Context(), tenantID, asOf)
	if err != nil {
		a.handleBookError(w, r, err)
		return
	}
	obs.ReportGenerated("balance_sheet")
	writeJSON(w, http.StatusOK, bs)
}

// --- fixed assets ---

func (a *API) handleAssetsCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	var req createAssetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	cost, err := parseAmount(req.Cost)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "cost: "+err.Error())
		return
	}
	acquired, err := time.Parse(dateLayout, req.AcquiredOn)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "acquired_on must be YYYY-MM-DD")
		return
	}

	asset, err := a.book.CreateFixedAsset(r.Context(), tenantID, book.FixedAssetParams{
		AccountCode:        req.AccountCode,
		Name:               req.Name,
		Cost:               cost,
		AcquiredOn:         acquired,
		Serial:             req.Serial,
		Warranty:           req.Warranty,
		PaymentAccountCode: req.PaymentAccountCode,
	})
	if err != nil {
		a.handleBookError(w, r, err)
		return
	}

	a.audit(r.Context(), "book.asset.create", map[string]any{
		"asset_id":     asset.ID,
		"account_code": asset.AccountCode,
	})
	w.Header().Set("Location", "/v1/assets/"+asset.ID)
	writeJSON(w, http.StatusCreated, asset)
}

func (a *API) handleAssetResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/assets/")
	switch {
	case strings.HasSuffix(path, "/depreciation"):
		id := strings.TrimSuffix(strings.TrimSuffix(path, "/depreciation"), "/")
		if id == "" {
			writeError(w, r, http.StatusNotFound, "asset not found")
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.depreciateAsset(w, r, id)
	case strings.HasSuffix(path, "/disposal"):
		id := strings.TrimSuffix(strings.TrimSuffix(path, "/disposal"), "/")
		if id == "" {
			writeError(w, r, http.StatusNotFound, "asset not found")
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.disposeAsset(w, r, id)
	case path != "" && !strings.Contains(path, "/"):
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.getAsset(w, r, path)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) depreciateAsset(w http.ResponseWriter, r *http.Request, id string) {
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	var req depreciateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "amount: "+err.Error())
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	asset, err := a.book.DepreciateAsset(r.Context(), tenantID, id, amount, date)
	if err != nil {
		a.handleBookError(w, r, err)
		return
	}
	obs.DepreciationPosted()
	a.audit(r.Context(), "book.asset.depreciate", map[string]any{
		"asset_id": id,
		"amount":   amount.String(),
	})
	writeJSON(w, http.StatusOK, asset)
}

func (a *API) disposeAsset(w http.ResponseWriter, r *http.Request, id string) {
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	var req disposeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	proceeds, err := parseAmount(req.Proceeds)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "proceeds: "+err.Error())
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	asset, err := a.book.DisposeAsset(r.Context(), tenantID, id, proceeds, date)
	if err != nil {
		a.handleBookError(w, r, err)
		return
	}
	a.audit(r.Context(), "book.asset.dispose", map[string]any{
		"asset_id": id,
		"proceeds": proceeds.String(),
	})
	writeJSON(w, http.StatusOK, asset)
}

func (a *API) getAsset(w http.ResponseWriter, r *http.Request, id string) {
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	asset, err := a.book.GetFixedAsset(r.Context(), tenantID, id)
	if err != nil {
		a.handleBookError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

// --- parsing helpers ---

func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.New("amount must be a decimal number")
	}
	return d, nil
}

func parseDateParam(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, errors.New(name + " must be YYYY-MM-DD")
	}
	return &t, nil
}

func parseWindow(r *http.Request) (time.Time, time.Time, error) {
	fromRaw := strings.TrimSpace(r.URL.Query().Get("from"))
	toRaw := strings.TrimSpace(r.URL.Query().Get("to"))
	if fromRaw == "" || toRaw == "" {
		return time.Time{}, time.Time{}, errors.New("from and to are required")
	}
	from, err := time.Parse(dateLayout, fromRaw)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("from must be YYYY-MM-DD")
	}
	to, err := time.Parse(dateLayout, toRaw)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("to must be YYYY-MM-DD")
	}
	return from, to, nil
}

func parsePositiveInt(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	if val < min || val > max {
		return 0, errors.New("limit must be between 1 and 1000")
	}
	return val, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleBookError maps domain sentinels onto HTTP status codes. The service
// layer never sees HTTP.
func (a *API) handleBookError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, book.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, book.ErrAlreadyVoided), errors.Is(err, book.ErrAlreadyDisposed):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, book.ErrUnbalanced):
		obs.PostingRejected("unbalanced")
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, book.ErrMalformedLine):
		obs.PostingRejected("malformed_line")
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, book.ErrOverDepreciation), errors.Is(err, book.ErrNotDepreciable):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, book.ErrValidation), errors.Is(err, book.ErrUnknownAssetClass):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, book.ErrPersistence):
		writeError(w, r, http.StatusServiceUnavailable, "storage unavailable")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
