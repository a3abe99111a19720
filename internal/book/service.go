package book

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"kitabu.org/internal/ids"
)

// DefaultSettlementCode is credited on acquisitions and debited on disposal
// proceeds when the caller does not name a payment account.
const DefaultSettlementCode = "1010"

// Service is the function-call boundary of the bookkeeping engine. Every
// operation is tenant-scoped; implementations must filter all reads and
// writes by tenant id.
type Service interface {
	// Seeding. Idempotent: repeated calls never duplicate rows.
	SeedChartOfAccounts(ctx context.Context, tenantID string, kind TenantKind) error
	SeedCategories(ctx context.Context, tenantID string, kind TenantKind) error
	SeedPaymentMethods(ctx context.Context, tenantID string) error

	// Lookup.
	ListAccounts(ctx context.Context, tenantID string) ([]Account, error)
	GetAccountMapping(ctx context.Context, tenantID, hint string) (Account, error)
	ResolveAccountIDs(ctx context.Context, tenantID string, codes []string) (map[string]string, error)

	// Posting. The only writers of ledger state besides the asset lifecycle.
	CreateJournalEntry(ctx context.Context, tenantID string, date time.Time, reference string, lines []LineInput) (JournalEntry, error)
	VoidJournalEntry(ctx context.Context, tenantID, entryID string) (JournalEntry, error)
	ListJournalEntries(ctx context.Context, tenantID string, limit int, afterSeq uint64) ([]JournalEntry, uint64, error)

	// Balances. Read-only projections over posted journal lines.
	GetAccountBalance(ctx context.Context, tenantID, accountID string, asOf *time.Time) (decimal.Decimal, error)
	GetAllAccountBalances(ctx context.Context, tenantID string, asOf *time.Time) (map[string]decimal.Decimal, error)

	// Reports. Pure functions of posted state plus the date parameters.
	GetTrialBalance(ctx context.Context, tenantID string, asOf *time.Time) (TrialBalance, error)
	GetProfitAndLoss(ctx context.Context, tenantID string, from, to time.Time) (ProfitAndLoss, error)
	GetCashFlow(ctx context.Context, tenantID string, from, to time.Time) (CashFlow, error)
	GetBalanceSheet(ctx context.Context, tenantID string, asOf *time.Time) (BalanceSheet, error)

	// Fixed-asset lifecycle: ACQUIRED -> (DEPRECIATING)* -> DISPOSED.
	CreateFixedAsset(ctx context.Context, tenantID string, params FixedAssetParams) (FixedAsset, error)
	DepreciateAsset(ctx context.Context, tenantID, assetID string, amount decimal.Decimal, date time.Time) (FixedAsset, error)
	DisposeAsset(ctx context.Context, tenantID, assetID string, proceeds decimal.Decimal, date time.Time) (FixedAsset, error)
	GetFixedAsset(ctx context.Context, tenantID, assetID string) (FixedAsset, error)
}

// InMemory implements Service with in-process concurrency safety. It is the
// reference implementation and the unit-test vehicle; store/pg provides the
// durable one.
type InMemory struct {
	mu       sync.RWMutex
	accounts map[string]*Account          // account id -> account
	codes    map[string]map[string]string // tenant id -> code -> account id
	entries  map[string]*JournalEntry
	order    []string // entry ids in posting order
	seq      uint64
	assets   map[string]*FixedAsset
	cats     map[string][]Category
	methods  map[string][]PaymentMethod
}

var _ Service = (*InMemory)(nil)

// NewInMemory creates an empty in-process ledger.
func NewInMemory() *InMemory {
	return &InMemory{
		accounts: make(map[string]*Account),
		codes:    make(map[string]map[string]string),
		entries:  make(map[string]*JournalEntry),
		assets:   make(map[string]*FixedAsset),
		cats:     make(map[string][]Category),
		methods:  make(map[string][]PaymentMethod),
	}
}

// --- seeding ---

func (s *InMemory) SeedChartOfAccounts(ctx context.Context, tenantID string, kind TenantKind) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenant id is required", ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	byCode := s.codes[tenantID]
	if byCode == nil {
		byCode = make(map[string]string)
		s.codes[tenantID] = byCode
	}
	for _, seed := range DefaultChart(kind) {
		if _, exists := byCode[seed.Code]; exists {
			continue
		}
		acc := &Account{
			ID:                ids.New(),
			TenantID:          tenantID,
			Code:              seed.Code,
			Name:              seed.Name,
			Type:              seed.Type,
			Subtype:           seed.Subtype,
			IsContra:          seed.IsContra,
			IsPaymentEligible: seed.IsPaymentEligible,
			IsSystem:          seed.IsSystem,
			IsActive:          true,
			Balance:           decimal.Zero,
			CreatedAt:         time.Now().UTC(),
		}
		s.accounts[acc.ID] = acc
		byCode[acc.Code] = acc.ID
	}
	return nil
}

func (s *InMemory) SeedCategories(ctx context.Context, tenantID string, kind TenantKind) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenant id is required", ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]bool, len(s.cats[tenantID]))
	for _, c := range s.cats[tenantID] {
		existing[c.Name] = true
	}
	for _, name := range DefaultCategories(kind) {
		if existing[name] {
			continue
		}
		s.cats[tenantID] = append(s.cats[tenantID], Category{ID: ids.New(), TenantID: tenantID, Name: name})
	}
	return nil
}

func (s *InMemory) SeedPaymentMethods(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenant id is required", ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]bool, len(s.methods[tenantID]))
	for _, m := range s.methods[tenantID] {
		existing[m.Name] = true
	}
	for _, name := range DefaultPaymentMethods() {
		if existing[name] {
			continue
		}
		s.methods[tenantID] = append(s.methods[tenantID], PaymentMethod{ID: ids.New(), TenantID: tenantID, Name: name})
	}
	return nil
}

// --- lookup ---

func (s *InMemory) ListAccounts(ctx context.Context, tenantID string) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accs := s.tenantAccountList(tenantID)
	sort.Slice(accs, func(i, j int) bool { return accs[i].Code < accs[j].Code })
	return accs, nil
}

func (s *InMemory) GetAccountMapping(ctx context.Context, tenantID, hint string) (Account, error) {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return Account{}, fmt.Errorf("%w: hint is required", ErrValidation)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	accs := s.tenantAccountList(tenantID)
	sort.Slice(accs, func(i, j int) bool { return accs[i].Code < accs[j].Code })

	lower := strings.ToLower(hint)
	for _, acc := range accs {
		if strings.EqualFold(acc.Subtype, hint) {
			return acc, nil
		}
	}
	for _, acc := range accs {
		if acc.Code == hint {
			return acc, nil
		}
	}
	for _, acc := range accs {
		if strings.EqualFold(acc.Name, hint) {
			return acc, nil
		}
	}
	for _, acc := range accs {
		if strings.Contains(strings.ToLower(acc.Name), lower) {
			return acc, nil
		}
	}
	return Account{}, fmt.Errorf("%w: no account matches %q", ErrNotFound, hint)
}

func (s *InMemory) ResolveAccountIDs(ctx context.Context, tenantID string, codes []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolveCodesLocked(tenantID, codes)
}

func (s *InMemory) resolveCodesLocked(tenantID string, codes []string) (map[string]string, error) {
	byCode := s.codes[tenantID]
	out := make(map[string]string, len(codes))
	for _, code := range codes {
		id, ok := byCode[code]
		if !ok {
			return nil, fmt.Errorf("%w: account code %q", ErrNotFound, code)
		}
		out[code] = id
	}
	return out, nil
}

// --- posting ---

func (s *InMemory) CreateJournalEntry(ctx context.Context, tenantID string, date time.Time, reference string, lines []LineInput) (JournalEntry, error) {
	if date.IsZero() {
		return JournalEntry{}, fmt.Errorf("%w: posting date is required", ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.postLocked(tenantID, date, reference, lines, StatusPosted, "")
}

func (s *InMemory) VoidJournalEntry(ctx context.Context, tenantID, entryID string) (JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orig, ok := s.entries[entryID]
	if !ok || orig.TenantID != tenantID {
		return JournalEntry{}, ErrNotFound
	}
	switch orig.Status {
	case StatusVoided:
		return JournalEntry{}, ErrAlreadyVoided
	case StatusReversal:
		return JournalEntry{}, fmt.Errorf("%w: reversal entries cannot be voided", ErrValidation)
	}

	mirror := make([]LineInput, len(orig.Lines))
	for i, line := range orig.Lines {
		mirror[i] = LineInput{AccountID: line.AccountID, Debit: line.Credit, Credit: line.Debit, Memo: line.Memo}
	}
	rev, err := s.postLocked(tenantID, orig.Date, "reversal of "+orig.ID, mirror, StatusReversal, orig.ID)
	if err != nil {
		return JournalEntry{}, err
	}

	// Remove the original's contribution from the cached projections; the
	// derived balance now excludes both the original and its reversal.
	for _, line := range orig.Lines {
		if acc, ok := s.accounts[line.AccountID]; ok {
			acc.Balance = acc.Balance.Sub(NetBalance(*acc, Activity{Debits: line.Debit, Credits: line.Credit}))
		}
	}
	now := time.Now().UTC()
	orig.Status = StatusVoided
	orig.VoidedAt = &now
	return rev, nil
}

// postLocked validates and appends one entry atomically. Callers hold mu.
func (s *InMemory) postLocked(tenantID string, date time.Time, reference string, lines []LineInput, status EntryStatus, reversalOf string) (JournalEntry, error) {
	accounts := s.tenantAccountsLocked(tenantID)
	if err := ValidateLines(lines, accounts); err != nil {
		return JournalEntry{}, err
	}

	s.seq++
	entry := &JournalEntry{
		ID:         ids.New(),
		TenantID:   tenantID,
		Sequence:   s.seq,
		Date:       date,
		Reference:  reference,
		Status:     status,
		ReversalOf: reversalOf,
		CreatedAt:  time.Now().UTC(),
	}
	for _, in := range lines {
		entry.Lines = append(entry.Lines, JournalLine{
			ID:        ids.New(),
			EntryID:   entry.ID,
			AccountID: in.AccountID,
			Debit:     in.Debit,
			Credit:    in.Credit,
			Memo:      in.Memo,
		})
		if status == StatusPosted {
			acc := s.accounts[in.AccountID]
			acc.Balance = acc.Balance.Add(NetBalance(*acc, Activity{Debits: in.Debit, Credits: in.Credit}))
		}
	}
	s.entries[entry.ID] = entry
	s.order = append(s.order, entry.ID)
	return *entry, nil
}

func (s *InMemory) ListJournalEntries(ctx context.Context, tenantID string, limit int, afterSeq uint64) ([]JournalEntry, uint64, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res []JournalEntry
	var last uint64
	for _, id := range s.order {
		e := s.entries[id]
		if e.TenantID != tenantID || e.Sequence <= afterSeq {
			continue
		}
		res = append(res, *e)
		last = e.Sequence
		if len(res) >= limit {
			break
		}
	}
	return res, last, nil
}

// --- balances ---

func (s *InMemory) GetAccountBalance(ctx context.Context, tenantID, accountID string, asOf *time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[accountID]
	if !ok || acc.TenantID != tenantID {
		return decimal.Zero, ErrNotFound
	}
	activity := s.activityLocked(tenantID, nil, asOf)
	return NetBalance(*acc, activity[accountID]), nil
}

func (s *InMemory) GetAllAccountBalances(ctx context.Context, tenantID string, asOf *time.Time) (map[string]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	activity := s.activityLocked(tenantID, nil, asOf)
	out := make(map[string]decimal.Decimal)
	for _, acc := range s.tenantAccountList(tenantID) {
		if !acc.IsActive {
			continue
		}
		out[acc.Code] = NetBalance(acc, activity[acc.ID])
	}
	return out, nil
}

// --- reports ---

func (s *InMemory) GetTrialBalance(ctx context.Context, tenantID string, asOf *time.Time) (TrialBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balances := s.balancesLocked(tenantID, nil, asOf)
	return BuildTrialBalance(balances, asOf), nil
}

func (s *InMemory) GetProfitAndLoss(ctx context.Context, tenantID string, from, to time.Time) (ProfitAndLoss, error) {
	if to.Before(from) {
		return ProfitAndLoss{}, fmt.Errorf("%w: report window ends before it starts", ErrValidation)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	balances := s.balancesLocked(tenantID, &from, &to)
	return BuildProfitAndLoss(balances, from, to), nil
}

func (s *InMemory) GetCashFlow(ctx context.Context, tenantID string, from, to time.Time) (CashFlow, error) {
	if to.Before(from) {
		return CashFlow{}, fmt.Errorf("%w: report window ends before it starts", ErrValidation)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	accounts := s.sortedActiveLocked(tenantID)
	activity := s.activityLocked(tenantID, &from, &to)
	return BuildCashFlow(accounts, activity, from, to), nil
}

func (s *InMemory) GetBalanceSheet(ctx context.Context, tenantID string, asOf *time.Time) (BalanceSheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balances := s.balancesLocked(tenantID, nil, asOf)
	return BuildBalanceSheet(balances, asOf), nil
}

// --- fixed assets ---

func (s *InMemory) CreateFixedAsset(ctx context.Context, tenantID string, params FixedAssetParams) (FixedAsset, error) {
	class, err := LookupAssetClass(params.AccountCode)
	if err != nil {
		return FixedAsset{}, err
	}
	if !params.Cost.IsPositive() {
		return FixedAsset{}, fmt.Errorf("%w: cost must be positive", ErrValidation)
	}
	if params.AcquiredOn.IsZero() {
		return FixedAsset{}, fmt.Errorf("%w: acquisition date is required", ErrValidation)
	}
	payCode := params.PaymentAccountCode
	if payCode == "" {
		payCode = DefaultSettlementCode
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	resolved, err := s.resolveCodesLocked(tenantID, []string{params.AccountCode, payCode})
	if err != nil {
		return FixedAsset{}, err
	}

	ref := "asset acquisition"
	if params.Name != "" {
		ref += ": " + params.Name
	}
	_, err = s.postLocked(tenantID, params.AcquiredOn, ref, []LineInput{
		{AccountID: resolved[params.AccountCode], Debit: params.Cost, Memo: params.Name},
		{AccountID: resolved[payCode], Credit: params.Cost, Memo: params.Name},
	}, StatusPosted, "")
	if err != nil {
		return FixedAsset{}, err
	}

	asset := &FixedAsset{
		ID:                      ids.New(),
		TenantID:                tenantID,
		AccountID:               resolved[params.AccountCode],
		AccountCode:             params.AccountCode,
		Name:                    params.Name,
		Serial:                  serialIf(class.ShowSerial, params.Serial),
		Warranty:                serialIf(class.ShowWarranty, params.Warranty),
		Method:                  class.Depreciation,
		Cost:                    params.Cost,
		AccumulatedDepreciation: decimal.Zero,
		AcquiredOn:              params.AcquiredOn,
		CreatedAt:               time.Now().UTC(),
	}
	s.assets[asset.ID] = asset
	return *asset, nil
}

// DepreciateAsset posts one period of depreciation. For MARKET assets the
// amount is interpreted as the new fair value and the delta posts to the
// class's revaluation account.
func (s *InMemory) DepreciateAsset(ctx context.Context, tenantID, assetID string, amount decimal.Decimal, date time.Time) (FixedAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, ok := s.assets[assetID]
	if !ok || asset.TenantID != tenantID {
		return FixedAsset{}, ErrNotFound
	}
	if asset.Disposed() {
		return FixedAsset{}, ErrAlreadyDisposed
	}
	class, err := LookupAssetClass(asset.AccountCode)
	if err != nil {
		return FixedAsset{}, err
	}

	switch class.Depreciation {
	case DepreciationNone:
		return FixedAsset{}, ErrNotDepreciable

	case DepreciationStraightLine:
		if !amount.IsPositive() {
			return FixedAsset{}, fmt.Errorf("%w: depreciation amount must be positive", ErrValidation)
		}
		if asset.AccumulatedDepreciation.Add(amount).GreaterThan(asset.Cost) {
			return FixedAsset{}, ErrOverDepreciation
		}
		resolved, err := s.resolveCodesLocked(tenantID, []string{class.ExpenseAccount, class.ContraAccount})
		if err != nil {
			return FixedAsset{}, err
		}
		_, err = s.postLocked(tenantID, date, "depreciation: "+asset.AccountCode, []LineInput{
			{AccountID: resolved[class.ExpenseAccount], Debit: amount, Memo: asset.Name},
			{AccountID: resolved[class.ContraAccount], Credit: amount, Memo: asset.Name},
		}, StatusPosted, "")
		if err != nil {
			return FixedAsset{}, err
		}
		asset.AccumulatedDepreciation = asset.AccumulatedDepreciation.Add(amount)
		return *asset, nil

	case DepreciationMarket:
		if amount.IsNegative() {
			return FixedAsset{}, fmt.Errorf("%w: fair value must not be negative", ErrValidation)
		}
		delta := amount.Sub(asset.BookValue())
		if delta.IsZero() {
			return *asset, nil
		}
		resolved, err := s.resolveCodesLocked(tenantID, []string{asset.AccountCode, class.RevaluationAccount})
		if err != nil {
			return FixedAsset{}, err
		}
		lines := []LineInput{
			{AccountID: resolved[asset.AccountCode], Debit: delta, Memo: asset.Name},
			{AccountID: resolved[class.RevaluationAccount], Credit: delta, Memo: asset.Name},
		}
		if delta.IsNegative() {
			down := delta.Neg()
			lines = []LineInput{
				{AccountID: resolved[class.RevaluationAccount], Debit: down, Memo: asset.Name},
				{AccountID: resolved[asset.AccountCode], Credit: down, Memo: asset.Name},
			}
		}
		_, err = s.postLocked(tenantID, date, "revaluation: "+asset.AccountCode, lines, StatusPosted, "")
		if err != nil {
			return FixedAsset{}, err
		}
		fv := amount
		asset.FairValue = &fv
		return *asset, nil
	}
	return FixedAsset{}, ErrNotDepreciable
}

func (s *InMemory) DisposeAsset(ctx context.Context, tenantID, assetID string, proceeds decimal.Decimal, date time.Time) (FixedAsset, error) {
	if proceeds.IsNegative() {
		return FixedAsset{}, fmt.Errorf("%w: proceeds must not be negative", ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, ok := s.assets[assetID]
	if !ok || asset.TenantID != tenantID {
		return FixedAsset{}, ErrNotFound
	}
	if asset.Disposed() {
		return FixedAsset{}, ErrAlreadyDisposed
	}
	class, err := LookupAssetClass(asset.AccountCode)
	if err != nil {
		return FixedAsset{}, err
	}

	codes := []string{asset.AccountCode, DefaultSettlementCode, class.DisposalAccount}
	if class.ContraAccount != "" {
		codes = append(codes, class.ContraAccount)
	}
	resolved, err := s.resolveCodesLocked(tenantID, codes)
	if err != nil {
		return FixedAsset{}, err
	}

	lines := DisposalLines(*asset, class, proceeds, resolved)
	if len(lines) > 0 {
		if _, err := s.postLocked(tenantID, date, "asset disposal: "+asset.AccountCode, lines, StatusPosted, ""); err != nil {
			return FixedAsset{}, err
		}
	}

	when := date
	asset.DisposedOn = &when
	p := proceeds
	asset.DisposalProceeds = &p
	return *asset, nil
}

func (s *InMemory) GetFixedAsset(ctx context.Context, tenantID, assetID string) (FixedAsset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	asset, ok := s.assets[assetID]
	if !ok || asset.TenantID != tenantID {
		return FixedAsset{}, ErrNotFound
	}
	return *asset, nil
}

// DisposalLines builds the posting that takes an asset off the books:
// proceeds in, accumulated depreciation cleared, carrying amount removed,
// and the difference posted as gain or loss.
func DisposalLines(asset FixedAsset, class AssetClass, proceeds decimal.Decimal, resolved map[string]string) []LineInput {
	book := asset.BookValue()
	carried := book.Add(asset.AccumulatedDepreciation)
	gain := proceeds.Sub(book)

	var lines []LineInput
	if proceeds.IsPositive() {
		lines = append(lines, LineInput{AccountID: resolved[DefaultSettlementCode], Debit: proceeds, Memo: asset.Name})
	}
	if asset.AccumulatedDepreciation.IsPositive() {
		lines = append(lines, LineInput{AccountID: resolved[class.ContraAccount], Debit: asset.AccumulatedDepreciation, Memo: asset.Name})
	}
	if gain.IsNegative() {
		lines = append(lines, LineInput{AccountID: resolved[class.DisposalAccount], Debit: gain.Neg(), Memo: asset.Name})
	}
	if carried.IsPositive() {
		lines = append(lines, LineInput{AccountID: resolved[asset.AccountCode], Credit: carried, Memo: asset.Name})
	}
	if gain.IsPositive() {
		lines = append(lines, LineInput{AccountID: resolved[class.DisposalAccount], Credit: gain, Memo: asset.Name})
	}
	return lines
}

// --- internal helpers (callers hold mu) ---

func (s *InMemory) tenantAccountsLocked(tenantID string) map[string]Account {
	out := make(map[string]Account)
	for id, acc := range s.accounts {
		if acc.TenantID == tenantID {
			out[id] = *acc
		}
	}
	return out
}

func (s *InMemory) tenantAccountList(tenantID string) []Account {
	var out []Account
	for _, acc := range s.accounts {
		if acc.TenantID == tenantID {
			out = append(out, *acc)
		}
	}
	return out
}

func (s *InMemory) sortedActiveLocked(tenantID string) []Account {
	accs := s.tenantAccountList(tenantID)
	var out []Account
	for _, acc := range accs {
		if acc.IsActive {
			out = append(out, acc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// activityLocked aggregates posted lines per account in one pass, bounded by
// the optional [from, to] window (to acts as the as-of cutoff).
func (s *InMemory) activityLocked(tenantID string, from, to *time.Time) map[string]Activity {
	activity := make(map[string]Activity)
	for _, id := range s.order {
		e := s.entries[id]
		if e.TenantID != tenantID || e.Status != StatusPosted {
			continue
		}
		if from != nil && e.Date.Before(*from) {
			continue
		}
		if to != nil && e.Date.After(*to) {
			continue
		}
		for _, line := range e.Lines {
			activity[line.AccountID] = activity[line.AccountID].Add(line.Debit, line.Credit)
		}
	}
	return activity
}

func (s *InMemory) balancesLocked(tenantID string, from, to *time.Time) []AccountBalance {
	return BalancesFor(s.sortedActiveLocked(tenantID), s.activityLocked(tenantID, from, to))
}

func serialIf(show bool, v string) string {
	if !show {
		return ""
	}
	return v
}
