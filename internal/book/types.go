package book

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether t is one of the five account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// TenantKind selects which default chart of accounts a tenant is seeded with.
type TenantKind string

const (
	TenantFamily   TenantKind = "family"
	TenantBusiness TenantKind = "business"
)

// Account is one row of a tenant's chart of accounts.
// Code is unique per tenant; Type is immutable after creation.
// Balance is a cached projection over journal lines, never the source of truth.
type Account struct {
	ID                string          `json:"id"`
	TenantID          string          `json:"tenant_id"`
	Code              string          `json:"code"`
	Name              string          `json:"name"`
	Type              AccountType     `json:"type"`
	Subtype           string          `json:"subtype,omitempty"`
	IsContra          bool            `json:"is_contra"`
	IsPaymentEligible bool            `json:"is_payment_eligible"`
	IsSystem          bool            `json:"is_system"`
	IsActive          bool            `json:"is_active"`
	Balance           decimal.Decimal `json:"balance"`
	CreatedAt         time.Time       `json:"created_at"`
}

// EntryStatus is the lifecycle state of a journal entry.
type EntryStatus string

const (
	// StatusPosted entries are the only ones that contribute to balances.
	StatusPosted EntryStatus = "posted"
	// StatusVoided marks an entry cancelled by a reversal. It stays on file.
	StatusVoided EntryStatus = "voided"
	// StatusReversal tags the mirror-image entry created by a void.
	StatusReversal EntryStatus = "reversal"
)

// JournalEntry is a balanced set of journal lines posted on a single date.
type JournalEntry struct {
	ID         string        `json:"id"`
	TenantID   string        `json:"tenant_id"`
	Sequence   uint64        `json:"sequence"`
	Date       time.Time     `json:"date"`
	Reference  string        `json:"reference,omitempty"`
	Status     EntryStatus   `json:"status"`
	ReversalOf string        `json:"reversal_of,omitempty"`
	Lines      []JournalLine `json:"lines"`
	CreatedAt  time.Time     `json:"created_at"`
	VoidedAt   *time.Time    `json:"voided_at,omitempty"`
}

// JournalLine is one side of a double entry. Exactly one of Debit/Credit
// is nonzero.
type JournalLine struct {
	ID        string          `json:"id"`
	EntryID   string          `json:"entry_id"`
	AccountID string          `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Memo      string          `json:"memo,omitempty"`
}

// LineInput is the caller-supplied shape of a journal line.
type LineInput struct {
	AccountID string          `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Memo      string          `json:"memo,omitempty"`
}

// Category is a spending/earning label seeded per tenant for CRUD screens.
type Category struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
}

// PaymentMethod is a settlement instrument label seeded per tenant.
type PaymentMethod struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
}

// FixedAsset tracks one asset through acquisition, depreciation and disposal.
type FixedAsset struct {
	ID          string             `json:"id"`
	TenantID    string             `json:"tenant_id"`
	AccountID   string             `json:"account_id"`
	AccountCode string             `json:"account_code"`
	Name        string             `json:"name"`
	Serial      string             `json:"serial,omitempty"`
	Warranty    string             `json:"warranty,omitempty"`
	Method      DepreciationMethod `json:"method"`
	Cost        decimal.Decimal    `json:"cost"`
	// AccumulatedDepreciation never exceeds Cost. Zero for MARKET assets.
	AccumulatedDepreciation decimal.Decimal `json:"accumulated_depreciation"`
	// FairValue is the current mark for MARKET assets, nil otherwise.
	FairValue        *decimal.Decimal `json:"fair_value,omitempty"`
	AcquiredOn       time.Time        `json:"acquired_on"`
	DisposedOn       *time.Time       `json:"disposed_on,omitempty"`
	DisposalProceeds *decimal.Decimal `json:"disposal_proceeds,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

// Disposed reports whether the asset reached its terminal state.
func (a FixedAsset) Disposed() bool { return a.DisposedOn != nil }

// BookValue is acquisition cost minus accumulated depreciation; for MARKET
// assets it is the latest fair value.
func (a FixedAsset) BookValue() decimal.Decimal {
	if a.Method == DepreciationMarket && a.FairValue != nil {
		return *a.FairValue
	}
	return a.Cost.Sub(a.AccumulatedDepreciation)
}

// FixedAssetParams holds caller input for CreateFixedAsset.
type FixedAssetParams struct {
	AccountCode string          `json:"account_code"`
	Name        string          `json:"name"`
	Cost        decimal.Decimal `json:"cost"`
	AcquiredOn  time.Time       `json:"acquired_on"`
	Serial      string          `json:"serial,omitempty"`
	Warranty    string          `json:"warranty,omitempty"`
	// PaymentAccountCode is credited for the acquisition. Defaults to the
	// tenant's primary cash account.
	PaymentAccountCode string `json:"payment_account_code,omitempty"`
}

// TrialBalanceRow reports one account's balance on its natural side.
type TrialBalanceRow struct {
	AccountID   string          `json:"account_id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Type        AccountType     `json:"type"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// TrialBalance lists every account with activity on its natural side.
// Balanced re-asserts the posting invariant: total debits == total credits.
type TrialBalance struct {
	AsOf         *time.Time        `json:"as_of,omitempty"`
	Rows         []TrialBalanceRow `json:"rows"`
	TotalDebits  decimal.Decimal   `json:"total_debits"`
	TotalCredits decimal.Decimal   `json:"total_credits"`
	Balanced     bool              `json:"balanced"`
}

// AccountAmount is an account with its net amount inside a report section.
type AccountAmount struct {
	AccountID string          `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
}

// ProfitAndLoss sums income and expense activity over a date window.
type ProfitAndLoss struct {
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	Income       []AccountAmount `json:"income"`
	Expenses     []AccountAmount `json:"expenses"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Net          decimal.Decimal `json:"net"`
}

// CashFlowRow is the movement through one payment-eligible account.
type CashFlowRow struct {
	AccountID string          `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Inflow    decimal.Decimal `json:"inflow"`
	Outflow   decimal.Decimal `json:"outflow"`
}

// CashFlow is a direct-method cash flow over payment-eligible accounts.
type CashFlow struct {
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	Rows         []CashFlowRow   `json:"rows"`
	TotalInflow  decimal.Decimal `json:"total_inflow"`
	TotalOutflow decimal.Decimal `json:"total_outflow"`
	Net          decimal.Decimal `json:"net"`
}

// BalanceSheet groups balances by ASSET / LIABILITY / EQUITY.
// Current-period earnings are folded into the equity section so the
// accounting identity holds without closing entries. A false Balanced plus a
// Warning signals corrupted posting history, never a silent pass.
type BalanceSheet struct {
	AsOf             *time.Time      `json:"as_of,omitempty"`
	Assets           []AccountAmount `json:"assets"`
	Liabilities      []AccountAmount `json:"liabilities"`
	Equity           []AccountAmount `json:"equity"`
	TotalAssets      decimal.Decimal `json:"total_assets"`
	TotalLiabilities decimal.Decimal `json:"total_liabilities"`
	TotalEquity      decimal.Decimal `json:"total_equity"`
	Balanced         bool            `json:"balanced"`
	Warning          string          `json:"warning,omitempty"`
}
