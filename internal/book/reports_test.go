package book

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postSimple posts a two-line entry between the named account codes.
func postSimple(t *testing.T, s *InMemory, date time.Time, debitCode, creditCode, amount string) {
	t.Helper()
	ctx := context.Background()
	resolved, err := s.ResolveAccountIDs(ctx, testTenant, []string{debitCode, creditCode})
	require.NoError(t, err)
	_, err = s.CreateJournalEntry(ctx, testTenant, date, "", []LineInput{
		{AccountID: resolved[debitCode], Debit: dec(amount)},
		{AccountID: resolved[creditCode], Credit: dec(amount)},
	})
	require.NoError(t, err)
}

func TestProfitAndLossWindow(t *testing.T) {
	s := newSeededLedger(t)
	ctx := context.Background()

	jan := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	postSimple(t, s, jan, "1010", "4010", "3000") // salary in January
	postSimple(t, s, feb, "6010", "1010", "450")  // groceries in February
	postSimple(t, s, feb, "6110", "1010", "800")  // rent in February
	postSimple(t, s, mar, "1010", "4020", "200")  // other income in March

	pl, err := s.GetProfitAndLoss(ctx, testTenant, jan, feb.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, pl.TotalIncome.Equal(dec("3000")), "March income is outside the window")
	assert.True(t, pl.TotalExpense.Equal(dec("1250")))
	assert.True(t, pl.Net.Equal(dec("1750")))
	assert.Len(t, pl.Income, 1)
	assert.Len(t, pl.Expenses, 2)

	_, err = s.GetProfitAndLoss(ctx, testTenant, feb, jan)
	require.ErrorIs(t, err, ErrValidation)
}

func TestCashFlowNetsPaymentEligibleAccounts(t *testing.T) {
	s := newSeededLedger(t)
	ctx := context.Background()

	jan := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)

	postSimple(t, s, jan, "1010", "4010", "3000") // cash inflow
	postSimple(t, s, jan, "6010", "1010", "450")  // cash outflow
	postSimple(t, s, feb, "6110", "2110", "800")  // credit-card outflow
	postSimple(t, s, feb, "1120", "4020", "200")  // non-cash: receivable vs income

	cf, err := s.GetCashFlow(ctx, testTenant, jan, feb.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, cf.TotalInflow.Equal(dec("3000")))
	assert.True(t, cf.TotalOutflow.Equal(dec("1250")))
	assert.True(t, cf.Net.Equal(dec("1750")))
	for _, row := range cf.Rows {
		assert.NotEqual(t, "1120", row.Code, "non payment-eligible accounts stay out of cash flow")
	}
}

func TestBalanceSheetIdentityHolds(t *testing.T) {
	s := newSeededLedger(t)
	ctx := context.Background()
	date := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	postSimple(t, s, date, "1010", "3010", "10000") // opening balance
	postSimple(t, s, date, "1010", "4010", "3000")
	postSimple(t, s, date, "6110", "1010", "800")
	postSimple(t, s, date, "1120", "4020", "150")
	postSimple(t, s, date, "6020", "2110", "120")

	bs, err := s.GetBalanceSheet(ctx, testTenant, nil)
	require.NoError(t, err)
	assert.True(t, bs.Balanced, "expected identity to hold, warning: %s", bs.Warning)
	assert.Empty(t, bs.Warning)
	assert.True(t, bs.TotalAssets.Equal(bs.TotalLiabilities.Add(bs.TotalEquity)))

	// 10000 + 3000 - 800 + 150 in assets.
	assert.True(t, bs.TotalAssets.Equal(dec("12350")))
	assert.True(t, bs.TotalLiabilities.Equal(dec("120")))
}

func TestBalanceSheetFoldsDepreciationIntoAssets(t *testing.T) {
	s := newSeededLedger(t)
	ctx := context.Background()

	postSimple(t, s, acquiredOn, "1010", "3010", "100000")
	asset := createComputer(t, s)
	_, err := s.DepreciateAsset(ctx, testTenant, asset.ID, dec("10000"), acquiredOn.AddDate(1, 0, 0))
	require.NoError(t, err)

	bs, err := s.GetBalanceSheet(ctx, testTenant, nil)
	require.NoError(t, err)
	assert.True(t, bs.Balanced, "warning: %s", bs.Warning)

	// Cash 50,000 + computers 50,000 - accumulated depreciation 10,000.
	assert.True(t, bs.TotalAssets.Equal(dec("90000")))

	var contra *AccountAmount
	for i := range bs.Assets {
		if bs.Assets[i].Code == "1740" {
			contra = &bs.Assets[i]
		}
	}
	require.NotNil(t, contra)
	assert.True(t, contra.Amount.Equal(dec("-10000")), "contra asset reduces the section")
}

func TestTrialBalanceAsOfIsRepeatable(t *testing.T) {
	s := newSeededLedger(t)
	ctx := context.Background()

	jan := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	postSimple(t, s, jan, "1010", "4010", "1000")
	postSimple(t, s, mar, "6010", "1010", "300")

	cutoff := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	first, err := s.GetTrialBalance(ctx, testTenant, &cutoff)
	require.NoError(t, err)
	second, err := s.GetTrialBalance(ctx, testTenant, &cutoff)
	require.NoError(t, err)
	assert.Equal(t, first, second, "same inputs must yield the same report")

	assert.True(t, first.TotalDebits.Equal(dec("1000")), "March activity is past the cutoff")
	assert.True(t, first.Balanced)
}

func TestBuildBalanceSheetFlagsStructuralImbalance(t *testing.T) {
	// Hand-built corrupt state: an asset balance with no matching credit.
	balances := []AccountBalance{
		{Account: Account{ID: "a1", Code: "1010", Name: "Cash", Type: AccountTypeAsset, IsActive: true}, Balance: dec("500")},
	}
	bs := BuildBalanceSheet(balances, nil)
	assert.False(t, bs.Balanced)
	assert.Contains(t, bs.Warning, "500.00")
}
