package book

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// balanceTolerance bounds acceptable rounding drift in the balance-sheet
// identity. Posting arithmetic is exact decimal, so any drift beyond this
// indicates corrupted history.
var balanceTolerance = decimal.RequireFromString("0.01")

// BuildTrialBalance places every account's balance on its natural side and
// re-asserts the posting invariant: the debit column must sum to the credit
// column.
func BuildTrialBalance(balances []AccountBalance, asOf *time.Time) TrialBalance {
	tb := TrialBalance{AsOf: asOf, TotalDebits: decimal.Zero, TotalCredits: decimal.Zero}
	for _, b := range balances {
		if b.Balance.IsZero() {
			continue
		}
		row := TrialBalanceRow{
			AccountID: b.Account.ID,
			Code:      b.Account.Code,
			Name:      b.Account.Name,
			Type:      b.Account.Type,
			Debit:     decimal.Zero,
			Credit:    decimal.Zero,
		}
		debitSide := DebitNatural(b.Account.Type) != b.Account.IsContra
		amount := b.Balance
		if amount.IsNegative() {
			// A negative natural balance belongs on the opposite column.
			debitSide = !debitSide
			amount = amount.Neg()
		}
		if debitSide {
			row.Debit = amount
			tb.TotalDebits = tb.TotalDebits.Add(amount)
		} else {
			row.Credit = amount
			tb.TotalCredits = tb.TotalCredits.Add(amount)
		}
		tb.Rows = append(tb.Rows, row)
	}
	tb.Balanced = tb.TotalDebits.Equal(tb.TotalCredits)
	return tb
}

// BuildProfitAndLoss sums income and expense balances computed over the
// report window.
func BuildProfitAndLoss(balances []AccountBalance, from, to time.Time) ProfitAndLoss {
	pl := ProfitAndLoss{
		From:         from,
		To:           to,
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	for _, b := range balances {
		switch b.Account.Type {
		case AccountTypeIncome:
			if b.Balance.IsZero() {
				continue
			}
			pl.Income = append(pl.Income, accountAmount(b, b.Balance))
			pl.TotalIncome = pl.TotalIncome.Add(b.Balance)
		case AccountTypeExpense:
			if b.Balance.IsZero() {
				continue
			}
			pl.Expenses = append(pl.Expenses, accountAmount(b, b.Balance))
			pl.TotalExpense = pl.TotalExpense.Add(b.Balance)
		}
	}
	pl.Net = pl.TotalIncome.Sub(pl.TotalExpense)
	return pl
}

// BuildCashFlow nets movement through payment-eligible accounts over the
// window: debits are inflows, credits outflows, per the direct method.
func BuildCashFlow(accounts []Account, activity map[string]Activity, from, to time.Time) CashFlow {
	cf := CashFlow{
		From:         from,
		To:           to,
		TotalInflow:  decimal.Zero,
		TotalOutflow: decimal.Zero,
	}
	for _, acc := range accounts {
		if !acc.IsPaymentEligible {
			continue
		}
		act := activity[acc.ID]
		if act.Debits.IsZero() && act.Credits.IsZero() {
			continue
		}
		cf.Rows = append(cf.Rows, CashFlowRow{
			AccountID: acc.ID,
			Code:      acc.Code,
			Name:      acc.Name,
			Inflow:    act.Debits,
			Outflow:   act.Credits,
		})
		cf.TotalInflow = cf.TotalInflow.Add(act.Debits)
		cf.TotalOutflow = cf.TotalOutflow.Add(act.Credits)
	}
	cf.Net = cf.TotalInflow.Sub(cf.TotalOutflow)
	return cf
}

// BuildBalanceSheet groups balances into the accounting identity. Contra
// accounts reduce their section; income minus expense to date is folded into
// equity as current-period earnings so the identity holds without closing
// entries.
func BuildBalanceSheet(balances []AccountBalance, asOf *time.Time) BalanceSheet {
	bs := BalanceSheet{
		AsOf:             asOf,
		TotalAssets:      decimal.Zero,
		TotalLiabilities: decimal.Zero,
		TotalEquity:      decimal.Zero,
	}
	earnings := decimal.Zero
	for _, b := range balances {
		amount := b.Balance
		if b.Account.IsContra {
			amount = amount.Neg()
		}
		switch b.Account.Type {
		case AccountTypeAsset:
			if !amount.IsZero() {
				bs.Assets = append(bs.Assets, accountAmount(b, amount))
			}
			bs.TotalAssets = bs.TotalAssets.Add(amount)
		case AccountTypeLiability:
			if !amount.IsZero() {
				bs.Liabilities = append(bs.Liabilities, accountAmount(b, amount))
			}
			bs.TotalLiabilities = bs.TotalLiabilities.Add(amount)
		case AccountTypeEquity:
			if !amount.IsZero() {
				bs.Equity = append(bs.Equity, accountAmount(b, amount))
			}
			bs.TotalEquity = bs.TotalEquity.Add(amount)
		case AccountTypeIncome:
			earnings = earnings.Add(amount)
		case AccountTypeExpense:
			earnings = earnings.Sub(amount)
		}
	}
	if !earnings.IsZero() {
		bs.Equity = append(bs.Equity, AccountAmount{Name: "Current Period Earnings", Amount: earnings})
	}
	bs.TotalEquity = bs.TotalEquity.Add(earnings)

	diff := bs.TotalAssets.Sub(bs.TotalLiabilities.Add(bs.TotalEquity))
	bs.Balanced = diff.Abs().LessThanOrEqual(balanceTolerance)
	if !bs.Balanced {
		bs.Warning = fmt.Sprintf("%v: off by %s", ErrStructuralImbalance, diff.StringFixed(2))
	}
	return bs
}

func accountAmount(b AccountBalance, amount decimal.Decimal) AccountAmount {
	return AccountAmount{
		AccountID: b.Account.ID,
		Code:      b.Account.Code,
		Name:      b.Account.Name,
		Amount:    amount,
	}
}
