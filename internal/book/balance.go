package book

import "github.com/shopspring/decimal"

// Activity is the raw debit/credit totals posted against one account.
type Activity struct {
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

// Add folds one line's amounts into the running totals.
func (a Activity) Add(debit, credit decimal.Decimal) Activity {
	return Activity{Debits: a.Debits.Add(debit), Credits: a.Credits.Add(credit)}
}

// DebitNatural reports whether the account type's balance grows with debits.
func DebitNatural(t AccountType) bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// NetBalance nets raw activity onto the account's natural side.
// ASSET/EXPENSE accounts increase with debits; LIABILITY/EQUITY/INCOME with
// credits. A contra account's net is inverted relative to its type.
func NetBalance(acc Account, act Activity) decimal.Decimal {
	var net decimal.Decimal
	if DebitNatural(acc.Type) {
		net = act.Debits.Sub(act.Credits)
	} else {
		net = act.Credits.Sub(act.Debits)
	}
	if acc.IsContra {
		net = net.Neg()
	}
	return net
}

// AccountBalance pairs an account with its derived balance.
type AccountBalance struct {
	Account Account
	Balance decimal.Decimal
}

// BalancesFor nets activity for every account in one pass. Accounts with no
// activity get a zero balance rather than being skipped.
func BalancesFor(accounts []Account, activity map[string]Activity) []AccountBalance {
	out := make([]AccountBalance, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, AccountBalance{Account: acc, Balance: NetBalance(acc, activity[acc.ID])})
	}
	return out
}
