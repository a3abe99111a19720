package book

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ValidateLines enforces the posting invariants on a prospective entry:
// at least one line, every line references an account the tenant owns,
// exactly one of debit/credit is nonzero per line, amounts carry at most
// two decimal places, and total debits equal total credits exactly.
// It never coerces or drops a line to force balance.
func ValidateLines(lines []LineInput, accounts map[string]Account) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: entry has no lines", ErrValidation)
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for i, line := range lines {
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return &MalformedLineError{Index: i, Reason: "amounts must not be negative"}
		}
		hasDebit := !line.Debit.IsZero()
		hasCredit := !line.Credit.IsZero()
		if hasDebit == hasCredit {
			return &MalformedLineError{Index: i, Reason: "exactly one of debit or credit must be nonzero"}
		}
		if !fitsCents(line.Debit) || !fitsCents(line.Credit) {
			return &MalformedLineError{Index: i, Reason: "amount has more than 2 decimal places"}
		}
		acc, ok := accounts[line.AccountID]
		if !ok || !acc.IsActive {
			return &MalformedLineError{Index: i, Reason: fmt.Sprintf("unknown account %q", line.AccountID)}
		}
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}

	if !totalDebit.Equal(totalCredit) {
		return &UnbalancedError{Debits: totalDebit, Credits: totalCredit}
	}
	return nil
}

func fitsCents(d decimal.Decimal) bool {
	scaled := d.Mul(hundred)
	return scaled.Equal(scaled.Floor())
}
