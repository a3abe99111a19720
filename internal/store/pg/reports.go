package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"kitabu.org/internal/book"
)

// activityQuery aggregates posted line totals per account in one pass.
// The window bounds are optional; $3 acts as the as-of cutoff.
const activityQuery = `
	select a.id, coalesce(sum(l.debit), 0), coalesce(sum(l.credit), 0)
	from accounts a
	join journal_lines l on l.account_id = a.id
	join journal_entries e on e.id = l.entry_id
	where a.tenant_id = $1
	  and e.status = 'posted'
	  and ($2::date is null or e.entry_date >= $2)
	  and ($3::date is null or e.entry_date <= $3)
	group by a.id`

func activity(ctx context.Context, q querier, tenantID string, from, to *time.Time) (map[string]book.Activity, error) {
	rows, err := q.QueryContext(ctx, activityQuery, tenantID, nullDate(from), nullDate(to))
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	out := make(map[string]book.Activity)
	for rows.Next() {
		var id string
		var debits, credits decimal.Decimal
		if err := rows.Scan(&id, &debits, &credits); err != nil {
			return nil, storeErr(err)
		}
		out[id] = book.Activity{Debits: debits, Credits: credits}
	}
	return out, storeErr(rows.Err())
}

func nullDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// snapshot runs fn inside a read-only repeatable-read transaction so every
// report computes from one consistent view of the ledger.
func (s *Store) snapshot(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return storeErr(err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return storeErr(tx.Commit())
}

func (s *Store) GetAccountBalance(ctx context.Context, tenantID, accountID string, asOf *time.Time) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.snapshot(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `select `+accountColumns+` from accounts where id=$1 and tenant_id=$2`, accountID, tenantID)
		acc, err := scanAccount(row)
		if err == sql.ErrNoRows {
			return book.ErrNotFound
		}
		if err != nil {
			return storeErr(err)
		}

		var debits, credits decimal.Decimal
		err = tx.QueryRowContext(ctx, `
			select coalesce(sum(l.debit), 0), coalesce(sum(l.credit), 0)
			from journal_lines l
			join journal_entries e on e.id = l.entry_id
			where l.account_id = $1
			  and e.status = 'posted'
			  and ($2::date is null or e.entry_date <= $2)
		`, accountID, nullDate(asOf)).Scan(&debits, &credits)
		if err != nil {
			return storeErr(err)
		}
		balance = book.NetBalance(acc, book.Activity{Debits: debits, Credits: credits})
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func (s *Store) GetAllAccountBalances(ctx context.Context, tenantID string, asOf *time.Time) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal)
	err := s.snapshot(ctx, func(tx *sql.Tx) error {
		accounts, err := tenantAccounts(ctx, tx, tenantID)
		if err != nil {
			return err
		}
		act, err := activity(ctx, tx, tenantID, nil, asOf)
		if err != nil {
			return err
		}
		for _, acc := range accounts {
			if !acc.IsActive {
				continue
			}
			out[acc.Code] = book.NetBalance(acc, act[acc.ID])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// balancesSnapshot loads active accounts plus netted balances over the
// window from a single snapshot.
func balancesSnapshot(ctx context.Context, tx *sql.Tx, tenantID string, from, to *time.Time) ([]book.AccountBalance, []book.Account, map[string]book.Activity, error) {
	accounts, err := tenantAccounts(ctx, tx, tenantID)
	if err != nil {
		return nil, nil, nil, err
	}
	act, err := activity(ctx, tx, tenantID, from, to)
	if err != nil {
		return nil, nil, nil, err
	}
	active := sortedActive(accounts)
	return book.BalancesFor(active, act), active, act, nil
}

func (s *Store) GetTrialBalance(ctx context.Context, tenantID string, asOf *time.Time) (book.TrialBalance, error) {
	var tb book.TrialBalance
	err := s.snapshot(ctx, func(tx *sql.Tx) error {
		balances, _, _, err := balancesSnapshot(ctx, tx, tenantID, nil, asOf)
		if err != nil {
			return err
		}
		tb = book.BuildTrialBalance(balances, asOf)
		return nil
	})
	return tb, err
}

func (s *Store) GetProfitAndLoss(ctx context.Context, tenantID string, from, to time.Time) (book.ProfitAndLoss, error) {
	if to.Before(from) {
		return book.ProfitAndLoss{}, fmt.Errorf("%w: report window ends before it starts", book.ErrValidation)
	}
	var pl book.ProfitAndLoss
	err := s.snapshot(ctx, func(tx *sql.Tx) error {
		balances, _, _, err := balancesSnapshot(ctx, tx, tenantID, &from, &to)
		if err != nil {
			return err
		}
		pl = book.BuildProfitAndLoss(balances, from, to)
		return nil
	})
	return pl, err
}

func (s *Store) GetCashFlow(ctx context.Context, tenantID string, from, to time.Time) (book.CashFlow, error) {
	if to.Before(from) {
		return book.CashFlow{}, fmt.Errorf("%w: report window ends before it starts", book.ErrValidation)
	}
	var cf book.CashFlow
	err := s.snapshot(ctx, func(tx *sql.Tx) error {
		_, active, act, err := balancesSnapshot(ctx, tx, tenantID, &from, &to)
		if err != nil {
			return err
		}
		cf = book.BuildCashFlow(active, act, from, to)
		return nil
	})
	return cf, err
}

func (s *Store) GetBalanceSheet(ctx context.Context, tenantID string, asOf *time.Time) (book.BalanceSheet, error) {
	var bs book.BalanceSheet
	err := s.snapshot(ctx, func(tx *sql.Tx) error {
		balances, _, _, err := balancesSnapshot(ctx, tx, tenantID, nil, asOf)
		if err != nil {
			return err
		}
		bs = book.BuildBalanceSheet(balances, asOf)
		return nil
	})
	return bs, err
}
