package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"kitabu.org/internal/book"
	"kitabu.org/internal/ids"
)

func (s *Store) CreateJournalEntry(ctx context.Context, tenantID string, date time.Time, reference string, lines []book.LineInput) (book.JournalEntry, error) {
	if date.IsZero() {
		return book.JournalEntry{}, fmt.Errorf("%w: posting date is required", book.ErrValidation)
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return book.JournalEntry{}, storeErr(err)
	}
	defer func() { _ = tx.Rollback() }()

	entry, err := postEntry(ctx, tx, tenantID, date, reference, lines, book.StatusPosted, "")
	if err != nil {
		return book.JournalEntry{}, err
	}
	if err := tx.Commit(); err != nil {
		return book.JournalEntry{}, storeErr(err)
	}
	return entry, nil
}

func (s *Store) VoidJournalEntry(ctx context.Context, tenantID, entryID string) (book.JournalEntry, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return book.JournalEntry{}, storeErr(err)
	}
	defer func() { _ = tx.Rollback() }()

	var orig book.JournalEntry
	var status string
	err = tx.QueryRowContext(ctx, `
		select id, tenant_id, entry_date, status from journal_entries
		where id=$1 and tenant_id=$2
		for update
	`, entryID, tenantID).Scan(&orig.ID, &orig.TenantID, &orig.Date, &status)
	if err == sql.ErrNoRows {
		return book.JournalEntry{}, book.ErrNotFound
	}
	if err != nil {
		return book.JournalEntry{}, storeErr(err)
	}
	switch book.EntryStatus(status) {
	case book.StatusVoided:
		return book.JournalEntry{}, book.ErrAlreadyVoided
	case book.StatusReversal:
		return book.JournalEntry{}, fmt.Errorf("%w: reversal entries cannot be voided", book.ErrValidation)
	}

	origLines, err := entryLines(ctx, tx, orig.ID)
	if err != nil {
		return book.JournalEntry{}, err
	}
	mirror := make([]book.LineInput, len(origLines))
	for i, line := range origLines {
		mirror[i] = book.LineInput{AccountID: line.AccountID, Debit: line.Credit, Credit: line.Debit, Memo: line.Memo}
	}

	rev, err := postEntry(ctx, tx, tenantID, orig.Date, "reversal of "+orig.ID, mirror, book.StatusReversal, orig.ID)
	if err != nil {
		return book.JournalEntry{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		update journal_entries set status=$2, voided_at=now() where id=$1
	`, orig.ID, string(book.StatusVoided)); err != nil {
		return book.JournalEntry{}, storeErr(err)
	}

	// Remove the original's contribution from the cached balance projection;
	// neither the voided original nor its reversal counts from here on.
	accounts, err := tenantAccounts(ctx, tx, tenantID)
	if err != nil {
		return book.JournalEntry{}, err
	}
	for _, line := range origLines {
		acc, ok := accounts[line.AccountID]
		if !ok {
			continue
		}
		delta := book.NetBalance(acc, book.Activity{Debits: line.Debit, Credits: line.Credit})
		if _, err := tx.ExecContext(ctx, `update accounts set balance = balance - $2 where id=$1`, acc.ID, delta); err != nil {
			return book.JournalEntry{}, storeErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return book.JournalEntry{}, storeErr(err)
	}
	return rev, nil
}

// postEntry validates and writes one entry with its lines inside the
// caller's transaction. The cached account balances move only for posted
// entries.
func postEntry(ctx context.Context, tx *sql.Tx, tenantID string, date time.Time, reference string, lines []book.LineInput, status book.EntryStatus, reversalOf string) (book.JournalEntry, error) {
	accounts, err := tenantAccounts(ctx, tx, tenantID)
	if err != nil {
		return book.JournalEntry{}, err
	}
	if err := book.ValidateLines(lines, accounts); err != nil {
		return book.JournalEntry{}, err
	}

	entry := book.JournalEntry{
		ID:         ids.New(),
		TenantID:   tenantID,
		Date:       date,
		Reference:  reference,
		Status:     status,
		ReversalOf: reversalOf,
		CreatedAt:  time.Now().UTC(),
	}
	err = tx.QueryRowContext(ctx, `
		insert into journal_entries(id, tenant_id, entry_date, reference, status, reversal_of)
		values ($1,$2,$3,$4,$5,nullif($6,''))
		returning sequence
	`, entry.ID, tenantID, date, reference, string(status), reversalOf).Scan(&entry.Sequence)
	if err != nil {
		return book.JournalEntry{}, storeErr(err)
	}

	for i, in := range lines {
		line := book.JournalLine{
			ID:        ids.New(),
			EntryID:   entry.ID,
			AccountID: in.AccountID,
			Debit:     in.Debit,
			Credit:    in.Credit,
			Memo:      in.Memo,
		}
		if _, err := tx.ExecContext(ctx, `
			insert into journal_lines(id, entry_id, tenant_id, account_id, position, debit, credit, memo)
			values ($1,$2,$3,$4,$5,$6,$7,$8)
		`, line.ID, line.EntryID, tenantID, line.AccountID, i, line.Debit, line.Credit, line.Memo); err != nil {
			return book.JournalEntry{}, storeErr(err)
		}
		entry.Lines = append(entry.Lines, line)

		if status == book.StatusPosted {
			delta := book.NetBalance(accounts[in.AccountID], book.Activity{Debits: in.Debit, Credits: in.Credit})
			if _, err := tx.ExecContext(ctx, `update accounts set balance = balance + $2 where id=$1`, in.AccountID, delta); err != nil {
				return book.JournalEntry{}, storeErr(err)
			}
		}
	}
	return entry, nil
}

func entryLines(ctx context.Context, q querier, entryID string) ([]book.JournalLine, error) {
	rows, err := q.QueryContext(ctx, `
		select id, entry_id, account_id, debit, credit, memo
		from journal_lines where entry_id=$1 order by position
	`, entryID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var out []book.JournalLine
	for rows.Next() {
		var line book.JournalLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.Debit, &line.Credit, &line.Memo); err != nil {
			return nil, storeErr(err)
		}
		out = append(out, line)
	}
	return out, storeErr(rows.Err())
}

func (s *Store) ListJournalEntries(ctx context.Context, tenantID string, limit int, afterSeq uint64) ([]book.JournalEntry, uint64, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, tenant_id, sequence, entry_date, reference, status, coalesce(reversal_of,''), created_at, voided_at
		from journal_entries
		where tenant_id=$1 and sequence > $2
		order by sequence asc
		limit $3
	`, tenantID, afterSeq, limit)
	if err != nil {
		return nil, 0, storeErr(err)
	}
	defer rows.Close()

	var res []book.JournalEntry
	var last uint64
	for rows.Next() {
		var e book.JournalEntry
		var status string
		var voidedAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Sequence, &e.Date, &e.Reference, &status, &e.ReversalOf, &e.CreatedAt, &voidedAt); err != nil {
			return nil, 0, storeErr(err)
		}
		e.Status = book.EntryStatus(status)
		if voidedAt.Valid {
			t := voidedAt.Time
			e.VoidedAt = &t
		}
		res = append(res, e)
		last = e.Sequence
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storeErr(err)
	}
	for i := range res {
		lines, err := entryLines(ctx, s.db, res[i].ID)
		if err != nil {
			return nil, 0, err
		}
		res[i].Lines = lines
	}
	return res, last, nil
}
