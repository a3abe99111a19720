package pg

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"kitabu.org/internal/book"
	"kitabu.org/internal/ids"
)

// Store implements book.Service on Postgres. Writers run in serializable
// transactions so an entry and its lines commit as one atomic unit; readers
// take a single repeatable-read snapshot per report.
type Store struct {
	db *sql.DB
}

var _ book.Service = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection pool. Used by tests.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// --- seeding ---

func (s *Store) SeedChartOfAccounts(ctx context.Context, tenantID string, kind book.TenantKind) error {
	if strings.TrimSpace(tenantID) == "" {
		return fmt.Errorf("%w: tenant id is required", book.ErrValidation)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, seed := range book.DefaultChart(kind) {
		if _, err := tx.ExecContext(ctx, `
			insert into accounts(id, tenant_id, code, name, type, subtype, is_contra, is_payment_eligible, is_system, is_active)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9,true)
			on conflict (tenant_id, code) do nothing
		`, ids.New(), tenantID, seed.Code, seed.Name, string(seed.Type), seed.Subtype,
			seed.IsContra, seed.IsPaymentEligible, seed.IsSystem); err != nil {
			return storeErr(err)
		}
	}
	return storeErr(tx.Commit())
}

func (s *Store) SeedCategories(ctx context.Context, tenantID string, kind book.TenantKind) error {
	if strings.TrimSpace(tenantID) == "" {
		return fmt.Errorf("%w: tenant id is required", book.ErrValidation)
	}
	for _, name := range book.DefaultCategories(kind) {
		if _, err := s.db.ExecContext(ctx, `
			insert into categories(id, tenant_id, name)
			values ($1,$2,$3)
			on conflict (tenant_id, name) do nothing
		`, ids.New(), tenantID, name); err != nil {
			return storeErr(err)
		}
	}
	return nil
}

func (s *Store) SeedPaymentMethods(ctx context.Context, tenantID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return fmt.Errorf("%w: tenant id is required", book.ErrValidation)
	}
	for _, name := range book.DefaultPaymentMethods() {
		if _, err := s.db.ExecContext(ctx, `
			insert into payment_methods(id, tenant_id, name)
			values ($1,$2,$3)
			on conflict (tenant_id, name) do nothing
		`, ids.New(), tenantID, name); err != nil {
			return storeErr(err)
		}
	}
	return nil
}

// --- lookup ---

const accountColumns = `id, tenant_id, code, name, type, subtype, is_contra, is_payment_eligible, is_system, is_active, balance, created_at`

func scanAccount(row interface{ Scan(...any) error }) (book.Account, error) {
	var acc book.Account
	var typ string
	err := row.Scan(&acc.ID, &acc.TenantID, &acc.Code, &acc.Name, &typ, &acc.Subtype,
		&acc.IsContra, &acc.IsPaymentEligible, &acc.IsSystem, &acc.IsActive, &acc.Balance, &acc.CreatedAt)
	if err != nil {
		return book.Account{}, err
	}
	acc.Type = book.AccountType(typ)
	return acc, nil
}

func (s *Store) ListAccounts(ctx context.Context, tenantID string) ([]book.Account, error) {
	return listAccounts(ctx, s.db, tenantID)
}

func listAccounts(ctx context.Context, q querier, tenantID string) ([]book.Account, error) {
	rows, err := q.QueryContext(ctx, `select `+accountColumns+` from accounts where tenant_id=$1 order by code`, tenantID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var out []book.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, storeErr(err)
		}
		out = append(out, acc)
	}
	return out, storeErr(rows.Err())
}

func (s *Store) GetAccountMapping(ctx context.Context, tenantID, hint string) (book.Account, error) {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return book.Account{}, fmt.Errorf("%w: hint is required", book.ErrValidation)
	}
	accounts, err := listAccounts(ctx, s.db, tenantID)
	if err != nil {
		return book.Account{}, err
	}
	lower := strings.ToLower(hint)
	for _, acc := range accounts {
		if strings.EqualFold(acc.Subtype, hint) {
			return acc, nil
		}
	}
	for _, acc := range accounts {
		if acc.Code == hint {
			return acc, nil
		}
	}
	for _, acc := range accounts {
		if strings.EqualFold(acc.Name, hint) {
			return acc, nil
		}
	}
	for _, acc := range accounts {
		if strings.Contains(strings.ToLower(acc.Name), lower) {
			return acc, nil
		}
	}
	return book.Account{}, fmt.Errorf("%w: no account matches %q", book.ErrNotFound, hint)
}

func (s *Store) ResolveAccountIDs(ctx context.Context, tenantID string, codes []string) (map[string]string, error) {
	return resolveCodes(ctx, s.db, tenantID, codes)
}

func resolveCodes(ctx context.Context, q querier, tenantID string, codes []string) (map[string]string, error) {
	out := make(map[string]string, len(codes))
	for _, code := range codes {
		var id string
		err := q.QueryRowContext(ctx, `select id from accounts where tenant_id=$1 and code=$2`, tenantID, code).Scan(&id)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: account code %q", book.ErrNotFound, code)
		}
		if err != nil {
			return nil, storeErr(err)
		}
		out[code] = id
	}
	return out, nil
}

// tenantAccounts loads the tenant's full chart keyed by account id, for
// validation and natural-side netting inside a transaction.
func tenantAccounts(ctx context.Context, q querier, tenantID string) (map[string]book.Account, error) {
	accounts, err := listAccounts(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]book.Account, len(accounts))
	for _, acc := range accounts {
		out[acc.ID] = acc
	}
	return out, nil
}

func sortedActive(accounts map[string]book.Account) []book.Account {
	out := make([]book.Account, 0, len(accounts))
	for _, acc := range accounts {
		if acc.IsActive {
			out = append(out, acc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// storeErr wraps storage failures so callers can distinguish them from
// domain errors and consider a retry.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", book.ErrPersistence, err)
}
