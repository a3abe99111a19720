package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"kitabu.org/internal/book"
)

const testTenant = "tenant-1"

var accountHeader = []string{
	"id", "tenant_id", "code", "name", "type", "subtype",
	"is_contra", "is_payment_eligible", "is_system", "is_active", "balance", "created_at",
}

func accountRows(accounts ...book.Account) *sqlmock.Rows {
	rows := sqlmock.NewRows(accountHeader)
	for _, a := range accounts {
		rows.AddRow(a.ID, a.TenantID, a.Code, a.Name, string(a.Type), a.Subtype,
			a.IsContra, a.IsPaymentEligible, a.IsSystem, a.IsActive, a.Balance.String(), a.CreatedAt)
	}
	return rows
}

func testAccount(id, code, name string, typ book.AccountType) book.Account {
	return book.Account{
		ID: id, TenantID: testTenant, Code: code, Name: name, Type: typ,
		IsActive: true, Balance: decimal.Zero, CreatedAt: time.Now().UTC(),
	}
}

func TestSeedChartOfAccountsIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	for range book.DefaultChart(book.TenantFamily) {
		mock.ExpectExec("insert into accounts").
			WithArgs(sqlmock.AnyArg(), testTenant, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	store := NewWithDB(db)
	if err := store.SeedChartOfAccounts(context.Background(), testTenant, book.TenantFamily); err != nil {
		t.Fatalf("SeedChartOfAccounts: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSeedChartRequiresTenant(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	store := NewWithDB(db)
	if err := store.SeedChartOfAccounts(context.Background(), "  ", book.TenantFamily); !errors.Is(err, book.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateJournalEntryPostsBalanced(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	cash := testAccount("acc-cash", "1010", "Cash", book.AccountTypeAsset)
	income := testAccount("acc-inc", "4010", "Salary", book.AccountTypeIncome)

	mock.ExpectBegin()
	mock.ExpectQuery("select id, tenant_id, code").WithArgs(testTenant).
		WillReturnRows(accountRows(cash, income))
	mock.ExpectQuery("insert into journal_entries").
		WillReturnRows(sqlmock.NewRows([]string{"sequence"}).AddRow(1))
	mock.ExpectExec("insert into journal_lines").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("update accounts set balance").
		WithArgs(cash.ID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into journal_lines").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("update accounts set balance").
		WithArgs(income.ID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := NewWithDB(db)
	entry, err := store.CreateJournalEntry(context.Background(), testTenant,
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), "payday", []book.LineInput{
			{AccountID: cash.ID, Debit: decimal.RequireFromString("3000")},
			{AccountID: income.ID, Credit: decimal.RequireFromString("3000")},
		})
	if err != nil {
		t.Fatalf("CreateJournalEntry: %v", err)
	}
	if entry.Sequence != 1 {
		t.Fatalf("unexpected sequence: %d", entry.Sequence)
	}
	if len(entry.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(entry.Lines))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateJournalEntryRejectsUnbalanced(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	cash := testAccount("acc-cash", "1010", "Cash", book.AccountTypeAsset)
	income := testAccount("acc-inc", "4010", "Salary", book.AccountTypeIncome)

	mock.ExpectBegin()
	mock.ExpectQuery("select id, tenant_id, code").WithArgs(testTenant).
		WillReturnRows(accountRows(cash, income))
	mock.ExpectRollback()

	store := NewWithDB(db)
	_, err = store.CreateJournalEntry(context.Background(), testTenant,
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), "bad", []book.LineInput{
			{AccountID: cash.ID, Debit: decimal.RequireFromString("100")},
			{AccountID: income.ID, Credit: decimal.RequireFromString("99")},
		})
	if !errors.Is(err, book.ErrUnbalanced) {
		t.Fatalf("expected unbalanced error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVoidJournalEntryAlreadyVoided(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	when := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("select id, tenant_id, entry_date, status from journal_entries").
		WithArgs("entry-1", testTenant).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "entry_date", "status"}).
			AddRow("entry-1", testTenant, when, "voided"))
	mock.ExpectRollback()

	store := NewWithDB(db)
	if _, err := store.VoidJournalEntry(context.Background(), testTenant, "entry-1"); !errors.Is(err, book.ErrAlreadyVoided) {
		t.Fatalf("expected already-voided error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVoidJournalEntryNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("select id, tenant_id, entry_date, status from journal_entries").
		WithArgs("missing", testTenant).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "entry_date", "status"}))
	mock.ExpectRollback()

	store := NewWithDB(db)
	if _, err := store.VoidJournalEntry(context.Background(), testTenant, "missing"); !errors.Is(err, book.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetAllAccountBalancesNetsNaturalSide(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	cash := testAccount("acc-cash", "1010", "Cash", book.AccountTypeAsset)
	income := testAccount("acc-inc", "4010", "Salary", book.AccountTypeIncome)

	mock.ExpectBegin()
	mock.ExpectQuery("select id, tenant_id, code").WithArgs(testTenant).
		WillReturnRows(accountRows(cash, income))
	mock.ExpectQuery("select a.id, coalesce").
		WithArgs(testTenant, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "debits", "credits"}).
			AddRow(cash.ID, "3000", "1250").
			AddRow(income.ID, "0", "3000"))
	mock.ExpectCommit()

	store := NewWithDB(db)
	balances, err := store.GetAllAccountBalances(context.Background(), testTenant, nil)
	if err != nil {
		t.Fatalf("GetAllAccountBalances: %v", err)
	}
	if got := balances["1010"]; !got.Equal(decimal.RequireFromString("1750")) {
		t.Fatalf("cash balance = %s, want 1750", got)
	}
	if got := balances["4010"]; !got.Equal(decimal.RequireFromString("3000")) {
		t.Fatalf("income balance = %s, want 3000", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResolveAccountIDsMissingCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select id from accounts").WithArgs(testTenant, "9999").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	store := NewWithDB(db)
	if _, err := store.ResolveAccountIDs(context.Background(), testTenant, []string{"9999"}); !errors.Is(err, book.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStoreErrWrapsPersistence(t *testing.T) {
	if storeErr(nil) != nil {
		t.Fatal("nil should stay nil")
	}
	err := storeErr(errors.New("connection reset"))
	if !errors.Is(err, book.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}
