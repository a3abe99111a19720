package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"kitabu.org/internal/book"
	"kitabu.org/internal/ids"
)

const assetColumns = `id, tenant_id, account_id, account_code, name, serial, warranty, method, cost, accumulated_depreciation, fair_value, acquired_on, disposed_on, disposal_proceeds, created_at`

func scanAsset(row interface{ Scan(...any) error }) (book.FixedAsset, error) {
	var a book.FixedAsset
	var method string
	var fairValue decimal.NullDecimal
	var disposedOn sql.NullTime
	var proceeds decimal.NullDecimal
	err := row.Scan(&a.ID, &a.TenantID, &a.AccountID, &a.AccountCode, &a.Name, &a.Serial, &a.Warranty,
		&method, &a.Cost, &a.AccumulatedDepreciation, &fairValue, &a.AcquiredOn, &disposedOn, &proceeds, &a.CreatedAt)
	if err != nil {
		return book.FixedAsset{}, err
	}
	a.Method = book.DepreciationMethod(method)
	if fairValue.Valid {
		fv := fairValue.Decimal
		a.FairValue = &fv
	}
	if disposedOn.Valid {
		t := disposedOn.Time
		a.DisposedOn = &t
	}
	if proceeds.Valid {
		p := proceeds.Decimal
		a.DisposalProceeds = &p
	}
	return a, nil
}

// lockAsset reads the asset row for update so depreciation and disposal
// serialize per asset.
func lockAsset(ctx context.Context, tx *sql.Tx, tenantID, assetID string) (book.FixedAsset, error) {
	row := tx.QueryRowContext(ctx, `select `+assetColumns+` from fixed_assets where id=$1 and tenant_id=$2 for update`, assetID, tenantID)
	asset, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return book.FixedAsset{}, book.ErrNotFound
	}
	if err != nil {
		return book.FixedAsset{}, storeErr(err)
	}
	return asset, nil
}

func (s *Store) CreateFixedAsset(ctx context.Context, tenantID string, params book.FixedAssetParams) (book.FixedAsset, error) {
	class, err := book.LookupAssetClass(params.AccountCode)
	if err != nil {
		return book.FixedAsset{}, err
	}
	if !params.Cost.IsPositive() {
		return book.FixedAsset{}, fmt.Errorf("%w: cost must be positive", book.ErrValidation)
	}
	if params.AcquiredOn.IsZero() {
		return book.FixedAsset{}, fmt.Errorf("%w: acquisition date is required", book.ErrValidation)
	}
	payCode := params.PaymentAccountCode
	if payCode == "" {
		payCode = book.DefaultSettlementCode
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return book.FixedAsset{}, storeErr(err)
	}
	defer func() { _ = tx.Rollback() }()

	resolved, err := resolveCodes(ctx, tx, tenantID, []string{params.AccountCode, payCode})
	if err != nil {
		return book.FixedAsset{}, err
	}

	ref := "asset acquisition"
	if params.Name != "" {
		ref += ": " + params.Name
	}
	if _, err := postEntry(ctx, tx, tenantID, params.AcquiredOn, ref, []book.LineInput{
		{AccountID: resolved[params.AccountCode], Debit: params.Cost, Memo: params.Name},
		{AccountID: resolved[payCode], Credit: params.Cost, Memo: params.Name},
	}, book.StatusPosted, ""); err != nil {
		return book.FixedAsset{}, err
	}

	asset := book.FixedAsset{
		ID:                      ids.New(),
		TenantID:                tenantID,
		AccountID:               resolved[params.AccountCode],
		AccountCode:             params.AccountCode,
		Name:                    params.Name,
		Method:                  class.Depreciation,
		Cost:                    params.Cost,
		AccumulatedDepreciation: decimal.Zero,
		AcquiredOn:              params.AcquiredOn,
		CreatedAt:               time.Now().UTC(),
	}
	if class.ShowSerial {
		asset.Serial = params.Serial
	}
	if class.ShowWarranty {
		asset.Warranty = params.Warranty
	}
	if _, err := tx.ExecContext(ctx, `
		insert into fixed_assets(id, tenant_id, account_id, account_code, name, serial, warranty, method, cost, accumulated_depreciation, acquired_on)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, asset.ID, tenantID, asset.AccountID, asset.AccountCode, asset.Name, asset.Serial, asset.Warranty,
		string(asset.Method), asset.Cost, asset.AccumulatedDepreciation, asset.AcquiredOn); err != nil {
		return book.FixedAsset{}, storeErr(err)
	}
	if err := tx.Commit(); err != nil {
		return book.FixedAsset{}, storeErr(err)
	}
	return asset, nil
}

func (s *Store) DepreciateAsset(ctx context.Context, tenantID, assetID string, amount decimal.Decimal, date time.Time) (book.FixedAsset, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return book.FixedAsset{}, storeErr(err)
	}
	defer func() { _ = tx.Rollback() }()

	asset, err := lockAsset(ctx, tx, tenantID, assetID)
	if err != nil {
		return book.FixedAsset{}, err
	}
	if asset.Disposed() {
		return book.FixedAsset{}, book.ErrAlreadyDisposed
	}
	class, err := book.LookupAssetClass(asset.AccountCode)
	if err != nil {
		return book.FixedAsset{}, err
	}

	switch class.Depreciation {
	case book.DepreciationNone:
		return book.FixedAsset{}, book.ErrNotDepreciable

	case book.DepreciationStraightLine:
		if !amount.IsPositive() {
			return book.FixedAsset{}, fmt.Errorf("%w: depreciation amount must be positive", book.ErrValidation)
		}
		if asset.AccumulatedDepreciation.Add(amount).GreaterThan(asset.Cost) {
			return book.FixedAsset{}, book.ErrOverDepreciation
		}
		resolved, err := resolveCodes(ctx, tx, tenantID, []string{class.ExpenseAccount, class.ContraAccount})
		if err != nil {
			return book.FixedAsset{}, err
		}
		if _, err := postEntry(ctx, tx, tenantID, date, "depreciation: "+asset.AccountCode, []book.LineInput{
			{AccountID: resolved[class.ExpenseAccount], Debit: amount, Memo: asset.Name},
			{AccountID: resolved[class.ContraAccount], Credit: amount, Memo: asset.Name},
		}, book.StatusPosted, ""); err != nil {
			return book.FixedAsset{}, err
		}
		asset.AccumulatedDepreciation = asset.AccumulatedDepreciation.Add(amount)
		if _, err := tx.ExecContext(ctx, `update fixed_assets set accumulated_depreciation=$2 where id=$1`, asset.ID, asset.AccumulatedDepreciation); err != nil {
			return book.FixedAsset{}, storeErr(err)
		}

	case book.DepreciationMarket:
		if amount.IsNegative() {
			return book.FixedAsset{}, fmt.Errorf("%w: fair value must not be negative", book.ErrValidation)
		}
		delta := amount.Sub(asset.BookValue())
		if !delta.IsZero() {
			resolved, err := resolveCodes(ctx, tx, tenantID, []string{asset.AccountCode, class.RevaluationAccount})
			if err != nil {
				return book.FixedAsset{}, err
			}
			lines := []book.LineInput{
				{AccountID: resolved[asset.AccountCode], Debit: delta, Memo: asset.Name},
				{AccountID: resolved[class.RevaluationAccount], Credit: delta, Memo: asset.Name},
			}
			if delta.IsNegative() {
				down := delta.Neg()
				lines = []book.LineInput{
					{AccountID: resolved[class.RevaluationAccount], Debit: down, Memo: asset.Name},
					{AccountID: resolved[asset.AccountCode], Credit: down, Memo: asset.Name},
				}
			}
			if _, err := postEntry(ctx, tx, tenantID, date, "revaluation: "+asset.AccountCode, lines, book.StatusPosted, ""); err != nil {
				return book.FixedAsset{}, err
			}
		}
		fv := amount
		asset.FairValue = &fv
		if _, err := tx.ExecContext(ctx, `update fixed_assets set fair_value=$2 where id=$1`, asset.ID, amount); err != nil {
			return book.FixedAsset{}, storeErr(err)
		}

	default:
		return book.FixedAsset{}, book.ErrNotDepreciable
	}

	if err := tx.Commit(); err != nil {
		return book.FixedAsset{}, storeErr(err)
	}
	return asset, nil
}

func (s *Store) DisposeAsset(ctx context.Context, tenantID, assetID string, proceeds decimal.Decimal, date time.Time) (book.FixedAsset, error) {
	if proceeds.IsNegative() {
		return book.FixedAsset{}, fmt.Errorf("%w: proceeds must not be negative", book.ErrValidation)
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return book.FixedAsset{}, storeErr(err)
	}
	defer func() { _ = tx.Rollback() }()

	asset, err := lockAsset(ctx, tx, tenantID, assetID)
	if err != nil {
		return book.FixedAsset{}, err
	}
	if asset.Disposed() {
		return book.FixedAsset{}, book.ErrAlreadyDisposed
	}
	class, err := book.LookupAssetClass(asset.AccountCode)
	if err != nil {
		return book.FixedAsset{}, err
	}

	codes := []string{asset.AccountCode, book.DefaultSettlementCode, class.DisposalAccount}
	if class.ContraAccount != "" {
		codes = append(codes, class.ContraAccount)
	}
	resolved, err := resolveCodes(ctx, tx, tenantID, codes)
	if err != nil {
		return book.FixedAsset{}, err
	}

	if lines := book.DisposalLines(asset, class, proceeds, resolved); len(lines) > 0 {
		if _, err := postEntry(ctx, tx, tenantID, date, "asset disposal: "+asset.AccountCode, lines, book.StatusPosted, ""); err != nil {
			return book.FixedAsset{}, err
		}
	}

	when := date
	asset.DisposedOn = &when
	p := proceeds
	asset.DisposalProceeds = &p
	if _, err := tx.ExecContext(ctx, `
		update fixed_assets set disposed_on=$2, disposal_proceeds=$3 where id=$1
	`, asset.ID, date, proceeds); err != nil {
		return book.FixedAsset{}, storeErr(err)
	}
	if err := tx.Commit(); err != nil {
		return book.FixedAsset{}, storeErr(err)
	}
	return asset, nil
}

func (s *Store) GetFixedAsset(ctx context.Context, tenantID, assetID string) (book.FixedAsset, error) {
	row := s.db.QueryRowContext(ctx, `select `+assetColumns+` from fixed_assets where id=$1 and tenant_id=$2`, assetID, tenantID)
	asset, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return book.FixedAsset{}, book.ErrNotFound
	}
	if err != nil {
		return book.FixedAsset{}, storeErr(err)
	}
	return asset, nil
}
