package book

// AccountSeed is one template row of a default chart of accounts.
type AccountSeed struct {
	Code              string
	Name              string
	Type              AccountType
	Subtype           string
	IsContra          bool
	IsPaymentEligible bool
	IsSystem          bool
}

// DefaultChart returns the chart of accounts a new tenant is seeded with.
func DefaultChart(kind TenantKind) []AccountSeed {
	if kind == TenantBusiness {
		return businessChart()
	}
	return familyChart()
}

// fixedAssetBlock holds every account the asset classification table routes
// through. Both charts carry it so the fixed-asset lifecycle always resolves.
func fixedAssetBlock() []AccountSeed {
	return []AccountSeed{
		{Code: "1520", Name: "Land", Type: AccountTypeAsset, Subtype: "fixed_asset"},
		{Code: "1530", Name: "Buildings", Type: AccountTypeAsset, Subtype: "fixed_asset"},
		{Code: "1540", Name: "Computers & Equipment", Type: AccountTypeAsset, Subtype: "fixed_asset"},
		{Code: "1550", Name: "Vehicles", Type: AccountTypeAsset, Subtype: "fixed_asset"},
		{Code: "1560", Name: "Investments", Type: AccountTypeAsset, Subtype: "fixed_asset"},
		{Code: "1730", Name: "Accumulated Depreciation - Buildings", Type: AccountTypeAsset, Subtype: "accumulated_depreciation", IsContra: true, IsSystem: true},
		{Code: "1740", Name: "Accumulated Depreciation - Computers", Type: AccountTypeAsset, Subtype: "accumulated_depreciation", IsContra: true, IsSystem: true},
		{Code: "1750", Name: "Accumulated Depreciation - Vehicles", Type: AccountTypeAsset, Subtype: "accumulated_depreciation", IsContra: true, IsSystem: true},
		{Code: "6930", Name: "Depreciation Expense - Buildings", Type: AccountTypeExpense, Subtype: "depreciation", IsSystem: true},
		{Code: "6940", Name: "Depreciation Expense - Computers", Type: AccountTypeExpense, Subtype: "depreciation", IsSystem: true},
		{Code: "6950", Name: "Depreciation Expense - Vehicles", Type: AccountTypeExpense, Subtype: "depreciation", IsSystem: true},
		{Code: "7400", Name: "Gain/Loss on Asset Disposal", Type: AccountTypeIncome, Subtype: "disposal", IsSystem: true},
		{Code: "7450", Name: "Unrealized Gain/Loss", Type: AccountTypeIncome, Subtype: "revaluation", IsSystem: true},
	}
}

func familyChart() []AccountSeed {
	chart := []AccountSeed{
		{Code: "1010", Name: "Cash on Hand", Type: AccountTypeAsset, Subtype: "cash", IsPaymentEligible: true, IsSystem: true},
		{Code: "1020", Name: "Bank Account", Type: AccountTypeAsset, Subtype: "bank", IsPaymentEligible: true, IsSystem: true},
		{Code: "1120", Name: "Accounts Receivable", Type: AccountTypeAsset, Subtype: "receivable", IsSystem: true},
		{Code: "2010", Name: "Accounts Payable", Type: AccountTypeLiability, Subtype: "payable", IsSystem: true},
		{Code: "2110", Name: "Credit Card", Type: AccountTypeLiability, Subtype: "credit_card", IsPaymentEligible: true},
		{Code: "2210", Name: "Loans Payable", Type: AccountTypeLiability, Subtype: "loan"},
		{Code: "3010", Name: "Opening Balance Equity", Type: AccountTypeEquity, Subtype: "opening_balance", IsSystem: true},
		{Code: "3020", Name: "Retained Earnings", Type: AccountTypeEquity, Subtype: "retained_earnings", IsSystem: true},
		{Code: "4010", Name: "Salary & Wages", Type: AccountTypeIncome, Subtype: "salary"},
		{Code: "4020", Name: "Other Income", Type: AccountTypeIncome},
		{Code: "6010", Name: "Groceries", Type: AccountTypeExpense},
		{Code: "6020", Name: "Utilities", Type: AccountTypeExpense},
		{Code: "6030", Name: "Transport", Type: AccountTypeExpense},
		{Code: "6110", Name: "Rent", Type: AccountTypeExpense},
	}
	return append(chart, fixedAssetBlock()...)
}

func businessChart() []AccountSeed {
	chart := []AccountSeed{
		{Code: "1010", Name: "Cash on Hand", Type: AccountTypeAsset, Subtype: "cash", IsPaymentEligible: true, IsSystem: true},
		{Code: "1020", Name: "Bank Account", Type: AccountTypeAsset, Subtype: "bank", IsPaymentEligible: true, IsSystem: true},
		{Code: "1120", Name: "Accounts Receivable", Type: AccountTypeAsset, Subtype: "receivable", IsSystem: true},
		{Code: "1130", Name: "Inventory", Type: AccountTypeAsset, Subtype: "inventory"},
		{Code: "2010", Name: "Accounts Payable", Type: AccountTypeLiability, Subtype: "payable", IsSystem: true},
		{Code: "2110", Name: "Credit Card", Type: AccountTypeLiability, Subtype: "credit_card", IsPaymentEligible: true},
		{Code: "2210", Name: "Loans Payable", Type: AccountTypeLiability, Subtype: "loan"},
		{Code: "2310", Name: "Tax Payable", Type: AccountTypeLiability, Subtype: "tax"},
		{Code: "3010", Name: "Opening Balance Equity", Type: AccountTypeEquity, Subtype: "opening_balance", IsSystem: true},
		{Code: "3020", Name: "Retained Earnings", Type: AccountTypeEquity, Subtype: "retained_earnings", IsSystem: true},
		{Code: "3030", Name: "Owner's Capital", Type: AccountTypeEquity, Subtype: "capital"},
		{Code: "4110", Name: "Sales Revenue", Type: AccountTypeIncome, Subtype: "sales"},
		{Code: "4120", Name: "Service Revenue", Type: AccountTypeIncome, Subtype: "services"},
		{Code: "5010", Name: "Cost of Goods Sold", Type: AccountTypeExpense, Subtype: "cogs"},
		{Code: "6210", Name: "Salaries Expense", Type: AccountTypeExpense},
		{Code: "6220", Name: "Office Supplies", Type: AccountTypeExpense},
		{Code: "6230", Name: "Marketing", Type: AccountTypeExpense},
		{Code: "6110", Name: "Rent", Type: AccountTypeExpense},
		{Code: "6020", Name: "Utilities", Type: AccountTypeExpense},
	}
	return append(chart, fixedAssetBlock()...)
}

// DefaultCategories returns the spending categories seeded per tenant kind.
func DefaultCategories(kind TenantKind) []string {
	if kind == TenantBusiness {
		return []string{"Sales", "Purchases", "Payroll", "Rent", "Marketing", "Taxes", "Equipment"}
	}
	return []string{"Groceries", "Utilities", "Transport", "Entertainment", "Healthcare", "Education", "Household"}
}

// DefaultPaymentMethods returns the settlement instruments seeded per tenant.
func DefaultPaymentMethods() []string {
	return []string{"Cash", "Bank Transfer", "Credit Card", "Cheque", "Mobile Money"}
}
