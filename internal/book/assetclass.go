package book

import "sort"

// DepreciationMethod is the posting rule an asset class follows.
type DepreciationMethod string

const (
	// DepreciationStraightLine assets accrue periodic depreciation against
	// the class's contra/expense account pair.
	DepreciationStraightLine DepreciationMethod = "YES"
	// DepreciationNone assets (land and the like) never accrue depreciation.
	DepreciationNone DepreciationMethod = "NO"
	// DepreciationMarket assets are revalued to fair value; the delta posts
	// to the unrealized gain/loss account instead of the expense pair.
	DepreciationMarket DepreciationMethod = "MARKET"
)

// AssetClass describes, per fixed-asset account code, how that class of
// asset is identified and how its depreciation and disposal postings route.
type AssetClass struct {
	Code         string
	Label        string
	ShowSerial   bool
	ShowWarranty bool
	Depreciation DepreciationMethod
	// ContraAccount accumulates depreciation; empty for non-depreciating
	// classes.
	ContraAccount string
	// ExpenseAccount receives the periodic depreciation charge; empty for
	// non-depreciating classes.
	ExpenseAccount string
	// RevaluationAccount receives fair-value deltas for MARKET classes.
	RevaluationAccount string
	// DisposalAccount receives the gain or loss on disposal.
	DisposalAccount string
}

// assetClasses is the routing authority for every depreciation and disposal
// posting. Loaded once, never mutated at runtime; new asset classes are new
// rows here, not new branches in the lifecycle code.
var assetClasses = map[string]AssetClass{
	"1520": {
		Code:            "1520",
		Label:           "Parcel ID",
		Depreciation:    DepreciationNone,
		DisposalAccount: "7400",
	},
	"1530": {
		Code:            "1530",
		Label:           "Building ID",
		Depreciation:    DepreciationStraightLine,
		ContraAccount:   "1730",
		ExpenseAccount:  "6930",
		DisposalAccount: "7400",
	},
	"1540": {
		Code:            "1540",
		Label:           "Serial Number",
		ShowSerial:      true,
		ShowWarranty:    true,
		Depreciation:    DepreciationStraightLine,
		ContraAccount:   "1740",
		ExpenseAccount:  "6940",
		DisposalAccount: "7400",
	},
	"1550": {
		Code:            "1550",
		Label:           "Registration Number",
		ShowSerial:      true,
		ShowWarranty:    true,
		Depreciation:    DepreciationStraightLine,
		ContraAccount:   "1750",
		ExpenseAccount:  "6950",
		DisposalAccount: "7400",
	},
	"1560": {
		Code:               "1560",
		Label:              "Portfolio ID",
		Depreciation:       DepreciationMarket,
		RevaluationAccount: "7450",
		DisposalAccount:    "7400",
	},
}

// LookupAssetClass resolves an account code against the classification
// table. Unknown codes fail here, before any posting is attempted.
func LookupAssetClass(code string) (AssetClass, error) {
	ac, ok := assetClasses[code]
	if !ok {
		return AssetClass{}, ErrUnknownAssetClass
	}
	return ac, nil
}

// AssetClassCodes returns the classified account codes in code order.
func AssetClassCodes() []string {
	codes := make([]string, 0, len(assetClasses))
	for code := range assetClasses {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
