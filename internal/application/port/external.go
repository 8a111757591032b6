package port

import "context"

// ResultPredictor classifies a free-form activity report as a likely pass
// or fail outcome.
type ResultPredictor interface {
	PredictResult(ctx context.Context, reportContent string) (string, error)
}

// Address is the resolved postal address for a zip code.
type Address struct {
	ZipCode    string `json:"zip_code"`
	Prefecture string `json:"prefecture"`
	City       string `json:"city"`
	Town       string `json:"town"`
}

// AddressLookup resolves a Japanese postal code to an address.
type AddressLookup interface {
	Lookup(ctx context.Context, zipCode string) (*Address, error)
}
