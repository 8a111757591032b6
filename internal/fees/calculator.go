// Package fees computes certificate and shipping charges for an issuance
// request from the postal rate table.
package fees

import (
	"github.com/jobpal/jobpal-server/internal/domain/entity"
)

// Breakdown is the result of a fee calculation.
type Breakdown struct {
	CertificateFee int
	ShippingFee    int
	TotalAmount    int
}

// Calculate prices a certificate request. It is pure: the same inputs always
// yield the same breakdown.
//
// Line items are matched to the rate table by certificate ID; items without
// a rate entry contribute nothing. Shipping applies to mail delivery only:
// copies are packed into envelopes of at most rates.PostalMaxWeight, each
// costing rates.PostalFee. A nil rate table (rates not yet loaded) prices
// everything at zero; submission is blocked while the total is zero.
func Calculate(items []entity.CertificateLineItem, rates *entity.PostalRateTable, media entity.Media) Breakdown {
	if rates == nil {
		return Breakdown{}
	}

	certificateFee := 0
	totalWeight := 0
	for _, item := range items {
		rate, ok := rates.RateFor(item.CertificateID)
		if !ok {
			continue
		}
		certificateFee += item.Count * rate.Fee
		totalWeight += item.Count * rate.Weight
	}

	shippingFee := 0
	if media == entity.MediaMail && rates.PostalMaxWeight > 0 {
		shippingFee = ceilDiv(totalWeight, rates.PostalMaxWeight) * rates.PostalFee
	}

	return Breakdown{
		CertificateFee: certificateFee,
		ShippingFee:    shippingFee,
		TotalAmount:    certificateFee + shippingFee,
	}
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
