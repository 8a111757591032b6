package entity

// CertificateRate is the per-copy fee and mailing weight of one certificate
// type.
type CertificateRate struct {
	CertificateID string
	Fee           int
	Weight        int
}

// PostalRateTable is the read-only rate table the fee calculator consumes.
// One envelope carries up to PostalMaxWeight; each envelope costs PostalFee.
type PostalRateTable struct {
	CertificateRates []CertificateRate
	PostalMaxWeight  int
	PostalFee        int
}

// RateFor returns the rate entry for a certificate type, if present.
func (t *PostalRateTable) RateFor(certificateID string) (CertificateRate, bool) {
	for _, rate := range t.CertificateRates {
		if rate.CertificateID == certificateID {
			return rate, true
		}
	}
	return CertificateRate{}, false
}
