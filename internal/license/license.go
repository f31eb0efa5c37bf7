package license

import (
	"time"

	companyDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/company"
)

// Evaluation is the outcome of a pure license check. EffectiveStatus is
// the status the license truly has at the evaluation instant, which can
// differ from the stored one when an active license has lapsed.
type Evaluation struct {
	Licensed        bool
	EffectiveStatus companyDatamodel.LicenseStatus
	// NeedsCorrection is set when the stored status is active but the
	// expiry has passed; the caller is expected to issue the corrective
	// write separately. Evaluate itself never mutates anything.
	NeedsCorrection bool
	ExpiresAt       time.Time
}

// Evaluate derives the true license state at the given instant. A
// tenant is licensed iff the license status is active and the expiry is
// in the future.
func Evaluate(lic companyDatamodel.License, now time.Time) Evaluation {
	eval := Evaluation{
		EffectiveStatus: lic.Status,
		ExpiresAt:       lic.ExpiresAt,
	}

	switch lic.Status {
	case companyDatamodel.LicenseStatusActive:
		if lic.ExpiresAt.After(now) {
			eval.Licensed = true
			return eval
		}
		eval.EffectiveStatus = companyDatamodel.LicenseStatusExpired
		eval.NeedsCorrection = true
	case companyDatamodel.LicenseStatusExpired, companyDatamodel.LicenseStatusInactive:
		// Stored status already matches reality.
	default:
		eval.EffectiveStatus = companyDatamodel.LicenseStatusInactive
	}
	return eval
}
