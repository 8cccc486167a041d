package domain

// DuplicateKeyError reports a tracking number held by more than one live
// record. Structurally impossible under merge-on-write; its presence means
// an external write path bypassed the store contract.
type DuplicateKeyError struct {
	TrackingNumber string  `json:"trackingNumber"`
	Records        []Order `json:"records"`
}

// ProvenanceWarning reports a record whose status and import source
// disagree. Warnings are advisory; callers decide whether to auto-repair.
type ProvenanceWarning struct {
	OrderID        string `json:"orderId"`
	TrackingNumber string `json:"trackingNumber"`
	Status         Status `json:"status"`
	Source         string `json:"source"`
	ExpectedSource string `json:"expectedSource"`
}

// AccountingCheck is the closed-form identity the business relies on:
//
//	TotalSent + Abnormal == Delivered + InTransit + Returned + Partial + Warning
//
// A non-zero Difference is reportable data, not an exception. The identity
// is a diagnostic: if it fails persistently under correct inputs, the
// bucket definitions (not the data) may be wrong.
type AccountingCheck struct {
	TotalSent int `json:"totalSent"`
	Abnormal  int `json:"abnormal"`

	Delivered int `json:"delivered"`
	InTransit int `json:"inTransit"`
	Returned  int `json:"returned"`
	Partial   int `json:"partial"`
	Warning   int `json:"warning"`

	// Difference is LHS minus RHS; zero when the identity holds.
	Difference int `json:"difference"`
}

// Holds reports whether the accounting identity balances.
func (c AccountingCheck) Holds() bool {
	return c.Difference == 0
}

// IntegrityReport is the verifier's full output.
type IntegrityReport struct {
	RecordCount int                 `json:"recordCount"`
	Duplicates  []DuplicateKeyError `json:"duplicates,omitempty"`
	Accounting  AccountingCheck     `json:"accounting"`
	Provenance  []ProvenanceWarning `json:"provenance,omitempty"`
}

// Clean reports whether the record set passed every check with no
// errors and no warnings.
func (r IntegrityReport) Clean() bool {
	return len(r.Duplicates) == 0 && r.Accounting.Holds() && len(r.Provenance) == 0
}

// RepairResult lists what an auto-repair run changed.
type RepairResult struct {
	// Removed are duplicate records discarded in favor of the copy with
	// the latest UpdatedAt.
	Removed []Order `json:"removed,omitempty"`

	// Rewritten are records whose source/status pair was overwritten to
	// the status-implied value.
	Rewritten []Order `json:"rewritten,omitempty"`

	// Errors holds write failures encountered while applying repairs.
	// Partial success is not rolled back.
	Errors []string `json:"errors,omitempty"`
}
