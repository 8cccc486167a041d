package app

import (
	"context"
	"sort"

	"github.com/parcelops/shipledger/internal/domain"
	"github.com/parcelops/shipledger/internal/ports"
)

// Verifier detects drift between the stored records and the accounting
// identity the business relies on, and can repair it on explicit request.
// It is evaluated on demand over the full record set, never on every write.
type Verifier struct {
	orch   *Orchestrator
	logger ports.Logger
}

// NewVerifier creates a verifier over the given orchestrator.
func NewVerifier(orch *Orchestrator, logger ports.Logger) *Verifier {
	return &Verifier{orch: orch, logger: logger}
}

// Check loads the full record set and evaluates every integrity check.
// Violations are returned as data, not errors; the caller decides whether
// to invoke Repair.
func (v *Verifier) Check(ctx context.Context) (domain.IntegrityReport, error) {
	orders, err := v.orch.GetAllOrders(ctx)
	if err != nil {
		return domain.IntegrityReport{}, err
	}
	return Evaluate(orders), nil
}

// Evaluate runs all checks over a record set. Pure; exported for callers
// that already hold the records.
func Evaluate(orders []domain.Order) domain.IntegrityReport {
	report := domain.IntegrityReport{RecordCount: len(orders)}
	report.Duplicates = findDuplicates(orders)
	report.Accounting = accountingCheck(orders)
	report.Provenance = provenanceCheck(orders)
	return report
}

// findDuplicates groups records by tracking number and reports every key
// with more than one live record. Structurally impossible under the store's
// merge contract, so any hit means an external write path bypassed it.
func findDuplicates(orders []domain.Order) []domain.DuplicateKeyError {
	byKey := make(map[string][]domain.Order)
	for _, o := range orders {
		byKey[o.TrackingNumber] = append(byKey[o.TrackingNumber], o)
	}

	var dupes []domain.DuplicateKeyError
	for key, recs := range byKey {
		if len(recs) > 1 {
			dupes = append(dupes, domain.DuplicateKeyError{TrackingNumber: key, Records: recs})
		}
	}
	sort.Slice(dupes, func(i, j int) bool {
		return dupes[i].TrackingNumber < dupes[j].TrackingNumber
	})
	return dupes
}

// accountingCheck classifies every record into exactly one right-hand
// bucket (active warning beats partial provenance beats plain status) and
// computes both sides of the identity independently:
//
//	totalSent + abnormal == delivered + inTransit + returned + partial + warning
//
// totalSent counts dispatched records (status not pending/cancelled) that
// did not arrive through the abnormal stream; abnormal counts the abnormal
// stream regardless of status. Drift shows up when provenance and status
// disagree — e.g. an abnormal-stream record still marked pending.
func accountingCheck(orders []domain.Order) domain.AccountingCheck {
	var c domain.AccountingCheck
	for _, o := range orders {
		dispatched := o.Status != domain.StatusPending && o.Status != domain.StatusCancelled

		if dispatched && o.Source != domain.SourceAbnormal {
			c.TotalSent++
		}
		if o.Source == domain.SourceAbnormal {
			c.Abnormal++
		}

		switch {
		case o.WarningStatus.Active():
			c.Warning++
		case o.Source == domain.SourcePartial:
			c.Partial++
		case o.Status == domain.StatusDelivered:
			c.Delivered++
		case o.Status == domain.StatusReturned:
			c.Returned++
		case o.Status == domain.StatusSent:
			c.InTransit++
		}
	}
	c.Difference = (c.TotalSent + c.Abnormal) -
		(c.Delivered + c.InTransit + c.Returned + c.Partial + c.Warning)
	return c
}

// provenanceCheck flags delivered/returned records whose source does not
// match the status-implied import stream. Partial-delivery provenance is a
// recognized exception. Mismatches are warnings, not errors.
func provenanceCheck(orders []domain.Order) []domain.ProvenanceWarning {
	var warnings []domain.ProvenanceWarning
	for _, o := range orders {
		if o.Status != domain.StatusDelivered && o.Status != domain.StatusReturned {
			continue
		}
		if o.Source == domain.SourcePartial {
			continue
		}
		expected := domain.StatusImpliedSource(o.Status)
		if o.Source == expected {
			continue
		}
		warnings = append(warnings, domain.ProvenanceWarning{
			OrderID:        o.ID,
			TrackingNumber: o.TrackingNumber,
			Status:         o.Status,
			Source:         o.Source,
			ExpectedSource: expected,
		})
	}
	return warnings
}

// Repair applies the opt-in auto-fixes: duplicate keys keep the record
// with the latest UpdatedAt and discard the rest; provenance mismatches
// get the status-implied source written back. Every write goes through the
// orchestrator so merge-on-write and mirror sync still apply. Partial
// success is not rolled back; write errors are collected in the result.
func (v *Verifier) Repair(ctx context.Context) (domain.RepairResult, error) {
	report, err := v.Check(ctx)
	if err != nil {
		return domain.RepairResult{}, err
	}

	var res domain.RepairResult
	for _, dup := range report.Duplicates {
		keep := dup.Records[0]
		for _, rec := range dup.Records[1:] {
			if rec.UpdatedAt.After(keep.UpdatedAt) {
				keep = rec
			}
		}
		for _, rec := range dup.Records {
			if rec.ID == keep.ID {
				continue
			}
			if err := v.orch.DeleteOrder(ctx, rec.ID); err != nil {
				res.Errors = append(res.Errors, "delete "+rec.ID+": "+err.Error())
				continue
			}
			res.Removed = append(res.Removed, rec)
		}
		v.logger.Info("collapsed duplicate records",
			ports.String("trackingNumber", dup.TrackingNumber),
			ports.Int("discarded", len(dup.Records)-1))
	}

	// Re-resolve provenance against the post-dedup record set: a discarded
	// duplicate may have been the mismatched copy.
	report, err = v.Check(ctx)
	if err != nil {
		return res, err
	}
	if len(report.Provenance) == 0 {
		return res, nil
	}

	orders, err := v.orch.GetAllOrders(ctx)
	if err != nil {
		return res, err
	}
	byID := make(map[string]domain.Order, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
	}

	fixed := make([]domain.Order, 0, len(report.Provenance))
	for _, warn := range report.Provenance {
		rec, ok := byID[warn.OrderID]
		if !ok {
			continue
		}
		rec.Source = warn.ExpectedSource
		fixed = append(fixed, rec)
	}
	if len(fixed) > 0 {
		out, err := v.orch.AddOrders(ctx, fixed)
		if err != nil {
			res.Errors = append(res.Errors, "rewrite provenance: "+err.Error())
			return res, nil
		}
		if out.Failed > 0 {
			res.Errors = append(res.Errors, "rewrite provenance: some records not written")
		}
		res.Rewritten = append(res.Rewritten, fixed...)
	}
	return res, nil
}
