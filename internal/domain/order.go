package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a shipment order.
type Status string

// Order lifecycle states. Transitions are not restricted here; any status
// may be set by a status-update call. Transition validity is a UI concern.
const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusReturned  Status = "returned"
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusSent, StatusDelivered, StatusReturned, StatusPending, StatusCancelled:
		return true
	}
	return false
}

// WarningStatus tracks follow-up work on a problematic shipment.
type WarningStatus string

const (
	WarningNone        WarningStatus = "none"
	WarningPending     WarningStatus = "pending"
	WarningTracking    WarningStatus = "tracking"
	WarningCompensated WarningStatus = "compensated"
)

// Active reports whether the warning still needs attention. A compensated
// warning is resolved and the record counts in its status bucket again.
func (w WarningStatus) Active() bool {
	return w == WarningPending || w == WarningTracking
}

// Source identifies which import stream last touched a record.
const (
	SourceSent      = "sent"
	SourceDelivered = "delivered"
	SourceReturned  = "returned"
	SourcePartial   = "partial"
	SourceAbnormal  = "abnormal"
)

// Order is the sole persisted entity: one shipment tracked by the operator.
//
// ID is the opaque primary key, generated once at creation. TrackingNumber
// is the business key; at most one live record per tracking number exists
// in a store at any time.
type Order struct {
	ID             string `json:"id"`
	TrackingNumber string `json:"trackingNumber"`

	Status   Status `json:"status"`
	SendDate string `json:"sendDate"` // normalized upstream to YYYY-MM-DD
	Region   string `json:"region,omitempty"`

	COD             float64 `json:"cod"`
	ActualCOD       float64 `json:"actualCod"`
	PartialDelivery float64 `json:"partialDelivery"`
	ShippingFee     float64 `json:"shippingFee"`

	// Source records which import stream last touched the record.
	Source string `json:"source,omitempty"`

	WarningStatus WarningStatus `json:"warningStatus,omitempty"`
	WarningNote   string        `json:"warningNote,omitempty"`

	// Extra holds unrecognized source columns, kept for display only and
	// excluded from all business logic.
	Extra map[string]string `json:"extra,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProtectedFields names the fields preserved from the existing record when
// two records sharing a tracking number are merged.
var ProtectedFields = []string{"id", "createdAt"}

// NewID returns a fresh opaque record identifier.
func NewID() string {
	return uuid.NewString()
}

// HasRequiredFields reports whether the record carries the three fields
// without which it cannot be stored or reconciled.
func (o Order) HasRequiredFields() bool {
	return o.ID != "" && o.TrackingNumber != "" && o.SendDate != ""
}

// Merge combines an incoming record with the existing record sharing its
// tracking number. Incoming field values overwrite existing ones wholesale,
// except the protected fields (ID, CreatedAt), which are always preserved
// from the existing record. A nil incoming Extra map keeps the existing one.
// UpdatedAt is set to now on every merge.
func Merge(existing, incoming Order, now time.Time) Order {
	merged := incoming
	merged.ID = existing.ID
	merged.CreatedAt = existing.CreatedAt
	if merged.Extra == nil {
		merged.Extra = existing.Extra
	}
	merged.UpdatedAt = now
	return merged
}

// Normalize fills generated and defaulted fields on a record about to be
// created: a fresh ID when absent, WarningNone when unset, and both
// timestamps when zero.
func Normalize(o Order, now time.Time) Order {
	if o.ID == "" {
		o.ID = NewID()
	}
	if o.WarningStatus == "" {
		o.WarningStatus = WarningNone
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = now
	}
	return o
}

// StatusImpliedSource returns the import stream a record with the given
// status is expected to have arrived from. Used by the integrity verifier
// when repairing provenance mismatches.
func StatusImpliedSource(s Status) string {
	switch s {
	case StatusDelivered:
		return SourceDelivered
	case StatusReturned:
		return SourceReturned
	default:
		return SourceSent
	}
}
