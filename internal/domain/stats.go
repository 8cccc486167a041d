package domain

// OrderStats are aggregate counts and financial totals over a record set.
// Recomputed on demand; never stored.
type OrderStats struct {
	Total     int `json:"total"`
	Sent      int `json:"sent"`
	Delivered int `json:"delivered"`
	Returned  int `json:"returned"`
	Pending   int `json:"pending"`
	Cancelled int `json:"cancelled"`

	// DeliveryRate is delivered over dispatched (sent+delivered+returned),
	// zero when nothing has been dispatched.
	DeliveryRate float64 `json:"deliveryRate"`

	CODTotal         float64 `json:"codTotal"`
	ActualCODTotal   float64 `json:"actualCodTotal"`
	ShippingFeeTotal float64 `json:"shippingFeeTotal"`

	// Remainder is the financial position the operator tracks: COD actually
	// collected minus shipping fees paid.
	Remainder float64 `json:"remainder"`
}

// RegionStats is the per-region slice of the same aggregates.
type RegionStats struct {
	Region       string  `json:"region"`
	Count        int     `json:"count"`
	Delivered    int     `json:"delivered"`
	DeliveryRate float64 `json:"deliveryRate"`
}

// ComputeOrderStats derives OrderStats from a record set.
func ComputeOrderStats(orders []Order) OrderStats {
	var s OrderStats
	s.Total = len(orders)
	for _, o := range orders {
		switch o.Status {
		case StatusSent:
			s.Sent++
		case StatusDelivered:
			s.Delivered++
		case StatusReturned:
			s.Returned++
		case StatusPending:
			s.Pending++
		case StatusCancelled:
			s.Cancelled++
		}
		s.CODTotal += o.COD
		s.ActualCODTotal += o.ActualCOD
		s.ShippingFeeTotal += o.ShippingFee
	}
	dispatched := s.Sent + s.Delivered + s.Returned
	if dispatched > 0 {
		s.DeliveryRate = float64(s.Delivered) / float64(dispatched)
	}
	s.Remainder = s.ActualCODTotal - s.ShippingFeeTotal
	return s
}

// ComputeRegionStats derives per-region counts and delivery rates.
// Records without a region are grouped under the empty string.
// The result order is unspecified.
func ComputeRegionStats(orders []Order) []RegionStats {
	type acc struct {
		count      int
		delivered  int
		dispatched int
	}
	byRegion := make(map[string]*acc)
	for _, o := range orders {
		a := byRegion[o.Region]
		if a == nil {
			a = &acc{}
			byRegion[o.Region] = a
		}
		a.count++
		switch o.Status {
		case StatusDelivered:
			a.delivered++
			a.dispatched++
		case StatusSent, StatusReturned:
			a.dispatched++
		}
	}

	out := make([]RegionStats, 0, len(byRegion))
	for region, a := range byRegion {
		rs := RegionStats{Region: region, Count: a.count, Delivered: a.delivered}
		if a.dispatched > 0 {
			rs.DeliveryRate = float64(a.delivered) / float64(a.dispatched)
		}
		out = append(out, rs)
	}
	return out
}
