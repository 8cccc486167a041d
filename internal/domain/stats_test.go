package domain

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeOrderStats(t *testing.T) {
	orders := []Order{
		{Status: StatusSent, COD: 100, ShippingFee: 10},
		{Status: StatusDelivered, COD: 200, ActualCOD: 200, ShippingFee: 12},
		{Status: StatusDelivered, COD: 150, ActualCOD: 140, ShippingFee: 12},
		{Status: StatusReturned, COD: 80, ShippingFee: 15},
		{Status: StatusPending},
		{Status: StatusCancelled},
	}

	s := ComputeOrderStats(orders)

	if s.Total != 6 {
		t.Fatalf("expected total 6, got %d", s.Total)
	}
	if s.Sent != 1 || s.Delivered != 2 || s.Returned != 1 || s.Pending != 1 || s.Cancelled != 1 {
		t.Fatalf("unexpected status counts: %+v", s)
	}
	// 2 delivered out of 4 dispatched.
	if !almostEqual(s.DeliveryRate, 0.5) {
		t.Fatalf("expected delivery rate 0.5, got %v", s.DeliveryRate)
	}
	if !almostEqual(s.Remainder, 340-49) {
		t.Fatalf("expected remainder 291, got %v", s.Remainder)
	}
}

func TestComputeOrderStatsEmpty(t *testing.T) {
	s := ComputeOrderStats(nil)
	if s.Total != 0 || s.DeliveryRate != 0 || s.Remainder != 0 {
		t.Fatalf("expected zero stats, got %+v", s)
	}
}

func TestComputeRegionStats(t *testing.T) {
	orders := []Order{
		{Region: "north", Status: StatusDelivered},
		{Region: "north", Status: StatusSent},
		{Region: "south", Status: StatusReturned},
		{Region: "south", Status: StatusPending},
		{Status: StatusDelivered}, // no region
	}

	byRegion := make(map[string]RegionStats)
	for _, rs := range ComputeRegionStats(orders) {
		byRegion[rs.Region] = rs
	}

	north := byRegion["north"]
	if north.Count != 2 || north.Delivered != 1 || !almostEqual(north.DeliveryRate, 0.5) {
		t.Fatalf("unexpected north stats: %+v", north)
	}

	south := byRegion["south"]
	if south.Count != 2 || south.Delivered != 0 || south.DeliveryRate != 0 {
		t.Fatalf("unexpected south stats: %+v", south)
	}

	unknown := byRegion[""]
	if unknown.Count != 1 || !almostEqual(unknown.DeliveryRate, 1) {
		t.Fatalf("unexpected unclassified stats: %+v", unknown)
	}
}
