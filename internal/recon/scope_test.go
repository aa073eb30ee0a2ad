package recon

import (
	"testing"
	"time"

	"hotcake-cash-recon/internal/models"

	"github.com/shopspring/decimal"
)

var testPeriod = models.Period{
	Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC),
}

func makeOrder(id, store, designer string, start time.Time, billID string, billAmount int64) models.OrdersRow {
	return models.OrdersRow{
		OrderID:      id,
		ServiceStart: start,
		Store:        store,
		Designer:     designer,
		Service:      "洗剪吹 60分鐘",
		OrderStatus:  models.OrderStatusCheckedIn,
		BillID:       billID,
		BillAmount:   decimal.NewFromInt(billAmount),
	}
}

func TestScopeOrders_StoreAndTime(t *testing.T) {
	inScope := makeOrder("O1", "中壢三光店", "Amy", time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC), "B1", 1000)
	wrongStore := makeOrder("O2", "台北店", "Amy", time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC), "B2", 1000)
	spacedStore := makeOrder("O3", "中壢 三光店", "Amy", time.Date(2026, 1, 6, 10, 0, 0, 0, time.UTC), "B3", 1000)

	scoped := scopeOrders([]models.OrdersRow{inScope, wrongStore, spacedStore}, "中壢三光店", testPeriod)

	if len(scoped) != 2 {
		t.Fatalf("Expected 2 scoped orders, got %d", len(scoped))
	}
	if scoped[0].OrderID != "O1" || scoped[1].OrderID != "O3" {
		t.Errorf("Unexpected scoped order ids: %s, %s", scoped[0].OrderID, scoped[1].OrderID)
	}
}

func TestScopeOrders_BoundaryInclusive(t *testing.T) {
	tests := []struct {
		name     string
		start    time.Time
		included bool
	}{
		{"exactly at period start", testPeriod.Start, true},
		{"exactly at period end", testPeriod.End, true},
		{"one second before start", testPeriod.Start.Add(-time.Second), false},
		{"one second after end", testPeriod.End.Add(time.Second), false},
		{"one second after start", testPeriod.Start.Add(time.Second), true},
		{"one second before end", testPeriod.End.Add(-time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := makeOrder("O1", "店", "Amy", tt.start, "B1", 100)
			scoped := scopeOrders([]models.OrdersRow{order}, "店", testPeriod)
			if included := len(scoped) == 1; included != tt.included {
				t.Errorf("Expected included=%v for %s", tt.included, tt.start)
			}
		})
	}
}

func TestDetectMissingBills(t *testing.T) {
	start := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	checkin := start.Add(5 * time.Minute)

	missingOrder := models.OrdersRow{
		OrderID:      "O1",
		OrderCode:    "A001",
		ServiceStart: start,
		Store:        "中壢三光店",
		Designer:     "Amy",
		Service:      "洗剪吹 60分鐘",
		OrderStatus:  models.OrderStatusCheckedIn,
		CheckinTime:  &checkin,
		BillID:       "",
		BillAmount:   decimal.Zero,
		MemberName:   "王小明",
		Phone:        "0912345678",
	}

	tests := []struct {
		name    string
		mutate  func(o models.OrdersRow) models.OrdersRow
		missing bool
	}{
		{"checked in, no bill, zero amount", func(o models.OrdersRow) models.OrdersRow { return o }, true},
		{"has bill id", func(o models.OrdersRow) models.OrdersRow { o.BillID = "B1"; return o }, false},
		{"non-zero bill amount", func(o models.OrdersRow) models.OrdersRow { o.BillAmount = decimal.NewFromInt(1); return o }, false},
		{"not checked in", func(o models.OrdersRow) models.OrdersRow { o.OrderStatus = "已取消"; return o }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := tt.mutate(missingOrder)
			missing, _ := detectMissingBills([]models.OrdersRow{order})

			if tt.missing {
				if len(missing) != 1 {
					t.Fatalf("Expected exactly one missing bill, got %d", len(missing))
				}
				m := missing[0]
				if m.OrderID != order.OrderID || m.OrderCode != order.OrderCode ||
					m.Designer != order.Designer || m.MemberName != order.MemberName ||
					m.Phone != order.Phone || !m.ServiceStart.Equal(order.ServiceStart) {
					t.Errorf("Missing bill row does not project the order fields: %+v", m)
				}
				if m.CheckinTime == nil || !m.CheckinTime.Equal(checkin) {
					t.Errorf("Expected check-in time to be carried over")
				}
			} else if len(missing) != 0 {
				t.Errorf("Expected no missing bills, got %d", len(missing))
			}
		})
	}
}

func TestDetectMissingBills_CollectsBillIDs(t *testing.T) {
	orders := []models.OrdersRow{
		makeOrder("O1", "店", "Amy", testPeriod.Start, "B1", 1000),
		makeOrder("O2", "店", "Bob", testPeriod.Start, "B2", 500),
		makeOrder("O3", "店", "Cat", testPeriod.Start, "", 0),
	}

	_, billIDs := detectMissingBills(orders)

	if len(billIDs) != 2 || !billIDs["B1"] || !billIDs["B2"] {
		t.Errorf("Expected bill id set {B1, B2}, got %v", billIDs)
	}
}

func TestSelectServiceBills_ByBillIDNotTimestamp(t *testing.T) {
	// The bill's own settlement time lies outside any reasonable period;
	// selection must still happen because an in-scope order references it.
	farAway := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	service := []models.BillRow{
		{BillID: "B2", SettlementTime: farAway, Cash: decimal.NewFromInt(300)},
		{BillID: "B1", SettlementTime: farAway, Cash: decimal.NewFromInt(700)},
		{BillID: "B1", SettlementTime: farAway, Cash: decimal.NewFromInt(300)},
		{BillID: "B9", SettlementTime: farAway, Cash: decimal.NewFromInt(999)},
	}

	selected := selectServiceBills(service, map[string]bool{"B1": true, "B2": true})

	if len(selected) != 3 {
		t.Fatalf("Expected 3 selected rows, got %d", len(selected))
	}
	// Sorted by bill id, line items in input order.
	if selected[0].BillID != "B1" || selected[1].BillID != "B1" || selected[2].BillID != "B2" {
		t.Errorf("Unexpected selection order: %s, %s, %s",
			selected[0].BillID, selected[1].BillID, selected[2].BillID)
	}
	if !selected[0].Cash.Equal(decimal.NewFromInt(700)) {
		t.Errorf("Expected line items to keep input order within a bill id")
	}
}

func TestScopeTopups_BySettlementTime(t *testing.T) {
	inside := models.BillRow{
		BillID:         "T1",
		Store:          "中壢三光店",
		SettlementTime: time.Date(2026, 1, 10, 15, 0, 0, 0, time.UTC),
		Cash:           decimal.NewFromInt(2000),
	}
	outside := inside
	outside.BillID = "T2"
	outside.SettlementTime = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	wrongStore := inside
	wrongStore.BillID = "T3"
	wrongStore.Store = "台北店"

	scoped := scopeTopups([]models.BillRow{inside, outside, wrongStore}, "中壢三光店", testPeriod)

	if len(scoped) != 1 || scoped[0].BillID != "T1" {
		t.Errorf("Expected only T1 in scope, got %+v", scoped)
	}
}

func TestScopePos_ByCreatedTime(t *testing.T) {
	inside := models.PosRow{ProductName: "Amy,洗剪吹60分鐘", CreatedTime: time.Date(2026, 1, 5, 10, 5, 0, 0, time.UTC)}
	outside := models.PosRow{ProductName: "Bob,剪髮30分鐘", CreatedTime: time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC)}

	scoped := scopePos([]models.PosRow{inside, outside}, testPeriod)

	if len(scoped) != 1 || scoped[0].ProductName != inside.ProductName {
		t.Errorf("Expected only the inside row, got %+v", scoped)
	}
}

func TestScopeCardRows(t *testing.T) {
	inside := models.CardMachineRow{
		OrderID:         "C1",
		Store:           "中壢三光店",
		TransactionTime: time.Date(2026, 1, 5, 10, 30, 0, 0, time.UTC),
	}
	wrongStore := inside
	wrongStore.OrderID = "C2"
	wrongStore.Store = "台北店"
	outside := inside
	outside.OrderID = "C3"
	outside.TransactionTime = time.Date(2026, 2, 5, 10, 30, 0, 0, time.UTC)

	scoped := scopeCardRows([]models.CardMachineRow{inside, wrongStore, outside}, "中壢 三光店", testPeriod)

	if len(scoped) != 1 || scoped[0].OrderID != "C1" {
		t.Errorf("Expected only C1 in scope, got %+v", scoped)
	}
}

func TestNormalizeStore(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"中壢三光店", "中壢三光店"},
		{"中壢 三光店", "中壢三光店"},
		{"中壢　三光店", "中壢三光店"},
		{"Store A", "storea"},
	}

	for _, tt := range tests {
		if got := normalizeStore(tt.input); got != tt.expected {
			t.Errorf("normalizeStore(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}
