package recon

import (
	"sort"
	"strings"

	"hotcake-cash-recon/internal/models"
)

// normalizeStore strips ASCII and full-width spaces and lower-cases, so
// minor formatting drift between exports does not break store matching.
func normalizeStore(s string) string {
	s = strings.ReplaceAll(s, "　", "")
	s = strings.ReplaceAll(s, " ", "")
	return strings.ToLower(s)
}

func storeEqual(a, b string) bool {
	return normalizeStore(a) == normalizeStore(b)
}

// scopeOrders selects orders for the store whose service start falls inside
// the period. Service cash is earned at time-of-service, so orders anchor on
// ServiceStart, never on billing timestamps.
func scopeOrders(orders []models.OrdersRow, store string, period models.Period) []models.OrdersRow {
	scoped := []models.OrdersRow{}
	for _, o := range orders {
		if !storeEqual(o.Store, store) {
			continue
		}
		if !period.Contains(o.ServiceStart) {
			continue
		}
		scoped = append(scoped, o)
	}
	return scoped
}

// detectMissingBills flags every in-scope order that was checked in but has
// no bill attached and a zero bill amount. The rule is exact equality, not a
// heuristic: any non-empty bill id or non-zero amount suppresses the flag.
// It also collects the bill ids referenced by in-scope orders, which select
// the service bill rows downstream.
func detectMissingBills(orders []models.OrdersRow) ([]models.MissingBillRow, map[string]bool) {
	missing := []models.MissingBillRow{}
	billIDs := make(map[string]bool)

	for _, o := range orders {
		if o.OrderStatus == models.OrderStatusCheckedIn && o.BillID == "" && o.BillAmount.IsZero() {
			missing = append(missing, models.MissingBillRow{
				Store:        o.Store,
				OrderID:      o.OrderID,
				OrderCode:    o.OrderCode,
				ServiceStart: o.ServiceStart,
				Designer:     o.Designer,
				Service:      o.Service,
				OrderStatus:  o.OrderStatus,
				CheckinTime:  o.CheckinTime,
				MemberName:   o.MemberName,
				Phone:        o.Phone,
			})
		}
		if o.BillID != "" {
			billIDs[o.BillID] = true
		}
	}

	return missing, billIDs
}

// selectServiceBills picks the service bill rows whose bill id is referenced
// by an in-scope order, in sorted bill-id order. A bill id may select several
// rows (one per line item). Service bills are deliberately NOT filtered by
// their own settlement time: the order's service start already anchored them
// to the period.
func selectServiceBills(service []models.BillRow, billIDs map[string]bool) []models.BillRow {
	byID := make(map[string][]models.BillRow)
	for _, row := range service {
		byID[row.BillID] = append(byID[row.BillID], row)
	}

	ids := make([]string, 0, len(billIDs))
	for id := range billIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	selected := []models.BillRow{}
	for _, id := range ids {
		selected = append(selected, byID[id]...)
	}
	return selected
}

// scopeTopups selects top-up bills for the store whose settlement time falls
// inside the period. Top-ups have no order linkage, so settlement time is
// their only temporal anchor.
func scopeTopups(topup []models.BillRow, store string, period models.Period) []models.BillRow {
	scoped := []models.BillRow{}
	for _, r := range topup {
		if !storeEqual(r.Store, store) {
			continue
		}
		if !period.Contains(r.SettlementTime) {
			continue
		}
		scoped = append(scoped, r)
	}
	return scoped
}

// scopePos selects POS rows created inside the period. POS terminal names do
// not line up with Hotcake store names, so there is no store filter; the
// operator exports per-store POS history.
func scopePos(pos []models.PosRow, period models.Period) []models.PosRow {
	scoped := []models.PosRow{}
	for _, p := range pos {
		if !period.Contains(p.CreatedTime) {
			continue
		}
		scoped = append(scoped, p)
	}
	return scoped
}

// scopeCardRows selects card-machine transactions for the store inside the
// period.
func scopeCardRows(rows []models.CardMachineRow, store string, period models.Period) []models.CardMachineRow {
	scoped := []models.CardMachineRow{}
	for _, r := range rows {
		if !storeEqual(r.Store, store) {
			continue
		}
		if !period.Contains(r.TransactionTime) {
			continue
		}
		scoped = append(scoped, r)
	}
	return scoped
}
