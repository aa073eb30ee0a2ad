package recon

import (
	"testing"
	"time"

	"hotcake-cash-recon/internal/models"

	"github.com/shopspring/decimal"
)

func cardRow(orderID, method string, paid int64, at time.Time) models.CardMachineRow {
	return models.CardMachineRow{
		OrderID:         orderID,
		Store:           "中壢三光店",
		DeviceName:      "A8-01",
		Amount:          decimal.NewFromInt(paid),
		PaidAmount:      decimal.NewFromInt(paid),
		TransactionTime: at,
		PayMethod:       method,
	}
}

func TestDeriveTenders(t *testing.T) {
	settled := time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC)
	bills := []models.BillRow{
		{BillID: "B1", SettlementTime: settled, CreditCard: decimal.NewFromInt(800), LinePay: decimal.NewFromInt(200)},
		{BillID: "B2", SettlementTime: settled, Cash: decimal.NewFromInt(500)},
	}

	tenders := deriveTenders(bills)

	if len(tenders) != 2 {
		t.Fatalf("Expected 2 tenders, got %d", len(tenders))
	}
	if tenders[0].payType != models.PayTypeCreditCard || !tenders[0].amount.Equal(decimal.NewFromInt(800)) {
		t.Errorf("Unexpected first tender: %+v", tenders[0])
	}
	if tenders[1].payType != models.PayTypeLinePay || !tenders[1].amount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Unexpected second tender: %+v", tenders[1])
	}
}

func TestMatchCard_ExactMatch(t *testing.T) {
	settled := time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC)
	bills := []models.BillRow{
		{BillID: "B1", SettlementTime: settled, CreditCard: decimal.NewFromInt(800)},
	}
	rows := []models.CardMachineRow{cardRow("C1", "信用卡", 800, settled.Add(3*time.Minute))}

	matches, mismatches := matchCard(bills, rows, 30*time.Minute)

	if len(mismatches) != 0 {
		t.Fatalf("Expected no mismatches, got %+v", mismatches)
	}
	if len(matches) != 1 {
		t.Fatalf("Expected one match, got %d", len(matches))
	}
	m := matches[0]
	if m.BillID != "B1" || m.CardOrderID != "C1" || m.PayType != models.PayTypeCreditCard {
		t.Errorf("Unexpected match: %+v", m)
	}
	if m.Gap != 3*time.Minute {
		t.Errorf("Expected gap 3m, got %v", m.Gap)
	}
}

func TestMatchCard_PayTypeIsolation(t *testing.T) {
	// A LINE Pay tender must not satisfy a credit-card transaction even when
	// amount and time line up.
	settled := time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC)
	bills := []models.BillRow{
		{BillID: "B1", SettlementTime: settled, LinePay: decimal.NewFromInt(800)},
	}
	rows := []models.CardMachineRow{cardRow("C1", "credit card", 800, settled)}

	matches, mismatches := matchCard(bills, rows, 30*time.Minute)

	if len(matches) != 0 {
		t.Fatalf("Expected no matches across pay types, got %+v", matches)
	}
	if len(mismatches) != 2 {
		t.Fatalf("Expected both sides reported, got %d", len(mismatches))
	}
	if mismatches[0].Source != models.MismatchSourceCard || mismatches[0].Reason != reasonNoTender {
		t.Errorf("Unexpected card-side mismatch: %+v", mismatches[0])
	}
	if mismatches[1].Source != models.MismatchSourceHotcake || mismatches[1].Reason != reasonNoCardTransaction {
		t.Errorf("Unexpected hotcake-side mismatch: %+v", mismatches[1])
	}
}

func TestMatchCard_UnrecognizedMethod(t *testing.T) {
	rows := []models.CardMachineRow{
		cardRow("C1", "悠遊卡錢包", 300, time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC)),
	}

	matches, mismatches := matchCard(nil, rows, 30*time.Minute)

	if len(matches) != 0 {
		t.Errorf("Expected no matches, got %+v", matches)
	}
	if len(mismatches) != 1 || mismatches[0].Reason != reasonUnrecognizedMethod {
		t.Fatalf("Expected one unrecognized-method mismatch, got %+v", mismatches)
	}
	if mismatches[0].PayType != models.PayTypeUnknown || mismatches[0].Source != models.MismatchSourceCard {
		t.Errorf("Unexpected mismatch tagging: %+v", mismatches[0])
	}
}

func TestMatchCard_GreedyConsumption(t *testing.T) {
	// One tender, two card rows of the same amount: the first-listed row
	// claims it, the second is left unexplained.
	settled := time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC)
	bills := []models.BillRow{
		{BillID: "B1", SettlementTime: settled, CreditCard: decimal.NewFromInt(500)},
	}
	rows := []models.CardMachineRow{
		cardRow("C1", "信用卡", 500, settled.Add(10*time.Minute)),
		cardRow("C2", "信用卡", 500, settled.Add(2*time.Minute)),
	}

	matches, mismatches := matchCard(bills, rows, 30*time.Minute)

	if len(matches) != 1 || matches[0].CardOrderID != "C1" {
		t.Fatalf("Expected C1 to claim the tender, got %+v", matches)
	}
	if len(mismatches) != 1 || mismatches[0].OrderID != "C2" {
		t.Errorf("Expected C2 left unexplained, got %+v", mismatches)
	}
}

func TestMatchCard_ToleranceBoundary(t *testing.T) {
	settled := time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC)
	bills := []models.BillRow{
		{BillID: "B1", SettlementTime: settled, CreditCard: decimal.NewFromInt(500)},
	}

	atLimit := []models.CardMachineRow{cardRow("C1", "信用卡", 500, settled.Add(30*time.Minute))}
	if matches, _ := matchCard(bills, atLimit, 30*time.Minute); len(matches) != 1 {
		t.Errorf("Expected a gap exactly at the tolerance to match")
	}

	pastLimit := []models.CardMachineRow{cardRow("C1", "信用卡", 500, settled.Add(30*time.Minute+time.Second))}
	if matches, _ := matchCard(bills, pastLimit, 30*time.Minute); len(matches) != 0 {
		t.Errorf("Expected a gap past the tolerance rejected")
	}
}

func TestMatchCard_AmountMustBeExact(t *testing.T) {
	settled := time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC)
	bills := []models.BillRow{
		{BillID: "B1", SettlementTime: settled, CreditCard: decimal.NewFromInt(500)},
	}
	rows := []models.CardMachineRow{cardRow("C1", "信用卡", 501, settled)}

	matches, mismatches := matchCard(bills, rows, 30*time.Minute)

	if len(matches) != 0 {
		t.Errorf("Expected no match on a one-dollar difference, got %+v", matches)
	}
	if len(mismatches) != 2 {
		t.Errorf("Expected both sides reported, got %d", len(mismatches))
	}
}
