// Package models defines the typed row records exchanged between the
// spreadsheet loaders, the reconciliation core, and the report writer.
//
// Records mirror the columns of the four supported exports: the Hotcake
// booking (orders) report, the Hotcake billing report (service bills and
// stored-value top-ups), the POS terminal history, and the card-machine
// transaction export. All amounts are decimal.Decimal; nothing in this
// package mutates a record after construction.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatusCheckedIn is the Hotcake order status marking a customer who
// checked in for a service.
const OrderStatusCheckedIn = "已報到"

// Period is an inclusive time window. Callers must ensure Start <= End.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the period, bounds inclusive.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// Validate checks the period invariant.
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return fmt.Errorf("period bounds cannot be zero")
	}
	if p.Start.After(p.End) {
		return fmt.Errorf("period start %s is after end %s",
			p.Start.Format("2006-01-02 15:04:05"), p.End.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// String returns a human-readable representation of the period.
func (p Period) String() string {
	return fmt.Sprintf("%s ~ %s",
		p.Start.Format("2006-01-02 15:04:05"), p.End.Format("2006-01-02 15:04:05"))
}

// TopupMode controls how stored-value top-up bills enter the totals.
type TopupMode string

const (
	// TopupBySettlementTime includes top-up bills whose settlement time
	// falls inside the reconciliation period.
	TopupBySettlementTime TopupMode = "settlement_time"

	// TopupExclude omits top-up bills from the totals entirely.
	TopupExclude TopupMode = "exclude"
)

// IsValid checks if the top-up mode is supported.
func (m TopupMode) IsValid() bool {
	return m == TopupBySettlementTime || m == TopupExclude
}

// ParseTopupMode parses a top-up mode from its string form.
func ParseTopupMode(s string) (TopupMode, error) {
	m := TopupMode(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("invalid topup mode '%s': must be %s or %s",
			s, TopupBySettlementTime, TopupExclude)
	}
	return m, nil
}

// PayType classifies a non-cash tender.
type PayType string

const (
	PayTypeCreditCard PayType = "credit_card"
	PayTypeLinePay    PayType = "linepay"
	PayTypeUnknown    PayType = "unknown"
)

// ParsePayMethod normalizes the free-text payment method of a card-machine
// row. The exports are inconsistent between Chinese and English labels, so
// matching is substring based.
func ParsePayMethod(s string) PayType {
	m := strings.ToLower(strings.TrimSpace(s))
	if m == "" {
		return PayTypeUnknown
	}
	if strings.Contains(m, "信用卡") || strings.Contains(m, "credit") || strings.Contains(m, "card") {
		return PayTypeCreditCard
	}
	if strings.Contains(m, "line") && strings.Contains(m, "pay") {
		return PayTypeLinePay
	}
	return PayTypeUnknown
}

// OrdersRow is one row of the Hotcake booking/orders report.
type OrdersRow struct {
	OrderID      string          `json:"order_id"`
	OrderCode    string          `json:"order_code,omitempty"`
	ServiceStart time.Time       `json:"service_start"`
	Store        string          `json:"store"`
	Designer     string          `json:"designer"`
	Service      string          `json:"service"`
	OrderStatus  string          `json:"order_status"`
	CheckinTime  *time.Time      `json:"checkin_time,omitempty"`
	BillID       string          `json:"bill_id"`
	BillAmount   decimal.Decimal `json:"bill_amount"`
	MemberName   string          `json:"member_name"`
	Phone        string          `json:"phone"`
}

// String returns a short representation for logging.
func (o *OrdersRow) String() string {
	return fmt.Sprintf("OrdersRow{ID: %s, Store: %s, Designer: %s, Start: %s}",
		o.OrderID, o.Store, o.Designer, o.ServiceStart.Format("2006-01-02 15:04"))
}

// BillRow is one row of the Hotcake billing report. The same shape is used
// for both the service sheet and the stored-value top-up sheet; a bill id may
// span several rows (one per line item).
type BillRow struct {
	BillID         string          `json:"bill_id"`
	SettlementTime time.Time       `json:"settlement_time"`
	AttributedDate time.Time       `json:"attributed_date"`
	Store          string          `json:"store"`
	Designer       string          `json:"designer"`
	Item           string          `json:"item"`
	Cash           decimal.Decimal `json:"cash"`
	CreditCard     decimal.Decimal `json:"credit_card"`
	LinePay        decimal.Decimal `json:"linepay"`
	BillAmount     decimal.Decimal `json:"bill_amount"`
}

// HotcakeBills bundles the two independently loaded bill collections.
type HotcakeBills struct {
	Service []BillRow `json:"service"`
	Topup   []BillRow `json:"topup"`
}

// PosRow is one row of the POS terminal history export. The designer name is
// embedded in the product text before the first comma; a service duration may
// be embedded as "<N>分鐘".
type PosRow struct {
	ProductName  string          `json:"product_name"`
	CreatedTime  time.Time       `json:"created_time"`
	TerminalName string          `json:"terminal_name"`
	OrderAmount  decimal.Decimal `json:"order_amount"`
	CashPaid     decimal.Decimal `json:"cash_paid"`
	PayStatus    string          `json:"pay_status"`
	OrderStatus  string          `json:"order_status"`
	PayMethod    string          `json:"pay_method"`
}

// CardMachineRow is one row of the card-machine transaction export.
type CardMachineRow struct {
	OrderID         string          `json:"order_id"`
	Store           string          `json:"store"`
	DeviceName      string          `json:"device_name"`
	Amount          decimal.Decimal `json:"amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	TransactionTime time.Time       `json:"transaction_time"`
	PayMethod       string          `json:"pay_method"`
}

// MissingBillRow is a checked-in order with no billing record attached. A
// non-empty missing-bill list means the reconciliation cannot be treated as
// correct.
type MissingBillRow struct {
	Store        string     `json:"store"`
	OrderID      string     `json:"order_id"`
	OrderCode    string     `json:"order_code,omitempty"`
	ServiceStart time.Time  `json:"service_start"`
	Designer     string     `json:"designer"`
	Service      string     `json:"service"`
	OrderStatus  string     `json:"order_status"`
	CheckinTime  *time.Time `json:"checkin_time,omitempty"`
	MemberName   string     `json:"member_name"`
	Phone        string     `json:"phone"`
}

// CashMismatch is a Hotcake-side order/bill whose cash could not be explained
// by a POS transaction within tolerance. The nearest-candidate fields are
// diagnostic context only; they are nil when no POS row with the same
// designer existed at all.
type CashMismatch struct {
	Store        string           `json:"store"`
	ServiceStart time.Time        `json:"service_start"`
	Designer     string           `json:"designer"`
	Service      string           `json:"service"`
	Minutes      *int             `json:"minutes,omitempty"`
	BillID       string           `json:"bill_id"`
	BillAmount   decimal.Decimal  `json:"bill_amount"`
	Cash         decimal.Decimal  `json:"cash"`
	NearestTime  *time.Time       `json:"nearest_pos_time,omitempty"`
	NearestGap   *time.Duration   `json:"nearest_gap,omitempty"`
	NearestCash  *decimal.Decimal `json:"nearest_pos_cash,omitempty"`
	CashDiff     *decimal.Decimal `json:"cash_diff,omitempty"`
	Reason       string           `json:"reason"`
}

// PosMismatch is a POS cash row no order claimed. The nearest fields point at
// the closest in-scope order with the same designer, when one exists.
type PosMismatch struct {
	TerminalName string         `json:"terminal_name"`
	CreatedTime  time.Time      `json:"created_time"`
	Designer     string         `json:"designer"`
	ProductName  string         `json:"product_name"`
	Minutes      *int           `json:"minutes,omitempty"`
	CashPaid     decimal.Decimal `json:"cash_paid"`
	NearestTime  *time.Time     `json:"nearest_hotcake_time,omitempty"`
	NearestGap   *time.Duration `json:"nearest_gap,omitempty"`
}

// CardMatch pairs a Hotcake non-cash tender with a card-machine transaction.
type CardMatch struct {
	BillID          string          `json:"bill_id"`
	PayType         PayType         `json:"pay_type"`
	Amount          decimal.Decimal `json:"amount"`
	SettlementTime  time.Time       `json:"settlement_time"`
	CardOrderID     string          `json:"card_order_id"`
	DeviceName      string          `json:"device_name"`
	TransactionTime time.Time       `json:"transaction_time"`
	Gap             time.Duration   `json:"gap"`
}

// MismatchSource tags which side of the card matching pass is unexplained.
type MismatchSource string

const (
	MismatchSourceCard    MismatchSource = "card"
	MismatchSourceHotcake MismatchSource = "hotcake"
)

// CardMismatch is an unexplained record from the card matching pass: either a
// card-machine transaction with no Hotcake tender, or a Hotcake tender with
// no card-machine transaction.
type CardMismatch struct {
	Source     MismatchSource  `json:"source"`
	PayType    PayType         `json:"pay_type"`
	Amount     decimal.Decimal `json:"amount"`
	Time       time.Time       `json:"time"`
	BillID     string          `json:"bill_id,omitempty"`
	OrderID    string          `json:"order_id,omitempty"`
	DeviceName string          `json:"device_name,omitempty"`
	Reason     string          `json:"reason"`
}

// CashTotals aggregates cash across sources. Pointer fields are nil when the
// corresponding input was not supplied; "supplied and zero" is a non-nil zero.
type CashTotals struct {
	HotcakeServiceCash decimal.Decimal  `json:"hotcake_service_cash"`
	HotcakeTopupCash   decimal.Decimal  `json:"hotcake_topup_cash"`
	HotcakeCashTotal   decimal.Decimal  `json:"hotcake_cash_total"`
	PosCashTotal       *decimal.Decimal `json:"pos_cash_total,omitempty"`
	PosCashDiff        *decimal.Decimal `json:"pos_cash_diff,omitempty"`
	CardMachineTotal   *decimal.Decimal `json:"card_machine_total,omitempty"`
}

// CashReconResult is the complete output of one reconciliation run. It is
// produced once and never mutated; the report writer and the CLI only read it.
type CashReconResult struct {
	Period Period `json:"period"`
	Store  string `json:"store"`

	MissingBills    []MissingBillRow `json:"missing_bills"`
	ServiceBillRows []BillRow        `json:"service_bill_rows"`
	TopupBillRows   []BillRow        `json:"topup_bill_rows"`

	HotcakeMismatches []CashMismatch `json:"hotcake_mismatches"`
	PosMismatches     []PosMismatch  `json:"pos_mismatches"`

	CardMachineRows []CardMachineRow `json:"card_machine_rows"`
	CardMatches     []CardMatch      `json:"card_matches"`
	CardMismatches  []CardMismatch   `json:"card_mismatches"`

	Totals CashTotals `json:"totals"`
}

// ParseAmount parses a spreadsheet amount cell. Exports use thousand
// separators and sometimes a trailing 元; empty cells mean zero.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "元")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount '%s': %w", s, err)
	}
	return d, nil
}

// datetimeFormats covers the timestamp shapes seen across the exports, e.g.
// "2026/01/01 10:00" and "2025-12-30 18:49:00".
var datetimeFormats = []string{
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
}

// ParseDateTime parses a spreadsheet timestamp cell. It returns a zero time
// and false when the text matches no known format.
func ParseDateTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, format := range datetimeFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDate parses a date-only cell, truncating any time-of-day component.
func ParseDate(s string) (time.Time, bool) {
	if t, ok := ParseDateTime(s); ok {
		return t.Truncate(24 * time.Hour), true
	}

	s = strings.TrimSpace(s)
	for _, format := range []string{"2006/01/02", "2006-01-02"} {
		if t, err := time.Parse(format, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
