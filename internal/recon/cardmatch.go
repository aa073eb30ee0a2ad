package recon

import (
	"time"

	"hotcake-cash-recon/internal/models"

	"github.com/shopspring/decimal"
)

const (
	reasonUnrecognizedMethod = "unmatched"
	reasonNoTender           = "no hotcake tender within tolerance"
	reasonNoCardTransaction  = "no card transaction within tolerance"
)

// cardTender is one non-cash tender derived from a service bill row. A row
// contributes up to two tenders: one for its credit-card amount and one for
// its LINE Pay amount.
type cardTender struct {
	billID         string
	payType        models.PayType
	amount         decimal.Decimal
	settlementTime time.Time
}

func deriveTenders(serviceBills []models.BillRow) []cardTender {
	tenders := []cardTender{}
	for _, b := range serviceBills {
		if b.CreditCard.IsPositive() {
			tenders = append(tenders, cardTender{
				billID:         b.BillID,
				payType:        models.PayTypeCreditCard,
				amount:         b.CreditCard,
				settlementTime: b.SettlementTime,
			})
		}
		if b.LinePay.IsPositive() {
			tenders = append(tenders, cardTender{
				billID:         b.BillID,
				payType:        models.PayTypeLinePay,
				amount:         b.LinePay,
				settlementTime: b.SettlementTime,
			})
		}
	}
	return tenders
}

// matchCard runs the greedy matching pass between Hotcake non-cash tenders
// and card-machine transactions. The pools are independent from the cash
// pass: tenders come from scoped service bills, and card rows from the
// card-machine export.
//
// Card rows are processed in input order. Rows whose pay method cannot be
// recognized are reported immediately. A recognized row claims the nearest
// unused tender of the same pay type with an exactly equal amount, provided
// it lies within the time tolerance. Whatever remains on either side is
// reported as a mismatch tagged by source, so the review sheet shows which
// side is unexplained.
func matchCard(
	serviceBills []models.BillRow,
	cardRows []models.CardMachineRow,
	tolerance time.Duration,
) ([]models.CardMatch, []models.CardMismatch) {
	tenders := deriveTenders(serviceBills)
	used := make([]bool, len(tenders))

	matches := []models.CardMatch{}
	mismatches := []models.CardMismatch{}

	for _, row := range cardRows {
		payType := models.ParsePayMethod(row.PayMethod)
		if payType == models.PayTypeUnknown {
			mismatches = append(mismatches, models.CardMismatch{
				Source:     models.MismatchSourceCard,
				PayType:    payType,
				Amount:     row.PaidAmount,
				Time:       row.TransactionTime,
				OrderID:    row.OrderID,
				DeviceName: row.DeviceName,
				Reason:     reasonUnrecognizedMethod,
			})
			continue
		}

		bestIdx := -1
		var bestGap time.Duration
		for j, td := range tenders {
			if used[j] || td.payType != payType || !td.amount.Equal(row.PaidAmount) {
				continue
			}
			gap := absGap(row.TransactionTime, td.settlementTime)
			if bestIdx == -1 || gap < bestGap {
				bestIdx, bestGap = j, gap
			}
		}

		if bestIdx != -1 && bestGap <= tolerance {
			used[bestIdx] = true
			matches = append(matches, models.CardMatch{
				BillID:          tenders[bestIdx].billID,
				PayType:         payType,
				Amount:          row.PaidAmount,
				SettlementTime:  tenders[bestIdx].settlementTime,
				CardOrderID:     row.OrderID,
				DeviceName:      row.DeviceName,
				TransactionTime: row.TransactionTime,
				Gap:             bestGap,
			})
			continue
		}

		mismatches = append(mismatches, models.CardMismatch{
			Source:     models.MismatchSourceCard,
			PayType:    payType,
			Amount:     row.PaidAmount,
			Time:       row.TransactionTime,
			OrderID:    row.OrderID,
			DeviceName: row.DeviceName,
			Reason:     reasonNoTender,
		})
	}

	for j, td := range tenders {
		if used[j] {
			continue
		}
		mismatches = append(mismatches, models.CardMismatch{
			Source:  models.MismatchSourceHotcake,
			PayType: td.payType,
			Amount:  td.amount,
			Time:    td.settlementTime,
			BillID:  td.billID,
			Reason:  reasonNoCardTransaction,
		})
	}

	return matches, mismatches
}
