package recon

import (
	"hotcake-cash-recon/internal/models"

	"github.com/shopspring/decimal"
)

func sumBillCash(rows []models.BillRow) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Cash)
	}
	return total
}

func sumPosCash(rows []models.PosRow) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.CashPaid)
	}
	return total
}

func sumCardPaid(rows []models.CardMachineRow) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.PaidAmount)
	}
	return total
}

// computeTotals aggregates cash across the scoped sources. POS and
// card-machine totals exist only when the corresponding export was supplied;
// "supplied and zero" stays distinguishable from "not supplied". Mismatch
// status never affects totals: an unexplained row still carried cash.
func computeTotals(
	serviceRows, topupRows []models.BillRow,
	posRows []models.PosRow, posSupplied bool,
	cardRows []models.CardMachineRow, cardSupplied bool,
) models.CashTotals {
	serviceCash := sumBillCash(serviceRows)
	topupCash := sumBillCash(topupRows)

	totals := models.CashTotals{
		HotcakeServiceCash: serviceCash,
		HotcakeTopupCash:   topupCash,
		HotcakeCashTotal:   serviceCash.Add(topupCash),
	}

	if posSupplied {
		posTotal := sumPosCash(posRows)
		posDiff := posTotal.Sub(totals.HotcakeCashTotal)
		totals.PosCashTotal = &posTotal
		totals.PosCashDiff = &posDiff
	}

	if cardSupplied {
		cardTotal := sumCardPaid(cardRows)
		totals.CardMachineTotal = &cardTotal
	}

	return totals
}
