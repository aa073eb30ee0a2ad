package recon

import (
	"time"

	"hotcake-cash-recon/internal/models"

	"github.com/shopspring/decimal"
)

const reasonDesignerMissing = "designer missing"
const reasonOutsideTolerance = "time outside tolerance or amount mismatch"

// matchCash runs the greedy cash matching pass between in-scope orders and
// POS cash rows.
//
// Orders are processed in input order, each claiming at most one POS row: the
// nearest unused row with the same designer and a compatible duration whose
// cash-paid equals the order's aggregated bill cash, provided it lies within
// the time tolerance. A claimed row is never reconsidered, so an earlier
// order keeps a row even when a later order would sit closer — ties and
// contention resolve by list position, matching how reports have always been
// produced.
//
// Orders that claim nothing become Hotcake-side mismatches carrying the
// nearest candidate's time and cash for manual review; POS rows left unused
// at the end become POS-side mismatches with nearest-order context.
func matchCash(
	orders []models.OrdersRow,
	serviceBills []models.BillRow,
	pos []models.PosRow,
	tolerance time.Duration,
) ([]models.CashMismatch, []models.PosMismatch) {
	// Aggregated cash per bill id; an order's expected cash is the sum over
	// every line item of its bill.
	cashByBill := make(map[string]decimal.Decimal)
	for _, b := range serviceBills {
		cashByBill[b.BillID] = cashByBill[b.BillID].Add(b.Cash)
	}

	// Consumption state is local to this call.
	used := make([]bool, len(pos))
	posNames := make([]string, len(pos))
	posMinutes := make([]*int, len(pos))
	for i, p := range pos {
		posNames[i] = posDesigner(p.ProductName)
		posMinutes[i] = ExtractMinutes(p.ProductName)
	}

	hotcakeMismatches := []models.CashMismatch{}

	for _, o := range orders {
		designer := normalizeDesigner(o.Designer)
		minutes := ExtractMinutes(o.Service)
		orderCash := cashByBill[o.BillID]

		if designer == "" {
			hotcakeMismatches = append(hotcakeMismatches, models.CashMismatch{
				Store:        o.Store,
				ServiceStart: o.ServiceStart,
				Designer:     o.Designer,
				Service:      o.Service,
				Minutes:      minutes,
				BillID:       o.BillID,
				BillAmount:   o.BillAmount,
				Cash:         orderCash,
				Reason:       reasonDesignerMissing,
			})
			continue
		}

		nearestIdx := -1
		var nearestGap time.Duration
		bestIdx := -1
		var bestGap time.Duration

		for i, p := range pos {
			if used[i] {
				continue
			}
			if posNames[i] != designer {
				continue
			}
			if minutes != nil && posMinutes[i] != nil && *minutes != *posMinutes[i] {
				continue
			}

			gap := absGap(p.CreatedTime, o.ServiceStart)
			if nearestIdx == -1 || gap < nearestGap {
				nearestIdx, nearestGap = i, gap
			}
			if p.CashPaid.Equal(orderCash) {
				if bestIdx == -1 || gap < bestGap {
					bestIdx, bestGap = i, gap
				}
			}
		}

		if bestIdx != -1 && bestGap <= tolerance {
			used[bestIdx] = true
			continue
		}

		mismatch := models.CashMismatch{
			Store:        o.Store,
			ServiceStart: o.ServiceStart,
			Designer:     o.Designer,
			Service:      o.Service,
			Minutes:      minutes,
			BillID:       o.BillID,
			BillAmount:   o.BillAmount,
			Cash:         orderCash,
			Reason:       reasonOutsideTolerance,
		}
		if nearestIdx != -1 {
			t := pos[nearestIdx].CreatedTime
			gap := nearestGap
			cash := pos[nearestIdx].CashPaid
			diff := cash.Sub(orderCash)
			mismatch.NearestTime = &t
			mismatch.NearestGap = &gap
			mismatch.NearestCash = &cash
			mismatch.CashDiff = &diff
		}
		hotcakeMismatches = append(hotcakeMismatches, mismatch)
	}

	// Every POS row never consumed is unexplained. The nearest same-designer
	// order is attached for diagnostics only; no tolerance gating here, the
	// row is already known unmatched.
	posMismatches := []models.PosMismatch{}
	for i, p := range pos {
		if used[i] {
			continue
		}

		name := posNames[i]
		nearestIdx := -1
		var nearestGap time.Duration
		for j, o := range orders {
			if normalizeDesigner(o.Designer) != name || name == "" {
				continue
			}
			gap := absGap(p.CreatedTime, o.ServiceStart)
			if nearestIdx == -1 || gap < nearestGap {
				nearestIdx, nearestGap = j, gap
			}
		}

		mismatch := models.PosMismatch{
			TerminalName: p.TerminalName,
			CreatedTime:  p.CreatedTime,
			Designer:     posDesignerRaw(p.ProductName),
			ProductName:  p.ProductName,
			Minutes:      posMinutes[i],
			CashPaid:     p.CashPaid,
		}
		if nearestIdx != -1 {
			t := orders[nearestIdx].ServiceStart
			gap := nearestGap
			mismatch.NearestTime = &t
			mismatch.NearestGap = &gap
		}
		posMismatches = append(posMismatches, mismatch)
	}

	return hotcakeMismatches, posMismatches
}
