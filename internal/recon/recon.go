// Package recon implements the cash reconciliation core.
//
// Given pre-parsed record collections for one store and time window, it
// computes how much cash should have been collected, flags serviced-but-
// unbilled orders, and cross-matches Hotcake-recorded payments against POS
// and card-machine records:
//  1. Scope every source to the store and period, each by its own
//     temporal anchor (orders by service start, top-ups by settlement
//     time, POS rows by creation time, card rows by transaction time).
//  2. Detect missing bills (checked-in orders with no billing record).
//  3. Greedily match order/bill cash against POS cash rows by designer,
//     duration, amount, and time proximity.
//  4. Greedily match non-cash tenders (credit card, LINE Pay) against
//     card-machine transactions by pay type, amount, and time proximity.
//  5. Aggregate totals and cross-source differentials.
//
// A run is a pure function of its inputs: all consumption bookkeeping is
// local to one BuildCashRecon call, so a Reconciler may be shared and
// invoked repeatedly, with identical inputs yielding identical results.
//
// The matching is deliberately greedy and input-order dependent, not an
// optimal assignment. Earlier orders claim POS rows first even when a later
// order would be a tighter fit. Reports have always been produced this way;
// changing the strategy would silently change which records get flagged.
package recon

import (
	"time"

	"hotcake-cash-recon/internal/models"
	"hotcake-cash-recon/pkg/errors"
	"hotcake-cash-recon/pkg/logger"
)

// MaxToleranceMinutes bounds the matching tolerance. Gaps beyond four hours
// pair records that cannot belong to the same visit.
const MaxToleranceMinutes = 240

// Options configures a Reconciler.
type Options struct {
	// TopupMode controls whether stored-value top-up bills enter the totals.
	TopupMode models.TopupMode `json:"topup_mode"`

	// ToleranceMinutes is the maximum time distance between two records for
	// them to be considered a match. Used identically by both matching passes.
	ToleranceMinutes int `json:"tolerance_minutes"`
}

// DefaultOptions returns the options used by the CLI when nothing is
// specified: top-ups counted by settlement time, 30 minute tolerance.
func DefaultOptions() Options {
	return Options{
		TopupMode:        models.TopupBySettlementTime,
		ToleranceMinutes: 30,
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	if !o.TopupMode.IsValid() {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "topup_mode", string(o.TopupMode), nil).
			WithSuggestion("use settlement_time or exclude")
	}
	if o.ToleranceMinutes < 0 || o.ToleranceMinutes > MaxToleranceMinutes {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "tolerance_minutes", o.ToleranceMinutes, nil).
			WithSuggestion("use a value between 0 and 240")
	}
	return nil
}

func (o Options) tolerance() time.Duration {
	return time.Duration(o.ToleranceMinutes) * time.Minute
}

// Reconciler runs cash reconciliations. It holds only immutable options and
// a logger; it is safe to reuse across runs and goroutines.
type Reconciler struct {
	opts   Options
	logger logger.Logger
}

// New creates a Reconciler with the given options.
func New(opts Options) (*Reconciler, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return &Reconciler{
		opts:   opts,
		logger: logger.Global().WithComponent("recon"),
	}, nil
}

// BuildCashRecon reconciles one store over one period.
//
// posOrders and cardRows are optional: nil means the export was not supplied,
// and the corresponding totals stay nil and mismatch lists empty. An empty
// non-nil slice means supplied-and-empty, producing zero totals.
func (r *Reconciler) BuildCashRecon(
	period models.Period,
	store string,
	orders []models.OrdersRow,
	bills models.HotcakeBills,
	posOrders []models.PosRow,
	cardRows []models.CardMachineRow,
) (*models.CashReconResult, error) {
	if err := period.Validate(); err != nil {
		return nil, errors.ValidationError(errors.CodeInvalidPeriod, "period", period.String(), err)
	}

	log := r.logger.WithFields(logger.Fields{
		"store":  store,
		"period": period.String(),
	})
	log.Info("Starting cash reconciliation")

	scopedOrders := scopeOrders(orders, store, period)
	missingBills, billIDs := detectMissingBills(scopedOrders)
	serviceRows := selectServiceBills(bills.Service, billIDs)

	topupRows := []models.BillRow{}
	if r.opts.TopupMode == models.TopupBySettlementTime {
		topupRows = scopeTopups(bills.Topup, store, period)
	}

	log.WithFields(logger.Fields{
		"orders":        len(scopedOrders),
		"service_bills": len(serviceRows),
		"topup_bills":   len(topupRows),
		"missing_bills": len(missingBills),
	}).Debug("Scoped Hotcake records")

	hotcakeMismatches := []models.CashMismatch{}
	posMismatches := []models.PosMismatch{}
	var scopedPos []models.PosRow
	if posOrders != nil {
		scopedPos = scopePos(posOrders, period)
		hotcakeMismatches, posMismatches = matchCash(scopedOrders, serviceRows, scopedPos, r.opts.tolerance())
	}

	scopedCard := []models.CardMachineRow{}
	cardMatches := []models.CardMatch{}
	cardMismatches := []models.CardMismatch{}
	if cardRows != nil {
		scopedCard = scopeCardRows(cardRows, store, period)
		cardMatches, cardMismatches = matchCard(serviceRows, scopedCard, r.opts.tolerance())
	}

	totals := computeTotals(serviceRows, topupRows, scopedPos, posOrders != nil, scopedCard, cardRows != nil)

	result := &models.CashReconResult{
		Period:            period,
		Store:             store,
		MissingBills:      missingBills,
		ServiceBillRows:   serviceRows,
		TopupBillRows:     topupRows,
		HotcakeMismatches: hotcakeMismatches,
		PosMismatches:     posMismatches,
		CardMachineRows:   scopedCard,
		CardMatches:       cardMatches,
		CardMismatches:    cardMismatches,
		Totals:            totals,
	}

	log.WithFields(logger.Fields{
		"missing_bills":      len(result.MissingBills),
		"hotcake_mismatches": len(result.HotcakeMismatches),
		"pos_mismatches":     len(result.PosMismatches),
		"card_matches":       len(result.CardMatches),
		"card_mismatches":    len(result.CardMismatches),
		"hotcake_cash_total": result.Totals.HotcakeCashTotal.String(),
	}).Info("Cash reconciliation completed")

	return result, nil
}
