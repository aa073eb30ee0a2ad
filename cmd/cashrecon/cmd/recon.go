package cmd

import (
	"fmt"
	"os"

	"hotcake-cash-recon/cmd/cashrecon/config"
	"hotcake-cash-recon/internal/loader"
	"hotcake-cash-recon/internal/models"
	"hotcake-cash-recon/internal/recon"
	"hotcake-cash-recon/internal/reporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the recon command
var (
	storeName        string
	startFlag        string
	endFlag          string
	ordersFile       string
	billsFile        string
	posFile          string
	cardFile         string
	topupMode        string
	toleranceMinutes int
	outFile          string
)

// Exit code when the reconciliation itself succeeds but missing bills were
// found: the workbook is still written, the verdict is just "no".
const exitMissingBills = 2

// missingBillsError carries the missing-bill exit code through cobra.
type missingBillsError struct {
	count int
}

func (e *missingBillsError) Error() string {
	return fmt.Sprintf("reconciliation flagged %d missing bill(s); see the MissingBills sheet", e.count)
}

func (e *missingBillsError) ExitCode() int {
	return exitMissingBills
}

// reconCmd represents the recon command
var reconCmd = &cobra.Command{
	Use:   "recon",
	Short: "Reconcile one store's cash over a period",
	Long: `Recon scopes the supplied exports to one store and period, detects
checked-in orders that were never billed, cross-matches Hotcake cash against
POS rows and non-cash tenders against card-machine transactions, and writes
an xlsx review workbook.

The orders and bills exports are required. The POS and card-machine exports
are optional; without them the corresponding sheets and totals stay empty.

Exit codes:
  0  reconciliation clean
  2  reconciliation ran but missing bills were found
  3+ file, parse, validation, or configuration failure

Examples:
  # Minimal: orders and bills only
  cashrecon recon --store 中壢三光店 --start 2026-01-01 --end 2026-01-31 \
    --orders orders.xlsx --bills bills.xlsx

  # Full: with POS and card-machine exports and a custom tolerance
  cashrecon recon --store 中壢三光店 --start 2026-01-01 --end 2026-01-31 \
    --orders orders.xlsx --bills bills.xlsx --pos pos.xlsx --card card.xlsx \
    --tolerance-minutes 15 --out recon.xlsx

  # Exclude stored-value top-ups from the totals
  cashrecon recon --store 中壢三光店 --start 2026-01-01 --end 2026-01-31 \
    --orders orders.xlsx --bills bills.xlsx --topup-mode exclude`,

	PreRunE: validateReconFlags,
	RunE:    runRecon,
}

func init() {
	rootCmd.AddCommand(reconCmd)

	// Required flags
	reconCmd.Flags().StringVar(&storeName, "store", "", "store name as it appears in the exports (required)")
	reconCmd.Flags().StringVar(&startFlag, "start", "", "period start, YYYY-MM-DD or \"YYYY-MM-DD HH:MM:SS\" (required)")
	reconCmd.Flags().StringVar(&endFlag, "end", "", "period end, YYYY-MM-DD or \"YYYY-MM-DD HH:MM:SS\" (required)")
	reconCmd.Flags().StringVar(&ordersFile, "orders", "", "path to the Hotcake orders xlsx export (required)")
	reconCmd.Flags().StringVar(&billsFile, "bills", "", "path to the Hotcake billing xlsx export (required)")

	// Optional exports
	reconCmd.Flags().StringVar(&posFile, "pos", "", "path to the POS history xlsx export")
	reconCmd.Flags().StringVar(&cardFile, "card", "", "path to the card-machine xlsx export")

	// Matching configuration
	reconCmd.Flags().StringVar(&topupMode, "topup-mode", string(models.TopupBySettlementTime),
		"how stored-value top-ups enter the totals: settlement_time, exclude")
	reconCmd.Flags().IntVar(&toleranceMinutes, "tolerance-minutes", recon.DefaultOptions().ToleranceMinutes,
		"matching time tolerance in minutes (0-240)")

	// Output
	reconCmd.Flags().StringVarP(&outFile, "out", "o", "", "output workbook path (default: derived from store and period)")

	// Mark required flags
	reconCmd.MarkFlagRequired("store")
	reconCmd.MarkFlagRequired("start")
	reconCmd.MarkFlagRequired("end")
	reconCmd.MarkFlagRequired("orders")
	reconCmd.MarkFlagRequired("bills")

	// Bind flags to viper
	viper.BindPFlag("store", reconCmd.Flags().Lookup("store"))
	viper.BindPFlag("start", reconCmd.Flags().Lookup("start"))
	viper.BindPFlag("end", reconCmd.Flags().Lookup("end"))
	viper.BindPFlag("orders", reconCmd.Flags().Lookup("orders"))
	viper.BindPFlag("bills", reconCmd.Flags().Lookup("bills"))
	viper.BindPFlag("pos", reconCmd.Flags().Lookup("pos"))
	viper.BindPFlag("card", reconCmd.Flags().Lookup("card"))
	viper.BindPFlag("topup-mode", reconCmd.Flags().Lookup("topup-mode"))
	viper.BindPFlag("tolerance-minutes", reconCmd.Flags().Lookup("tolerance-minutes"))
	viper.BindPFlag("out", reconCmd.Flags().Lookup("out"))
}

func validateReconFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	storeName = viper.GetString("store")
	startFlag = viper.GetString("start")
	endFlag = viper.GetString("end")
	ordersFile = viper.GetString("orders")
	billsFile = viper.GetString("bills")
	posFile = viper.GetString("pos")
	cardFile = viper.GetString("card")
	topupMode = viper.GetString("topup-mode")
	toleranceMinutes = viper.GetInt("tolerance-minutes")
	outFile = viper.GetString("out")

	if storeName == "" {
		return fmt.Errorf("store is required")
	}

	if _, err := config.BuildPeriod(startFlag, endFlag); err != nil {
		return err
	}
	if _, err := config.BuildReconOptions(topupMode, toleranceMinutes); err != nil {
		return err
	}

	if err := validateFileExists(ordersFile, "orders export"); err != nil {
		return err
	}
	if err := validateFileExists(billsFile, "billing export"); err != nil {
		return err
	}
	if posFile != "" {
		if err := validateFileExists(posFile, "POS export"); err != nil {
			return err
		}
	}
	if cardFile != "" {
		if err := validateFileExists(cardFile, "card-machine export"); err != nil {
			return err
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	return nil
}

func runRecon(cmd *cobra.Command, args []string) error {
	period, err := config.BuildPeriod(startFlag, endFlag)
	if err != nil {
		return err
	}
	opts, err := config.BuildReconOptions(topupMode, toleranceMinutes)
	if err != nil {
		return err
	}

	l := loader.New()

	orders, err := l.LoadOrders(ordersFile)
	if err != nil {
		return err
	}
	bills, err := l.LoadBills(billsFile)
	if err != nil {
		return err
	}

	var posOrders []models.PosRow
	if posFile != "" {
		if posOrders, err = l.LoadPos(posFile); err != nil {
			return err
		}
	}
	var cardRows []models.CardMachineRow
	if cardFile != "" {
		if cardRows, err = l.LoadCardMachine(cardFile); err != nil {
			return err
		}
	}

	r, err := recon.New(opts)
	if err != nil {
		return err
	}
	result, err := r.BuildCashRecon(period, storeName, orders, bills, posOrders, cardRows)
	if err != nil {
		return err
	}

	out := outFile
	if out == "" {
		out = config.DefaultOutputPath(storeName, period)
	}
	if err := reporter.New().SaveWorkbook(result, out); err != nil {
		return err
	}

	printSummary(cmd, result, out)

	if n := len(result.MissingBills); n > 0 {
		return &missingBillsError{count: n}
	}
	return nil
}

func printSummary(cmd *cobra.Command, result *models.CashReconResult, out string) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Store:                 %s\n", result.Store)
	fmt.Fprintf(w, "Period:                %s\n", result.Period.String())
	fmt.Fprintf(w, "Missing bills:         %d\n", len(result.MissingBills))
	fmt.Fprintf(w, "Hotcake cash total:    %s\n", result.Totals.HotcakeCashTotal.StringFixed(0))
	if result.Totals.PosCashTotal != nil {
		fmt.Fprintf(w, "POS cash total:        %s\n", result.Totals.PosCashTotal.StringFixed(0))
		fmt.Fprintf(w, "POS - Hotcake diff:    %s\n", result.Totals.PosCashDiff.StringFixed(0))
		fmt.Fprintf(w, "Cash mismatches:       %d Hotcake-side, %d POS-side\n",
			len(result.HotcakeMismatches), len(result.PosMismatches))
	}
	if result.Totals.CardMachineTotal != nil {
		fmt.Fprintf(w, "Card-machine total:    %s\n", result.Totals.CardMachineTotal.StringFixed(0))
		fmt.Fprintf(w, "Card matches:          %d matched, %d unexplained\n",
			len(result.CardMatches), len(result.CardMismatches))
	}
	fmt.Fprintf(w, "Report:                %s\n", out)
}
