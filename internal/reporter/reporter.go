// Package reporter renders a reconciliation result as an xlsx review
// workbook.
//
// The workbook opens with a Summary sheet (store, period, totals, and the
// missing-bill verdict) followed by one sheet per record list: missing
// bills, the scoped service and top-up bill rows, the two time-mismatch
// sheets from the cash pass, and the card-machine sheets. Sheet and column
// titles match the wording the back office has always reviewed, so the
// workbook drops into their existing checking routine.
package reporter

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"hotcake-cash-recon/internal/models"
	"hotcake-cash-recon/pkg/errors"
	"hotcake-cash-recon/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the review workbook.
const (
	SheetSummary         = "Summary"
	SheetMissingBills    = "MissingBills"
	SheetServiceBills    = "HotcakeBills_Service"
	SheetTopupBills      = "HotcakeBills_Topup"
	SheetHotcakeMismatch = "TimeMismatch_Hotcake"
	SheetPosMismatch     = "TimeMismatch_POS"
	SheetCardMachine     = "CardMachine"
	SheetCardMatches     = "CardMatches"
	SheetCardMismatch    = "CardMismatch"
)

const moneyFormat = "#,##0"

// Generator renders reconciliation results to xlsx.
type Generator struct {
	logger logger.Logger
}

// New creates a Generator.
func New() *Generator {
	return &Generator{
		logger: logger.Global().WithComponent("reporter"),
	}
}

// styles holds the style ids registered on one workbook.
type styles struct {
	title  int
	header int
	money  int
	ok     int
	bad    int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error

	if s.title, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}}); err != nil {
		return s, err
	}
	if s.header, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return s, err
	}
	moneyFmt := moneyFormat
	if s.money, err = f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt}); err != nil {
		return s, err
	}
	if s.ok, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E2EFDA"}, Pattern: 1},
	}); err != nil {
		return s, err
	}
	if s.bad, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FCE4D6"}, Pattern: 1},
	}); err != nil {
		return s, err
	}
	return s, nil
}

// BuildWorkbook renders the result into a new workbook.
func (g *Generator) BuildWorkbook(result *models.CashReconResult) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", SheetSummary)

	st, err := newStyles(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryReconciliation, errors.CodeProcessingError,
			"failed to register workbook styles")
	}

	if err := g.writeSummary(f, st, result); err != nil {
		return nil, err
	}
	if err := g.writeMissingBills(f, st, result.MissingBills); err != nil {
		return nil, err
	}
	if err := g.writeBillRows(f, st, SheetServiceBills, result.ServiceBillRows); err != nil {
		return nil, err
	}
	if err := g.writeBillRows(f, st, SheetTopupBills, result.TopupBillRows); err != nil {
		return nil, err
	}
	if err := g.writeHotcakeMismatches(f, st, result.HotcakeMismatches); err != nil {
		return nil, err
	}
	if err := g.writePosMismatches(f, st, result.PosMismatches); err != nil {
		return nil, err
	}
	if err := g.writeCardMachine(f, st, result.CardMachineRows); err != nil {
		return nil, err
	}
	if err := g.writeCardMatches(f, st, result.CardMatches); err != nil {
		return nil, err
	}
	if err := g.writeCardMismatches(f, st, result.CardMismatches); err != nil {
		return nil, err
	}

	g.logger.WithFields(logger.Fields{
		"store":  result.Store,
		"period": result.Period.String(),
	}).Debug("Built review workbook")
	return f, nil
}

// SaveWorkbook renders the result and writes it to path, creating parent
// directories as needed.
func (g *Generator) SaveWorkbook(result *models.CashReconResult, path string) error {
	f, err := g.BuildWorkbook(result)
	if err != nil {
		return err
	}
	defer f.Close()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.FileError(errors.CodeFileCorrupted, path, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return errors.FileError(errors.CodeFileCorrupted, path, err)
	}

	g.logger.WithField("path", path).Info("Saved review workbook")
	return nil
}

func fmtDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func fmtDateTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return fmtDateTime(*t)
}

// money converts a decimal for a numeric cell; the money style renders it
// with thousand separators.
func money(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func gapMinutes(d *time.Duration) interface{} {
	if d == nil {
		return ""
	}
	return d.Minutes()
}

func minutesOrBlank(m *int) interface{} {
	if m == nil {
		return ""
	}
	return *m
}

func (g *Generator) writeSummary(f *excelize.File, st styles, result *models.CashReconResult) error {
	set := func(cell string, value interface{}) {
		f.SetCellValue(SheetSummary, cell, value)
	}

	set("A1", "現金對帳表")
	f.SetCellStyle(SheetSummary, "A1", "A1", st.title)

	set("A3", "分店")
	set("B3", result.Store)
	set("A4", "區間開始")
	set("B4", fmtDateTime(result.Period.Start))
	set("A5", "區間結束")
	set("B5", fmtDateTime(result.Period.End))

	set("A7", "漏結帳筆數(已報到但帳單金額空)")
	set("B7", len(result.MissingBills))
	set("A8", "是否可視為正確現金對帳")
	if len(result.MissingBills) == 0 {
		set("B8", "是")
		f.SetCellStyle(SheetSummary, "B8", "B8", st.ok)
	} else {
		set("B8", "否")
		f.SetCellStyle(SheetSummary, "B8", "B8", st.bad)
	}

	set("A10", "Hotcake 服務現金(依訂單日期時間區間)")
	set("B10", money(result.Totals.HotcakeServiceCash))
	set("A11", "Hotcake 儲值金現金(依結帳操作時間區間)")
	set("B11", money(result.Totals.HotcakeTopupCash))
	set("A12", "Hotcake 現金合計")
	set("B12", money(result.Totals.HotcakeCashTotal))
	f.SetCellStyle(SheetSummary, "B10", "B12", st.money)

	set("A14", "收銀機現金合計(依建立時間區間)")
	set("A15", "收銀機現金 - Hotcake 現金合計")
	if result.Totals.PosCashTotal != nil {
		set("B14", money(*result.Totals.PosCashTotal))
		f.SetCellStyle(SheetSummary, "B14", "B14", st.money)
	}
	if result.Totals.PosCashDiff != nil {
		set("B15", money(*result.Totals.PosCashDiff))
		f.SetCellStyle(SheetSummary, "B15", "B15", st.money)
	}
	set("A16", "時間容忍外(Hotcake)筆數")
	set("B16", len(result.HotcakeMismatches))
	set("A17", "時間容忍外(POS)筆數")
	set("B17", len(result.PosMismatches))

	set("A19", "刷卡機實付合計(依交易時間區間)")
	if result.Totals.CardMachineTotal != nil {
		set("B19", money(*result.Totals.CardMachineTotal))
		f.SetCellStyle(SheetSummary, "B19", "B19", st.money)
	}
	set("A20", "刷卡配對成功筆數")
	set("B20", len(result.CardMatches))
	set("A21", "刷卡未配對筆數")
	set("B21", len(result.CardMismatches))

	for _, cell := range []string{
		"A3", "A4", "A5", "A7", "A8", "A10", "A11", "A12",
		"A14", "A15", "A16", "A17", "A19", "A20", "A21",
	} {
		f.SetCellStyle(SheetSummary, cell, cell, st.header)
	}
	return autoWidth(f, SheetSummary)
}

// newSheet creates a sheet with a styled header row and returns an append
// function writing successive data rows.
func newSheet(f *excelize.File, st styles, sheet string, headers []string) (func(values []interface{}) error, error) {
	if _, err := f.NewSheet(sheet); err != nil {
		return nil, errors.Wrap(err, errors.CategoryReconciliation, errors.CodeProcessingError,
			fmt.Sprintf("failed to create sheet %s", sheet))
	}

	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return nil, errors.Wrap(err, errors.CategoryReconciliation, errors.CodeProcessingError,
			fmt.Sprintf("failed to write header of sheet %s", sheet))
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	f.SetCellStyle(sheet, "A1", last, st.header)

	next := 2
	return func(values []interface{}) error {
		cell, err := excelize.CoordinatesToCellName(1, next)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return errors.Wrap(err, errors.CategoryReconciliation, errors.CodeProcessingError,
				fmt.Sprintf("failed to write row %d of sheet %s", next, sheet))
		}
		next++
		return nil
	}, nil
}

// moneyColumns applies the money format to whole data columns (1-based),
// from row 2 through rows.
func moneyColumns(f *excelize.File, st styles, sheet string, rows int, cols ...int) {
	if rows < 1 {
		return
	}
	for _, c := range cols {
		top, _ := excelize.CoordinatesToCellName(c, 2)
		bottom, _ := excelize.CoordinatesToCellName(c, rows+1)
		f.SetCellStyle(sheet, top, bottom, st.money)
	}
}

func (g *Generator) writeMissingBills(f *excelize.File, st styles, rows []models.MissingBillRow) error {
	appendRow, err := newSheet(f, st, SheetMissingBills, []string{
		"分店", "日期(服務開始)", "訂單編號(數字)", "訂單編號(代碼)", "日期時間(服務開始)",
		"設計師", "服務", "訂單狀態", "報到/取消時間", "會員姓名", "手機號碼",
	})
	if err != nil {
		return err
	}

	for _, r := range rows {
		if err := appendRow([]interface{}{
			r.Store,
			fmtDate(r.ServiceStart),
			r.OrderID,
			r.OrderCode,
			fmtDateTime(r.ServiceStart),
			r.Designer,
			r.Service,
			r.OrderStatus,
			fmtDateTimePtr(r.CheckinTime),
			r.MemberName,
			r.Phone,
		}); err != nil {
			return err
		}
	}
	return autoWidth(f, SheetMissingBills)
}

func (g *Generator) writeBillRows(f *excelize.File, st styles, sheet string, rows []models.BillRow) error {
	appendRow, err := newSheet(f, st, sheet, []string{
		"分店", "帳單編號", "結帳操作時間", "計算歸屬日", "設計師", "項目", "現金", "結帳金額",
	})
	if err != nil {
		return err
	}

	for _, r := range rows {
		if err := appendRow([]interface{}{
			r.Store,
			r.BillID,
			fmtDateTime(r.SettlementTime),
			fmtDate(r.AttributedDate),
			r.Designer,
			r.Item,
			money(r.Cash),
			money(r.BillAmount),
		}); err != nil {
			return err
		}
	}
	moneyColumns(f, st, sheet, len(rows), 7, 8)
	return autoWidth(f, sheet)
}

func (g *Generator) writeHotcakeMismatches(f *excelize.File, st styles, rows []models.CashMismatch) error {
	appendRow, err := newSheet(f, st, SheetHotcakeMismatch, []string{
		"分店", "日期(服務開始)", "日期時間(服務開始)", "設計師", "服務", "分鐘",
		"帳單編號", "帳單金額", "現金", "最近POS時間", "時間差(分鐘)", "最近POS現金", "現金差額", "原因",
	})
	if err != nil {
		return err
	}

	for _, r := range rows {
		nearestCash := interface{}("")
		cashDiff := interface{}("")
		if r.NearestCash != nil {
			nearestCash = money(*r.NearestCash)
		}
		if r.CashDiff != nil {
			cashDiff = money(*r.CashDiff)
		}
		if err := appendRow([]interface{}{
			r.Store,
			fmtDate(r.ServiceStart),
			fmtDateTime(r.ServiceStart),
			r.Designer,
			r.Service,
			minutesOrBlank(r.Minutes),
			r.BillID,
			money(r.BillAmount),
			money(r.Cash),
			fmtDateTimePtr(r.NearestTime),
			gapMinutes(r.NearestGap),
			nearestCash,
			cashDiff,
			r.Reason,
		}); err != nil {
			return err
		}
	}
	moneyColumns(f, st, SheetHotcakeMismatch, len(rows), 8, 9, 12, 13)
	return autoWidth(f, SheetHotcakeMismatch)
}

func (g *Generator) writePosMismatches(f *excelize.File, st styles, rows []models.PosMismatch) error {
	appendRow, err := newSheet(f, st, SheetPosMismatch, []string{
		"機台名稱", "日期(建立時間)", "日期時間(建立時間)", "設計師", "商品名稱", "分鐘",
		"現金支付", "最近Hotcake時間", "時間差(分鐘)",
	})
	if err != nil {
		return err
	}

	for _, r := range rows {
		if err := appendRow([]interface{}{
			r.TerminalName,
			fmtDate(r.CreatedTime),
			fmtDateTime(r.CreatedTime),
			r.Designer,
			r.ProductName,
			minutesOrBlank(r.Minutes),
			money(r.CashPaid),
			fmtDateTimePtr(r.NearestTime),
			gapMinutes(r.NearestGap),
		}); err != nil {
			return err
		}
	}
	moneyColumns(f, st, SheetPosMismatch, len(rows), 7)
	return autoWidth(f, SheetPosMismatch)
}

func (g *Generator) writeCardMachine(f *excelize.File, st styles, rows []models.CardMachineRow) error {
	appendRow, err := newSheet(f, st, SheetCardMachine, []string{
		"訂單編號", "店鋪名稱", "設備名稱", "交易金額", "實付金額", "交易時間", "支付方式",
	})
	if err != nil {
		return err
	}

	for _, r := range rows {
		if err := appendRow([]interface{}{
			r.OrderID,
			r.Store,
			r.DeviceName,
			money(r.Amount),
			money(r.PaidAmount),
			fmtDateTime(r.TransactionTime),
			r.PayMethod,
		}); err != nil {
			return err
		}
	}
	moneyColumns(f, st, SheetCardMachine, len(rows), 4, 5)
	return autoWidth(f, SheetCardMachine)
}

func (g *Generator) writeCardMatches(f *excelize.File, st styles, rows []models.CardMatch) error {
	appendRow, err := newSheet(f, st, SheetCardMatches, []string{
		"帳單編號", "支付方式", "金額", "結帳操作時間", "刷卡機訂單編號", "設備名稱", "交易時間", "時間差(分鐘)",
	})
	if err != nil {
		return err
	}

	for _, r := range rows {
		if err := appendRow([]interface{}{
			r.BillID,
			string(r.PayType),
			money(r.Amount),
			fmtDateTime(r.SettlementTime),
			r.CardOrderID,
			r.DeviceName,
			fmtDateTime(r.TransactionTime),
			r.Gap.Minutes(),
		}); err != nil {
			return err
		}
	}
	moneyColumns(f, st, SheetCardMatches, len(rows), 3)
	return autoWidth(f, SheetCardMatches)
}

func (g *Generator) writeCardMismatches(f *excelize.File, st styles, rows []models.CardMismatch) error {
	appendRow, err := newSheet(f, st, SheetCardMismatch, []string{
		"來源", "支付方式", "金額", "時間", "帳單編號", "刷卡機訂單編號", "設備名稱", "原因",
	})
	if err != nil {
		return err
	}

	for _, r := range rows {
		if err := appendRow([]interface{}{
			string(r.Source),
			string(r.PayType),
			money(r.Amount),
			fmtDateTime(r.Time),
			r.BillID,
			r.OrderID,
			r.DeviceName,
			r.Reason,
		}); err != nil {
			return err
		}
	}
	moneyColumns(f, st, SheetCardMismatch, len(rows), 3)
	return autoWidth(f, SheetCardMismatch)
}

// autoWidth sizes every column of a sheet to its longest cell text, clamped
// to a readable range.
func autoWidth(f *excelize.File, sheet string) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return errors.Wrap(err, errors.CategoryReconciliation, errors.CodeProcessingError,
			fmt.Sprintf("failed to read back sheet %s", sheet))
	}

	widths := make(map[int]int)
	for _, row := range rows {
		for c, v := range row {
			if n := len([]rune(v)); n > widths[c] {
				widths[c] = n
			}
		}
	}

	for c, w := range widths {
		width := float64(w + 2)
		if width < 10 {
			width = 10
		}
		if width > 45 {
			width = 45
		}
		name, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return err
		}
	}
	return nil
}
