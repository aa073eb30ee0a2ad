package loader

import (
	"io"

	"hotcake-cash-recon/internal/models"
	"hotcake-cash-recon/pkg/errors"
	"hotcake-cash-recon/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// LoadBills reads the Hotcake billing report from path. The workbook must
// carry both the 服務 (service) and 儲值金 (stored-value top-up) sheets.
func (l *Loader) LoadBills(path string) (models.HotcakeBills, error) {
	f, err := l.open(path)
	if err != nil {
		return models.HotcakeBills{}, err
	}
	defer f.Close()

	bills, err := ParseBills(f, path)
	if err != nil {
		return models.HotcakeBills{}, err
	}

	l.logger.WithFields(logger.Fields{
		"file":         path,
		"service_rows": len(bills.Service),
		"topup_rows":   len(bills.Topup),
	}).Info("Loaded billing report")
	return bills, nil
}

// LoadBillsReader reads the billing report from r; name is used in errors.
func (l *Loader) LoadBillsReader(r io.Reader, name string) (models.HotcakeBills, error) {
	f, err := openReader(r, name)
	if err != nil {
		return models.HotcakeBills{}, err
	}
	defer f.Close()
	return ParseBills(f, name)
}

// ParseBills parses the billing report from an open workbook.
func ParseBills(f *excelize.File, file string) (models.HotcakeBills, error) {
	if !hasSheet(f, SheetServiceBills) {
		return models.HotcakeBills{}, errors.SheetError(file, SheetServiceBills)
	}
	if !hasSheet(f, SheetTopupBills) {
		return models.HotcakeBills{}, errors.SheetError(file, SheetTopupBills)
	}

	service, err := parseBillSheet(f, SheetServiceBills, file)
	if err != nil {
		return models.HotcakeBills{}, err
	}
	topup, err := parseBillSheet(f, SheetTopupBills, file)
	if err != nil {
		return models.HotcakeBills{}, err
	}

	return models.HotcakeBills{Service: service, Topup: topup}, nil
}

// parseBillSheet parses one bill sheet. The service and top-up sheets share
// a layout; the non-cash tender columns are optional and default to zero
// when the export omits them.
func parseBillSheet(f *excelize.File, sheet, file string) ([]models.BillRow, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, file, err)
	}

	header := headerRowOf(rows, billsHeaderRow)
	index := buildIndex(header)

	billID := findFirst(index, "帳單編號")
	settle := findFirst(index, "結帳操作時間", "結帳時間", "操作時間")
	attr := findFirst(index, "計算歸屬日", "歸屬日")
	store := findFirst(index, "分店", "門市", "店別")
	designer := findFirst(index, "設計師", "師傅", "服務人員")
	item := findFirst(index, "項目", "服務項目", "商品名稱")
	cash := findFirst(index, "現金", "現金支付", "現金收款")
	credit := findFirst(index, "信用卡", "刷卡")
	linepay := findFirst(index, "Linepay", "Line Pay", "LINE PAY")
	amount := findFirst(index, "結帳金額", "帳單金額", "應收金額")

	var missing []string
	for _, c := range []struct {
		name string
		col  int
	}{
		{"帳單編號", billID},
		{"結帳操作時間", settle},
		{"計算歸屬日", attr},
		{"分店", store},
		{"設計師", designer},
		{"項目", item},
		{"現金", cash},
		{"結帳金額", amount},
	} {
		if c.col == -1 {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.MissingColumnsError(file, "hotcake bills ("+sheet+")", missing)
	}

	parsed := []models.BillRow{}
	for r := billsHeaderRow; r < len(rows); r++ {
		row := rows[r]

		id := cell(row, billID)
		if id == "" {
			continue
		}
		settlementTime, ok := models.ParseDateTime(cell(row, settle))
		if !ok {
			continue
		}
		attributedDate, ok := models.ParseDate(cell(row, attr))
		if !ok {
			continue
		}

		bill := models.BillRow{
			BillID:         id,
			SettlementTime: settlementTime,
			AttributedDate: attributedDate,
			Store:          cell(row, store),
			Designer:       cell(row, designer),
			Item:           cell(row, item),
		}

		for _, amt := range []struct {
			field string
			col   int
			dst   *decimal.Decimal
		}{
			{"現金", cash, &bill.Cash},
			{"信用卡", credit, &bill.CreditCard},
			{"Linepay", linepay, &bill.LinePay},
			{"結帳金額", amount, &bill.BillAmount},
		} {
			if amt.col == -1 {
				continue
			}
			d, err := models.ParseAmount(cell(row, amt.col))
			if err != nil {
				return nil, errors.ValidationError(errors.CodeInvalidAmount, amt.field, cell(row, amt.col), err).
					WithContext("file", file).
					WithContext("sheet", sheet).
					WithContext("row", r+1)
			}
			*amt.dst = d
		}

		parsed = append(parsed, bill)
	}
	return parsed, nil
}
