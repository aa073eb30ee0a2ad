package loader

import (
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Kind classifies an xlsx export by its content.
type Kind string

const (
	KindHotcakeOrders Kind = "hotcake_orders"
	KindHotcakeBills  Kind = "hotcake_bills"
	KindPosOrders     Kind = "pos_orders"
	KindCardMachine   Kind = "card_machine"
	KindUnknown       Kind = "unknown"
)

// Detection is the result of classifying a workbook.
type Detection struct {
	Kind   Kind   `json:"kind"`
	Reason string `json:"reason"`
	Sheet  string `json:"sheet,omitempty"`
}

// Detect classifies the xlsx file at path. Unreadable files classify as
// unknown rather than failing; detection is a convenience, not a gate.
func (l *Loader) Detect(path string) Detection {
	f, err := l.open(path)
	if err != nil {
		return Detection{Kind: KindUnknown, Reason: "cannot open workbook: " + err.Error()}
	}
	defer f.Close()
	return DetectWorkbook(f)
}

// DetectReader classifies a workbook read from r.
func DetectReader(r io.Reader, name string) Detection {
	f, err := openReader(r, name)
	if err != nil {
		return Detection{Kind: KindUnknown, Reason: "cannot open workbook: " + err.Error()}
	}
	defer f.Close()
	return DetectWorkbook(f)
}

// DetectWorkbook classifies an open workbook by sheet names and header
// content, in order of specificity: the billing report is the only one with
// the 服務/儲值金 sheet pair, the orders report names its sheet, and the POS
// and card-machine exports are recognized by their banner row plus header
// depth.
func DetectWorkbook(f *excelize.File) Detection {
	first := f.GetSheetList()[0]

	if hasSheet(f, SheetServiceBills) && hasSheet(f, SheetTopupBills) {
		if index, ok := headerIndex(f, SheetServiceBills, billsHeaderRow); ok {
			if findFirst(index, "帳單編號") != -1 && findFirst(index, "結帳操作時間", "結帳時間") != -1 {
				return Detection{
					Kind:   KindHotcakeBills,
					Reason: "has the 服務/儲值金 sheet pair with a billing header",
					Sheet:  SheetServiceBills,
				}
			}
		}
	}

	if hasSheet(f, SheetOrders) {
		if index, ok := headerIndex(f, SheetOrders, ordersHeaderRow); ok {
			if findFirst(index, "訂單編號") != -1 &&
				findFirst(index, "日期時間", "服務日期時間", "服務開始時間", "開始時間") != -1 {
				return Detection{
					Kind:   KindHotcakeOrders,
					Reason: "has the 訂單報表 sheet with a booking header",
					Sheet:  SheetOrders,
				}
			}
		}
	}

	// POS exports open with a 歷史訂單 banner above the row-3 header.
	if banner, err := f.GetCellValue(first, "A1"); err == nil && strings.Contains(banner, "歷史訂單") {
		if index, ok := headerIndex(f, first, posHeaderRow); ok {
			if findFirst(index, "商品名稱") != -1 && findFirst(index, "建立時間") != -1 &&
				findFirst(index, "現金支付") != -1 {
				return Detection{
					Kind:   KindPosOrders,
					Reason: "banner and row-3 header match the POS history export",
					Sheet:  first,
				}
			}
		}
	}

	// Card-machine exports keep their header on row 2.
	if index, ok := headerIndex(f, first, cardMachineHeaderRow); ok {
		if findFirst(index, "訂單編號") != -1 && findFirst(index, "實付金額") != -1 &&
			findFirst(index, "交易時間") != -1 {
			return Detection{
				Kind:   KindCardMachine,
				Reason: "row-2 header matches the card-machine export",
				Sheet:  first,
			}
		}
	}

	// Fallbacks for exports missing their usual sheet name or banner.
	if index, ok := headerIndex(f, first, 1); ok {
		if findFirst(index, "訂單編號") != -1 &&
			findFirst(index, "日期時間", "服務開始時間") != -1 {
			return Detection{
				Kind:   KindHotcakeOrders,
				Reason: "first-sheet header matches the booking report",
				Sheet:  first,
			}
		}
	}
	if index, ok := headerIndex(f, first, posHeaderRow); ok {
		if findFirst(index, "商品名稱") != -1 && findFirst(index, "建立時間") != -1 &&
			findFirst(index, "現金支付") != -1 {
			return Detection{
				Kind:   KindPosOrders,
				Reason: "row-3 header matches the POS history export",
				Sheet:  first,
			}
		}
	}

	return Detection{Kind: KindUnknown, Reason: "no supported report layout recognized"}
}

// headerIndex reads the given 1-based header row of a sheet into a
// normalized column index.
func headerIndex(f *excelize.File, sheet string, headerRow int) (map[string]int, bool) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, false
	}
	header := headerRowOf(rows, headerRow)
	if header == nil {
		return nil, false
	}
	return buildIndex(header), true
}
