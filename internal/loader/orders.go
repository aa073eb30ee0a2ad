package loader

import (
	"io"

	"hotcake-cash-recon/internal/models"
	"hotcake-cash-recon/pkg/errors"
	"hotcake-cash-recon/pkg/logger"

	"github.com/xuri/excelize/v2"
)

// ordersColumns holds the resolved 0-based column indices of the orders
// report.
type ordersColumns struct {
	orderID      int
	orderCode    int
	serviceStart int
	store        int
	designer     int
	service      int
	status       int
	checkin      int
	memberName   int
	phone        int
	billID       int
	billAmount   int
}

// LoadOrders reads the Hotcake booking/orders report from path.
func (l *Loader) LoadOrders(path string) ([]models.OrdersRow, error) {
	f, err := l.open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := ParseOrders(f, path)
	if err != nil {
		return nil, err
	}

	l.logger.WithFields(logger.Fields{
		"file": path,
		"rows": len(rows),
	}).Info("Loaded orders report")
	return rows, nil
}

// LoadOrdersReader reads the orders report from r; name is used in errors.
func (l *Loader) LoadOrdersReader(r io.Reader, name string) ([]models.OrdersRow, error) {
	f, err := openReader(r, name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseOrders(f, name)
}

// ParseOrders parses the orders report from an open workbook. The data lives
// on the 訂單報表 sheet when present, otherwise on the first sheet.
func ParseOrders(f *excelize.File, file string) ([]models.OrdersRow, error) {
	sheet := sheetOrFirst(f, SheetOrders)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, file, err)
	}

	header := headerRowOf(rows, ordersHeaderRow)
	index := buildIndex(header)

	cols := ordersColumns{
		orderID:      findFirst(index, "訂單編號"),
		serviceStart: findFirst(index, "日期時間", "服務日期時間", "服務開始時間", "開始時間"),
		store:        findFirst(index, "分店", "門市", "店別"),
		designer:     findFirst(index, "設計師", "師傅", "服務人員"),
		service:      findFirst(index, "服務", "服務項目", "項目"),
		status:       findFirst(index, "訂單狀態", "狀態"),
		checkin:      findFirst(index, "報到/取消時間", "報到取消時間"),
		memberName:   findFirst(index, "會員姓名", "姓名"),
		phone:        findFirst(index, "手機號碼", "電話號碼", "手機", "電話"),
		billID:       findFirst(index, "帳單編號"),
		billAmount:   findFirst(index, "帳單金額", "結帳金額", "帳單總額"),
	}

	var missing []string
	for _, c := range []struct {
		name string
		col  int
	}{
		{"訂單編號", cols.orderID},
		{"日期時間", cols.serviceStart},
		{"分店", cols.store},
		{"設計師", cols.designer},
		{"服務", cols.service},
		{"訂單狀態", cols.status},
		{"報到/取消時間", cols.checkin},
		{"會員姓名", cols.memberName},
		{"手機號碼", cols.phone},
		{"帳單編號", cols.billID},
		{"帳單金額", cols.billAmount},
	} {
		if c.col == -1 {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.MissingColumnsError(file, "hotcake orders", missing)
	}

	// The export repeats 訂單編號: the first column is the numeric id, a
	// second occurrence (when present) carries the booking code.
	cols.orderCode = -1
	seen := 0
	for i, name := range header {
		if normalizeHeader(name) == normalizeHeader("訂單編號") {
			seen++
			if seen == 2 {
				cols.orderCode = i
				break
			}
		}
	}

	return parseOrderRows(rows, cols, file)
}

func parseOrderRows(rows [][]string, cols ordersColumns, file string) ([]models.OrdersRow, error) {
	parsed := []models.OrdersRow{}
	for r := ordersHeaderRow; r < len(rows); r++ {
		row := rows[r]

		orderID := cell(row, cols.orderID)
		if orderID == "" {
			continue
		}
		serviceStart, ok := models.ParseDateTime(cell(row, cols.serviceStart))
		if !ok {
			continue
		}

		billAmount, err := models.ParseAmount(cell(row, cols.billAmount))
		if err != nil {
			return nil, errors.ValidationError(errors.CodeInvalidAmount, "帳單金額", cell(row, cols.billAmount), err).
				WithContext("file", file).
				WithContext("row", r+1)
		}

		order := models.OrdersRow{
			OrderID:      orderID,
			ServiceStart: serviceStart,
			Store:        cell(row, cols.store),
			Designer:     cell(row, cols.designer),
			Service:      cell(row, cols.service),
			OrderStatus:  cell(row, cols.status),
			BillID:       cell(row, cols.billID),
			BillAmount:   billAmount,
			MemberName:   cell(row, cols.memberName),
			Phone:        cell(row, cols.phone),
		}
		if t, ok := models.ParseDateTime(cell(row, cols.checkin)); ok {
			order.CheckinTime = &t
		}
		if cols.orderCode != -1 {
			order.OrderCode = cell(row, cols.orderCode)
		}

		parsed = append(parsed, order)
	}
	return parsed, nil
}
