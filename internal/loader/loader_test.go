package loader

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"hotcake-cash-recon/pkg/errors"
)

func setRow(t *testing.T, f *excelize.File, sheet string, row int, values []interface{}) {
	t.Helper()
	cell, err := excelize.CoordinatesToCellName(1, row)
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow(sheet, cell, &values))
}

var ordersHeader = []interface{}{
	"訂單編號", "日期時間", "分店", "設計師", "服務", "訂單狀態",
	"報到/取消時間", "會員姓名", "手機號碼", "帳單編號", "帳單金額", "訂單編號",
}

func ordersWorkbook(t *testing.T, dataRows ...[]interface{}) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", SheetOrders)
	setRow(t, f, SheetOrders, 1, ordersHeader)
	for i, row := range dataRows {
		setRow(t, f, SheetOrders, i+2, row)
	}
	return f
}

func TestParseOrders(t *testing.T) {
	f := ordersWorkbook(t,
		[]interface{}{"1001", "2026/01/05 10:00", "中壢三光店", "Amy", "洗剪吹 60分鐘", "已報到",
			"2026/01/05 09:55", "王小明", "0912345678", "B1", "1,000", "A001"},
		[]interface{}{"1002", "2026/01/05 11:00", "中壢三光店", "Bob", "剪髮 30分鐘", "已報到",
			"", "李小華", "0922333444", "", "", ""},
		[]interface{}{"", "2026/01/05 12:00", "中壢三光店", "Cat", "", "", "", "", "", "", "", ""},
		[]interface{}{"1004", "not a date", "中壢三光店", "Dan", "", "", "", "", "", "", "", ""},
	)

	rows, err := ParseOrders(f, "orders.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 2, "blank-id and bad-date rows must be skipped")

	first := rows[0]
	assert.Equal(t, "1001", first.OrderID)
	assert.Equal(t, "A001", first.OrderCode)
	assert.Equal(t, time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC), first.ServiceStart)
	assert.Equal(t, "中壢三光店", first.Store)
	assert.Equal(t, "Amy", first.Designer)
	assert.Equal(t, "已報到", first.OrderStatus)
	assert.Equal(t, "B1", first.BillID)
	assert.True(t, first.BillAmount.Equal(decimal.NewFromInt(1000)), "thousand separator must parse")
	require.NotNil(t, first.CheckinTime)
	assert.Equal(t, time.Date(2026, 1, 5, 9, 55, 0, 0, time.UTC), *first.CheckinTime)

	second := rows[1]
	assert.Empty(t, second.BillID)
	assert.True(t, second.BillAmount.IsZero(), "empty amount cell means zero")
	assert.Nil(t, second.CheckinTime)
}

func TestParseOrders_MissingColumns(t *testing.T) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", SheetOrders)
	setRow(t, f, SheetOrders, 1, []interface{}{"訂單編號", "日期時間", "分店"})

	_, err := ParseOrders(f, "orders.xlsx")
	require.Error(t, err)

	re, ok := errors.AsReconError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeMissingColumn, re.Code)
	assert.Contains(t, re.Message, "設計師")
	assert.Contains(t, re.Message, "帳單編號")
}

func TestParseOrders_FallsBackToFirstSheet(t *testing.T) {
	f := excelize.NewFile()
	setRow(t, f, "Sheet1", 1, ordersHeader)
	setRow(t, f, "Sheet1", 2, []interface{}{"1001", "2026/01/05 10:00", "店", "Amy", "剪髮", "已報到",
		"", "", "", "", "", ""})

	rows, err := ParseOrders(f, "orders.xlsx")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

var billsHeader = []interface{}{
	"帳單編號", "結帳操作時間", "計算歸屬日", "分店", "設計師", "項目",
	"現金", "信用卡", "LinePay", "結帳金額",
}

func billsWorkbook(t *testing.T, service, topup [][]interface{}) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", SheetServiceBills)
	_, err := f.NewSheet(SheetTopupBills)
	require.NoError(t, err)

	setRow(t, f, SheetServiceBills, 1, billsHeader)
	for i, row := range service {
		setRow(t, f, SheetServiceBills, i+2, row)
	}
	setRow(t, f, SheetTopupBills, 1, billsHeader)
	for i, row := range topup {
		setRow(t, f, SheetTopupBills, i+2, row)
	}
	return f
}

func TestParseBills(t *testing.T) {
	f := billsWorkbook(t,
		[][]interface{}{
			{"B1", "2026/01/05 11:00", "2026/01/05", "中壢三光店", "Amy", "洗剪吹",
				"700", "800", "200", "1,700"},
			{"B1", "2026/01/05 11:00", "2026/01/05", "中壢三光店", "Amy", "護髮",
				"300", "", "", "300"},
			{"B2", "bad time", "2026/01/05", "中壢三光店", "Bob", "剪髮", "500", "", "", "500"},
		},
		[][]interface{}{
			{"T1", "2026/01/10 15:00", "2026/01/10", "中壢三光店", "Amy", "儲值",
				"2000", "", "", "2000"},
		},
	)

	bills, err := ParseBills(f, "bills.xlsx")
	require.NoError(t, err)

	require.Len(t, bills.Service, 2, "row with unparsable settlement time must be skipped")
	first := bills.Service[0]
	assert.Equal(t, "B1", first.BillID)
	assert.Equal(t, time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC), first.SettlementTime)
	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), first.AttributedDate)
	assert.True(t, first.Cash.Equal(decimal.NewFromInt(700)))
	assert.True(t, first.CreditCard.Equal(decimal.NewFromInt(800)))
	assert.True(t, first.LinePay.Equal(decimal.NewFromInt(200)))
	assert.True(t, first.BillAmount.Equal(decimal.NewFromInt(1700)))
	assert.True(t, bills.Service[1].CreditCard.IsZero(), "empty tender cell means zero")

	require.Len(t, bills.Topup, 1)
	assert.Equal(t, "T1", bills.Topup[0].BillID)
	assert.True(t, bills.Topup[0].Cash.Equal(decimal.NewFromInt(2000)))
}

func TestParseBills_MissingSheet(t *testing.T) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", SheetServiceBills)
	setRow(t, f, SheetServiceBills, 1, billsHeader)

	_, err := ParseBills(f, "bills.xlsx")
	require.Error(t, err)

	re, ok := errors.AsReconError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeMissingSheet, re.Code)
	assert.Equal(t, SheetTopupBills, re.Context["sheet"])
}

var posHeader = []interface{}{
	"商品名稱", "建立時間", "機台名稱", "訂單金額", "現金支付", "付款狀態", "訂單狀態", "付款方式",
}

func posWorkbook(t *testing.T, dataRows ...[]interface{}) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	setRow(t, f, "Sheet1", 1, []interface{}{"歷史訂單報表"})
	setRow(t, f, "Sheet1", 3, posHeader)
	for i, row := range dataRows {
		setRow(t, f, "Sheet1", i+4, row)
	}
	return f
}

func TestParsePos(t *testing.T) {
	f := posWorkbook(t,
		[]interface{}{"Amy,洗剪吹60分鐘", "2026/01/05 10:05", "三光店A機", "1,000", "1,000",
			"已付款", "完成", "現金"},
		[]interface{}{"", "2026/01/05 10:10", "三光店A機", "0", "0", "", "", ""},
	)

	rows, err := ParsePos(f, "pos.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 1, "row without a product name must be skipped")

	row := rows[0]
	assert.Equal(t, "Amy,洗剪吹60分鐘", row.ProductName)
	assert.Equal(t, time.Date(2026, 1, 5, 10, 5, 0, 0, time.UTC), row.CreatedTime)
	assert.Equal(t, "三光店A機", row.TerminalName)
	assert.True(t, row.OrderAmount.Equal(decimal.NewFromInt(1000)))
	assert.True(t, row.CashPaid.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, "現金", row.PayMethod)
}

func TestParsePos_MissingColumns(t *testing.T) {
	f := excelize.NewFile()
	setRow(t, f, "Sheet1", 1, []interface{}{"歷史訂單報表"})
	setRow(t, f, "Sheet1", 3, []interface{}{"商品名稱", "建立時間"})

	_, err := ParsePos(f, "pos.xlsx")
	require.Error(t, err)

	re, ok := errors.AsReconError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeMissingColumn, re.Code)
	assert.Contains(t, re.Message, "現金支付")
}

var cardHeader = []interface{}{
	"訂單編號", "店鋪名稱", "設備名稱", "交易金額", "實付金額", "交易時間", "支付方式",
}

func cardWorkbook(t *testing.T, dataRows ...[]interface{}) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	setRow(t, f, "Sheet1", 1, []interface{}{"智慧刷卡機交易紀錄"})
	setRow(t, f, "Sheet1", 2, cardHeader)
	for i, row := range dataRows {
		setRow(t, f, "Sheet1", i+3, row)
	}
	return f
}

func TestParseCardMachine(t *testing.T) {
	f := cardWorkbook(t,
		[]interface{}{"C1", "中壢三光店", "A8-01", "800", "800", "2026/01/05 11:02", "信用卡"},
		[]interface{}{"C2", "中壢三光店", "A8-01", "200", "200", "2026/01/05 11:03", "LINE Pay"},
		[]interface{}{"", "", "", "", "", "", ""},
	)

	rows, err := ParseCardMachine(f, "card.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "C1", rows[0].OrderID)
	assert.Equal(t, "A8-01", rows[0].DeviceName)
	assert.True(t, rows[0].PaidAmount.Equal(decimal.NewFromInt(800)))
	assert.Equal(t, time.Date(2026, 1, 5, 11, 2, 0, 0, time.UTC), rows[0].TransactionTime)
	assert.Equal(t, "信用卡", rows[0].PayMethod)
	assert.Equal(t, "LINE Pay", rows[1].PayMethod)
}

func TestLoadOrders_FileNotFound(t *testing.T) {
	l := New()

	_, err := l.LoadOrders("does-not-exist.xlsx")
	require.Error(t, err)

	re, ok := errors.AsReconError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeFileNotFound, re.Code)
	assert.Equal(t, 3, re.GetExitCode())
}
