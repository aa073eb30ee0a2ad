package loader

import (
	"io"

	"hotcake-cash-recon/internal/models"
	"hotcake-cash-recon/pkg/errors"
	"hotcake-cash-recon/pkg/logger"

	"github.com/xuri/excelize/v2"
)

// LoadPos reads the POS terminal history export from path.
func (l *Loader) LoadPos(path string) ([]models.PosRow, error) {
	f, err := l.open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := ParsePos(f, path)
	if err != nil {
		return nil, err
	}

	l.logger.WithFields(logger.Fields{
		"file": path,
		"rows": len(rows),
	}).Info("Loaded POS history export")
	return rows, nil
}

// LoadPosReader reads the POS export from r; name is used in errors.
func (l *Loader) LoadPosReader(r io.Reader, name string) ([]models.PosRow, error) {
	f, err := openReader(r, name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParsePos(f, name)
}

// ParsePos parses the POS history export from an open workbook. The data is
// on the first sheet with the header on row 3, below the export's summary
// lines.
func ParsePos(f *excelize.File, file string) ([]models.PosRow, error) {
	sheet := f.GetSheetList()[0]
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, file, err)
	}

	header := headerRowOf(rows, posHeaderRow)
	index := buildIndex(header)

	product := findFirst(index, "商品名稱", "品項", "項目")
	created := findFirst(index, "建立時間", "建立日期時間", "時間")
	terminal := findFirst(index, "機台名稱", "門市", "店別")
	amount := findFirst(index, "訂單金額", "應收金額", "金額")
	cash := findFirst(index, "現金支付", "現金")
	payStatus := findFirst(index, "付款狀態", "支付狀態")
	orderStatus := findFirst(index, "訂單狀態", "狀態")
	payMethod := findFirst(index, "付款方式", "支付方式")

	var missing []string
	for _, c := range []struct {
		name string
		col  int
	}{
		{"商品名稱", product},
		{"建立時間", created},
		{"機台名稱", terminal},
		{"訂單金額", amount},
		{"現金支付", cash},
		{"付款狀態", payStatus},
		{"訂單狀態", orderStatus},
		{"付款方式", payMethod},
	} {
		if c.col == -1 {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.MissingColumnsError(file, "pos history", missing)
	}

	parsed := []models.PosRow{}
	for r := posHeaderRow; r < len(rows); r++ {
		row := rows[r]

		productName := cell(row, product)
		if productName == "" {
			continue
		}
		createdTime, ok := models.ParseDateTime(cell(row, created))
		if !ok {
			continue
		}

		orderAmount, err := models.ParseAmount(cell(row, amount))
		if err != nil {
			return nil, errors.ValidationError(errors.CodeInvalidAmount, "訂單金額", cell(row, amount), err).
				WithContext("file", file).
				WithContext("row", r+1)
		}
		cashPaid, err := models.ParseAmount(cell(row, cash))
		if err != nil {
			return nil, errors.ValidationError(errors.CodeInvalidAmount, "現金支付", cell(row, cash), err).
				WithContext("file", file).
				WithContext("row", r+1)
		}

		parsed = append(parsed, models.PosRow{
			ProductName:  productName,
			CreatedTime:  createdTime,
			TerminalName: cell(row, terminal),
			OrderAmount:  orderAmount,
			CashPaid:     cashPaid,
			PayStatus:    cell(row, payStatus),
			OrderStatus:  cell(row, orderStatus),
			PayMethod:    cell(row, payMethod),
		})
	}
	return parsed, nil
}
