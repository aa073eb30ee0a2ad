package loader

import (
	"io"

	"hotcake-cash-recon/internal/models"
	"hotcake-cash-recon/pkg/errors"
	"hotcake-cash-recon/pkg/logger"

	"github.com/xuri/excelize/v2"
)

// LoadCardMachine reads the card-machine transaction export from path.
func (l *Loader) LoadCardMachine(path string) ([]models.CardMachineRow, error) {
	f, err := l.open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := ParseCardMachine(f, path)
	if err != nil {
		return nil, err
	}

	l.logger.WithFields(logger.Fields{
		"file": path,
		"rows": len(rows),
	}).Info("Loaded card-machine export")
	return rows, nil
}

// LoadCardMachineReader reads the card-machine export from r; name is used
// in errors.
func (l *Loader) LoadCardMachineReader(r io.Reader, name string) ([]models.CardMachineRow, error) {
	f, err := openReader(r, name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseCardMachine(f, name)
}

// ParseCardMachine parses the card-machine export from an open workbook. The
// data is on the first sheet with the header on row 2.
func ParseCardMachine(f *excelize.File, file string) ([]models.CardMachineRow, error) {
	sheet := f.GetSheetList()[0]
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, file, err)
	}

	header := headerRowOf(rows, cardMachineHeaderRow)
	index := buildIndex(header)

	orderID := findFirst(index, "訂單編號")
	store := findFirst(index, "店鋪名稱", "分店", "門市", "店別")
	device := findFirst(index, "設備名稱", "機台名稱")
	amount := findFirst(index, "交易金額", "金額")
	paid := findFirst(index, "實付金額")
	txTime := findFirst(index, "交易時間", "時間")
	method := findFirst(index, "支付方式", "付款方式")

	var missing []string
	for _, c := range []struct {
		name string
		col  int
	}{
		{"訂單編號", orderID},
		{"店鋪名稱", store},
		{"設備名稱", device},
		{"交易金額", amount},
		{"實付金額", paid},
		{"交易時間", txTime},
		{"支付方式", method},
	} {
		if c.col == -1 {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.MissingColumnsError(file, "card machine", missing)
	}

	parsed := []models.CardMachineRow{}
	for r := cardMachineHeaderRow; r < len(rows); r++ {
		row := rows[r]

		id := cell(row, orderID)
		if id == "" {
			continue
		}
		transactionTime, ok := models.ParseDateTime(cell(row, txTime))
		if !ok {
			continue
		}

		amountVal, err := models.ParseAmount(cell(row, amount))
		if err != nil {
			return nil, errors.ValidationError(errors.CodeInvalidAmount, "交易金額", cell(row, amount), err).
				WithContext("file", file).
				WithContext("row", r+1)
		}
		paidVal, err := models.ParseAmount(cell(row, paid))
		if err != nil {
			return nil, errors.ValidationError(errors.CodeInvalidAmount, "實付金額", cell(row, paid), err).
				WithContext("file", file).
				WithContext("row", r+1)
		}

		parsed = append(parsed, models.CardMachineRow{
			OrderID:         id,
			Store:           cell(row, store),
			DeviceName:      cell(row, device),
			Amount:          amountVal,
			PaidAmount:      paidVal,
			TransactionTime: transactionTime,
			PayMethod:       cell(row, method),
		})
	}
	return parsed, nil
}
