// Package loader reads the four supported xlsx exports into typed records.
//
// The exports come from three different systems (Hotcake, the POS terminal,
// and the card machine) and none of them keeps a stable layout: header rows
// sit at different depths, column titles drift between exports, and spacing
// and punctuation vary. Columns are therefore located by normalized-name
// lookup against a list of known aliases rather than by position, and a
// missing required column fails the load with the full list of what could
// not be found.
//
// Data rows are tolerant: a row without its key field (order id, bill id,
// product name) or without a parsable timestamp is skipped, matching how the
// exports pad sheets with summary and blank rows.
package loader

import (
	"io"
	"os"
	"strings"

	"hotcake-cash-recon/pkg/errors"
	"hotcake-cash-recon/pkg/logger"

	"github.com/xuri/excelize/v2"
)

// Worksheet names used by the Hotcake exports.
const (
	SheetOrders       = "訂單報表"
	SheetServiceBills = "服務"
	SheetTopupBills   = "儲值金"
)

// Header rows are 1-based worksheet rows; the POS and card-machine exports
// put summary lines above their headers.
const (
	ordersHeaderRow      = 1
	billsHeaderRow       = 1
	posHeaderRow         = 3
	cardMachineHeaderRow = 2
)

// Loader reads xlsx report files from disk.
type Loader struct {
	logger logger.Logger
}

// New creates a Loader.
func New() *Loader {
	return &Loader{
		logger: logger.Global().WithComponent("loader"),
	}
}

func (l *Loader) open(path string) (*excelize.File, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	return f, nil
}

func openReader(r io.Reader, name string) (*excelize.File, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, name, err)
	}
	return f, nil
}

// normalizeHeader collapses the formatting drift seen in export headers:
// spaces (ASCII and full-width), full-width punctuation, dashes and
// underscores are stripped, the rest lower-cased.
func normalizeHeader(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "　", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "：", ":")
	s = strings.ReplaceAll(s, "／", "/")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "_", "")
	return strings.ToLower(s)
}

// buildIndex maps normalized header names to 0-based column indices. The
// first occurrence of a name wins; later duplicates are handled separately
// where they matter.
func buildIndex(header []string) map[string]int {
	index := make(map[string]int)
	for i, name := range header {
		key := normalizeHeader(name)
		if key == "" {
			continue
		}
		if _, exists := index[key]; exists {
			continue
		}
		index[key] = i
	}
	return index
}

// findFirst returns the column index of the first alias present in the
// header index, or -1 when none is.
func findFirst(index map[string]int, aliases ...string) int {
	for _, a := range aliases {
		if i, ok := index[normalizeHeader(a)]; ok {
			return i
		}
	}
	return -1
}

// cell returns the trimmed cell text at col, or "" when the row is shorter.
// GetRows drops trailing empty cells, so short rows are normal.
func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// headerRowOf returns the 1-based headerRow from rows, or nil when the sheet
// has fewer rows.
func headerRowOf(rows [][]string, headerRow int) []string {
	if len(rows) < headerRow {
		return nil
	}
	return rows[headerRow-1]
}

// sheetOrFirst returns the named sheet when present, otherwise the first
// sheet of the workbook.
func sheetOrFirst(f *excelize.File, name string) string {
	for _, s := range f.GetSheetList() {
		if s == name {
			return s
		}
	}
	return f.GetSheetList()[0]
}

func hasSheet(f *excelize.File, name string) bool {
	for _, s := range f.GetSheetList() {
		if s == name {
			return true
		}
	}
	return false
}
