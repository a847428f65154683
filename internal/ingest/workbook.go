package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"photobatch/internal/model"
)

// ReadWorkbook читает .xlsx-документ. Каждый лист — отдельная группа,
// первая строка листа — заголовок. Значения читаются «сырыми», чтобы
// числовые даты остались серийными днями, а не отформатированным текстом.
func ReadWorkbook(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	defer f.Close()

	var rows []Row
	for _, sheet := range f.GetSheetList() {
		records, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %q: %v", ErrParse, sheet, err)
		}
		rows = append(rows, rowsFromRecords(sheet, records)...)
	}
	return rows, nil
}

// ReadCSV читает таблицу в формате CSV как одну группу.
func ReadCSV(r io.Reader, group string) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return rowsFromRecords(group, records), nil
}

// Read выбирает парсер по расширению имени файла.
func Read(r io.Reader, filename string) ([]Row, error) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".xlsx"), strings.HasSuffix(lower, ".xlsm"):
		return ReadWorkbook(r)
	case strings.HasSuffix(lower, ".csv"):
		return ReadCSV(r, groupFromFilename(filename))
	}
	return nil, fmt.Errorf("%w: unsupported file type %q", ErrParse, filename)
}

func rowsFromRecords(group string, records [][]string) []Row {
	if len(records) == 0 {
		return nil
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = canonicalColumn(h)
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		cells := make(map[string]any, len(header))
		for i, v := range rec {
			if i >= len(header) || header[i] == "" {
				continue
			}
			cells[header[i]] = cellValue(header[i], v)
		}
		rows = append(rows, Row{Group: group, Cells: cells})
	}
	return rows
}

// cellValue keeps numeric date cells as numbers so ParseDate treats them as serial days.
func cellValue(column, v string) any {
	if column == ColumnRegistrationDate {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return v
}

func groupFromFilename(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	if name == "" {
		return "Sheet1"
	}
	return name
}

// Load parses a document and builds the task collection in one step.
// Parse and validation errors abort the batch; no tasks are returned.
func Load(r io.Reader, filename string) (model.Collection, error) {
	rows, err := Read(r, filename)
	if err != nil {
		return nil, err
	}
	return CreateTasks(rows)
}
