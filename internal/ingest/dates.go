package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// spreadsheetEpoch — нулевой день серийных дат Excel/LibreOffice (система 1900
// с учётом ошибки високосного 1900 года).
var spreadsheetEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// ParseDate приводит значение ячейки к дате. Числа трактуются как серийные
// дни таблицы, строки — по списку форматов. Нераспознанное значение даёт nil.
func ParseDate(v any) *time.Time {
	switch d := v.(type) {
	case nil:
		return nil
	case float64:
		return fromSerial(d)
	case float32:
		return fromSerial(float64(d))
	case int:
		return fromSerial(float64(d))
	case int64:
		return fromSerial(float64(d))
	case time.Time:
		t := d.UTC()
		return &t
	case string:
		return parseDateString(d)
	}
	return nil
}

func parseDateString(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if looksLikeSerial(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromSerial(f)
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// looksLikeSerial отсекает короткие целые вроде "2024": в текстовой ячейке это
// скорее год, чем серийный день. Серийными считаются числа от пяти цифр
// (с мая 1927 года) или с дробной частью.
func looksLikeSerial(s string) bool {
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" || strings.Trim(whole, "0123456789") != "" {
		return false
	}
	if hasFrac {
		return frac != "" && strings.Trim(frac, "0123456789") == ""
	}
	return len(whole) >= 5
}

func fromSerial(days float64) *time.Time {
	if math.IsNaN(days) || math.IsInf(days, 0) || days <= 0 {
		return nil
	}
	// round to milliseconds, serial fractions are not exact
	ms := math.Round(days * 24 * float64(time.Hour/time.Millisecond))
	t := spreadsheetEpoch.Add(time.Duration(ms) * time.Millisecond)
	return &t
}
