package ingest

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"photobatch/internal/model"
)

// Имена колонок исходной таблицы.
const (
	ColumnFullName         = "Full Name"
	ColumnImageURL         = "Image URL"
	ColumnRegistrationDate = "Registration Date"
)

var (
	ErrParse        = errors.New("could not parse source document")
	ErrNoUsableRows = errors.New("no rows with both a name and an image URL")
)

// Row — строка таблицы в сыром виде. Cells содержит значения по именам
// колонок: string, float64 или int, в зависимости от источника.
type Row struct {
	Group string
	Cells map[string]any
}

// CreateTasks превращает строки в задачи в порядке следования. Строки без
// имени или без ссылки пропускаются молча; если не осталось ни одной, это
// ошибка ErrNoUsableRows. Строки со ссылкой не на http(s) дают задачу,
// сразу помеченную как skipped.
func CreateTasks(rows []Row) (model.Collection, error) {
	tasks := make(model.Collection, 0, len(rows))
	for _, row := range rows {
		name := cellString(row.Cells[ColumnFullName])
		link := cellString(row.Cells[ColumnImageURL])
		if name == "" || link == "" {
			continue
		}
		task := model.NewTask(row.Group, name, link, ParseDate(row.Cells[ColumnRegistrationDate]))
		if !fetchable(link) {
			skipped, err := task.Skip()
			if err != nil {
				return nil, fmt.Errorf("skip task %s: %w", task.ID, err)
			}
			task = skipped
		}
		tasks = append(tasks, task)
	}
	if len(tasks) == 0 {
		return nil, ErrNoUsableRows
	}
	return tasks, nil
}

func cellString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}

func fetchable(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// canonicalColumn maps a header cell to one of the known column names,
// ignoring case and surrounding whitespace. Unknown headers are returned trimmed.
func canonicalColumn(header string) string {
	h := strings.TrimSpace(header)
	for _, known := range []string{ColumnFullName, ColumnImageURL, ColumnRegistrationDate} {
		if strings.EqualFold(h, known) {
			return known
		}
	}
	return h
}
