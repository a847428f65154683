package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"photobatch/internal/download"
	"photobatch/internal/model"
)

const (
	ReportName = "failures_report.csv"
	dateLayout = "2006-01-02"
)

// ErrNothingToExport возвращается, когда в пакете нет ни одной скачанной задачи.
var ErrNothingToExport = errors.New("no completed tasks to export")

var reportHeader = []string{"Group", "Display Name", "Target Filename", "Source URL", "Failure Cause", "Registration Date"}

// Archive — готовый zip-архив и имя, под которым его отдают пользователю.
type Archive struct {
	Name  string
	Bytes []byte
	Files int
}

// Build собирает архив: по каталогу на группу с изображениями завершённых
// задач и отчёт об ошибках в корне, если есть выбранные задачи с ошибкой.
// Коллекция не изменяется.
func Build(tasks model.Collection, now time.Time) (Archive, error) {
	var completed, failed []model.Task
	for _, t := range tasks {
		switch {
		case t.State == model.StateCompleted:
			completed = append(completed, t)
		case t.State == model.StateFailed && t.Selected:
			failed = append(failed, t)
		}
	}
	if len(completed) == 0 {
		return Archive{}, ErrNothingToExport
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	names := newNameSet()
	for _, t := range completed {
		name := names.claim(path.Join(dirName(t.Group), t.TargetName), download.Extension(t.Payload, t.SourceURL))
		if err := writeEntry(zw, name, t.Payload, now); err != nil {
			return Archive{}, err
		}
	}

	if len(failed) > 0 {
		report, err := Report(failed)
		if err != nil {
			return Archive{}, err
		}
		if err := writeEntry(zw, ReportName, report, now); err != nil {
			return Archive{}, err
		}
	}

	if err := zw.Close(); err != nil {
		return Archive{}, fmt.Errorf("close archive: %w", err)
	}
	return Archive{
		Name:  ArchiveName(now),
		Bytes: buf.Bytes(),
		Files: len(completed),
	}, nil
}

// ArchiveName returns attendee_images_YYYY-MM-DD.zip for the given day.
func ArchiveName(now time.Time) string {
	return "attendee_images_" + now.Format(dateLayout) + ".zip"
}

// Report renders the failure report for the given tasks as CSV.
func Report(failed []model.Task) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(reportHeader); err != nil {
		return nil, err
	}
	for _, t := range failed {
		registered := ""
		if t.RegistrationDate != nil {
			registered = t.RegistrationDate.Format(dateLayout)
		}
		record := []string{t.Group, t.DisplayName, t.TargetName, t.SourceURL, t.ErrorDetail, registered}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write failure report: %w", err)
	}
	return buf.Bytes(), nil
}

func writeEntry(zw *zip.Writer, name string, data []byte, now time.Time) error {
	f, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: now})
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// dirName makes the group name safe to use as a single path segment.
func dirName(group string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "..", "_")
	g := strings.TrimSpace(r.Replace(group))
	if g == "" {
		return "Ungrouped"
	}
	return g
}

// nameSet раздаёт уникальные имена файлов внутри архива: повторное имя
// получает суффикс _2, _3 и так далее. Сравнение без учёта регистра, чтобы
// архив одинаково распаковывался на любой файловой системе.
type nameSet map[string]struct{}

func newNameSet() nameSet { return nameSet{} }

func (s nameSet) claim(base, ext string) string {
	name := base + ext
	for n := 2; ; n++ {
		key := strings.ToLower(name)
		if _, taken := s[key]; !taken {
			s[key] = struct{}{}
			return name
		}
		name = fmt.Sprintf("%s_%d%s", base, n, ext)
	}
}
