package ingest

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"photobatch/internal/model"
)

func row(group, name, link string, date any) Row {
	cells := map[string]any{ColumnFullName: name, ColumnImageURL: link}
	if date != nil {
		cells[ColumnRegistrationDate] = date
	}
	return Row{Group: group, Cells: cells}
}

func TestCreateTasksSkipsIncompleteRows(t *testing.T) {
	rows := []Row{
		row("A", "Jane Doe", "https://example.com/1.jpg", nil),
		row("A", "", "https://example.com/2.jpg", nil),
		row("A", "John Roe", "   ", nil),
		row("B", "  Doe, John  ", " https://example.com/3.jpg ", "2024-03-05"),
		{Group: "B", Cells: map[string]any{ColumnFullName: "No Link"}},
	}
	tasks, err := CreateTasks(rows)
	if err != nil {
		t.Fatalf("CreateTasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	if tasks[0].DisplayName != "Jane Doe" || tasks[1].DisplayName != "Doe, John" {
		t.Errorf("tasks out of encounter order or not trimmed: %q, %q", tasks[0].DisplayName, tasks[1].DisplayName)
	}
	if tasks[1].SourceURL != "https://example.com/3.jpg" {
		t.Errorf("SourceURL not trimmed: %q", tasks[1].SourceURL)
	}
	if tasks[1].TargetName != "Doe.John" {
		t.Errorf("TargetName = %q", tasks[1].TargetName)
	}
	if tasks[0].RegistrationDate != nil {
		t.Errorf("missing date should stay absent")
	}
	if tasks[1].RegistrationDate == nil || !tasks[1].RegistrationDate.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("RegistrationDate = %v", tasks[1].RegistrationDate)
	}
	if tasks[0].ID == tasks[1].ID {
		t.Error("task IDs must be unique")
	}
}

func TestCreateTasksNoUsableRows(t *testing.T) {
	_, err := CreateTasks([]Row{row("A", "", "", nil)})
	if !errors.Is(err, ErrNoUsableRows) {
		t.Fatalf("err = %v, want ErrNoUsableRows", err)
	}
}

func TestCreateTasksSkipsUnfetchableLinks(t *testing.T) {
	tasks, err := CreateTasks([]Row{
		row("A", "Jane Doe", "see email", nil),
		row("A", "John Roe", "ftp://example.com/x.jpg", nil),
		row("A", "Ann Poe", "http://example.com/x.jpg", nil),
	})
	if err != nil {
		t.Fatalf("CreateTasks: %v", err)
	}
	want := []model.State{model.StateSkipped, model.StateSkipped, model.StatePending}
	for i, w := range want {
		if tasks[i].State != w {
			t.Errorf("task %d state = %s, want %s", i, tasks[i].State, w)
		}
	}
}

func TestParseDate(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	cases := []struct {
		name string
		in   any
		want *time.Time
	}{
		{"serial", float64(45356), ptr(day(2024, 3, 5))},
		{"serial int", 45356, ptr(day(2024, 3, 5))},
		{"serial noon", 45356.5, ptr(day(2024, 3, 5).Add(12 * time.Hour))},
		{"serial string", "45356", ptr(day(2024, 3, 5))},
		{"serial string fraction", "45356.25", ptr(day(2024, 3, 5).Add(6 * time.Hour))},
		{"year as text", "2024", nil},
		{"signed text", "-45356", nil},
		{"iso", "2024-03-05", ptr(day(2024, 3, 5))},
		{"us", "3/5/2024", ptr(day(2024, 3, 5))},
		{"long", "March 5, 2024", ptr(day(2024, 3, 5))},
		{"rfc3339", "2024-03-05T10:00:00Z", ptr(day(2024, 3, 5).Add(10 * time.Hour))},
		{"garbage", "next tuesday", nil},
		{"empty", "  ", nil},
		{"nil", nil, nil},
		{"negative", float64(-3), nil},
	}
	for _, c := range cases {
		got := ParseDate(c.in)
		switch {
		case c.want == nil && got != nil:
			t.Errorf("%s: got %v, want nil", c.name, *got)
		case c.want != nil && (got == nil || !got.Equal(*c.want)):
			t.Errorf("%s: got %v, want %v", c.name, got, *c.want)
		}
	}
}

func ptr(t time.Time) *time.Time { return &t }

func TestReadCSV(t *testing.T) {
	doc := "full name, IMAGE URL ,Registration Date\n" +
		"\"Doe, Jane\",https://example.com/a.jpg,2024-01-02\n" +
		"John Roe,https://example.com/b.jpg,\n"
	tasks, err := Load(strings.NewReader(doc), "uploads/Day 1.csv")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	if tasks[0].Group != "Day 1" {
		t.Errorf("Group = %q, want Day 1", tasks[0].Group)
	}
	if tasks[0].TargetName != "Doe.Jane" || tasks[0].RegistrationDate == nil {
		t.Errorf("unexpected first task: %+v", tasks[0])
	}
	if tasks[1].RegistrationDate != nil {
		t.Errorf("empty date cell should be absent")
	}
}

func TestReadUnsupported(t *testing.T) {
	if _, err := Read(strings.NewReader("x"), "people.txt"); !errors.Is(err, ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}
}

func TestReadWorkbookMalformed(t *testing.T) {
	if _, err := ReadWorkbook(strings.NewReader("not a zip")); !errors.Is(err, ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}
}

func TestReadWorkbookSheetsAreGroups(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "Day 1"); err != nil {
		t.Fatalf("SetSheetName: %v", err)
	}
	if _, err := f.NewSheet("Day 2"); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	cells := []struct {
		sheet, axis string
		value any
	}{
		{"Day 1", "A1", "Full Name"}, {"Day 1", "B1", "Image URL"}, {"Day 1", "C1", "Registration Date"},
		{"Day 1", "A2", "Jane Doe"}, {"Day 1", "B2", "https://example.com/a.jpg"}, {"Day 1", "C2", 45356},
		{"Day 2", "A1", "Full Name"}, {"Day 2", "B1", "Image URL"},
		{"Day 2", "A2", "John Roe"}, {"Day 2", "B2", "https://example.com/b.jpg"},
		{"Day 2", "A3", "Nobody"},
	}
	for _, c := range cells {
		if err := f.SetCellValue(c.sheet, c.axis, c.value); err != nil {
			t.Fatalf("SetCellValue %s!%s: %v", c.sheet, c.axis, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	rows, err := ReadWorkbook(buf)
	if err != nil {
		t.Fatalf("ReadWorkbook: %v", err)
	}
	tasks, err := CreateTasks(rows)
	if err != nil {
		t.Fatalf("CreateTasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	if tasks[0].Group != "Day 1" || tasks[1].Group != "Day 2" {
		t.Errorf("groups = %q, %q", tasks[0].Group, tasks[1].Group)
	}
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	if tasks[0].RegistrationDate == nil || !tasks[0].RegistrationDate.Equal(want) {
		t.Errorf("serial date = %v, want %v", tasks[0].RegistrationDate, want)
	}
}
