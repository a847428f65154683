package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"sort"
	"testing"
	"time"

	"photobatch/internal/model"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n0000")
	jpegBytes = []byte("\xff\xd8\xff\xe0" + "0000")
)

func completed(group, name, url string, payload []byte) model.Task {
	t, _ := model.NewTask(group, name, url, nil).Start()
	t, _ = t.Complete(payload)
	return t
}

func failed(group, name, cause string, selected bool) model.Task {
	d := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	t, _ := model.NewTask(group, name, "https://x.test/"+name, &d).Start()
	t, _ = t.Fail(cause)
	return t.WithSelected(selected)
}

func readArchive(t *testing.T, a Archive) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(a.Bytes), int64(len(a.Bytes)))
	if err != nil {
		t.Fatalf("archive is not a zip: %v", err)
	}
	files := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		b, _ := io.ReadAll(rc)
		rc.Close()
		files[f.Name] = b
	}
	return files
}

func TestBuild(t *testing.T) {
	now := time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)
	tasks := model.Collection{
		completed("Day 1", "Jane Doe", "https://x.test/a.jpg", jpegBytes),
		completed("Day 1", "Bob Stone", "https://x.test/b", pngBytes),
		completed("Day 2", "Ann Lee", "https://x.test/c.jpg", jpegBytes),
		failed("Day 2", "Max Payne", "HTTP 404 Not Found", true),
		failed("Day 2", "Hidden One", "network error: timeout", false),
		model.NewTask("Day 1", "Still Pending", "https://x.test/p.jpg", nil),
	}

	a, err := Build(tasks, now)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if a.Name != "attendee_images_2024-06-01.zip" || a.Files != 3 {
		t.Errorf("archive = %q with %d files", a.Name, a.Files)
	}

	files := readArchive(t, a)
	var names []string
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)
	want := []string{"Day 1/Doe.Jane.jpg", "Day 1/Stone.Bob.png", "Day 2/Lee.Ann.jpg", ReportName}
	if len(names) != len(want) {
		t.Fatalf("entries = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, names[i], want[i])
		}
	}
	if !bytes.Equal(files["Day 1/Stone.Bob.png"], pngBytes) {
		t.Error("payload bytes changed in the archive")
	}

	records, err := csv.NewReader(bytes.NewReader(files[ReportName])).ReadAll()
	if err != nil {
		t.Fatalf("report is not CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("report rows = %d, want header plus one failed selected task", len(records))
	}
	row := records[1]
	if row[0] != "Day 2" || row[1] != "Max Payne" || row[2] != "Payne.Max" || row[4] != "HTTP 404 Not Found" || row[5] != "2024-03-05" {
		t.Errorf("report row = %v", row)
	}
}

func TestBuildWithoutFailuresHasNoReport(t *testing.T) {
	a, err := Build(model.Collection{completed("g", "A B", "https://x.test/a.jpg", jpegBytes)}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := readArchive(t, a)[ReportName]; ok {
		t.Error("report must be omitted when nothing failed")
	}
}

func TestBuildDisambiguatesDuplicateNames(t *testing.T) {
	tasks := model.Collection{
		completed("g", "John Smith", "https://x.test/1.jpg", jpegBytes),
		completed("g", "Smith, John", "https://x.test/2.jpg", jpegBytes),
		completed("g", "john smith", "https://x.test/3.jpg", jpegBytes),
		completed("other", "John Smith", "https://x.test/4.jpg", jpegBytes),
	}
	a, err := Build(tasks, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	files := readArchive(t, a)
	for _, n := range []string{"g/Smith.John.jpg", "g/Smith.John_2.jpg", "g/smith.john_3.jpg", "other/Smith.John.jpg"} {
		if _, ok := files[n]; !ok {
			t.Errorf("missing entry %q in %v", n, files)
		}
	}
}

func TestBuildNothingToExport(t *testing.T) {
	tasks := model.Collection{failed("g", "A B", "HTTP 500 Internal Server Error", true)}
	if _, err := Build(tasks, time.Now()); !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("err = %v, want ErrNothingToExport", err)
	}
}

func TestReportQuotesFields(t *testing.T) {
	out, err := Report([]model.Task{failed("g", "Doe, Jane", `cause with "quotes", commas`, true)})
	if err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if records[1][1] != "Doe, Jane" || records[1][4] != `cause with "quotes", commas` {
		t.Errorf("round trip lost quoting: %v", records[1])
	}
}
