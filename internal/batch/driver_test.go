package batch

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aigoflow/estimate-time/internal/cache"
)

func writeInputCSV(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	if err := os.WriteFile(path, []byte(lines), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readOutputCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return records
}

func newTestDriver(t *testing.T, q *fakeQuerier, repeats int) (*Driver, string) {
	t.Helper()
	cacheDir := t.TempDir()
	return &Driver{
		Processor: &Processor{
			Client:  q,
			Cache:   cache.NewResolver(cacheDir),
			Model:   "test-model",
			Repeats: repeats,
			RunID:   "01TESTRUN",
		},
	}, cacheDir
}

func TestRun_SingleRowMixedAttempts(t *testing.T) {
	q := &fakeQuerier{responses: []fakeResponse{
		{text: `{"seconds": 10}`},
		{text: `{"seconds": 8}`},
		{err: errors.New("connection reset")},
	}}
	d, cacheDir := newTestDriver(t, q, 3)
	writeCacheEntry(t, cacheDir, "Foo.java", "public class Foo {}")

	input := writeInputCSV(t, "file_path,measures\nFoo.java,42\n")
	output := filepath.Join(t.TempDir(), "out.csv")

	if err := d.Run(context.Background(), input, output); err != nil {
		t.Fatalf("Run: %v", err)
	}

	records := readOutputCSV(t, output)
	if len(records) != 2 {
		t.Fatalf("records = %d, want header + 1 row", len(records))
	}

	wantHeader := []string{"file_path", "our_seconds", "llm_seconds_0", "llm_seconds_1", "llm_seconds_2"}
	for i, col := range wantHeader {
		if records[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, records[0][i], col)
		}
	}

	wantRow := []string{"Foo.java", "42", "10", "8", "-1"}
	for i, col := range wantRow {
		if records[1][i] != col {
			t.Errorf("row[%d] = %q, want %q", i, records[1][i], col)
		}
	}
}

func TestRun_SecondRowCacheMissingAborts(t *testing.T) {
	q := &fakeQuerier{responses: []fakeResponse{
		{text: `{"seconds": 5}`},
	}}
	d, cacheDir := newTestDriver(t, q, 1)
	writeCacheEntry(t, cacheDir, "A.java", "class A {}")
	// B.java deliberately has no cache entry.

	input := writeInputCSV(t, "file_path,measures\nA.java,11\nB.java,22\n")
	output := filepath.Join(t.TempDir(), "out.csv")

	err := d.Run(context.Background(), input, output)
	if err == nil {
		t.Fatal("Run should fail when a row's cached content is unreadable")
	}

	// The first row was flushed before the failure and must survive.
	records := readOutputCSV(t, output)
	if len(records) != 2 {
		t.Fatalf("records = %d, want header + 1 completed row", len(records))
	}
	if records[1][0] != "A.java" || records[1][1] != "11" || records[1][2] != "5" {
		t.Errorf("surviving row = %v", records[1])
	}
}

func TestRun_MalformedResponseSingleRepeat(t *testing.T) {
	q := &fakeQuerier{responses: []fakeResponse{{text: "not json"}}}
	d, cacheDir := newTestDriver(t, q, 1)
	writeCacheEntry(t, cacheDir, "Foo.java", "x")

	input := writeInputCSV(t, "file_path,measures\nFoo.java,9\n")
	output := filepath.Join(t.TempDir(), "out.csv")

	if err := d.Run(context.Background(), input, output); err != nil {
		t.Fatalf("Run: %v", err)
	}

	records := readOutputCSV(t, output)
	if records[1][2] != "-1" {
		t.Errorf("attempt value = %q, want -1", records[1][2])
	}
}

func TestRun_PreservesInputOrderAndPassthrough(t *testing.T) {
	q := &fakeQuerier{responses: []fakeResponse{
		{text: `{"seconds": 1}`},
		{text: `{"seconds": 2}`},
		{text: `{"seconds": 3}`},
	}}
	d, cacheDir := newTestDriver(t, q, 1)
	for _, f := range []string{"C.java", "A.java", "B.java"} {
		writeCacheEntry(t, cacheDir, f, "class X {}")
	}

	input := writeInputCSV(t, "file_path,measures\nC.java,3.5\nA.java,1.5\nB.java,2.5\n")
	output := filepath.Join(t.TempDir(), "out.csv")

	if err := d.Run(context.Background(), input, output); err != nil {
		t.Fatalf("Run: %v", err)
	}

	records := readOutputCSV(t, output)
	wantOrder := []string{"C.java", "A.java", "B.java"}
	wantMeasures := []string{"3.5", "1.5", "2.5"}
	for i, want := range wantOrder {
		if records[i+1][0] != want {
			t.Errorf("row %d file = %q, want %q (order must match input)", i, records[i+1][0], want)
		}
		if records[i+1][1] != wantMeasures[i] {
			t.Errorf("row %d measures = %q, want %q unmodified", i, records[i+1][1], wantMeasures[i])
		}
	}
}

func TestRun_CanceledBeforeRows(t *testing.T) {
	q := &fakeQuerier{}
	d, cacheDir := newTestDriver(t, q, 1)
	writeCacheEntry(t, cacheDir, "Foo.java", "x")

	input := writeInputCSV(t, "file_path,measures\nFoo.java,1\n")
	output := filepath.Join(t.TempDir(), "out.csv")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.Run(ctx, input, output); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if q.calls != 0 {
		t.Errorf("no inference should run after interruption, got %d calls", q.calls)
	}

	// Header only: no data row for the interrupted iteration.
	records := readOutputCSV(t, output)
	if len(records) != 1 {
		t.Errorf("records = %d, want header only", len(records))
	}
}

func TestReadInput_ExtraColumnsIgnored(t *testing.T) {
	input := writeInputCSV(t, "repo,file_path,loc,measures\nr1,Foo.java,120,42\n")

	rows, err := ReadInput(input)
	if err != nil {
		t.Fatalf("ReadInput: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].FilePath != "Foo.java" || rows[0].Measures != "42" {
		t.Errorf("row = %+v", rows[0])
	}
}

func TestReadInput_MissingColumns(t *testing.T) {
	input := writeInputCSV(t, "path,value\nFoo.java,42\n")
	if _, err := ReadInput(input); err == nil {
		t.Fatal("ReadInput should fail without file_path and measures columns")
	}
}

func TestReadInput_MissingFile(t *testing.T) {
	if _, err := ReadInput(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Fatal("ReadInput should fail for a missing input file")
	}
}
