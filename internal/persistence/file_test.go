package persistence_test

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/betocq/betocq/internal/persistence"
)

type record struct {
	Test string
}

func TestWriteDataFile(t *testing.T) {
	tempDir := t.TempDir()
	testdata := record{Test: "foo"}

	df, err := persistence.WriteDataFile(tempDir, "iteration", "wifilan", "fake-uuid", testdata)
	if err != nil {
		t.Fatalf("cannot write data file: %v", err)
	}
	if df.Prefix != tempDir || df.Datatype != "iteration" ||
		df.Subtype != "wifilan" || df.UUID != "fake-uuid" {
		t.Fatalf("invalid field values in DataFile: %+v", df)
	}
	if !strings.HasSuffix(df.Path, ".fake-uuid.json.gz") {
		t.Errorf("unexpected file name: %s", df.Path)
	}

	// The file must round-trip through gzip + JSON.
	fp, err := os.Open(df.Path)
	if err != nil {
		t.Fatalf("cannot open written file: %v", err)
	}
	defer fp.Close()
	gz, err := gzip.NewReader(fp)
	if err != nil {
		t.Fatalf("cannot create gzip reader: %v", err)
	}
	var got record
	if err := json.NewDecoder(gz).Decode(&got); err != nil {
		t.Fatalf("cannot decode record: %v", err)
	}
	if got != testdata {
		t.Errorf("decoded record = %+v, want %+v", got, testdata)
	}
}

func TestWriteDataFile_NoSubtype(t *testing.T) {
	tempDir := t.TempDir()
	df, err := persistence.WriteDataFile(tempDir, "run", "", "fake-uuid", record{Test: "bar"})
	if err != nil {
		t.Fatalf("cannot write data file: %v", err)
	}
	if strings.Contains(df.Path, "run--") {
		t.Errorf("empty subtype produced double separator: %s", df.Path)
	}
}

func TestWriteDataFile_Unmarshalable(t *testing.T) {
	tempDir := t.TempDir()
	if _, err := persistence.WriteDataFile(tempDir, "broken", "", "fake-uuid", make(chan int)); err == nil {
		t.Errorf("expected error for unmarshalable value")
	}
}
