package workbook

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/stockfloat/internal/ingest"
)

func TestReadXLSXEverySheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "AUS"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetSheetRow("AUS", "A1", &[]any{"State", "Wine", "Jan-25"}); err != nil {
		t.Fatal(err)
	}
	if err := f.SetSheetRow("AUS", "A2", &[]any{"NSW", "JT SAB 22", 100}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.NewSheet("USA"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetSheetRow("USA", "A1", &[]any{"Market", "Brand", "Sales"}); err != nil {
		t.Fatal(err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	sheets, err := Read(bytes.NewReader(buf.Bytes()), "upload.xlsx")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(sheets) != 2 || sheets[0].Name != "AUS" || sheets[1].Name != "USA" {
		t.Fatalf("sheets = %+v", sheets)
	}
	if got := sheets[0].Rows[1]; len(got) != 3 || got[0] != "NSW" || got[2] != "100" {
		t.Errorf("row = %v", got)
	}
}

func TestReadDelimited(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"comma", "State,Wine,Qty\nNSW,JT SAB,10\n", []string{"NSW", "JT SAB", "10"}},
		{"semicolon", "State;Wine;Qty\nNSW;JT SAB;10\n", []string{"NSW", "JT SAB", "10"}},
		{"tab", "State\tWine\tQty\nNSW\tJT SAB\t10\n", []string{"NSW", "JT SAB", "10"}},
		{"bom and ragged", "\xef\xbb\xbfState,Wine,Qty\nNSW,JT SAB\n", []string{"NSW", "JT SAB"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheets, err := Read(strings.NewReader(tt.input), "NZL stock.csv")
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if len(sheets) != 1 || sheets[0].Name != "NZL stock" {
				t.Fatalf("sheets = %+v", sheets)
			}
			if sheets[0].Rows[0][0] != "State" {
				t.Errorf("header = %q", sheets[0].Rows[0])
			}
			got := sheets[0].Rows[1]
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("row = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := Read(strings.NewReader("x"), "report.pdf"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, ingest.Sheet{Name: "x", Rows: [][]string{{"a", "b,c"}, {"1"}}})
	if err != nil {
		t.Fatal(err)
	}
	if buf.String() != "a,\"b,c\"\n1\n" {
		t.Errorf("csv = %q", buf.String())
	}
}
