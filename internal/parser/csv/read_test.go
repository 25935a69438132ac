package csv

import (
	"strings"
	"testing"
)

func TestRead_SkipsHeaderRows(t *testing.T) {
	in := "Measure Title,ID\n(merged header),\nA,M1\nB,M2\n"

	rows, err := Read(strings.NewReader(in), Options{HeaderRows: 2, TrimSpace: true})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 data rows, got %d", len(rows))
	}
	if rows[0][0] != "A" || rows[1][1] != "M2" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestRead_TrimsCells(t *testing.T) {
	rows, err := Read(strings.NewReader("  A ,\" M1 \"\n"), Options{TrimSpace: true})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rows[0][0] != "A" || rows[0][1] != "M1" {
		t.Fatalf("cells not trimmed: %q", rows[0])
	}
}

func TestRead_KeepsShortRowsShort(t *testing.T) {
	rows, err := Read(strings.NewReader("a,b,c\nx\n"), Options{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(rows[0]) != 3 || len(rows[1]) != 1 {
		t.Fatalf("row widths changed: %d, %d", len(rows[0]), len(rows[1]))
	}
}

func TestRead_StripsBOM(t *testing.T) {
	rows, err := Read(strings.NewReader("\uFEFFa,b\n"), Options{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rows[0][0] != "a" {
		t.Fatalf("BOM not stripped: %q", rows[0][0])
	}
}

func TestRead_BadCSV(t *testing.T) {
	if _, err := Read(strings.NewReader("a,\"b\nx"), Options{}); err == nil {
		t.Fatal("expected error for unterminated quote")
	}
}
