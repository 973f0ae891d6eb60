package output

import (
	"strings"
	"testing"
)

// plainLines renders tbl without color and splits it into lines.
func plainLines(t *testing.T, tbl *Table) []string {
	t.Helper()
	SetNoColor(true)
	t.Cleanup(func() { SetNoColor(false) })
	return strings.Split(strings.TrimRight(tbl.Render(), "\n"), "\n")
}

func TestVisualLen(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"empty", "", 0},
		{"plain", "delivered", 9},
		{"bold", "\x1b[1mpending\x1b[0m", 7},
		{"stacked sequences", "\x1b[1m\x1b[34mshipped\x1b[0m", 7},
		{"multibyte", "▲ 2.5", 5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := visualLen(tc.input); got != tc.want {
				t.Errorf("visualLen(%q) = %d, want %d", tc.input, got, tc.want)
			}
		})
	}
}

func TestPadding(t *testing.T) {
	if got := pad("ab", 4); got != "ab  " {
		t.Errorf("pad = %q", got)
	}
	if got := padLeft("ab", 4); got != "  ab" {
		t.Errorf("padLeft = %q", got)
	}
	// Never truncates.
	if got := padLeft("toolong", 3); got != "toolong" {
		t.Errorf("padLeft over width = %q", got)
	}
}

func TestTable_Render(t *testing.T) {
	tbl := NewTable("Status", "Orders")
	tbl.AddRow("delivered", "12")
	tbl.AddRow("cancelled", "3")

	lines := plainLines(t, tbl)
	if len(lines) != 4 {
		t.Fatalf("expected header, rule and 2 rows, got %d lines:\n%s", len(lines), strings.Join(lines, "\n"))
	}
	if lines[0] != "Status     Orders" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "─────────  ──────" {
		t.Errorf("rule = %q", lines[1])
	}
	if lines[2] != "delivered  12" {
		t.Errorf("row = %q", lines[2])
	}
}

func TestTable_AlignRight(t *testing.T) {
	tbl := NewTable("Day", "Orders", "Revenue").AlignRight(1, 2, 7)
	tbl.AddRow("2026-10-17", "4", "$1,250.00")
	tbl.AddRow("2026-10-18", "12", "$80.00")

	lines := plainLines(t, tbl)
	if lines[0] != "Day         Orders    Revenue" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[2] != "2026-10-17       4  $1,250.00" {
		t.Errorf("row 1 = %q", lines[2])
	}
	if lines[3] != "2026-10-18      12     $80.00" {
		t.Errorf("row 2 = %q", lines[3])
	}
}

func TestTable_StyledCellsAlign(t *testing.T) {
	tbl := NewTable("Status", "Count")
	tbl.AddRow("\x1b[31mcancelled\x1b[0m", "4")
	tbl.AddRow("pending", "12")

	if tbl.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.Len())
	}
	if tbl.widths[0] != len("cancelled") {
		t.Errorf("expected width %d, got %d", len("cancelled"), tbl.widths[0])
	}
}

func TestTable_RowShape(t *testing.T) {
	tbl := NewTable("A", "B")
	tbl.AddRow("1", "2", "3")
	tbl.AddRow("only")
	if len(tbl.rows[0]) != 2 || len(tbl.rows[1]) != 2 {
		t.Fatalf("rows not normalized to header count: %q", tbl.rows)
	}
	if tbl.rows[1][1] != "" {
		t.Errorf("missing cell should be blank, got %q", tbl.rows[1][1])
	}
}

func TestTable_Empty(t *testing.T) {
	if out := NewTable().Render(); out != "" {
		t.Errorf("expected empty output for a table without headers, got %q", out)
	}
	tbl := NewTable("Only")
	if tbl.String() != tbl.Render() {
		t.Error("String() != Render()")
	}
}

func TestSetNoColor(t *testing.T) {
	SetNoColor(true)
	if !IsNoColor() {
		t.Fatal("expected IsNoColor after SetNoColor(true)")
	}
	if rendered := StyleHeader.Render("test"); strings.Contains(rendered, "\x1b[") {
		t.Error("expected no ANSI codes after SetNoColor(true)")
	}

	SetNoColor(false)
	if IsNoColor() {
		t.Error("expected color to be re-enabled")
	}
}
