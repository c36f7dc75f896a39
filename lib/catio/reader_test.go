package catio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/phil-mansfield/nlist/lib/eq"
)

const testText = `# x y z type
1.0 2.0 3.0 0
	4.5   -1 2e1 1 # trailing comment

# blank lines are skipped
0 0 0 2
`

func TestReadFloat64s(t *testing.T) {
	rd := Text([]byte(testText))
	if rd.Lines() != 3 {
		t.Fatalf("Expected 3 lines, got %d.", rd.Lines())
	}
	if rd.Columns() != 4 {
		t.Errorf("Expected 4 columns, got %d.", rd.Columns())
	}

	cols, err := rd.ReadFloat64s([]int{0, 2})
	if err != nil {
		t.Fatal(err.Error())
	}
	if !eq.Float64s(cols[0], []float64{1, 4.5, 0}) {
		t.Errorf("Expected column 0 = [1 4.5 0], got %v.", cols[0])
	}
	if !eq.Float64s(cols[1], []float64{3, 20, 0}) {
		t.Errorf("Expected column 2 = [3 20 0], got %v.", cols[1])
	}
}

func TestReadInts(t *testing.T) {
	config := DefaultConfig
	config.ColumnNames = map[string]int{"type": 3}
	rd := Text([]byte(testText), config)

	cols, err := rd.ReadInts([]string{"type"})
	if err != nil {
		t.Fatal(err.Error())
	}
	if !eq.Ints(cols[0], []int{0, 1, 2}) {
		t.Errorf("Expected types [0 1 2], got %v.", cols[0])
	}

	tests := []interface{}{
		[]int{0},       // not an int
		[]int{4},       // out of range
		[]string{"xx"}, // unknown name
		[]float64{1},   // wrong type
	}
	for i := range tests {
		if _, err := rd.ReadInts(tests[i]); err == nil {
			t.Errorf("%d) Expected error for columns %v.", i, tests[i])
		}
	}
}

func TestSeparatorAndSkip(t *testing.T) {
	config := DefaultConfig
	config.Separator = ','
	config.SkipLines = 1
	rd := Text([]byte("a,b\n1, 2\n3,,4\n"), config)

	cols, err := rd.ReadInts([]int{1, 0})
	if err != nil {
		t.Fatal(err.Error())
	}
	if !eq.Ints(cols[0], []int{2, 4}) || !eq.Ints(cols[1], []int{1, 3}) {
		t.Errorf("Expected [[2 4] [1 3]], got %v.", cols)
	}
}

func TestTextFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "bonds.txt")
	if err := os.WriteFile(fname, []byte("0 1\n1 2\n"), 0644); err != nil {
		t.Fatal(err.Error())
	}

	rd, err := TextFile(fname)
	if err != nil {
		t.Fatal(err.Error())
	}
	cols, err := rd.ReadInts([]int{0, 1})
	if err != nil {
		t.Fatal(err.Error())
	}
	if !eq.Ints(cols[0], []int{0, 1}) || !eq.Ints(cols[1], []int{1, 2}) {
		t.Errorf("Expected [[0 1] [1 2]], got %v.", cols)
	}

	if _, err := TextFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Errorf("Expected error for missing file.")
	}
}
