/*package catio reads columns out of whitespace-separated text files, such as
initial particle configurations ("x y z type [body]") and bond lists
("a b").*/
package catio

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// TextConfig contains the information needed to parse a text file.
type TextConfig struct {
	Separator   byte           // Character used to separate fields.
	Comment     byte           // Character used to start comments.
	SkipLines   int            // Number of lines to skip at the start of the file.
	ColumnNames map[string]int // Map from column names to column indices.
}

// DefaultConfig reads space- or tab-separated columns with '#' comments.
var DefaultConfig = TextConfig{
	Separator:   ' ',
	Comment:     '#',
	SkipLines:   0,
	ColumnNames: map[string]int{},
}

// Reader gives access to the columns of a text file.
type Reader struct {
	name   string
	config TextConfig
	lines  [][]byte
	// lineNum[i] is the 1-indexed line number of lines[i], for error messages.
	lineNum []int
}

// TextFile creates a Reader for the text file fname.
func TextFile(fname string, config ...TextConfig) (*Reader, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	text, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return newReader(fname, text, config...), nil
}

// Text creates a Reader for a block of text.
func Text(text []byte, config ...TextConfig) *Reader {
	return newReader("<text>", text, config...)
}

func newReader(name string, text []byte, config ...TextConfig) *Reader {
	rd := &Reader{name: name, config: DefaultConfig}
	if len(config) > 0 {
		rd.config = config[0]
	}

	rawLines := bytes.Split(text, []byte{'\n'})
	for i, line := range rawLines {
		if i < rd.config.SkipLines {
			continue
		}
		line = uncomment(line, rd.config.Comment)
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		rd.lines = append(rd.lines, line)
		rd.lineNum = append(rd.lineNum, i+1)
	}

	return rd
}

// Lines returns the number of non-empty, non-comment lines.
func (rd *Reader) Lines() int { return len(rd.lines) }

// Columns returns the number of columns on the first line, or zero if there
// are no lines.
func (rd *Reader) Columns() int {
	if len(rd.lines) == 0 {
		return 0
	}
	return len(fields(rd.lines[0], rd.config.Separator))
}

// columnIndices converts the generic columns variable into integer indices.
// If columns is []int, it returns them, if columns is []string, it looks up
// the corresponding ints.
func (rd *Reader) columnIndices(columns interface{}) ([]int, error) {
	switch cols := columns.(type) {
	case []int:
		return cols, nil
	case []string:
		idxs := make([]int, len(cols))
		for i := range cols {
			idx, ok := rd.config.ColumnNames[cols[i]]
			if !ok {
				return nil, fmt.Errorf("%s: no column named '%s'", rd.name, cols[i])
			}
			idxs[i] = idx
		}
		return idxs, nil
	}
	return nil, fmt.Errorf("columns argument must be []int or []string, not %T", columns)
}
