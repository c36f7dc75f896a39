package catio

import (
	"bytes"
	"fmt"
	"strconv"
)

// ReadInts reads the given columns and interprets them as ints. The result
// has one array per column.
func (rd *Reader) ReadInts(columns interface{}) ([][]int, error) {
	idxs, err := rd.columnIndices(columns)
	if err != nil {
		return nil, err
	}

	out := make([][]int, len(idxs))
	for i := range out {
		out[i] = make([]int, len(rd.lines))
	}

	err = rd.parse(idxs, func(col, line int, tok []byte) error {
		x, err := strconv.Atoi(string(tok))
		out[col][line] = x
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadFloat64s reads the given columns and interprets them as float64s.
func (rd *Reader) ReadFloat64s(columns interface{}) ([][]float64, error) {
	idxs, err := rd.columnIndices(columns)
	if err != nil {
		return nil, err
	}

	out := make([][]float64, len(idxs))
	for i := range out {
		out[i] = make([]float64, len(rd.lines))
	}

	err = rd.parse(idxs, func(col, line int, tok []byte) error {
		x, err := strconv.ParseFloat(string(tok), 64)
		out[col][line] = x
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// parse calls fn on the token of every requested column of every line.
func (rd *Reader) parse(idxs []int, fn func(col, line int, tok []byte) error) error {
	for i, line := range rd.lines {
		toks := fields(line, rd.config.Separator)
		for col, idx := range idxs {
			if idx < 0 || idx >= len(toks) {
				return fmt.Errorf("%s:%d: column %d requested, but the line "+
					"only has %d columns", rd.name, rd.lineNum[i], idx, len(toks))
			}
			if err := fn(col, i, toks[idx]); err != nil {
				return fmt.Errorf("%s:%d: column %d: %w",
					rd.name, rd.lineNum[i], idx, err)
			}
		}
	}
	return nil
}

// uncomment removes everything after the comment character.
func uncomment(line []byte, comment byte) []byte {
	if i := bytes.IndexByte(line, comment); i >= 0 {
		return line[:i]
	}
	return line
}

// fields splits a line on the separator. Runs of separators count as one,
// and a space separator also splits on tabs.
func fields(line []byte, sep byte) [][]byte {
	if sep == ' ' {
		return bytes.Fields(line)
	}

	toks := bytes.Split(line, []byte{sep})
	out := toks[:0]
	for _, tok := range toks {
		tok = bytes.TrimSpace(tok)
		if len(tok) > 0 {
			out = append(out, tok)
		}
	}
	return out
}
