/*package format handles nlist's miniature formatting languages for choosing
when neighbor lists are dumped and where they're written, e.g:

   DumpSteps = 0..1000 - 500..599
   DumpFormat = "dumps/nlist.{%06d,step}.{%d,rank}.dat"

The exact rules are as follows:
File format strings are a combination of fixed text and variables. Fixed text is
always the same, and variables can change from file to file. Variables are
written as {verb,rule}. "verb" is a printf() verb for an integer (e.g. %03d)
that specifies how the variable should be printed. "rule" is text that
specifies what values the variable should take on. There are currently two
rules:

  "step" - The variable is equal to the timestep being dumped.
  "rank" - The variable is equal to the rank writing the file.

Sequence formats are a generic way to specify non-contiguous sequences of
natural numbers. They consist of a series of n tokens separated by "+" or "-".
Each token can be either a number or two numbers separted by "..". E.g.:

  100
  0..100
  0..10 + 100
  0..100 - 63 - 10..20

These strings build up sequences of numbers by adding/removing individual
numbers and contiguous sequences. For example, 0 through 10 would be 0..10,
1, 2, 3, 15, 16, 17 could be written as  1..17 - 4..13. This is useful for
dumping a few windows of a long run.

All spaces around "-", "+", and "," symbols are ignored.
*/
package format

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	// Any expanded formats which would have more than BigNumber elements are
	// assumed to be bugs.
	BigNumber = 1 << 20
)

// File format rules.
const (
	StepRule = "step"
	RankRule = "rank"
)

// ExpandSequenceFormat expands a sequence format string into a sorted sequence
// of integers.
func ExpandSequenceFormat(format string) ([]int, error) {
	// Parse and error-check the format string.
	tok, err := tokeniseSequenceFormat(format)
	if err != nil {
		return nil, err
	}
	adds, subs, err := addsSubsSequenceFormat(tok)
	if err != nil {
		return nil, err
	}

	// Add numbers to the sequence.
	m := map[int]bool{}
	for i := range adds {
		lo, hi := parseSequenceFormatToken(adds[i])
		if hi-lo+1 > BigNumber {
			return nil, fmt.Errorf("The token '%s' would add %d elements, "+
				"which is almost certainly a bug.", adds[i], hi-lo+1)
		}
		for n := lo; n <= hi; n++ {
			if m[n] {
				return nil, fmt.Errorf("The number %d is added more than once.", n)
			}
			m[n] = true
		}
	}

	// Remove numbers from the sequence.
	for i := range subs {
		lo, hi := parseSequenceFormatToken(subs[i])
		if hi-lo+1 > BigNumber {
			return nil, fmt.Errorf("The token '%s' would remove %d elements, "+
				"which is almost certainly a bug.", subs[i], hi-lo+1)
		}
		for n := lo; n <= hi; n++ {
			if !m[n] {
				return nil, fmt.Errorf("The number %d is removed more times than it was inserted.", n)
			}
			delete(m, n)
		}
	}

	if len(m) > BigNumber {
		return nil, fmt.Errorf("This sequence would have %d elements, which is almost certianly a bug.", len(m))
	}

	// Convert to a sorted array of integers.
	out := []int{}
	for n := range m {
		out = append(out, n)
	}
	sort.Ints(out)

	return out, nil
}

// tokeniseSequenceFormat splits a sequence format string into numbers, ranges,
// and operators.
func tokeniseSequenceFormat(format string) ([]string, error) {
	// Make sure all operators are separated by spaces.
	formatClean := strings.ReplaceAll(format, "+", " + ")
	formatClean = strings.ReplaceAll(formatClean, "-", " - ")

	tok := strings.Fields(formatClean)
	if len(tok) == 0 {
		return nil, fmt.Errorf("The format string is empty.")
	}
	return tok, nil
}

func addsSubsSequenceFormat(tok []string) (adds, subs []string, err error) {
	if len(tok) == 0 {
		return nil, nil, fmt.Errorf("Format string is empty")
	}

	// Handle the case where the starting "+" is dropped.
	adds, subs = []string{}, []string{}
	var start int
	if tok[0] == "+" || tok[0] == "-" {
		start = 0
	} else {
		if err := isSequenceFormatToken(tok[0]); err != nil {
			return nil, nil, fmt.Errorf(
				"Element number %d, '%s', cannot be parsed because %s",
				1, tok[0], err.Error(),
			)
		}

		adds = append(adds, tok[0])
		start = 1
	}

	for i := start; i < len(tok); i += 2 {
		if tok[i] != "-" && tok[i] != "+" {
			return nil, nil, fmt.Errorf(
				"Element number %d, '%s', should be a '-' or '+', but isn't.",
				i+1, tok[i])
		}

		if i+1 >= len(tok) {
			return nil, nil, fmt.Errorf(
				"The format string ends in a trailing '%s'", tok[i],
			)
		}

		if err := isSequenceFormatToken(tok[i+1]); err != nil {
			return nil, nil, fmt.Errorf(
				"Element number %d, '%s', cannot be parsed because %s",
				i+2, tok[i+1], err.Error(),
			)
		}

		if tok[i] == "+" {
			adds = append(adds, tok[i+1])
		} else {
			subs = append(subs, tok[i+1])
		}
	}

	return adds, subs, nil
}

// isSequenceFormatToken returns a nil error is tok is a valid token for
// a sequence format and an error describing the problem otherwise. The error
// message assumes it is printed after a trailing "because"
func isSequenceFormatToken(tok string) error {
	if len(tok) == 0 {
		return fmt.Errorf("the format string is empty.")
	}

	bounds := strings.Split(tok, "..")

	switch len(bounds) {
	case 1:
		_, err := strconv.Atoi(bounds[0])
		if err != nil {
			return fmt.Errorf("'%s' is not an integer.", bounds[0])
		}
		return nil
	case 2:
		start, err1 := strconv.Atoi(bounds[0])
		if err1 != nil {
			return fmt.Errorf("'%s' is not an integer.", bounds[0])
		}
		end, err2 := strconv.Atoi(bounds[1])
		if err2 != nil {
			return fmt.Errorf("'%s' is not an integer.", bounds[1])
		}
		if end < start {
			return fmt.Errorf("lower bound %d is larger than upper bound %d.",
				start, end)
		}

		return nil
	}
	return fmt.Errorf("it has more than one '..'.")
}

// parseSequenceFormatToken returns the inclusive range covered by a single
// token. tok must have already passed isSequenceFormatToken.
func parseSequenceFormatToken(tok string) (lo, hi int) {
	bounds := strings.Split(tok, "..")
	if len(bounds) == 1 {
		n, _ := strconv.Atoi(tok)
		return n, n
	}
	lo, _ = strconv.Atoi(bounds[0])
	hi, _ = strconv.Atoi(bounds[1])
	return lo, hi
}

// FileFormat is a parsed file format string.
type FileFormat struct {
	format string
	// There is always one more separator than there are variables.
	separators   []string
	verbs, rules []string
}

// ParseFileFormat parses and error-checks a file format string.
func ParseFileFormat(format string) (*FileFormat, error) {
	starts, ends, err := startsEndsFormatString(format)
	if err != nil {
		return nil, err
	}

	f := &FileFormat{format: format}
	sepStart := 0
	for i := range starts {
		f.separators = append(f.separators, format[sepStart:starts[i]])
		sepStart = ends[i]

		v := format[starts[i]+1 : ends[i]-1]
		tok := strings.Split(v, ",")
		if len(tok) != 2 {
			return nil, fmt.Errorf("The file format '%s' has an invalid "+
				"variable, '{%s}'. Variables should contain a formatting "+
				"'verb' (e.g. '%%d', '%%03d', etc.), a comma, and a rule "+
				"('%s' or '%s').", format, v, StepRule, RankRule)
		}

		verb, rule := strings.TrimSpace(tok[0]), strings.TrimSpace(tok[1])
		if err := checkVerb(verb); err != nil {
			return nil, fmt.Errorf("The file format '%s' has an invalid "+
				"verb, '%s': %s", format, verb, err.Error())
		}
		if rule != StepRule && rule != RankRule {
			return nil, fmt.Errorf("The file format '%s' has an unknown rule, "+
				"'%s'. Rules must be '%s' or '%s'.", format, rule,
				StepRule, RankRule)
		}

		f.verbs = append(f.verbs, verb)
		f.rules = append(f.rules, rule)
	}
	f.separators = append(f.separators, format[sepStart:])

	return f, nil
}

// checkVerb makes sure verb prints exactly one integer.
func checkVerb(verb string) error {
	if len(verb) < 2 || verb[0] != '%' || verb[len(verb)-1] != 'd' {
		return fmt.Errorf("it should start with '%%' and end with 'd'.")
	}
	if strings.Count(verb, "%") != 1 {
		return fmt.Errorf("it contains more than one '%%'.")
	}
	for _, c := range verb[1 : len(verb)-1] {
		if !strings.ContainsRune("0123456789-+ ", c) {
			return fmt.Errorf("'%c' isn't a width or flag.", c)
		}
	}
	return nil
}

// String returns the unparsed format string.
func (f *FileFormat) String() string { return f.format }

// Vars returns the rules used by the format's variables, in order.
func (f *FileFormat) Vars() []string { return f.rules }

// Expand returns the file name for a given timestep and rank.
func (f *FileFormat) Expand(step uint64, rank int) string {
	sb := &strings.Builder{}
	for i := range f.verbs {
		sb.WriteString(f.separators[i])
		switch f.rules[i] {
		case StepRule:
			fmt.Fprintf(sb, f.verbs[i], step)
		case RankRule:
			fmt.Fprintf(sb, f.verbs[i], rank)
		}
	}
	sb.WriteString(f.separators[len(f.separators)-1])
	return sb.String()
}

// startsEndsFormatString returns the indices of the beginning and end of each
// format variable.
func startsEndsFormatString(format string) (starts, ends []int, err error) {
	starts, ends = []int{}, []int{}
	nestedLevel := 0

	ending := "Make sure variables in file formats are enclosed in matching { ... } pairs."

	for i := range format {
		if format[i] == '{' {
			nestedLevel++
			starts = append(starts, i)
		} else if format[i] == '}' {
			nestedLevel--
			ends = append(ends, i+1)
		}

		if nestedLevel > 1 {
			end := len(starts) - 1
			return nil, nil, fmt.Errorf("The file format '%s' has nested '{' "+
				"characters, making it invalid. These '{'s are at indices %d "+
				"and %d. "+ending, format, starts[end-1], starts[end])
		} else if nestedLevel < 0 {
			end := len(ends) - 1
			return nil, nil, fmt.Errorf("The file format '%s' has a '}' that "+
				"doesn't come after a '{' character, making it invalid. This "+
				"'}' is at index %d. "+ending, format, ends[end]-1)
		}
	}

	if len(ends) != len(starts) {
		end := len(starts) - 1
		return nil, nil, fmt.Errorf("The file format '%s' has a '{' without "+
			"a matching '}', making it invalid. This '{' is at index %d. "+
			ending, format, starts[end])
	}

	return starts, ends, nil
}
