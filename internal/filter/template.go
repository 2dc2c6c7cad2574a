package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultTemplate is the naming scheme written by the acquisition software.
const DefaultTemplate = "test_##_#####.tif"

// ErrNoFields is returned when a template lacks the run or sequence field.
var ErrNoFields = errors.New("template needs a run field and a sequence field (runs of #)")

// Template is a compiled filename template such as "img_##_#####.tif".
// The first run of '#' is the run number, the second the sequence number;
// each '#' stands for one decimal digit. Everything else is a glob literal
// (* and ? and [...] keep their glob meaning).
type Template struct {
	re       *regexp.Regexp
	original string
	literals [3]string // before run, between run and seq, after seq
	runWidth int
	seqWidth int
	globbed  bool // a literal contains a glob metacharacter
}

// Compile parses a filename template.
func Compile(template string) (*Template, error) {
	if template == "" {
		return nil, errors.New("empty template")
	}
	if strings.Contains(template, "/") {
		return nil, fmt.Errorf("template %q must be a base name", template)
	}

	t := &Template{original: template}

	var fields [][2]int // [start, end) of each '#' run
	for i := 0; i < len(template); {
		if template[i] != '#' {
			i++
			continue
		}
		j := i
		for j < len(template) && template[j] == '#' {
			j++
		}
		fields = append(fields, [2]int{i, j})
		i = j
	}
	if len(fields) != 2 {
		return nil, fmt.Errorf("%w: %q has %d", ErrNoFields, template, len(fields))
	}

	t.literals[0] = template[:fields[0][0]]
	t.literals[1] = template[fields[0][1]:fields[1][0]]
	t.literals[2] = template[fields[1][1]:]
	t.runWidth = fields[0][1] - fields[0][0]
	t.seqWidth = fields[1][1] - fields[1][0]

	var b strings.Builder
	b.WriteByte('^')
	b.WriteString(globToRegex(t.literals[0]))
	fmt.Fprintf(&b, "([0-9]{%d})", t.runWidth)
	b.WriteString(globToRegex(t.literals[1]))
	fmt.Fprintf(&b, "([0-9]{%d})", t.seqWidth)
	b.WriteString(globToRegex(t.literals[2]))
	b.WriteByte('$')

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("compile template %q: %w", template, err)
	}
	t.re = re

	for _, lit := range t.literals {
		if strings.ContainsAny(lit, "*?[") {
			t.globbed = true
		}
	}
	return t, nil
}

// MustCompile is like Compile but panics on error. For tests and constants.
func MustCompile(template string) *Template {
	t, err := Compile(template)
	if err != nil {
		panic(err)
	}
	return t
}

// Match reports whether name fits the template and extracts its fields.
func (t *Template) Match(name string) (run, seq int, ok bool) {
	m := t.re.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, false
	}
	run, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	seq, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	return run, seq, true
}

// Format renders the file name for run and seq. Templates whose literals
// contain glob metacharacters cannot be rendered.
func (t *Template) Format(run, seq int) (string, error) {
	if t.globbed {
		return "", fmt.Errorf("template %q contains glob characters", t.original)
	}
	if run < 0 || seq < 0 {
		return "", fmt.Errorf("negative field (run=%d seq=%d)", run, seq)
	}
	r := fmt.Sprintf("%0*d", t.runWidth, run)
	s := fmt.Sprintf("%0*d", t.seqWidth, seq)
	if len(r) > t.runWidth || len(s) > t.seqWidth {
		return "", fmt.Errorf("run %d or sequence %d does not fit template %q", run, seq, t.original)
	}
	return t.literals[0] + r + t.literals[1] + s + t.literals[2], nil
}

// MaxSeq is the largest sequence number the template can represent.
func (t *Template) MaxSeq() int {
	n := 1
	for range t.seqWidth {
		n *= 10
	}
	return n - 1
}

func (t *Template) String() string { return t.original }

// globToRegex converts a glob literal to a regex string. '/' never appears
// in a template, so * and ? match any character.
//
//nolint:gocyclo,revive // cognitive-complexity: character-by-character glob parser
func globToRegex(pattern string) string {
	var b strings.Builder
	i := 0
	for i < len(pattern) {
		c := pattern[i]
		switch c {
		case '*':
			b.WriteString(".*")
			i++
		case '?':
			b.WriteByte('.')
			i++
		case '[':
			j := i + 1
			if j < len(pattern) && pattern[j] == '!' {
				j++
			}
			if j < len(pattern) && pattern[j] == ']' {
				j++
			}
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j < len(pattern) {
				cls := pattern[i+1 : j]
				if strings.HasPrefix(cls, "!") {
					cls = "^" + cls[1:]
				}
				b.WriteString("[" + cls + "]")
				i = j + 1
			} else {
				b.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}
	return b.String()
}
