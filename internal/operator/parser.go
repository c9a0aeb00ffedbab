package operator

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ParsedLine is one decoded operator-input line: a command name plus its
// positional and key=value arguments, per spec.md §4.11's small streaming
// deserializer.
type ParsedLine struct {
	Name       string
	Positional []string
	KeyValue   map[string]string
}

// Arg returns the nth positional argument, or "" if it was not supplied.
func (p ParsedLine) Arg(n int) string {
	if n < 0 || n >= len(p.Positional) {
		return ""
	}
	return p.Positional[n]
}

// ParseLine splits one input line into a command name and its arguments.
// An argument containing "=" is a key=value pair; anything else is
// positional. Blank lines parse to a ParsedLine with an empty Name.
func ParseLine(line string) ParsedLine {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ParsedLine{KeyValue: map[string]string{}}
	}

	p := ParsedLine{Name: fields[0], KeyValue: map[string]string{}}
	for _, f := range fields[1:] {
		if key, value, ok := strings.Cut(f, "="); ok {
			p.KeyValue[key] = value
		} else {
			p.Positional = append(p.Positional, f)
		}
	}
	return p
}

// Reader streams ParsedLines from an io.Reader (typically os.Stdin),
// skipping blank lines.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader wraps r for line-oriented reading.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next blocks for the next non-blank input line. It returns false once the
// underlying reader is exhausted.
func (r *Reader) Next() (ParsedLine, bool) {
	for r.scanner.Scan() {
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}
		return ParseLine(line), true
	}
	return ParsedLine{}, false
}

// Err returns the first non-EOF error encountered while scanning.
func (r *Reader) Err() error {
	return r.scanner.Err()
}

// ErrUnknownCommand is returned by callers translating a ParsedLine into a
// domain command when Name does not match any known operator verb.
type ErrUnknownCommand struct {
	Name string
}

func (e ErrUnknownCommand) Error() string {
	return fmt.Sprintf("operator: unknown command %q", e.Name)
}
