// Package skin locates the active skin of the target application by reading
// its per-user configuration file.
package skin

import (
	"bufio"
	"io"
	"strings"
)

// Entry is one key=value line of a config file
type Entry struct {
	Key   string
	Value string
	Line  int
}

// Entries is an ordered set of config entries as they appear in the file.
// Duplicate keys are kept; Lookup returns the first one.
type Entries []Entry

// Lookup returns the value of the first entry with the given key.
func (e Entries) Lookup(key string) (string, bool) {
	for _, entry := range e {
		if entry.Key == key {
			return entry.Value, true
		}
	}
	return "", false
}

// ParseConfig reads key=value lines. Blank lines, lines starting with '#'
// and lines without '=' are skipped. Key and value are split on the first '='
// and trimmed.
func ParseConfig(r io.Reader) (Entries, error) {
	var entries Entries

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		entries = append(entries, Entry{
			Key:   strings.TrimSpace(key),
			Value: strings.TrimSpace(value),
			Line:  lineNo,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
