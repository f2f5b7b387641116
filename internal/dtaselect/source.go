package dtaselect

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadLines reads r to the end and splits it into lines. Both "\n" and
// "\r\n" end a line and neither is kept. A final terminator does not produce
// an extra empty line.
func ReadLines(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)
	var lines []string
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			lines = append(lines, trimTerminator(line))
		}
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read lines: %w", err)
		}
	}
}

func trimTerminator(line string) string {
	if !strings.HasSuffix(line, "\n") {
		return line
	}
	return strings.TrimSuffix(line[:len(line)-1], "\r")
}

// ParseReader parses a filter report from r.
func ParseReader(r io.Reader) (*Report, error) {
	lines, err := ReadLines(r)
	if err != nil {
		return nil, err
	}
	return Parse(lines)
}

// ParseString parses a filter report held in memory.
func ParseString(s string) (*Report, error) {
	return ParseReader(strings.NewReader(s))
}

// ParseFile opens and parses the filter report at path.
func ParseFile(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()
	return ParseReader(f)
}
