// Package loader turns program sources into initial memory images.
//
// Plain programs are comma-separated base-10 integers spread over any number
// of lines. Memory snapshots written by the export package (CSV, JSON lines,
// Parquet) and binary images (.icbc) load through LoadImage.
package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Error definitions
var (
	ErrEmptyProgram = errors.New("program has no cells")
	ErrInvalidToken = errors.New("invalid program token")
)

// ParseProgram reads comma-separated integers from r. Tokens from all lines
// are concatenated in order; surrounding whitespace and empty tokens are
// ignored.
func ParseProgram(r io.Reader) ([]int64, error) {
	var cells []int64

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		for col, tok := range strings.Split(scanner.Text(), ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			n, err := strconv.ParseInt(tok, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q at line %d, field %d", ErrInvalidToken, tok, line, col+1)
			}
			cells = append(cells, n)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(cells) == 0 {
		return nil, ErrEmptyProgram
	}
	return cells, nil
}

// ParseString parses program text.
func ParseString(src string) ([]int64, error) {
	return ParseProgram(strings.NewReader(src))
}

// LoadProgram reads a program text file.
func LoadProgram(path string) ([]int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cells, err := ParseProgram(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cells, nil
}

// FormatProgram renders cells in program text form.
func FormatProgram(cells []int64) string {
	var b strings.Builder
	for i, c := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(c, 10))
	}
	b.WriteByte('\n')
	return b.String()
}
