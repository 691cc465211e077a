// Package source adapts slices, readers and files to the line sequences
// consumed by the parser package.
package source

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"os"
)

// MaxLineSize is the longest line Reader accepts.
const MaxLineSize = 1024 * 1024

// Lines is a lazy sequence of lines. A non-nil error ends the sequence.
type Lines = iter.Seq2[string, error]

// Strings yields every element of lines in order.
func Strings(lines []string) Lines {
	return func(yield func(string, error) bool) {
		for _, l := range lines {
			if !yield(l, nil) {
				return
			}
		}
	}
}

// Reader yields the lines of r without their "\n" or "\r\n" terminator.
// A scan failure is yielded once as the final element.
func Reader(r io.Reader) Lines {
	return func(yield func(string, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

		for scanner.Scan() {
			if !yield(scanner.Text(), nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", fmt.Errorf("scan: %w", err))
		}
	}
}

// File opens path when iteration starts and closes it when iteration stops,
// whether the sequence was exhausted or abandoned.
func File(path string) Lines {
	return func(yield func(string, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield("", fmt.Errorf("open %s: %w", path, err))
			return
		}
		defer f.Close()

		for line, err := range Reader(f) {
			if !yield(line, err) {
				return
			}
		}
	}
}
