package results

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrLineCountMismatch is matched by a *LineCountError.
var ErrLineCountMismatch = errors.New("result tables have different line counts")

// LineCountError reports two tables that cannot be joined line by line.
type LineCountError struct {
	DistributedLines []string
	SharedLines      []string
}

func (e *LineCountError) Error() string {
	return fmt.Sprintf("%s: %d vs %d",
		ErrLineCountMismatch, len(e.DistributedLines), len(e.SharedLines))
}

// Is reports whether target is ErrLineCountMismatch.
func (e *LineCountError) Is(target error) bool {
	return target == ErrLineCountMismatch
}

// ParseError describes a line that does not hold a valid record.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

const numFields = 5

// Parse reads a results table from r.
func Parse(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}

	return parseLines(splitLines(string(data)))
}

// ReadFile parses the results table stored at path.
func ReadFile(path string) ([]Record, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	records, err := parseLines(lines)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return records, nil
}

// ReadPair reads the distributed-process and shared-memory tables. Line
// parity is checked before any record is parsed.
func ReadPair(distributedPath, sharedPath string) ([]Record, []Record, error) {
	dLines, err := readLines(distributedPath)
	if err != nil {
		return nil, nil, err
	}

	sLines, err := readLines(sharedPath)
	if err != nil {
		return nil, nil, err
	}

	if len(dLines) != len(sLines) {
		return nil, nil, &LineCountError{
			DistributedLines: dLines,
			SharedLines:      sLines,
		}
	}

	distributed, err := parseLines(dLines)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", distributedPath, err)
	}

	shared, err := parseLines(sLines)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", sharedPath, err)
	}

	return distributed, shared, nil
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}

	return splitLines(string(data)), nil
}

// splitLines keeps the element after the final newline, so a
// newline-terminated file of n records yields n+1 elements. That final
// element is never a record, which keeps ReadPair's outputs the same
// length whenever the line counts match.
func splitLines(s string) []string {
	return strings.Split(s, "\n")
}

func parseLines(lines []string) ([]Record, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	body := lines[:len(lines)-1]
	records := make([]Record, 0, len(body))

	for i, line := range body {
		rec, err := parseRecord(line)
		if err != nil {
			return nil, &ParseError{Line: i + 1, Text: line, Err: err}
		}

		records = append(records, rec)
	}

	return records, nil
}

func parseRecord(line string) (Record, error) {
	fields := strings.Fields(line)
	if len(fields) < numFields {
		return Record{}, fmt.Errorf(
			"expected %d fields, got %d", numFields, len(fields),
		)
	}

	var (
		rec Record
		err error
	)

	if rec.Product, err = strconv.Atoi(fields[0]); err != nil {
		return Record{}, fmt.Errorf("product size: %w", err)
	}

	if rec.Workers, err = strconv.Atoi(fields[1]); err != nil {
		return Record{}, fmt.Errorf("worker count: %w", err)
	}

	floats := [...]*float64{&rec.Elapsed, &rec.Speedup, &rec.Efficiency}
	for i, dst := range floats {
		if *dst, err = strconv.ParseFloat(fields[2+i], 64); err != nil {
			return Record{}, fmt.Errorf("field %d: %w", 2+i, err)
		}
	}

	return rec, nil
}
