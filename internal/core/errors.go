package core

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sentinel errors surfaced by the load pipeline.
var (
	// ErrEmptyCollection is returned when every source failed or yielded no records.
	ErrEmptyCollection = errors.New("no projects found in the loaded sources")

	// ErrTooManyLoads is returned when all load slots are busy and the wait expires.
	ErrTooManyLoads = errors.New("too many loads in progress, please try again later")

	// ErrNoSession is returned when an operation needs loaded data and none exists.
	ErrNoSession = errors.New("no data loaded for this session")

	// ErrFileTooLarge is returned when a source exceeds the configured size cap.
	ErrFileTooLarge = errors.New("file too large")

	// ErrNoInput is returned when a load request carries no sources at all.
	ErrNoInput = errors.New("no file provided")
)

// DecodeError reports a source whose bytes could not be turned into JSON:
// bad gzip stream, invalid UTF-8, or malformed JSON text.
type DecodeError struct {
	Source string
	Stage  string // "gzip", "utf-8" or "json"
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s: %v", e.Source, e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// FetchError reports a remote source that could not be retrieved.
// StatusCode is zero for network-level failures.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ShapeError reports decoded JSON that holds no extractable record list.
type ShapeError struct {
	Source string
	Found  string // kind of the top-level value
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: no extractable record list (top-level %s)", e.Source, e.Found)
}

// NotFoundError reports a selected identifier with no matching row.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no matching record for project_id %q", e.ID)
}

// CellTooLongError reports a value longer than an xlsx cell can hold.
// Row is 1-based over data rows; 0 is the header.
type CellTooLongError struct {
	Row    int
	Column string
	Length int
}

func (e *CellTooLongError) Error() string {
	return fmt.Sprintf("cell too long for xlsx: column %q row %d has %d characters (limit %d)",
		e.Column, e.Row, e.Length, excelize.TotalCellChars)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
