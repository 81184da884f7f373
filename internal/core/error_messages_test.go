package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "nil error returns empty",
			err:      nil,
			wantCode: "",
		},
		{
			name:     "gzip decode error",
			err:      &DecodeError{Source: "a.json.gz", Stage: "gzip", Err: errors.New("gzip: invalid header")},
			wantCode: "DEC001",
		},
		{
			name:     "utf-8 decode error",
			err:      &DecodeError{Source: "a.json", Stage: "utf-8", Err: errors.New("bad byte")},
			wantCode: "DEC002",
		},
		{
			name:     "json decode error wrapped",
			err:      fmt.Errorf("load: %w", &DecodeError{Source: "a.json", Stage: "json", Err: errors.New("invalid json")}),
			wantCode: "DEC003",
		},
		{
			name:     "fetch status error",
			err:      &FetchError{URL: "https://example.com/p.json", StatusCode: 404},
			wantCode: "FETCH001",
		},
		{
			name:     "fetch timeout",
			err:      &FetchError{URL: "https://example.com/p.json", Err: context.DeadlineExceeded},
			wantCode: "FETCH002",
		},
		{
			name:     "fetch network",
			err:      &FetchError{URL: "https://example.com/p.json", Err: errors.New("dial tcp: connection refused")},
			wantCode: "FETCH003",
		},
		{
			name:     "cell too long",
			err:      fmt.Errorf("export: %w", &CellTooLongError{Row: 1, Column: "objective", Length: 40000}),
			wantCode: "EXP003",
		},
		{
			name:     "fetch to internal address",
			err:      &FetchError{URL: "http://127.0.0.1/p.json", Err: fmt.Errorf("dial tcp: %w: 127.0.0.1", ErrBlockedAddress)},
			wantCode: "FETCH004",
		},
		{
			name:     "fetch outside allowlist",
			err:      &FetchError{URL: "https://other.example/p.json", Err: ErrHostNotAllowed},
			wantCode: "FETCH004",
		},
		{
			name:     "shape error",
			err:      &ShapeError{Source: "paste", Found: "number"},
			wantCode: "SHAPE001",
		},
		{
			name:     "not found",
			err:      &NotFoundError{ID: "P9"},
			wantCode: "SEL001",
		},
		{
			name:     "empty collection",
			err:      ErrEmptyCollection,
			wantCode: "LOAD001",
		},
		{
			name:     "no session",
			err:      ErrNoSession,
			wantCode: "LOAD002",
		},
		{
			name:     "file too large",
			err:      fmt.Errorf("upload: %w", ErrFileTooLarge),
			wantCode: "FILE001",
		},
		{
			name:     "too many loads",
			err:      ErrTooManyLoads,
			wantCode: "UPL002",
		},
		{
			name:     "reversed date range",
			err:      errors.New("bad request: end date 2024-01-01 is before start date 2024-02-01"),
			wantCode: "FLT003",
		},
		{
			name:     "export format",
			err:      errors.New(`unsupported export format "pdf"`),
			wantCode: "EXP001",
		},
		{
			name:     "malformed parameter",
			err:      errors.New("bad request: limit"),
			wantCode: "REQ001",
		},
		{
			name:     "rate limit",
			err:      errors.New("rate limit exceeded"),
			wantCode: "RATE001",
		},
		{
			name:     "unknown error returns default",
			err:      errors.New("some random internal error"),
			wantCode: "ERR000",
		},
		{
			name:     "case insensitive matching",
			err:      errors.New("NO FILE PROVIDED"),
			wantCode: "FILE004",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestMapError_FetchStatusInMessage(t *testing.T) {
	got := MapError(&FetchError{URL: "u", StatusCode: 503})
	want := "The remote server answered with an error (HTTP 503)"
	if got.Message != want {
		t.Errorf("Message = %q, want %q", got.Message, want)
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(&NotFoundError{ID: "x"})

	expected := "No matching record for the selected project (Code: SEL001). Pick another project from the list"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  &ShapeError{Source: "x", Found: "string"},
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := &NotFoundError{ID: "P1"}
		userErr := NewUserError(techErr)

		if userErr.Error() != "No matching record for the selected project" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}

		if !errors.Is(userErr, techErr) {
			t.Error("Unwrap() should return original error")
		}
	})
}
