// error_messages.go maps pipeline errors to coded user messages.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// # Decode Errors (DEC001-DEC099)
//
//	DEC001 - Bad gzip: The compressed file could not be decompressed
//	         Action: Check the file is a .gz produced by gzip, or upload the plain .json
//	DEC002 - Bad encoding: The file is not UTF-8 text
//	         Action: Save the file as UTF-8 and upload it again
//	DEC003 - Bad JSON: The file is not well-formed JSON
//	         Action: Validate the JSON (missing comma, bracket or quote)
//
// # Fetch Errors (FETCH001-FETCH099)
//
//	FETCH001 - HTTP status: The server answered with an error status
//	FETCH002 - Timeout: The remote server did not answer in time
//	FETCH003 - Network: The remote server could not be reached
//	FETCH004 - Blocked: The URL points at an internal address or a host outside the allowlist
//
// # Shape and Selection Errors
//
//	SHAPE001 - No record list: JSON holds neither {"projects": [...]} nor [...]
//	SEL001   - Not found: The selected project_id has no matching record
//	LOAD001  - Empty collection: No source contributed any project
//	LOAD002  - No data: Nothing has been loaded in this session yet
//
// # File, Load and Rate Errors
//
//	FILE001 - File too large
//	FILE004 - No file selected
//	UPL002  - System busy: too many loads in progress
//	UPL004  - Request cancelled
//	UPL005  - Request timed out
//	RATE001 - Rate limited
//
// # Filter Errors
//
//	FLT001 - Date filter on a column that is not a date column
//	FLT002 - Date bound is not YYYY-MM-DD
//	FLT003 - End date before start date
//
// # Export and Request Errors
//
//	EXP001 - Unsupported export format
//	EXP002 - Project export without an id
//	EXP003 - A value is too long for an xlsx cell
//	REQ001 - Malformed request parameters
//
// # Default Error (ERR000)
//
// Fallback when no typed error or pattern matches. Support staff should check
// application logs for the original technical error when users report ERR000.
//
// # Matching
//
// Typed errors (DecodeError, FetchError, ShapeError, NotFoundError,
// CellTooLongError) are matched
// first with errors.As. Everything else is matched case-insensitively by
// substring; the first matching pattern wins.

package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgBadGzip = UserMessage{
		Message: "The compressed file could not be decompressed",
		Action:  "Check the file is a .gz produced by gzip, or upload the plain .json",
		Code:    "DEC001",
	}
	msgBadEncoding = UserMessage{
		Message: "The file is not UTF-8 text",
		Action:  "Save the file as UTF-8 and upload it again",
		Code:    "DEC002",
	}
	msgBadJSON = UserMessage{
		Message: "The file is not well-formed JSON",
		Action:  "Validate the JSON for a missing comma, bracket or quote",
		Code:    "DEC003",
	}
	msgFetchStatus = UserMessage{
		Message: "The remote server answered with an error",
		Action:  "Check the URL is correct and publicly reachable",
		Code:    "FETCH001",
	}
	msgFetchTimeout = UserMessage{
		Message: "The remote server did not answer in time",
		Action:  "Try again later or download the file and upload it",
		Code:    "FETCH002",
	}
	msgFetchNetwork = UserMessage{
		Message: "The remote server could not be reached",
		Action:  "Check the URL and your network connection",
		Code:    "FETCH003",
	}
	msgCellTooLong = UserMessage{
		Message: "A value is too long for a spreadsheet cell",
		Action:  "Download as csv instead",
		Code:    "EXP003",
	}
	msgFetchBlocked = UserMessage{
		Message: "The URL is not allowed",
		Action:  "Use a public http(s) URL on an allowed host",
		Code:    "FETCH004",
	}
	msgShape = UserMessage{
		Message: "No project list found in the JSON",
		Action:  `Provide {"projects": [...]} or a top-level [...] list`,
		Code:    "SHAPE001",
	}
	msgNotFound = UserMessage{
		Message: "No matching record for the selected project",
		Action:  "Pick another project from the list",
		Code:    "SEL001",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages
// for errors that are not one of the typed pipeline errors.
var errorPatterns = []errorPattern{
	{
		pattern: "no projects found",
		msg: UserMessage{
			Message: "No projects were found in the loaded sources",
			Action:  "Check the files contain a non-empty project list",
			Code:    "LOAD001",
		},
	},
	{
		pattern: "no data loaded",
		msg: UserMessage{
			Message: "Nothing has been loaded yet",
			Action:  "Upload, paste or fetch a JSON file first",
			Code:    "LOAD002",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Compress the file with gzip or split it into several files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Compress the file with gzip or split it into several files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a .json or .json.gz file",
			Code:    "FILE004",
		},
	},
	{
		pattern: "too many loads",
		msg: UserMessage{
			Message: "System is busy processing other loads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},
	{
		pattern: "is not a date column",
		msg: UserMessage{
			Message: "The chosen column does not hold dates",
			Action:  "Pick one of the listed date columns",
			Code:    "FLT001",
		},
	},
	{
		pattern: "invalid date",
		msg: UserMessage{
			Message: "The date range could not be read",
			Action:  "Enter dates as YYYY-MM-DD",
			Code:    "FLT002",
		},
	},
	{
		pattern: "is before start date",
		msg: UserMessage{
			Message: "The date range is reversed",
			Action:  "Make the end date the same as or later than the start date",
			Code:    "FLT003",
		},
	},
	{
		pattern: "unsupported export format",
		msg: UserMessage{
			Message: "That download format is not available",
			Action:  "Choose csv or xlsx",
			Code:    "EXP001",
		},
	},
	{
		pattern: "missing project id",
		msg: UserMessage{
			Message: "No project was selected for the download",
			Action:  "Select a project, then use its download links",
			Code:    "EXP002",
		},
	},
	{
		pattern: "bad request",
		msg: UserMessage{
			Message: "The request could not be understood",
			Action:  "Reload the page and try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Typed pipeline errors are recognised anywhere in the wrap chain; other
// errors fall back to substring patterns and finally to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var decErr *DecodeError
	if errors.As(err, &decErr) {
		switch decErr.Stage {
		case "gzip":
			return msgBadGzip
		case "utf-8":
			return msgBadEncoding
		default:
			return msgBadJSON
		}
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return mapFetchError(fetchErr)
	}

	var shapeErr *ShapeError
	if errors.As(err, &shapeErr) {
		return msgShape
	}

	var nfErr *NotFoundError
	if errors.As(err, &nfErr) {
		return msgNotFound
	}

	var cellErr *CellTooLongError
	if errors.As(err, &cellErr) {
		return msgCellTooLong
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func mapFetchError(err *FetchError) UserMessage {
	if err.StatusCode != 0 {
		msg := msgFetchStatus
		msg.Message = fmt.Sprintf("%s (HTTP %d)", msg.Message, err.StatusCode)
		return msg
	}
	if errors.Is(err, ErrBlockedAddress) || errors.Is(err, ErrHostNotAllowed) {
		return msgFetchBlocked
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return msgFetchTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return msgFetchTimeout
	}
	if strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return msgFetchTimeout
	}
	return msgFetchNetwork
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
