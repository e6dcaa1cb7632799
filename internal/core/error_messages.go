package core

// error_messages.go maps technical errors to operator-facing messages.
//
// Every message carries a code that operators can quote when reporting a
// problem. Codes are grouped by where the failure starts:
//
//	SRC001 - Spreadsheet unavailable (credentials, network, unreadable file)
//	SRC002 - Invalid sheet range or empty sheet
//	SRC003 - Uploaded file too large
//	SRC004 - No file in the upload
//	CFG001 - No filename column selected
//	CFG002 - No column mapped to a metadata field
//	CFG003 - Sheet has more rows than a pass allows
//	CFG004 - Preset is invalid
//	CFG005 - Preset name already used
//	HST001 - Media library unavailable
//	RUN001 - Another pass holds the library
//	RUN002 - Pass cancelled
//	RUN003 - Pass timed out
//	NF001  - Run or preset not found
//	REQ001 - Malformed request body
//	DB001  - Database unreachable
//	ERR000 - Anything else; check the logs for the technical error
//
// Sentinel errors are matched with errors.Is first. Errors from outside the
// module (pgx, sqlite, net/http) fall back to case-insensitive substring
// patterns; the first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/metasync/internal/host"
	"github.com/JonMunkholm/metasync/internal/mapping"
	"github.com/JonMunkholm/metasync/internal/tabular"
)

var (
	// ErrNotFound is returned by stores for unknown run and preset ids.
	ErrNotFound = errors.New("not found")

	// ErrTooManyRows is returned when a pass exceeds the configured row cap.
	ErrTooManyRows = errors.New("too many rows")

	// ErrNoFile is returned when an upload carries no file part.
	ErrNoFile = errors.New("no file provided")

	// ErrFileTooLarge is returned when an upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidPreset wraps preset validation failures.
	ErrInvalidPreset = errors.New("invalid preset")

	// ErrInvalidRequest wraps request bodies that cannot be decoded.
	ErrInvalidRequest = errors.New("invalid request")
)

// UserMessage is what an operator sees for an error.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

type errorKind struct {
	target error
	msg    UserMessage
}

// errorKinds is checked in order with errors.Is.
var errorKinds = []errorKind{
	{tabular.ErrSourceUnavailable, UserMessage{
		Message: "Unable to read the spreadsheet",
		Action:  "Check the credentials file and that the sheet is shared with the service account",
		Code:    "SRC001",
	}},
	{tabular.ErrInvalidRange, UserMessage{
		Message: "The sheet range returned no usable rows",
		Action:  "Check the spreadsheet ID and the range, e.g. Sheet1!A:Z",
		Code:    "SRC002",
	}},
	{ErrFileTooLarge, UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the sheet or export fewer columns",
		Code:    "SRC003",
	}},
	{ErrNoFile, UserMessage{
		Message: "No file was selected",
		Action:  "Choose a CSV file to upload",
		Code:    "SRC004",
	}},
	{mapping.ErrNoKeyColumn, UserMessage{
		Message: "No filename column selected",
		Action:  "Select the column that contains filenames",
		Code:    "CFG001",
	}},
	{mapping.ErrNoMappingsSelected, UserMessage{
		Message: "No columns are mapped to metadata fields",
		Action:  "Enable at least one column and give it a metadata field",
		Code:    "CFG002",
	}},
	{ErrTooManyRows, UserMessage{
		Message: "The sheet has more rows than a single pass allows",
		Action:  "Split the sheet into smaller ranges",
		Code:    "CFG003",
	}},
	{ErrInvalidPreset, UserMessage{
		Message: "The preset is incomplete",
		Action:  "Give the preset a name, a filename column and at least one mapping",
		Code:    "CFG004",
	}},
	{ErrPresetExists, UserMessage{
		Message: "A preset with this name already exists",
		Action:  "Choose another name or update the existing preset",
		Code:    "CFG005",
	}},
	{host.ErrUnavailable, UserMessage{
		Message: "Unable to access the media library",
		Action:  "Open a project or check the library path and try again",
		Code:    "HST001",
	}},
	{ErrTooManyPasses, UserMessage{
		Message: "Another pass is writing to the library",
		Action:  "Wait for it to finish and try again",
		Code:    "RUN001",
	}},
	{context.Canceled, UserMessage{
		Message: "The pass was cancelled",
		Action:  "Rows already processed keep their metadata; run again to finish",
		Code:    "RUN002",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "The pass timed out",
		Action:  "Rows already processed keep their metadata; run again to finish",
		Code:    "RUN003",
	}},
	{ErrNotFound, UserMessage{
		Message: "Not found",
		Action:  "It may have been deleted or pruned",
		Code:    "NF001",
	}},
	{ErrInvalidRequest, UserMessage{
		Message: "The request could not be read",
		Action:  "Check the request body is valid JSON",
		Code:    "REQ001",
	}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catches errors that carry no sentinel.
var errorPatterns = []errorPattern{
	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB001",
	}},
	{"database is locked", UserMessage{
		Message: "The media library is busy",
		Action:  "Wait for the other process to finish and try again",
		Code:    "RUN001",
	}},
	{"request body too large", UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the sheet or export fewer columns",
		Code:    "SRC003",
	}},
	{"timeout", UserMessage{
		Message: "The pass timed out",
		Action:  "Rows already processed keep their metadata; run again to finish",
		Code:    "RUN003",
	}},
}

// defaultMessage is the ERR000 fallback.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts err to a UserMessage. A nil error maps to the zero
// message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the fallback. The raw text of such errors is safe to show.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its operator message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. It returns nil for a nil error.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
