package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/metasync/internal/host"
	"github.com/JonMunkholm/metasync/internal/mapping"
	"github.com/JonMunkholm/metasync/internal/tabular"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name: "nil error returns empty",
		},
		{
			name:        "wrapped source unavailable",
			err:         fmt.Errorf("%w: Credentials file is missing client_email.", tabular.ErrSourceUnavailable),
			wantCode:    "SRC001",
			wantMessage: "Unable to read the spreadsheet",
		},
		{
			name:        "invalid range",
			err:         fmt.Errorf("load sheet: %w", tabular.ErrInvalidRange),
			wantCode:    "SRC002",
			wantMessage: "The sheet range returned no usable rows",
		},
		{
			name:        "no key column",
			err:         mapping.ErrNoKeyColumn,
			wantCode:    "CFG001",
			wantMessage: "No filename column selected",
		},
		{
			name:        "no mappings",
			err:         mapping.ErrNoMappingsSelected,
			wantCode:    "CFG002",
			wantMessage: "No columns are mapped to metadata fields",
		},
		{
			name:        "host unavailable",
			err:         fmt.Errorf("%w: no project open", host.ErrUnavailable),
			wantCode:    "HST001",
			wantMessage: "Unable to access the media library",
		},
		{
			name:        "limiter full",
			err:         ErrTooManyPasses,
			wantCode:    "RUN001",
			wantMessage: "Another pass is writing to the library",
		},
		{
			name:        "cancelled",
			err:         fmt.Errorf("pass: %w", context.Canceled),
			wantCode:    "RUN002",
			wantMessage: "The pass was cancelled",
		},
		{
			name:        "deadline",
			err:         context.DeadlineExceeded,
			wantCode:    "RUN003",
			wantMessage: "The pass timed out",
		},
		{
			name:        "pattern fallback is case insensitive",
			err:         errors.New("dial tcp 127.0.0.1:5432: CONNECTION REFUSED"),
			wantCode:    "DB001",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(mapping.ErrNoKeyColumn)

	expected := "No filename column selected (Code: CFG001). Select the column that contains filenames"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"sentinel is user facing", fmt.Errorf("x: %w", ErrNotFound), true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	if got := NewUserError(nil); got != nil {
		t.Errorf("NewUserError(nil) = %v, want nil", got)
	}

	techErr := fmt.Errorf("open library: %w", host.ErrUnavailable)
	userErr := NewUserError(techErr)

	if userErr.Error() != "Unable to access the media library" {
		t.Errorf("Error() = %q, want user message", userErr.Error())
	}
	if !errors.Is(userErr, host.ErrUnavailable) {
		t.Error("Unwrap() should expose the technical error")
	}
}
