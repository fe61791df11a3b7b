package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/JonMunkholm/countsheet/internal/bundle"
	"github.com/JonMunkholm/countsheet/internal/sheet"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"schema error", &StageError{Stage: StageNormalize, Err: &SchemaError{Table: "inventory", Column: "UPC"}}, "SCH001"},
		{"bad cell", &FieldValueError{Line: 3, Column: "AVAILABLE", Value: "x", Err: ErrNotANumber}, "SCH002"},
		{"header not found", fmt.Errorf("normalize: %w", ErrHeaderNotFound), "SCH003"},
		{"join key", &StageError{Stage: StageJoin, Err: &JoinKeyError{Table: "catalog", Column: "UPC"}}, "JOIN001"},
		{"missing field", &StageError{Stage: StageDerive, Err: &MissingFieldError{Field: "barcode", Input: "STYLE M3", UPC: "999"}}, "DRV001"},
		{"no store field", &StageError{Stage: StageSelect, Err: &NoSuchStoreError{Store: "Centro"}}, "SEL001"},
		{"packaging", &StageError{Stage: StagePackage, Err: &bundle.PackagingError{Path: "a.xlsx", Err: os.ErrNotExist}}, "PKG001"},
		{"busy", ErrTooManyRuns, "RUN001"},
		{"cancelled", context.Canceled, "RUN002"},
		{"timeout", fmt.Errorf("read: %w", context.DeadlineExceeded), "RUN003"},
		{"empty upload", &StageError{Stage: StageRead, Err: sheet.ErrEmptyFile}, "FILE003"},
		{"unsupported upload", sheet.ErrUnsupportedFormat, "FILE002"},
		{"unknown layout", fmt.Errorf("%w: %q", ErrUnknownLayout, "x"), "FILE005"},
		{"reference missing", ErrNoReference, "REF001"},
		{"file too large pattern", errors.New("read upload: file too large: limit is 100MB"), "FILE001"},
		{"body too large pattern", errors.New("http: request body too large"), "FILE001"},
		{"no file pattern", errors.New("no file provided"), "FILE004"},
		{"unknown error", errors.New("something weird happened"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q (message %q)", got.Code, tt.wantCode, got.Message)
			}
			if tt.err != nil && got.Message == "" {
				t.Error("MapError() message is empty")
			}
		})
	}
}

func TestMapError_MessagesCarryDetail(t *testing.T) {
	msg := MapError(&SchemaError{Table: "inventory", Column: "AVAILABLE", Aliases: []string{"AVAILABLE", "STORE_ON_HAND"}})
	if want := `Column "AVAILABLE" is missing from the inventory file`; msg.Message != want {
		t.Errorf("Message = %q, want %q", msg.Message, want)
	}
	if want := "Name the column one of: AVAILABLE, STORE_ON_HAND, or choose another layout"; msg.Action != want {
		t.Errorf("Action = %q, want %q", msg.Action, want)
	}
}

func TestStageError(t *testing.T) {
	inner := &SchemaError{Table: "inventory", Column: "WH"}
	err := stageErr(StageNormalize, inner)

	if got, want := err.Error(), `normalize: missing required column "WH" in inventory`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	var se *SchemaError
	if !errors.As(err, &se) || se != inner {
		t.Error("StageError must unwrap to the original error")
	}
	if stageErr(StageJoin, nil) != nil {
		t.Error("stageErr(nil) must be nil")
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrTooManyRuns)
	want := "Another proposal is being generated (Code: RUN001). Please wait a moment and try again"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	if !IsUserFacing(&NoSuchStoreError{}) {
		t.Error("typed errors are user facing")
	}
	if IsUserFacing(errors.New("boom")) {
		t.Error("unknown errors are not user facing")
	}
	if IsUserFacing(nil) {
		t.Error("nil is not user facing")
	}
}
