package core

// # Error Codes Reference
//
// This file turns pipeline failures into messages store staff can act on.
// Each message carries a code they can quote to support.
//
// # Input Errors (SCH001-SCH099)
//
//	SCH001 - Missing column: a required column is absent from the upload
//	         Action: check the header row or pick the matching layout
//	SCH002 - Bad cell: a quantity cell is not a number
//	SCH003 - Header not found: the layout expected a header the file lacks
//
// # Reference Errors (JOIN001-JOIN099, DRV001-DRV099, SEL001-SEL099)
//
//	JOIN001 - Join key missing: the upload or a reference table lacks its key column
//	DRV001  - Missing product data: a UPC has no style or color to build a barcode
//	SEL001  - Store names unavailable: the store directory has no name column
//	REF001  - Reference data not loaded
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - Unsupported format: neither xlsx nor CSV
//	FILE003 - Empty file
//	FILE004 - No file selected
//	FILE005 - Unknown layout
//
// # Run Errors (RUN001-RUN099, PKG001)
//
//	RUN001 - System busy: another proposal is being generated
//	RUN002 - Request cancelled
//	RUN003 - Request timed out
//	PKG001 - Packaging failed: a report file was not produced
//
// # Default Error (ERR000)
//
// Typed errors are matched first with errors.Is/As; anything else falls back
// to case-insensitive substring patterns, first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/countsheet/internal/bundle"
	"github.com/JonMunkholm/countsheet/internal/sheet"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgBusy = UserMessage{
		Message: "Another proposal is being generated",
		Action:  "Please wait a moment and try again",
		Code:    "RUN001",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "RUN002",
	}
	msgTimeout = UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "RUN003",
	}
	msgEmptyFile = UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Upload the weekly inventory export with its data rows",
		Code:    "FILE003",
	}
	msgUnsupported = UserMessage{
		Message: "The file is not a spreadsheet",
		Action:  "Upload an .xlsx or .csv file",
		Code:    "FILE002",
	}
	msgNoReference = UserMessage{
		Message: "Product catalog and store list are not loaded",
		Action:  "Ask an administrator to reload the reference data",
		Code:    "REF001",
	}
)

// errorPatterns catches untyped errors, mostly from libraries.
var errorPatterns = []errorPattern{
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Remove unused sheets or export only the weekly inventory",
			Code:    "FILE001",
		},
	},
	{pattern: "request body too large", msg: UserMessage{
		Message: "File exceeds maximum size limit",
		Action:  "Remove unused sheets or export only the weekly inventory",
		Code:    "FILE001",
	}},
	{pattern: "unsupported file format", msg: msgUnsupported},
	{pattern: "zip: not a valid zip file", msg: msgUnsupported},
	{pattern: "empty file", msg: msgEmptyFile},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Choose the weekly inventory file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "invalid form field",
		msg: UserMessage{
			Message: "One of the form fields has an invalid value",
			Action:  "Check the store, resume token, layout and cursor fields",
			Code:    "FORM001",
		},
	},
	{pattern: "too many concurrent runs", msg: msgBusy},
	{pattern: "context canceled", msg: msgCancelled},
	{pattern: "context deadline exceeded", msg: msgTimeout},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000). Support staff
// should check the logs for the original error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	if msg, ok := mapTyped(err); ok {
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

func mapTyped(err error) (UserMessage, bool) {
	var (
		schemaErr  *SchemaError
		valueErr   *FieldValueError
		joinErr    *JoinKeyError
		missingErr *MissingFieldError
		storeErr   *NoSuchStoreError
		packErr    *bundle.PackagingError
	)

	switch {
	case errors.As(err, &schemaErr):
		action := "Check the header row of the file"
		if len(schemaErr.Aliases) > 1 {
			action = fmt.Sprintf("Name the column one of: %s", strings.Join(schemaErr.Aliases, ", "))
		}
		return UserMessage{
			Message: fmt.Sprintf("Column %q is missing from the %s file", schemaErr.Column, schemaErr.Table),
			Action:  action + ", or choose another layout",
			Code:    "SCH001",
		}, true
	case errors.As(err, &valueErr):
		action := "Fix the cell so it holds a whole number, or leave it blank"
		if errors.Is(valueErr.Err, ErrQuantityRange) {
			action = fmt.Sprintf("Quantities above %d are not accepted; fix the cell", MaxQuantity)
		}
		return UserMessage{
			Message: fmt.Sprintf("Row %d has an invalid %s value %q", valueErr.Line, valueErr.Column, valueErr.Value),
			Action:  action,
			Code:    "SCH002",
		}, true
	case errors.Is(err, ErrHeaderNotFound):
		return UserMessage{
			Message: "The header row was not where the selected layout expects it",
			Action:  "Choose the Automatic layout or check the file",
			Code:    "SCH003",
		}, true
	case errors.As(err, &joinErr):
		return UserMessage{
			Message: fmt.Sprintf("The %s data has no %s column to match on", joinErr.Table, joinErr.Column),
			Action:  "Make sure the export includes the store code column",
			Code:    "JOIN001",
		}, true
	case errors.As(err, &missingErr):
		return UserMessage{
			Message: fmt.Sprintf("UPC %s (row %d) has no %s in the product catalog", missingErr.UPC, missingErr.Line, missingErr.Input),
			Action:  "Add the UPC to the catalog and reload reference data",
			Code:    "DRV001",
		}, true
	case errors.As(err, &storeErr):
		return UserMessage{
			Message: "Store names are not available in the store directory",
			Action:  "Ask an administrator to check the store list and reload reference data",
			Code:    "SEL001",
		}, true
	case errors.As(err, &packErr):
		return UserMessage{
			Message: "The report files could not be bundled",
			Action:  "Please try again or contact support",
			Code:    "PKG001",
		}, true
	case errors.Is(err, ErrNoReference):
		return msgNoReference, true
	case errors.Is(err, ErrTooManyRuns):
		return msgBusy, true
	case errors.Is(err, sheet.ErrEmptyFile):
		return msgEmptyFile, true
	case errors.Is(err, sheet.ErrUnsupportedFormat):
		return msgUnsupported, true
	case errors.Is(err, ErrUnknownLayout):
		return UserMessage{
			Message: "Unknown file layout",
			Action:  "Choose one of the listed layouts",
			Code:    "FILE005",
		}, true
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimeout, true
	case errors.Is(err, context.Canceled):
		return msgCancelled, true
	}
	return UserMessage{}, false
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
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
