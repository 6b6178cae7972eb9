// Package core provides the ingestion pipeline and domain model for device exports.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// # Format Errors (FMT001-FMT099)
//
//	FMT001 - Unrecognized format: The file layout does not match a supported device export
//	         Action: Export the file again from the device software or choose the device type
//	         Patterns: "unrecognized format"
//
//	FMT002 - Unknown device: The selected device type is not supported
//	         Action: Choose one of the supported device types
//	         Patterns: "unknown device type"
//
// # Row Errors (ROW001-ROW099)
//
//	ROW001 - No valid rows: No usable glucose readings were found
//	         Action: Check the ingestion report for dropped rows and their reasons
//	         Patterns: "no valid glucose rows"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds maximum size limit
//	          Patterns: "file too large", "request body too large"
//	FILE002 - Invalid CSV: File is not a valid CSV
//	FILE003 - Encoding error: File contains invalid characters
//	FILE004 - No file: No file was selected
//	FILE005 - Empty file: The uploaded file is empty
//
// # Analysis Errors (ANL001-ANL099)
//
//	ANL001 - System busy: Too many analyses in progress
//	ANL002 - Not found: No analysis stored for this patient
//	ANL003 - Missing patient: Patient identifier is required
//
// # Storage Errors (DB004-DB005)
//
//	DB004 - Connection refused: Unable to reach the result database
//	DB005 - Connection reset: Database connection was interrupted
//
// # Request Errors (UPL004-UPL005)
//
//	UPL004 - Request cancelled
//	UPL005 - Request timeout
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Support staff should check
// application logs for the original technical error.
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Specific patterns come before general ones.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Format Errors (FMT001-FMT002)
	// =========================================================================
	{
		pattern: "unrecognized format",
		msg: UserMessage{
			Message: "The file layout does not match a supported device export",
			Action:  "Export the file again from the device software or choose the device type",
			Code:    "FMT001",
		},
	},
	{
		pattern: "unknown device type",
		msg: UserMessage{
			Message: "The selected device type is not supported",
			Action:  "Choose one of the supported device types",
			Code:    "FMT002",
		},
	},

	// =========================================================================
	// Row Errors (ROW001)
	// =========================================================================
	{
		pattern: "no valid glucose rows",
		msg: UserMessage{
			Message: "No usable glucose readings were found",
			Action:  "Check the ingestion report for dropped rows and their reasons",
			Code:    "ROW001",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE005)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Export a shorter date range",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Export a shorter date range",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure file is comma-separated with consistent columns",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save file as UTF-8 encoding",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a CSV file with data rows",
			Code:    "FILE005",
		},
	},

	// =========================================================================
	// Analysis Errors (ANL001-ANL003)
	// =========================================================================
	{
		pattern: "too many concurrent analyses",
		msg: UserMessage{
			Message: "System is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "ANL001",
		},
	},
	{
		pattern: "analysis not found",
		msg: UserMessage{
			Message: "No analysis is stored for this patient",
			Action:  "Upload a device export first",
			Code:    "ANL002",
		},
	},
	{
		pattern: "missing patient id",
		msg: UserMessage{
			Message: "Patient identifier is required",
			Action:  "Provide the patient identifier with the upload",
			Code:    "ANL003",
		},
	},

	// =========================================================================
	// Storage Errors (DB004-DB005)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the result database",
			Action:  "Analysis results could not be saved. Try again shortly",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},

	// =========================================================================
	// Request Errors (UPL004-UPL005)
	// =========================================================================
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
			Action:  "Try uploading a smaller file or check your connection",
			Code:    "UPL005",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, a generic fallback message with code ERR000 is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
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

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError keeps the technical error for logging and a clean message for display.
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

// NewUserError maps a technical error to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
