package core

// error_messages.go maps technical errors to user-facing messages with codes
// for support reference. Users quote the code; support looks it up here.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key            Patterns: "duplicate key"
//	DB002 - Unique constraint        Patterns: "unique constraint", "violates unique"
//	DB003 - Foreign key              Patterns: "foreign key constraint", "violates foreign key"
//	DB004 - Connection refused       Patterns: "connection refused"
//	DB005 - Connection reset         Patterns: "connection reset"
//	DB006 - Timeout                  Patterns: "timeout"
//	DB007 - Deadlock                 Patterns: "deadlock"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Conversion failed       Patterns: "cannot convert"
//	VAL002 - Required field          Patterns: "required field"
//	VAL003 - Entity rejected         Patterns: "validation failed"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large         Patterns: "file too large"
//	FILE002 - Invalid CSV            Patterns: "invalid csv", "parse error"
//	FILE003 - Encoding error         Patterns: "encoding error"
//	FILE004 - No file                Patterns: "no file provided"
//	FILE005 - Empty file             Patterns: "empty file"
//	FILE006 - Unsupported format     Patterns: "unsupported file type"
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Catalog not found       Patterns: "catalog not found"
//	IMP002 - Validation aborted      Patterns: "import validation failed"
//	IMP003 - Unknown store           Patterns: "cannot find store"
//	IMP004 - Dictionary miss         Patterns: "dictionary item is not found"
//	IMP005 - System busy             Patterns: "too many concurrent imports"
//	IMP006 - Run not found           Patterns: "import not found"
//	IMP007 - Category not found      Patterns: "category not found"
//	IMP008 - Request cancelled       Patterns: "context canceled"
//	IMP009 - Request timeout         Patterns: "context deadline exceeded"
//
// # Mapping Errors (MAP001-MAP099)
//
//	MAP001 - Invalid mapping         Patterns: "invalid mapping"
//	MAP002 - Template not found      Patterns: "template not found"
//	MAP003 - Template exists         Patterns: "template already exists"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Rate limited           Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Support staff should check
// application logs for the original technical error.
//
// Patterns are matched case-insensitively using strings.Contains. The first
// matching pattern wins, so more specific patterns are listed first.

import (
	"fmt"
	"strings"
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

var errorPatterns = []errorPattern{
	// =========================================================================
	// Import Errors (IMP001-IMP009)
	// Matched first: run errors often wrap lower-level causes.
	// =========================================================================
	{
		pattern: "catalog not found",
		msg: UserMessage{
			Message: "The target catalog does not exist",
			Action:  "Check the catalog ID and try again",
			Code:    "IMP001",
		},
	},
	{
		pattern: "import validation failed",
		msg: UserMessage{
			Message: "The file failed pre-import validation and nothing was saved",
			Action:  "Review the listed errors, fix the file and import again",
			Code:    "IMP002",
		},
	},
	{
		pattern: "cannot find store",
		msg: UserMessage{
			Message: "An SEO entry references an unknown store",
			Action:  "Use a store ID that exists, or leave SeoStore empty",
			Code:    "IMP003",
		},
	},
	{
		pattern: "dictionary item is not found",
		msg: UserMessage{
			Message: "A dictionary property value is not in its dictionary",
			Action:  "Add the value to the dictionary or enable dictionary value creation",
			Code:    "IMP004",
		},
	},
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "IMP005",
		},
	},
	{
		pattern: "import not found",
		msg: UserMessage{
			Message: "Import run not found",
			Action:  "The run may have expired. Please start a new import",
			Code:    "IMP006",
		},
	},
	{
		pattern: "category not found",
		msg: UserMessage{
			Message: "A referenced category does not exist",
			Action:  "Check the CategoryId column or use CategoryPath instead",
			Code:    "IMP007",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "IMP008",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Import timed out",
			Action:  "Try importing a smaller file or try again later",
			Code:    "IMP009",
		},
	},

	// =========================================================================
	// Mapping Errors (MAP001-MAP003)
	// =========================================================================
	{
		pattern: "invalid mapping",
		msg: UserMessage{
			Message: "The column mapping is invalid",
			Action:  "Check the delimiter, field names and constant values",
			Code:    "MAP001",
		},
	},
	{
		pattern: "template not found",
		msg: UserMessage{
			Message: "Mapping template not found",
			Action:  "Refresh the template list and try again",
			Code:    "MAP002",
		},
	},
	{
		pattern: "template already exists",
		msg: UserMessage{
			Message: "A mapping template with this name already exists",
			Action:  "Choose a different name",
			Code:    "MAP003",
		},
	},

	// =========================================================================
	// Database Errors (DB001-DB007)
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Check the Id and Sku columns for duplicates",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries in your file",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Review your data for duplicate key values",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Ensure main products and categories exist first",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Ensure main products and categories exist first",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
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
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try importing a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// =========================================================================
	// Validation Errors (VAL001-VAL003)
	// =========================================================================
	{
		pattern: "cannot convert",
		msg: UserMessage{
			Message: "A value could not be converted to the column's type",
			Action:  "Use plain numbers, true/false, and YYYY-MM-DD dates",
			Code:    "VAL001",
		},
	},
	{
		pattern: "required field",
		msg: UserMessage{
			Message: "Required field is empty",
			Action:  "Ensure all required columns have values",
			Code:    "VAL002",
		},
	},
	{
		pattern: "validation failed",
		msg: UserMessage{
			Message: "Some products were rejected",
			Action:  "Review the listed field errors",
			Code:    "VAL003",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE006)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Check the delimiter and quoting",
			Code:    "FILE002",
		},
	},
	{
		pattern: "parse error",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Check the delimiter and quoting",
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
			Action:  "Please select a CSV or XLSX file to import",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a file with a header and data rows",
			Code:    "FILE005",
		},
	},
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "File type is not supported",
			Action:  "Upload a .csv, .txt or .xlsx file",
			Code:    "FILE006",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
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
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
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

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging while providing a clean message for users.
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

// NewUserError creates a UserError by mapping a technical error to a user-friendly message.
// Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
