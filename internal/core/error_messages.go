package core

// error_messages.go maps technical errors to messages with support codes.
//
// Codes by category:
//
//	FMT001  "format error"         report structure is not a filter report
//	FMT002  "file name"            peptide FileName is not scan.low.high.charge
//	CNV001  "coercion error"       value does not fit its column kind
//	CNS001  "consistency error"    protein groups of the two tables disagree
//	RPT001  "report not found"
//	RPT002  "protein group"        group missing from the report
//	RPT003  "out of range"         row index outside the table
//	RPT004  "invalid report id"
//	AUD001  "history entry not found"
//	AUD002  "no snapshot"          history entry cannot be restored
//	TBL002  "unknown table"        table name other than proteins or peptides
//	TBL003  "unknown column"
//	REQ001  "invalid parameter"    malformed path or query value
//	DB001-DB007                    database constraint and connection errors
//	FILE001 "file too large"
//	FILE004 "no file provided"
//	FILE005 "empty file"
//	UPL002  "too many uploads"
//	UPL004  "context canceled"
//	UPL005  "context deadline exceeded"
//	RATE001 "rate limit"
//	ERR000                         fallback, check the logs
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

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

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns is ordered. A file name error is also a format error and a
// consistency error names a protein group, so both precede the general code.
var errorPatterns = []errorPattern{
	// Report content
	{
		pattern: "file name",
		msg: UserMessage{
			Message: "A peptide file name is not in scan.low.high.charge form",
			Action:  "Check the FileName column of the peptide rows",
			Code:    "FMT002",
		},
	},
	{
		pattern: "filename",
		msg: UserMessage{
			Message: "The peptide FileName column is missing or empty",
			Action:  "Check that the peptide header has a FileName column",
			Code:    "FMT002",
		},
	},
	{
		pattern: "format error",
		msg: UserMessage{
			Message: "The file is not a valid DTASelect filter report",
			Action:  "Upload an unmodified DTASelect-filter.txt file",
			Code:    "FMT001",
		},
	},
	{
		pattern: "coercion error",
		msg: UserMessage{
			Message: "A value does not fit the type of its column",
			Action:  "Use a value of the same type as the rest of the column",
			Code:    "CNV001",
		},
	},
	{
		pattern: "consistency error",
		msg: UserMessage{
			Message: "Protein and peptide tables do not line up",
			Action:  "Keep every peptide's protein group present in the protein table",
			Code:    "CNS001",
		},
	},

	// Stored reports
	{
		pattern: "report not found",
		msg: UserMessage{
			Message: "Report not found",
			Action:  "It may have been deleted. Refresh the report list",
			Code:    "RPT001",
		},
	},
	{
		pattern: "protein group",
		msg: UserMessage{
			Message: "Protein group not found in this report",
			Action:  "Refresh the page and pick a listed group",
			Code:    "RPT002",
		},
	},
	{
		pattern: "out of range",
		msg: UserMessage{
			Message: "Row not found in this table",
			Action:  "Refresh the page, the table may have changed",
			Code:    "RPT003",
		},
	},
	{
		pattern: "invalid report id",
		msg: UserMessage{
			Message: "Invalid report ID",
			Action:  "Use a report link from the report list",
			Code:    "RPT004",
		},
	},
	{
		pattern: "history entry not found",
		msg: UserMessage{
			Message: "The history entry was not found for this report",
			Action:  "Reload the report history and pick an existing entry",
			Code:    "AUD001",
		},
	},
	{
		pattern: "no snapshot",
		msg: UserMessage{
			Message: "This change cannot be undone",
			Action:  "Only edits and deletions can be restored; ingests have no earlier state",
			Code:    "AUD002",
		},
	},
	{
		pattern: "unknown table",
		msg: UserMessage{
			Message: "Unknown table",
			Action:  "Use proteins or peptides",
			Code:    "TBL002",
		},
	},
	{
		pattern: "unknown column",
		msg: UserMessage{
			Message: "Unknown column",
			Action:  "Use a column name from the table header",
			Code:    "TBL003",
		},
	},

	{
		pattern: "invalid parameter",
		msg: UserMessage{
			Message: "A request parameter is not valid",
			Action:  "Row and group numbers must be non-negative integers",
			Code:    "REQ001",
		},
	},

	// Database
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A report with this ID already exists",
			Action:  "Please try again",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Please try again",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Please try again",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "The report was deleted while it was being changed",
			Action:  "Refresh the report list",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "The report was deleted while it was being changed",
			Action:  "Refresh the report list",
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
			Action:  "Try a smaller report or try again later",
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

	// Files
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Filter the report with the command line tool before uploading",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a DTASelect-filter.txt file",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a report with protein and peptide rows",
			Code:    "FILE005",
		},
	},

	// Uploads and requests
	{
		pattern: "too many uploads",
		msg: UserMessage{
			Message: "System is busy processing other reports",
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
			Action:  "Try a smaller report or check your connection",
			Code:    "UPL005",
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

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Unmatched
// errors map to ERR000.
//
//	msg := MapError(&dtaselect.ConsistencyError{Group: 3, Reason: "..."})
//	// msg.Code == "CNS001"
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

// FormatUserError formats err as "Message (Code: XXX). Action".
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

// UserError pairs a technical error, kept for logging, with its user message.
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

// NewUserError maps err to a UserError. It returns nil for a nil err.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
