package catalog

// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. When users encounter errors, they can quote the code to
// support staff for faster diagnosis.
//
// # Feed Errors (FEED001-FEED099)
//
//	FEED001 - Not a catalog: the input is an HTML page or an error page
//	          Action: Check that the link or file points to the XML feed itself
//	FEED002 - Malformed XML: the XML has syntax errors that could not be repaired
//	          Action: Fix the reported line or re-export the feed
//	FEED003 - Unsupported format: no offer, product, ЭлементСправочника or service elements
//	          Action: Choose the dialect explicitly or check the feed structure
//	FEED004 - Unknown dialect: the requested dialect hint is not recognized
//	          Action: Use auto, offer, product, russian or service
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE004 - No file provided
//	FILE005 - Empty file
//	FILE006 - Artifact not found
//	FILE007 - Invalid artifact file name
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: too many runs in progress
//	UPL004 - Request cancelled
//	UPL005 - Request timed out
//
// # Rate Limiting (RATE001)
//
// # Default Error (ERR000)
//
// Typed errors are matched first with errors.Is. Everything else is matched
// case-insensitively with strings.Contains; the first matching pattern wins.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgNotCatalog = UserMessage{
		Message: "The input is not an XML catalog",
		Action:  "Check that the link or file points to the XML feed itself",
		Code:    "FEED001",
	}
	msgMalformed = UserMessage{
		Message: "The XML file contains syntax errors",
		Action:  "Fix the reported line or re-export the feed",
		Code:    "FEED002",
	}
	msgUnsupported = UserMessage{
		Message: "The catalog format was not recognized",
		Action:  "Choose the dialect explicitly or check the feed structure",
		Code:    "FEED003",
	}
	msgBusy = UserMessage{
		Message: "System is busy processing other feeds",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user
// messages. More specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{
		pattern: "unknown dialect",
		msg: UserMessage{
			Message: "Unknown catalog dialect",
			Action:  "Use auto, offer, product, russian or service",
			Code:    "FEED004",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the feed into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select an XML file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a feed with at least one record",
			Code:    "FILE005",
		},
	},
	{
		pattern: "artifact not found",
		msg: UserMessage{
			Message: "The requested file does not exist",
			Action:  "Process the feed again to regenerate the file",
			Code:    "FILE006",
		},
	},
	{
		pattern: "invalid filename",
		msg: UserMessage{
			Message: "The file name is not valid",
			Action:  "Use the download link returned by the processing request",
			Code:    "FILE007",
		},
	},
	{
		pattern: "too many concurrent runs",
		msg:     msgBusy,
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
			Action:  "Try a smaller feed or try again later",
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

// MapError converts a technical error to a user-friendly message.
// Typed feed errors win over string patterns; unmatched errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	switch {
	case errors.Is(err, ErrMalformedDocument):
		return msgMalformed
	case errors.Is(err, ErrUnsupportedFormat):
		return msgUnsupported
	case errors.Is(err, ErrTooManyRuns):
		return msgBusy
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	if errors.Is(err, ErrInvalidInput) {
		return msgNotCatalog
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

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
