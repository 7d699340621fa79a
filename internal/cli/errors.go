// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Unified error display for switchboard commands.
//
// STANDARDIZED PATTERN:
//   - Commands ALWAYS return errors (RunE), never print and return nil
//   - run() prints the error once, with a hint chosen by error kind
//   - Every failure exits with ExitGeneralError
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/simbo1905/mcp-switchboard/internal/apperr"
	"github.com/simbo1905/mcp-switchboard/internal/secretstore"
)

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates any failure
	ExitGeneralError = 1
)

// ValidationError represents a validation failure for user input.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   string // Value that was provided
	Reason  string // Why validation failed
	Example string // Example of valid value (optional)
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// printError writes err and a hint, if one applies, to w.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), errorText(err))
	if hint := errorHint(err); hint != "" {
		fmt.Fprintln(w, DimStyle.Render(hint))
	}
}

// errorText prefers the user-facing message of application errors.
func errorText(err error) string {
	if _, ok := apperr.KindOf(err); ok {
		return apperr.Message(err)
	}
	return err.Error()
}

func errorHint(err error) string {
	if errors.Is(err, apperr.ErrNoCredential) {
		return "Run 'switchboard config set-key' or set " + secretstore.EnvAPIKey + "."
	}

	var ttyErr *TTYRequiredError
	if errors.As(err, &ttyErr) {
		return "Pass the value as an argument instead."
	}

	kind, _ := apperr.KindOf(err)
	switch kind {
	case apperr.CryptoFailure, apperr.Serialization:
		return "The stored configuration cannot be read on this machine. Run 'switchboard config reset' and set the key again."
	case apperr.ConfigDirectoryUnavailable:
		return "Use --dir to choose an application directory."
	case apperr.UpstreamTransport:
		return "Check the network connection and the API settings ('switchboard settings list')."
	}
	return ""
}
