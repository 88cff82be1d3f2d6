// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"

	"github.com/thecrown/packgen/pkg/packerr"
)

type (
	// ActionableError is what the CLI shows for a failure: the operation that
	// failed, the file involved, the cause and what to try next.
	ActionableError struct {
		// Operation is a verb phrase such as "load mappings".
		Operation string
		// Resource is the path involved, if any.
		Resource    string
		Suggestions []string
		Cause       error
		// Issue names the catalogue page explaining the failure; 0 means none.
		Issue Id
	}

	// ErrorContext accumulates the pieces of an ActionableError.
	//
	//	return issue.NewErrorContext().
	//		WithOperation("load configuration").
	//		WithResource(path).
	//		WithSuggestion("Check that the file contains valid CUE syntax").
	//		Wrap(err).
	//		BuildError()
	ErrorContext struct {
		ae ActionableError
	}
)

// NewErrorContext returns an empty builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// WrapWithOperation attaches an operation to err. A nil err yields nil.
func WrapWithOperation(err error, operation string) *ActionableError {
	if err == nil {
		return nil
	}
	return &ActionableError{Operation: operation, Cause: err}
}

func (e *ActionableError) Error() string {
	var b strings.Builder
	e.writeHeadline(&b)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format renders the error for the terminal. A cause that aggregates several
// failures (a scan with many broken models, a joined error) is listed one
// failure per line. Suggestions follow as bullets, then, in verbose mode,
// every error in the Unwrap chain numbered from the cause down.
func (e *ActionableError) Format(verbose bool) string {
	var b strings.Builder

	if details := packerr.Details(e.Cause); len(details) > 1 {
		e.writeHeadline(&b)
		for _, line := range details {
			b.WriteString("\n  - ")
			b.WriteString(line)
		}
	} else {
		b.WriteString(e.Error())
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n")
		for _, s := range e.Suggestions {
			b.WriteString("\n  • ")
			b.WriteString(s)
		}
	}

	if verbose && e.Cause != nil {
		b.WriteString("\n\nError chain:")
		for depth, err := 1, e.Cause; err != nil; depth, err = depth+1, errors.Unwrap(err) {
			fmt.Fprintf(&b, "\n  %d. %s", depth, err)
		}
	}
	return b.String()
}

func (e *ActionableError) writeHeadline(b *strings.Builder) {
	b.WriteString("failed to ")
	b.WriteString(e.Operation)
	if e.Resource != "" {
		b.WriteString(": ")
		b.WriteString(e.Resource)
	}
}

func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.ae.Operation = op
	return c
}

func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.ae.Resource = res
	return c
}

// WithSuggestion appends one suggestion; call it again for more.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	c.ae.Suggestions = append(c.ae.Suggestions, sug)
	return c
}

func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.ae.Issue = id
	return c
}

func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.ae.Cause = err
	return c
}

// Build returns the ActionableError, or nil when no operation was set.
func (c *ErrorContext) Build() *ActionableError {
	if c.ae.Operation == "" {
		return nil
	}
	ae := c.ae
	ae.Suggestions = append([]string(nil), c.ae.Suggestions...)
	return &ae
}

// BuildError is Build for return statements; it never yields a typed nil.
func (c *ErrorContext) BuildError() error {
	if ae := c.Build(); ae != nil {
		return ae
	}
	return nil
}
