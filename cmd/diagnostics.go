package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/eykd/lessimport/internal/source"
)

// Severity classifies a check diagnostic.
type Severity string

const (
	// SeverityError marks a failure that stops the file from resolving.
	SeverityError Severity = "error"
	// SeverityWarning marks a directive that resolved but was not inlined.
	SeverityWarning Severity = "warning"
)

// Diagnostic codes reported by the check command.
const (
	CodeDuplicateImport = "LIMW001" // import removed because it was already inlined
	CodeCSSImport       = "LIMW002" // plain CSS import left in place
	CodeImportNotFound  = "LIME001"
	CodeReadFailure     = "LIME002"
)

// Diagnostic is one finding about a root stylesheet.
type Diagnostic struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	// Root is the root stylesheet being checked.
	Root string `json:"root"`
	// Path is the file containing the directive, or the root for resolution failures.
	Path string `json:"path"`
}

// hasSeverityError is the canonical check: true when sev is the error severity.
func hasSeverityError(sev Severity) bool {
	return sev == SeverityError
}

// hasDiagnosticError reports whether any diagnostic in diags has error severity.
func hasDiagnosticError(diags []Diagnostic) bool {
	for _, d := range diags {
		if hasSeverityError(d.Severity) {
			return true
		}
	}
	return false
}

// eventDiagnostics converts the non-inlining events of a resolution into warnings.
func eventDiagnostics(root string, events []source.Event) []Diagnostic {
	var diags []Diagnostic
	for _, e := range events {
		switch e.Kind {
		case source.EventSkipped:
			diags = append(diags, Diagnostic{
				Code:     CodeDuplicateImport,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("import %q already inlined from %s; directive removed", e.Path, e.Resolved),
				Root:     root,
				Path:     e.Importer,
			})
		case source.EventCSS:
			diags = append(diags, Diagnostic{
				Code:     CodeCSSImport,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("css import %q left in place", e.Path),
				Root:     root,
				Path:     e.Importer,
			})
		}
	}
	return diags
}

// errorDiagnostic converts a resolution failure into an error diagnostic.
// Cancellation is not a finding about the stylesheet and yields false.
func errorDiagnostic(root string, err error) (Diagnostic, bool) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Diagnostic{}, false
	}
	code := CodeReadFailure
	if errors.Is(err, source.ErrNotFound) {
		code = CodeImportNotFound
	}
	return Diagnostic{
		Code:     code,
		Severity: SeverityError,
		Message:  err.Error(),
		Root:     root,
		Path:     root,
	}, true
}

// sanitizePath replaces control characters (runes < 0x20 or == 0x7F) with '?'
// before including path values in human-readable output, preventing ANSI injection.
func sanitizePath(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7F {
			return '?'
		}
		return r
	}, s)
}
