// Package failure defines the error markers shared by the consolidation
// pipeline and the helpers that attach component context to them.
//
// Every error that crosses a package boundary is built with Wrap so callers
// can classify it with errors.Is against one marker while the original cause
// stays reachable for logging.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks a missing or unusable folder or target workbook.
	// A session never starts when it is returned.
	ErrConfiguration = errors.New("configuration error")
	// ErrEngineOpen marks a workbook the spreadsheet engine could not open.
	ErrEngineOpen = errors.New("workbook open error")
	// ErrEngine marks a failure inside the spreadsheet engine after open.
	ErrEngine = errors.New("workbook engine error")
	// ErrPermission marks a filesystem access check that failed.
	ErrPermission = errors.New("permission denied")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrEngine
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short label for the marker carried by err, suitable for the
// error_kind log field.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrEngineOpen):
		return "engine_open"
	case errors.Is(err, ErrPermission):
		return "permission"
	case errors.Is(err, ErrEngine):
		return "engine"
	default:
		return "unexpected"
	}
}

// Hint returns an operator-facing next step for err.
func Hint(err error) string {
	switch Kind(err) {
	case "configuration":
		return "fix the paths in the config file and restart the watcher"
	case "engine_open":
		return "check that the file is a valid, unencrypted workbook and not open elsewhere"
	case "permission":
		return "check ownership and permissions of the file and its destination folder"
	case "engine":
		return "inspect the target workbook; partially copied sheets are kept"
	default:
		return "check logs for details"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "consolidation failure"
	}
	return strings.Join(parts, ": ")
}
