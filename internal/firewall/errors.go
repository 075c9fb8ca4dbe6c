package firewall

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds shared with the allowlist package.
var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrSanitizationRejected = errors.New("sanitization rejected")
	ErrExternalToolFailure  = errors.New("external tool failure")
)

// ToolError is returned when the firewall tool exits non-zero, cannot be
// started, or exceeds its timeout. Output carries the tool's diagnostic text.
type ToolError struct {
	Op     string
	Args   []string
	Output string
	Err    error
}

func (e *ToolError) Error() string {
	msg := strings.TrimSpace(e.Output)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s failed: %s", e.Op, msg)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Is reports ErrExternalToolFailure for every ToolError.
func (e *ToolError) Is(target error) bool {
	return target == ErrExternalToolFailure
}

// Diagnostic returns the text to show a caller: the tool output when present,
// otherwise the underlying error.
func Diagnostic(err error) string {
	var te *ToolError
	if errors.As(err, &te) {
		if out := strings.TrimSpace(te.Output); out != "" {
			return out
		}
		if te.Err != nil {
			return te.Err.Error()
		}
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
