package firewall

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// CommandRunner abstracts external command execution.
type CommandRunner interface {
	// Run executes name with args and returns stdout. On failure the error
	// wraps the process error and carries stderr in its message.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandError describes a failed command, keeping stderr separate.
type CommandError struct {
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%v: %s", e.Err, strings.TrimSpace(e.Stderr))
	}
	return e.Err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// RealCommandRunner executes actual commands.
type RealCommandRunner struct{}

// DefaultCommandRunner is the default command runner.
var DefaultCommandRunner CommandRunner = &RealCommandRunner{}

// Run executes a command, capturing stdout and stderr separately.
func (r *RealCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil && err != nil {
		err = ctxErr
	}
	if err != nil {
		return stdout.Bytes(), &CommandError{Stderr: stderr.String(), Err: err}
	}
	// firewall-cmd reports some failures on stderr with a zero exit code.
	// Warnings such as ALREADY_ENABLED are not failures.
	errOut := strings.TrimSpace(stderr.String())
	if errOut != "" && stdout.Len() == 0 && !strings.HasPrefix(errOut, "Warning:") {
		return nil, &CommandError{Stderr: errOut, Err: errors.New("command wrote to stderr")}
	}
	return stdout.Bytes(), nil
}

// DryRunRunner records commands instead of executing them.
type DryRunRunner struct {
	mu       sync.Mutex
	Commands []string
	// Output is returned for every command; defaults to "success".
	Output string
}

// Run records the command line and reports success.
func (r *DryRunRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Commands = append(r.Commands, strings.Join(append([]string{name}, args...), " "))
	out := r.Output
	if out == "" {
		out = "success"
	}
	return []byte(out + "\n"), nil
}

// History returns a copy of the recorded command lines.
func (r *DryRunRunner) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.Commands...)
}
