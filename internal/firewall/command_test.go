//go:build linux

package firewall

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealCommandRunner_Success(t *testing.T) {
	out, err := (&RealCommandRunner{}).Run(context.Background(), "sh", "-c", "echo success")

	require.NoError(t, err)
	assert.Equal(t, "success\n", string(out))
}

func TestRealCommandRunner_NonZeroExitCarriesStderr(t *testing.T) {
	_, err := (&RealCommandRunner{}).Run(context.Background(), "sh", "-c", "echo 'Error: INVALID_ZONE' >&2; exit 112")

	var ce *CommandError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "Error: INVALID_ZONE\n", ce.Stderr)
}

func TestRealCommandRunner_StderrOnlyIsFailure(t *testing.T) {
	_, err := (&RealCommandRunner{}).Run(context.Background(), "sh", "-c", "echo 'Error: oops' >&2")
	assert.Error(t, err)

	_, err = (&RealCommandRunner{}).Run(context.Background(), "sh", "-c", "echo 'Warning: ALREADY_ENABLED' >&2")
	assert.NoError(t, err)
}

func TestRealCommandRunner_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := (&RealCommandRunner{}).Run(ctx, "sleep", "5")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
