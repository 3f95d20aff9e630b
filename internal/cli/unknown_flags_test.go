package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownFlag_ShowsHelpAndUsageError(t *testing.T) {
	t.Parallel()
	for _, sub := range []string{"generate", "batch", "init"} {
		_, err := run(t, sub, "--unknown-flag")
		require.Error(t, err, sub)
		assert.ErrorIs(t, err, ErrUsage)
		assert.Contains(t, err.Error(), "unknown flag")
		assert.Contains(t, err.Error(), "Usage:")
	}
}
