package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenBlacklist(t *testing.T) {
	require.False(t, IsTokenBlacklisted("tok-unknown"))

	BlacklistToken("tok-live", time.Now().Add(time.Hour))
	require.True(t, IsTokenBlacklisted("tok-live"))

	// An already expired entry behaves as if it was never revoked.
	BlacklistToken("tok-expired", time.Now().Add(-time.Minute))
	require.False(t, IsTokenBlacklisted("tok-expired"))

	// The live entry survives pruning triggered by other lookups.
	require.True(t, IsTokenBlacklisted("tok-live"))
}
