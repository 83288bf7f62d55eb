package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKey(t *testing.T) {
	t.Run("has tnx_ prefix", func(t *testing.T) {
		key, err := GenerateAPIKey()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(key, "tnx_"))
	})

	t.Run("generates unique keys", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			key, err := GenerateAPIKey()
			require.NoError(t, err)
			assert.False(t, seen[key])
			seen[key] = true
		}
	})
}

func TestHashToken(t *testing.T) {
	t.Run("is deterministic", func(t *testing.T) {
		assert.Equal(t, HashToken("abc"), HashToken("abc"))
	})

	t.Run("differs per input", func(t *testing.T) {
		assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	})
}

func TestMaskKey(t *testing.T) {
	t.Run("shows prefix and suffix only", func(t *testing.T) {
		key := "tnx_abcdefghijklmnopqrstuvwxyz"
		masked := MaskKey(key)
		assert.Equal(t, "tnx_abcdefghij...wxyz", masked)
		assert.NotContains(t, masked, "klmnopqrst")
	})

	t.Run("hides short values entirely", func(t *testing.T) {
		assert.Equal(t, "****", MaskKey("tnx_short"))
	})
}

func TestPasswordHashing(t *testing.T) {
	t.Run("round trips", func(t *testing.T) {
		hash, err := HashPassword("s3cret-password")
		require.NoError(t, err)
		assert.True(t, CheckPasswordHash("s3cret-password", hash))
		assert.False(t, CheckPasswordHash("wrong", hash))
	})
}

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID("d5b4c2f0-9c1a-4e5f-8b3a-2f1e0d9c8b7a"))
	assert.False(t, IsValidUUID(""))
	assert.False(t, IsValidUUID("not-a-uuid"))
}
