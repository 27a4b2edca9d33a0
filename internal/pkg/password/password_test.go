package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	Cost = bcrypt.MinCost
	t.Cleanup(func() { Cost = DefaultCost })

	hash, err := Hash("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)
	assert.True(t, Verify("s3cret-pass", hash))
	assert.False(t, Verify("wrong", hash))
	assert.False(t, NeedsRehash(hash))

	Cost = bcrypt.MinCost + 1
	assert.True(t, NeedsRehash(hash))
	assert.True(t, NeedsRehash("not-a-hash"))

	_, err = Hash(strings.Repeat("a", MaxBytes+1))
	assert.ErrorIs(t, err, ErrTooLong)
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		password string
		username string
		want     error
	}{
		{"ok", "longenough", "alice", nil},
		{"short", "short", "", ErrTooShort},
		{"short in runes", "ñññññññ", "", ErrTooShort},
		{"multibyte ok", "ññññññññ", "", nil},
		{"too long", strings.Repeat("x", MaxBytes+1), "", ErrTooLong},
		{"username", "Treasurer", "treasurer", ErrMatchesUsername},
		{"no username rule", "treasurer", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.password, tt.username)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
