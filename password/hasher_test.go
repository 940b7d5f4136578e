package password

import (
	"crypto/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func randomPassword(t *testing.T, n int) string {
	t.Helper()
	buf := make([]byte, n)
	_, err := rand.Read(buf)
	require.NoError(t, err)
	return string(buf)
}

func TestBcryptRoundTripAllLengths(t *testing.T) {
	hasher, err := NewBcrypt(bcrypt.MinCost, "server-pepper")
	require.NoError(t, err)

	for n := 1; n <= 128; n++ {
		plain := randomPassword(t, n)

		digest, err := hasher.Hash(plain)
		require.NoError(t, err)

		ok, err := hasher.Verify(plain, digest)
		require.NoError(t, err)
		assert.True(t, ok, "length %d should verify", n)

		ok, err = hasher.Verify(plain+"x", digest)
		require.NoError(t, err)
		assert.False(t, ok, "length %d wrong password should fail", n)
	}
}

func TestBcryptLongPasswordsAreNotTruncated(t *testing.T) {
	hasher, err := NewBcrypt(bcrypt.MinCost, "pepper")
	require.NoError(t, err)

	base := strings.Repeat("a", 100)
	digest, err := hasher.Hash(base + "1")
	require.NoError(t, err)

	ok, err := hasher.Verify(base+"2", digest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptPepperIsPartOfDigest(t *testing.T) {
	first, err := NewBcrypt(bcrypt.MinCost, "one")
	require.NoError(t, err)
	second, err := NewBcrypt(bcrypt.MinCost, "two")
	require.NoError(t, err)

	digest, err := first.Hash("hunter22")
	require.NoError(t, err)

	ok, err := second.Verify("hunter22", digest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptRejectsOutOfRangeCost(t *testing.T) {
	_, err := NewBcrypt(bcrypt.MaxCost+1, "p")
	assert.Error(t, err)
}

func TestBcryptVerifyMalformedDigest(t *testing.T) {
	hasher, err := NewBcrypt(bcrypt.MinCost, "p")
	require.NoError(t, err)

	ok, err := hasher.Verify("x", "not-a-digest")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrHashFailure)
}

func TestChainVerifiesEitherAlgorithmAndFlagsUpgrade(t *testing.T) {
	bc, err := NewBcrypt(bcrypt.MinCost, "p")
	require.NoError(t, err)
	a2, err := NewArgon2(fastConfig(), "p")
	require.NoError(t, err)

	chain := NewChain(bc, a2)

	legacy, err := a2.Hash("migrating-password")
	require.NoError(t, err)

	ok, err := chain.Verify("migrating-password", legacy)
	require.NoError(t, err)
	assert.True(t, ok)

	needs, err := chain.NeedsUpgrade(legacy)
	require.NoError(t, err)
	assert.True(t, needs)

	current, err := chain.Hash("migrating-password")
	require.NoError(t, err)
	assert.True(t, bc.Supports(current))

	needs, err = chain.NeedsUpgrade(current)
	require.NoError(t, err)
	assert.False(t, needs)

	_, err = chain.Verify("x", "$unknown$digest")
	assert.ErrorIs(t, err, ErrUnsupportedDigest)
}

func TestBcryptNeedsUpgradeOnLowerCost(t *testing.T) {
	low, err := NewBcrypt(bcrypt.MinCost, "p")
	require.NoError(t, err)
	high, err := NewBcrypt(bcrypt.MinCost+1, "p")
	require.NoError(t, err)

	digest, err := low.Hash("pw")
	require.NoError(t, err)

	needs, err := high.NeedsUpgrade(digest)
	require.NoError(t, err)
	assert.True(t, needs)
}
