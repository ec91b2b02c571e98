package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("correct horse battery staple")
	require.NoError(t, err)
	require.Contains(t, hash, "$argon2id$")

	ok, err := Verify("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify("wrong password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHash_UniqueSalt(t *testing.T) {
	first, err := Hash("pw")
	require.NoError(t, err)
	second, err := Hash("pw")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestVerify_MalformedHash(t *testing.T) {
	_, err := Verify("pw", "$bcrypt$nope")
	require.Error(t, err)

	_, err = Verify("pw", "plainly-wrong")
	require.Error(t, err)
}
