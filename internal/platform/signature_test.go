package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_MatchingBodyAndSecret(t *testing.T) {
	body := []byte(`{"events":[{"type":"message"}]}`)
	sig := Sign(body, "channel-secret")

	assert.True(t, Verify(body, "channel-secret", sig))
	// Deterministic: signing twice yields the same signature.
	assert.Equal(t, sig, Sign(body, "channel-secret"))
}

func TestVerify_SingleByteChangeInvalidates(t *testing.T) {
	body := []byte(`{"events":[{"type":"message"}]}`)
	sig := Sign(body, "channel-secret")

	tampered := append([]byte(nil), body...)
	tampered[0] = '['
	assert.False(t, Verify(tampered, "channel-secret", sig))

	assert.False(t, Verify(body, "channel-secreT", sig))
	assert.False(t, Verify(body, "channel-secret", sig[:len(sig)-1]+"x"))
}

func TestVerify_EmptyInputs(t *testing.T) {
	assert.False(t, Verify([]byte("body"), "secret", ""))

	sig := Sign(nil, "secret")
	require.NotEmpty(t, sig)
	assert.True(t, Verify(nil, "secret", sig))
}
