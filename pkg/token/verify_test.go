package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGenerateSecret tests random secret generation.
func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret()
	require.NoError(t, err)
	assert.Len(t, a, SecretSize)

	b, err := GenerateSecret()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

// TestVerifyTOTP tests time-based verification with skew.
func TestVerifyTOTP(t *testing.T) {
	tok := NewTOTP("rfc")
	tok.SetSecret([]byte("12345678901234567890"))
	require.NoError(t, tok.SetDigits(8))

	at := time.Unix(59, 0)
	assert.NoError(t, tok.Verify("94287082", at, 0))
	assert.NoError(t, tok.Verify(" 94287082 ", at, 0))

	later := at.Add(30 * time.Second)
	assert.ErrorIs(t, tok.Verify("94287082", later, 0), ErrInvalidCode)
	assert.NoError(t, tok.Verify("94287082", later, 1))

	assert.ErrorIs(t, tok.Verify("00000000", at, 1), ErrInvalidCode)
	assert.ErrorIs(t, tok.Verify("942870", at, 0), ErrInvalidCode)
	assert.ErrorIs(t, tok.Verify("", at, 0), ErrInvalidCode)
}

// TestVerifySteam tests verification of Steam codes.
func TestVerifySteam(t *testing.T) {
	tok := NewSteam("steam")
	tok.SetSecret([]byte("steam-secret"))

	at := time.Unix(1700000000, 0)
	code, err := tok.GenerateCodeAt(at)
	require.NoError(t, err)

	assert.NoError(t, tok.Verify(code, at, 0))
	assert.NoError(t, tok.Verify(code, at.Add(30*time.Second), 1))
	assert.ErrorIs(t, tok.Verify(code, at.Add(90*time.Second), 1), ErrInvalidCode)

	known := NewSteam("steam")
	known.SetSecret([]byte("Hello!\xde\xad\xbe\xef"))
	assert.NoError(t, known.Verify("3D7YK", time.Unix(1700000010, 0), 0))
	assert.NoError(t, known.Verify("3d7yk", time.Unix(1700000010, 0), 0))
	assert.NoError(t, known.Verify("V7MQ4", time.Unix(1700000010, 0), 1))
	assert.ErrorIs(t, known.Verify("V7MQ4", time.Unix(1700000010, 0), 0), ErrInvalidCode)
}

// TestVerifyCounter tests HOTP verification with a look-ahead window.
func TestVerifyCounter(t *testing.T) {
	tok := NewHOTP("rfc")
	tok.SetSecret([]byte("12345678901234567890"))
	tok.SetCounter(1)

	// RFC 4226 codes for counters 1 and 3.
	next, err := tok.VerifyCounter("287082", 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), next)

	_, err = tok.VerifyCounter("969429", 1)
	assert.ErrorIs(t, err, ErrInvalidCode)

	next, err = tok.VerifyCounter("969429", 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), next)

	assert.NoError(t, tok.Verify("287082", time.Time{}, 0))
	assert.ErrorIs(t, tok.Verify("359152", time.Time{}, 5), ErrInvalidCode)

	_, err = NewTOTP("x").VerifyCounter("123456", 0)
	assert.ErrorIs(t, err, ErrInvalidKind)
}

// TestVerifyEmptySecret tests that verification without a secret fails.
func TestVerifyEmptySecret(t *testing.T) {
	for _, tok := range []Token{NewTOTP("t"), NewHOTP("h"), NewSteam("s")} {
		assert.ErrorIs(t, tok.Verify("123456", time.Now(), 0), ErrEmptySecret, tok.Kind().String())
	}
}
