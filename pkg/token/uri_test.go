package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseURI tests otpauth key URI parsing
func TestParseURI(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		kind    Kind
		label   string
		digits  uint
		period  uint
		counter uint64
		alg     Algorithm
		wantErr error
	}{
		{
			name:   "totp with issuer",
			uri:    "otpauth://totp/Example:alice@example.com?secret=JBSWY3DPEHPK3PXP&issuer=Example",
			kind:   KindTOTP,
			label:  "Example:alice@example.com",
			digits: 6,
			period: 30,
			alg:    AlgorithmSHA1,
		},
		{
			name:   "totp custom parameters",
			uri:    "otpauth://totp/bob?secret=JBSWY3DPEHPK3PXP&algorithm=SHA256&digits=8&period=60",
			kind:   KindTOTP,
			label:  "bob",
			digits: 8,
			period: 60,
			alg:    AlgorithmSHA256,
		},
		{
			name:    "hotp with counter",
			uri:     "otpauth://hotp/carol?secret=JBSWY3DPEHPK3PXP&counter=42",
			kind:    KindHOTP,
			label:   "carol",
			digits:  6,
			period:  0,
			counter: 42,
			alg:     AlgorithmSHA1,
		},
		{
			name:   "steam encoder",
			uri:    "otpauth://totp/Steam:dave?secret=JBSWY3DPEHPK3PXP&encoder=steam&digits=5",
			kind:   KindSteam,
			label:  "Steam:dave",
			digits: 5,
			period: 30,
			alg:    AlgorithmSHA1,
		},
		{
			name:    "unknown algorithm",
			uri:     "otpauth://totp/x?secret=JBSWY3DPEHPK3PXP&algorithm=MD5",
			wantErr: ErrUnknownAlgorithm,
		},
		{
			name:    "unknown type",
			uri:     "otpauth://yotp/x?secret=JBSWY3DPEHPK3PXP",
			wantErr: ErrInvalidURI,
		},
		{
			name:    "bad counter",
			uri:     "otpauth://hotp/x?secret=JBSWY3DPEHPK3PXP&counter=-1",
			wantErr: ErrInvalidURI,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := ParseURI(tt.uri)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, tok.Kind())
			assert.Equal(t, tt.label, tok.Label())
			assert.Equal(t, tt.digits, tok.Digits())
			assert.Equal(t, tt.period, tok.Period())
			assert.Equal(t, tt.counter, tok.Counter())
			assert.Equal(t, tt.alg, tok.Algorithm())
			assert.Equal(t, "JBSWY3DPEHPK3PXP", tok.SecretBase32())
		})
	}
}

// TestURIRoundTrip tests that exported URIs parse back to the same token
func TestURIRoundTrip(t *testing.T) {
	totp := NewTOTP("Example:alice")
	totp.SetSecret(rfcSecret)
	require.NoError(t, totp.SetDigits(8))
	require.NoError(t, totp.SetAlgorithm(AlgorithmSHA512))

	hotp := NewHOTP("bob")
	hotp.SetSecret(rfcSecret)
	hotp.SetCounter(99)

	steam := NewSteam("Steam:carol")
	steam.SetSecret(rfcSecret)

	for _, tok := range []Token{totp, hotp, steam} {
		t.Run(string(tok.Kind()), func(t *testing.T) {
			parsed, err := ParseURI(tok.URI(""))
			require.NoError(t, err)
			assert.True(t, parsed.Equal(tok), "got %+v want %+v", parsed.Params(), tok.Params())
		})
	}
}
