package token

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp/hotp"
	"github.com/pquerna/otp/totp"

	"github.com/jeremyhahn/go-otpvault/pkg/codec"
)

// SecretSize is the length of secrets produced by GenerateSecret (160 bits).
const SecretSize = 20

// ErrInvalidCode indicates a code that does not match the token.
var ErrInvalidCode = errors.New("token: invalid code")

// GenerateSecret returns SecretSize random bytes suitable for SetSecret.
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, SecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("token: failed to generate random secret: %w", err)
	}
	return secret, nil
}

// Verify checks code against a time-based token at the given time, accepting
// codes from up to skew periods before or after it. HOTP tokens are checked
// against their current counter only; use VerifyCounter for a look-ahead
// window.
func (t Token) Verify(code string, at time.Time, skew uint) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("%w: code must not be empty", ErrInvalidCode)
	}
	if len(t.secret) == 0 {
		return ErrEmptySecret
	}

	switch t.kind {
	case KindTOTP, KindSteam:
		opts, err := t.validateOpts()
		if err != nil {
			return err
		}
		if t.kind == KindSteam {
			code = strings.ToUpper(code)
		}
		valid, err := totp.ValidateCustom(code, codec.Base32Encode(t.secret), at.UTC(), totp.ValidateOpts{
			Period:    t.period,
			Skew:      skew,
			Digits:    opts.Digits,
			Algorithm: opts.Algorithm,
			Encoder:   opts.Encoder,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCode, err)
		}
		if !valid {
			return ErrInvalidCode
		}
		return nil
	case KindHOTP:
		_, err := t.VerifyCounter(code, 0)
		return err
	}
	return fmt.Errorf("%w: %q", ErrInvalidKind, string(t.kind))
}

// VerifyCounter checks an HOTP code against the current counter and the next
// window counters. On success it returns the counter that follows the
// matching one, which the caller should store with SetCounter.
func (t Token) VerifyCounter(code string, window uint) (uint64, error) {
	if t.kind != KindHOTP {
		return 0, fmt.Errorf("%w: counter verification requires an hotp token", ErrInvalidKind)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, fmt.Errorf("%w: code must not be empty", ErrInvalidCode)
	}
	if len(t.secret) == 0 {
		return 0, ErrEmptySecret
	}
	opts, err := t.validateOpts()
	if err != nil {
		return 0, err
	}

	secret := codec.Base32Encode(t.secret)
	for i := uint64(0); i <= uint64(window); i++ {
		valid, err := hotp.ValidateCustom(code, t.counter+i, secret, opts)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidCode, err)
		}
		if valid {
			return t.counter + i + 1, nil
		}
	}
	return 0, ErrInvalidCode
}
