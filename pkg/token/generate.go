package token

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"

	"github.com/jeremyhahn/go-otpvault/pkg/codec"
)

// GenerateCode returns the code for the current wall-clock time.
// HOTP tokens are not advanced; call IncrementCounter once the code has been
// used and the new counter persisted.
func (t Token) GenerateCode() (string, error) {
	return t.GenerateCodeAt(time.Now())
}

// GenerateCodeAt returns the code valid at now. For HOTP tokens now is ignored.
func (t Token) GenerateCodeAt(now time.Time) (string, error) {
	if len(t.secret) == 0 {
		return "", ErrEmptySecret
	}

	switch t.kind {
	case KindHOTP:
		return t.code(t.counter)
	case KindTOTP, KindSteam:
		if t.period == 0 {
			return "", fmt.Errorf("%w: period must be greater than zero", ErrInvalidPeriod)
		}
		return t.code(timeStep(now, t.period))
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, string(t.kind))
}

// Remaining returns how long the code valid at now stays valid. HOTP tokens
// return zero.
func (t Token) Remaining(now time.Time) time.Duration {
	if t.kind == KindHOTP || t.period == 0 {
		return 0
	}
	p := int64(t.period)
	elapsed := now.Unix() % p
	if elapsed < 0 {
		elapsed += p
	}
	return time.Duration(p-elapsed) * time.Second
}

// code computes the HOTP value for counter. Steam tokens use pquerna's
// Steam encoder over the same truncated value.
func (t Token) code(counter uint64) (string, error) {
	opts, err := t.validateOpts()
	if err != nil {
		return "", err
	}
	code, err := hotp.GenerateCodeCustom(codec.Base32Encode(t.secret), counter, opts)
	if err != nil {
		return "", fmt.Errorf("token: failed to generate %s code: %w", t.kind, err)
	}
	return code, nil
}

func (t Token) validateOpts() (hotp.ValidateOpts, error) {
	alg, err := pquernaAlgorithm(t.algorithm)
	if err != nil {
		return hotp.ValidateOpts{}, err
	}
	if t.digits < MinDigits || t.digits > MaxDigits {
		return hotp.ValidateOpts{}, fmt.Errorf("%w: %d", ErrInvalidDigits, t.digits)
	}
	opts := hotp.ValidateOpts{
		Digits:    otp.Digits(t.digits),
		Algorithm: alg,
		Encoder:   otp.EncoderDefault,
	}
	if t.kind == KindSteam {
		opts.Encoder = otp.EncoderSteam
	}
	return opts, nil
}

func timeStep(now time.Time, period uint) uint64 {
	sec := now.Unix()
	if sec < 0 {
		return 0
	}
	return uint64(sec) / uint64(period)
}

func pquernaAlgorithm(alg Algorithm) (otp.Algorithm, error) {
	switch alg {
	case AlgorithmSHA1:
		return otp.AlgorithmSHA1, nil
	case AlgorithmSHA256:
		return otp.AlgorithmSHA256, nil
	case AlgorithmSHA512:
		return otp.AlgorithmSHA512, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(alg))
}
