package token

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pquerna/otp"

	"github.com/jeremyhahn/go-otpvault/pkg/codec"
)

// ParseURI builds a token from an otpauth:// key URI as produced by
// authenticator enrollment QR codes. The hosts "totp", "hotp" and "steam"
// are recognised; a totp URI carrying encoder=steam is also treated as Steam.
func ParseURI(uri string) (Token, error) {
	key, err := otp.NewKeyFromURL(strings.TrimSpace(uri))
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	u, err := url.Parse(key.String())
	if err != nil || u.Scheme != "otpauth" {
		return Token{}, fmt.Errorf("%w: expected otpauth scheme", ErrInvalidURI)
	}
	q := u.Query()

	kind, err := ParseKind(key.Type())
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	if kind == KindTOTP && key.Encoder() == otp.EncoderSteam {
		kind = KindSteam
	}

	label := key.AccountName()
	if issuer := key.Issuer(); issuer != "" && label != "" && !strings.HasPrefix(label, issuer) {
		label = issuer + ":" + label
	} else if label == "" {
		label = issuer
	}

	t, _ := New(kind, label)
	if err := t.SetSecretBase32(key.Secret()); err != nil {
		return Token{}, err
	}

	if a := q.Get("algorithm"); a != "" {
		alg, err := codec.ParseAlgorithm(a)
		if err != nil {
			return Token{}, err
		}
		if err := t.SetAlgorithm(alg); err != nil {
			return Token{}, err
		}
	}
	if err := t.SetDigits(uint(key.Digits().Length())); err != nil {
		return Token{}, err
	}
	if err := t.SetPeriod(uint(key.Period())); err != nil {
		return Token{}, err
	}
	if c := q.Get("counter"); c != "" {
		counter, err := strconv.ParseUint(c, 10, 64)
		if err != nil {
			return Token{}, fmt.Errorf("%w: counter: %v", ErrInvalidURI, err)
		}
		t.SetCounter(counter)
	}
	return t, nil
}

// URI returns the otpauth:// key URI for t. Steam tokens are written as
// totp with encoder=steam.
func (t Token) URI(issuer string) string {
	v := url.Values{}
	v.Set("secret", codec.Base32Encode(t.secret))
	if issuer != "" {
		v.Set("issuer", issuer)
	}
	v.Set("algorithm", string(t.algorithm))
	v.Set("digits", strconv.FormatUint(uint64(t.digits), 10))

	host := string(KindTOTP)
	switch t.kind {
	case KindHOTP:
		host = string(KindHOTP)
		v.Set("counter", strconv.FormatUint(t.counter, 10))
	case KindSteam:
		v.Set("encoder", "steam")
		v.Set("period", strconv.FormatUint(uint64(t.period), 10))
	default:
		v.Set("period", strconv.FormatUint(uint64(t.period), 10))
	}

	label := t.label
	if issuer != "" && !strings.HasPrefix(label, issuer+":") {
		label = issuer + ":" + label
	}
	return fmt.Sprintf("otpauth://%s/%s?%s", host, url.PathEscape(label), v.Encode())
}
