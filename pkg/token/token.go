package token

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jeremyhahn/go-otpvault/pkg/codec"
)

// Kind discriminates the token variants.
type Kind string

const (
	// KindTOTP is a time-based token (RFC 6238).
	KindTOTP Kind = "totp"
	// KindHOTP is a counter-based token (RFC 4226).
	KindHOTP Kind = "hotp"
	// KindSteam is a Steam Guard token.
	KindSteam Kind = "steam"
)

// ParseKind maps a case-insensitive name onto a Kind.
func ParseKind(name string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(name))); k {
	case KindTOTP, KindHOTP, KindSteam:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, name)
}

func (k Kind) String() string { return string(k) }

// Algorithm is the HMAC hash function a token is keyed with.
type Algorithm = codec.Algorithm

const (
	// AlgorithmSHA1 uses HMAC-SHA1.
	AlgorithmSHA1 = codec.AlgorithmSHA1
	// AlgorithmSHA256 uses HMAC-SHA256.
	AlgorithmSHA256 = codec.AlgorithmSHA256
	// AlgorithmSHA512 uses HMAC-SHA512.
	AlgorithmSHA512 = codec.AlgorithmSHA512
)

// Per-variant defaults.
const (
	TOTPDefaultDigits    uint = 6
	TOTPDefaultPeriod    uint = 30
	TOTPDefaultAlgorithm      = AlgorithmSHA1

	HOTPDefaultDigits    uint = 6
	HOTPDefaultAlgorithm      = AlgorithmSHA1

	SteamDigits    uint = 5
	SteamPeriod    uint = 30
	SteamAlgorithm      = AlgorithmSHA1
)

// Digit bounds for decimal codes.
const (
	MinDigits uint = 1
	MaxDigits uint = 10
)

// Common errors returned by token operations.
var (
	// ErrEmptySecret indicates code generation on a token without a secret.
	ErrEmptySecret = errors.New("token: empty secret")
	// ErrInvalidDigits indicates a digit length outside MinDigits..MaxDigits.
	ErrInvalidDigits = errors.New("token: invalid digit length")
	// ErrInvalidPeriod indicates a zero period on a time-based token.
	ErrInvalidPeriod = errors.New("token: invalid period")
	// ErrInvalidKind indicates an unrecognised token kind.
	ErrInvalidKind = errors.New("token: invalid kind")
	// ErrInvalidURI indicates an otpauth URI that could not be parsed.
	ErrInvalidURI = errors.New("token: invalid otpauth uri")
	// ErrUnknownAlgorithm indicates an algorithm outside SHA1, SHA256 and SHA512.
	ErrUnknownAlgorithm = codec.ErrUnknownAlgorithm
)

// Token is a one-time password credential. The zero value is not usable;
// create tokens with New, NewTOTP, NewHOTP, NewSteam or FromParams.
//
// Token is a value type but owns a byte slice; use Clone to obtain an
// independent copy.
type Token struct {
	kind      Kind
	label     string
	icon      string
	secret    []byte
	digits    uint
	algorithm Algorithm
	period    uint
	counter   uint64
}

// Params is the flat field set of a token, used when restoring tokens from
// storage or import.
type Params struct {
	Kind      Kind
	Label     string
	Icon      string
	Secret    []byte
	Digits    uint
	Algorithm Algorithm
	Period    uint
	Counter   uint64
}

// NewTOTP returns a time-based token with default settings.
func NewTOTP(label string) Token {
	return Token{
		kind:      KindTOTP,
		label:     label,
		digits:    TOTPDefaultDigits,
		algorithm: TOTPDefaultAlgorithm,
		period:    TOTPDefaultPeriod,
	}
}

// NewHOTP returns a counter-based token with default settings and counter 0.
func NewHOTP(label string) Token {
	return Token{
		kind:      KindHOTP,
		label:     label,
		digits:    HOTPDefaultDigits,
		algorithm: HOTPDefaultAlgorithm,
	}
}

// NewSteam returns a Steam Guard token. Its digit length, period and
// algorithm are fixed.
func NewSteam(label string) Token {
	return Token{
		kind:      KindSteam,
		label:     label,
		digits:    SteamDigits,
		algorithm: SteamAlgorithm,
		period:    SteamPeriod,
	}
}

// New returns a token of the given kind with default settings.
func New(kind Kind, label string) (Token, error) {
	switch kind {
	case KindTOTP:
		return NewTOTP(label), nil
	case KindHOTP:
		return NewHOTP(label), nil
	case KindSteam:
		return NewSteam(label), nil
	}
	return Token{}, fmt.Errorf("%w: %q", ErrInvalidKind, string(kind))
}

// FromParams builds a fully populated token, validating every field.
// Fields pinned by the variant are forced to their fixed values.
func FromParams(p Params) (Token, error) {
	t, err := New(p.Kind, p.Label)
	if err != nil {
		return Token{}, err
	}
	t.icon = p.Icon
	t.SetSecret(p.Secret)
	if err := t.SetDigits(p.Digits); err != nil {
		return Token{}, err
	}
	if err := t.SetAlgorithm(p.Algorithm); err != nil {
		return Token{}, err
	}
	if err := t.SetPeriod(p.Period); err != nil {
		return Token{}, err
	}
	t.SetCounter(p.Counter)
	return t, nil
}

// Params returns the token's fields. The secret is copied.
func (t Token) Params() Params {
	return Params{
		Kind:      t.kind,
		Label:     t.label,
		Icon:      t.icon,
		Secret:    t.Secret(),
		Digits:    t.digits,
		Algorithm: t.algorithm,
		Period:    t.period,
		Counter:   t.counter,
	}
}

// Clone returns a deep copy that shares no mutable storage with t.
func (t Token) Clone() Token {
	c := t
	if t.secret != nil {
		c.secret = append([]byte(nil), t.secret...)
	}
	return c
}

// Equal reports whether two tokens hold the same fields.
func (t Token) Equal(o Token) bool {
	return t.kind == o.kind &&
		t.label == o.label &&
		t.icon == o.icon &&
		string(t.secret) == string(o.secret) &&
		t.digits == o.digits &&
		t.algorithm == o.algorithm &&
		t.period == o.period &&
		t.counter == o.counter
}

func (t Token) Kind() Kind { return t.kind }
func (t Token) Label() string { return t.label }
func (t Token) Icon() string { return t.icon }
func (t Token) Digits() uint { return t.digits }
func (t Token) Algorithm() Algorithm { return t.algorithm }
func (t Token) Period() uint { return t.period }
func (t Token) Counter() uint64 { return t.counter }
func (t Token) HasSecret() bool { return len(t.secret) > 0 }
func (t Token) IsTimeBased() bool { return t.kind != KindHOTP }
func (t Token) SecretBase32() string { return codec.Base32Encode(t.secret) }

// Secret returns a copy of the raw secret bytes.
func (t Token) Secret() []byte {
	return append([]byte(nil), t.secret...)
}

func (t *Token) SetLabel(label string) { t.label = label }
func (t *Token) SetIcon(icon string) { t.icon = icon }

// SetSecret stores a copy of the raw secret.
func (t *Token) SetSecret(secret []byte) {
	t.secret = append([]byte(nil), secret...)
}

// SetSecretBase32 decodes and stores a base32 secret.
func (t *Token) SetSecretBase32(s string) error {
	raw, err := codec.Base32Decode(s)
	if err != nil {
		return err
	}
	t.secret = raw
	return nil
}

// SetSecretBase64 decodes and stores a base64 secret, as Steam exports
// carry them. An input that decodes to nothing is rejected.
func (t *Token) SetSecretBase64(s string) error {
	b32, err := codec.Base64ToBase32(s)
	if err != nil {
		return err
	}
	return t.SetSecretBase32(b32)
}

// SetDigits sets the code length. Steam tokens keep their fixed length.
func (t *Token) SetDigits(digits uint) error {
	if t.kind == KindSteam {
		return nil
	}
	if digits < MinDigits || digits > MaxDigits {
		return fmt.Errorf("%w: %d", ErrInvalidDigits, digits)
	}
	t.digits = digits
	return nil
}

// SetPeriod sets the validity window in seconds. HOTP tokens keep period 0
// and Steam tokens keep their fixed period.
func (t *Token) SetPeriod(period uint) error {
	switch t.kind {
	case KindHOTP:
		t.period = 0
		return nil
	case KindSteam:
		return nil
	}
	if period == 0 {
		return fmt.Errorf("%w: period must be greater than zero", ErrInvalidPeriod)
	}
	t.period = period
	return nil
}

// SetAlgorithm sets the HMAC hash. Steam tokens keep SHA1.
func (t *Token) SetAlgorithm(alg Algorithm) error {
	if !alg.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(alg))
	}
	if t.kind == KindSteam {
		return nil
	}
	t.algorithm = alg
	return nil
}

// SetCounter sets the HOTP moving factor. Time-based tokens keep counter 0.
func (t *Token) SetCounter(counter uint64) {
	if t.kind != KindHOTP {
		t.counter = 0
		return
	}
	t.counter = counter
}

// IncrementCounter advances an HOTP counter by one. It is a no-op for
// time-based tokens.
func (t *Token) IncrementCounter() {
	if t.kind == KindHOTP {
		t.counter++
	}
}
