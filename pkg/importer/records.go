package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jeremyhahn/go-otpvault/pkg/codec"
	"github.com/jeremyhahn/go-otpvault/pkg/token"
)

// Native Authy accounts use 7 digits over a 10 second window unless stated.
const (
	nativeDefaultDigits uint = 7
	nativeDefaultPeriod uint = 10
)

var (
	errMissingSecret = errors.New("missing secret")
	errUnknownType   = errors.New("unknown token type")
)

// flexUint accepts a JSON number or a numeric string. Absent, null and ""
// decode to zero, which callers treat as "use the default".
type flexUint uint64

func (f *flexUint) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s: %w", string(b), err)
	}
	*f = flexUint(v)
	return nil
}

func (f flexUint) or(def uint) uint {
	if f == 0 {
		return def
	}
	return uint(f)
}

type totpRecord struct {
	Name         string   `json:"name"`
	OriginalName string   `json:"originalName"`
	Issuer       string   `json:"issuer"`
	Secret       string   `json:"secret"`
	Digits       flexUint `json:"digits"`
	Period       flexUint `json:"period"`
	Algorithm    string   `json:"algorithm"`
}

type nativeRecord struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	SecretSeed string   `json:"secretSeed"`
	Secret     string   `json:"secret"`
	Digits     flexUint `json:"digits"`
	Period     flexUint `json:"period"`
	Counter    flexUint `json:"counter"`
	Algorithm  string   `json:"algorithm"`
}

func recordLabel(name, fallback, issuer string) string {
	label := strings.TrimSpace(name)
	if label == "" {
		label = strings.TrimSpace(fallback)
	}
	if issuer = strings.TrimSpace(issuer); issuer != "" {
		if label == "" {
			return issuer
		}
		if !strings.HasPrefix(label, issuer) {
			return issuer + ":" + label
		}
	}
	return label
}

func parseAlgorithm(name string) (token.Algorithm, error) {
	if strings.TrimSpace(name) == "" {
		return token.AlgorithmSHA1, nil
	}
	return codec.ParseAlgorithm(name)
}

func decodeTOTPRecord(raw json.RawMessage) (token.Token, error) {
	var rec totpRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return token.Token{}, err
	}
	if strings.TrimSpace(rec.Secret) == "" {
		return token.Token{}, errMissingSecret
	}

	b32, err := codec.Base64ToBase32(rec.Secret)
	if err != nil {
		return token.Token{}, err
	}
	secret, err := codec.Base32Decode(b32)
	if err != nil {
		return token.Token{}, err
	}
	alg, err := parseAlgorithm(rec.Algorithm)
	if err != nil {
		return token.Token{}, err
	}

	return token.FromParams(token.Params{
		Kind:      token.KindTOTP,
		Label:     recordLabel(rec.Name, rec.OriginalName, rec.Issuer),
		Secret:    secret,
		Digits:    rec.Digits.or(token.TOTPDefaultDigits),
		Algorithm: alg,
		Period:    rec.Period.or(token.TOTPDefaultPeriod),
	})
}

func decodeNativeRecord(raw json.RawMessage) (token.Token, error) {
	var rec nativeRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return token.Token{}, err
	}

	var kind token.Kind
	switch strings.ToLower(strings.TrimSpace(rec.Type)) {
	case "", "totp", "authy":
		kind = token.KindTOTP
	case "hotp":
		kind = token.KindHOTP
	default:
		return token.Token{}, fmt.Errorf("%w: %q", errUnknownType, rec.Type)
	}

	var secret []byte
	switch {
	case strings.TrimSpace(rec.SecretSeed) != "":
		b32, err := codec.HexToBase32(rec.SecretSeed)
		if err != nil {
			return token.Token{}, err
		}
		if secret, err = codec.Base32Decode(b32); err != nil {
			return token.Token{}, err
		}
	case strings.TrimSpace(rec.Secret) != "":
		var err error
		if secret, err = codec.Base32Decode(rec.Secret); err != nil {
			return token.Token{}, err
		}
	}
	if len(secret) == 0 {
		return token.Token{}, errMissingSecret
	}

	alg, err := parseAlgorithm(rec.Algorithm)
	if err != nil {
		return token.Token{}, err
	}

	return token.FromParams(token.Params{
		Kind:      kind,
		Label:     recordLabel(rec.Name, "", ""),
		Secret:    secret,
		Digits:    rec.Digits.or(nativeDefaultDigits),
		Algorithm: alg,
		Period:    rec.Period.or(nativeDefaultPeriod),
		Counter:   uint64(rec.Counter),
	})
}
