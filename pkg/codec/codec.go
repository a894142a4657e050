package codec

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base32"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"
)

var (
	// ErrInvalidEncoding indicates input could not be decoded per its declared encoding.
	ErrInvalidEncoding = errors.New("codec: invalid encoding")
	// ErrUnknownAlgorithm indicates a hash algorithm outside SHA1, SHA256 and SHA512.
	ErrUnknownAlgorithm = errors.New("codec: unknown algorithm")
	// ErrShortDigest indicates an HMAC digest too short to truncate.
	ErrShortDigest = errors.New("codec: digest too short")
)

// MinDigestLen is the shortest digest Truncate accepts, the size of an
// HMAC-SHA1 output.
const MinDigestLen = 20

// SteamAlphabet is the 26 character alphabet Steam Guard codes are drawn from.
const SteamAlphabet = "23456789BCDFGHJKMNPQRTVWXY"

// maxDigits bounds decimal codes to what a 31-bit truncated value can fill.
const maxDigits = 10

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Algorithm names the HMAC hash function.
type Algorithm string

const (
	AlgorithmSHA1   Algorithm = "SHA1"
	AlgorithmSHA256 Algorithm = "SHA256"
	AlgorithmSHA512 Algorithm = "SHA512"
)

// ParseAlgorithm maps a name such as "sha256" or "SHA-256" onto an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	n := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "-", ""))
	switch Algorithm(n) {
	case AlgorithmSHA1, AlgorithmSHA256, AlgorithmSHA512:
		return Algorithm(n), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

// Valid reports whether a is one of the supported algorithms.
func (a Algorithm) Valid() bool {
	switch a {
	case AlgorithmSHA1, AlgorithmSHA256, AlgorithmSHA512:
		return true
	}
	return false
}

func (a Algorithm) String() string { return string(a) }

func (a Algorithm) newHash() (func() hash.Hash, error) {
	switch a {
	case AlgorithmSHA1:
		return sha1.New, nil
	case AlgorithmSHA256:
		return sha256.New, nil
	case AlgorithmSHA512:
		return sha512.New, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(a))
}

// Base32Encode encodes b with the RFC 4648 alphabet and no padding.
func Base32Encode(b []byte) string {
	return b32.EncodeToString(b)
}

// Base32Decode decodes an RFC 4648 base32 string. Case, whitespace and
// trailing padding are ignored. The empty string decodes to an empty slice.
func Base32Decode(s string) ([]byte, error) {
	clean := strings.ToUpper(strings.Join(strings.Fields(s), ""))
	clean = strings.TrimRight(clean, "=")
	out, err := b32.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: base32: %v", ErrInvalidEncoding, err)
	}
	if out == nil {
		out = []byte{}
	}
	return out, nil
}

// Base64Decode decodes standard base64, accepting input with or without padding.
func Base64Decode(s string) ([]byte, error) {
	clean := strings.Join(strings.Fields(s), "")
	out, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		var rawErr error
		out, rawErr = base64.RawStdEncoding.DecodeString(strings.TrimRight(clean, "="))
		if rawErr != nil {
			return nil, fmt.Errorf("%w: base64: %v", ErrInvalidEncoding, err)
		}
	}
	return out, nil
}

// Base64ToBase32 re-encodes a base64 secret as base32. Input that decodes to
// zero bytes is rejected.
func Base64ToBase32(s string) (string, error) {
	raw, err := Base64Decode(s)
	if err != nil {
		return "", err
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("%w: base64: empty secret", ErrInvalidEncoding)
	}
	return Base32Encode(raw), nil
}

// HexToBase32 re-encodes a hex secret as base32.
func HexToBase32(s string) (string, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: hex: %v", ErrInvalidEncoding, err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("%w: hex: empty secret", ErrInvalidEncoding)
	}
	return Base32Encode(raw), nil
}

// HMAC computes the keyed hash of msg under key.
func HMAC(alg Algorithm, key, msg []byte) ([]byte, error) {
	h, err := alg.newHash()
	if err != nil {
		return nil, err
	}
	mac := hmac.New(h, key)
	mac.Write(msg)
	return mac.Sum(nil), nil
}

// CounterBytes returns the 8-byte big-endian moving factor for c.
func CounterBytes(c uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, c)
	return buf
}

// Truncate applies RFC 4226 §5.3 dynamic truncation: the low nibble of the
// last byte selects an offset and the 31-bit big-endian value there is returned.
// Digests shorter than MinDigestLen return ErrShortDigest.
func Truncate(digest []byte) (uint32, error) {
	if len(digest) < MinDigestLen {
		return 0, fmt.Errorf("%w: %d bytes", ErrShortDigest, len(digest))
	}
	offset := digest[len(digest)-1] & 0x0f
	return binary.BigEndian.Uint32(digest[offset:offset+4]) & 0x7fffffff, nil
}

var pow10 = [...]uint32{
	1, 10, 100, 1000, 10000, 100000, 1000000, 10000000, 100000000, 1000000000,
}

// FormatDecimal reduces v modulo 10^digits and left-pads it with zeros.
// digits must be between 1 and 10.
func FormatDecimal(v uint32, digits int) string {
	if digits < maxDigits {
		v %= pow10[digits]
	}
	return fmt.Sprintf("%0*d", digits, v)
}

// FormatSteam renders v as length characters of SteamAlphabet, least
// significant position first.
func FormatSteam(v uint32, length int) string {
	out := make([]byte, length)
	radix := uint32(len(SteamAlphabet))
	for i := range out {
		out[i] = SteamAlphabet[v%radix]
		v /= radix
	}
	return string(out)
}
