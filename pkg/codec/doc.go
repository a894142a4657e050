// Package codec holds the stateless encoding and keyed-hash primitives the
// token engine is built on.
//
// Secrets travel through the authenticator ecosystem as RFC 4648 base32, but
// some export formats carry them as base64 or hex. The conversion helpers in
// this package normalise those inputs, and the HMAC and truncation helpers
// implement the shared final step of RFC 4226.
//
// # Encodings
//
//	raw, err := codec.Base32Decode("JBSWY3DPEHPK3PXP")
//	b32, err := codec.Base64ToBase32("SGVsbG8h3q2+7w==")
//	b32, err := codec.HexToBase32("48656c6c6f21deadbeef")
//
// Base32 output is never padded. Base32 input is accepted in either case,
// with or without padding, and with embedded spaces.
//
// # Dynamic Truncation
//
//	digest, _ := codec.HMAC(codec.AlgorithmSHA1, key, codec.CounterBytes(0))
//	v, err := codec.Truncate(digest)
//	code := codec.FormatDecimal(v, 6)
//
// Every function returns ErrInvalidEncoding, ErrUnknownAlgorithm or ErrShortDigest wrapped with
// detail; test for them with errors.Is.
package codec
