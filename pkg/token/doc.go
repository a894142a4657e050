// Package token models one-time password credentials and generates their
// codes: HOTP (RFC 4226), TOTP (RFC 6238) and Steam Guard.
//
// A Token is a closed variant over Kind. Every variant carries the same field
// set; the kind selects the generation strategy and pins the fields the
// variant does not allow to change:
//
//   - KindTOTP: digits, period and algorithm are configurable, counter is 0.
//   - KindHOTP: digits, counter and algorithm are configurable, period is 0.
//   - KindSteam: 5 characters, 30 second period, SHA1, counter 0.
//
// Secrets are held as raw bytes. Use SetSecretBase32 for ordinary
// enrollment secrets and SetSecretBase64 for Steam shared secrets.
//
// # TOTP Example
//
//	tok := token.NewTOTP("alice@example.com")
//	if err := tok.SetSecretBase32("JBSWY3DPEHPK3PXP"); err != nil {
//	    log.Fatal(err)
//	}
//	code, err := tok.GenerateCode()
//
// # HOTP Example
//
// GenerateCode never advances the counter. Persist the increment before the
// code is treated as spent:
//
//	code, err := tok.GenerateCode()
//	tok.IncrementCounter()
//	// save tok, then hand out code
//
// # Copying
//
// Assigning a Token copies its fields but shares the secret's backing array.
// Use Clone when two tokens must be independent.
//
// # Thread Safety
//
// Token values are not synchronised. Generating codes from a token that is
// not being mutated is safe from multiple goroutines.
package token
