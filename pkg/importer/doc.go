// Package importer converts authenticator backups exported by Authy into
// tokens.
//
// Two schemas are supported, each in two transports:
//
//   - SchemaTOTP: third-party TOTP accounts Authy stores for the user.
//     Secrets are base64.
//   - SchemaNative: Authy-issued accounts. Secrets are hex seeds or base32,
//     and a record's "type" selects TOTP or HOTP.
//
// With TransportXML the input is the Android shared-preferences document the
// app keeps its accounts in; the JSON array is pulled out of the matching
// <string> element. With TransportJSON the input is the array itself.
//
// Imported tokens are appended to the caller's slice. Records that fail
// validation are skipped and counted in the returned Report; an import that
// yields no usable records fails with ErrNoValidEntries.
//
//	imp := importer.New(importer.WithLogger(logger))
//	tokens, report, err := imp.ImportTOTP(data, importer.TransportXML, tokens)
//	if err != nil {
//	    return err
//	}
//	logger.Info("imported", zap.Int("imported", report.Imported), zap.Int("skipped", report.Skipped))
package importer
