package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/jeremyhahn/go-otpvault/pkg/token"
)

// Common errors returned by the importer.
var (
	// ErrExtractionFailed indicates the payload could not be located or parsed.
	ErrExtractionFailed = errors.New("importer: extraction failed")
	// ErrNoValidEntries indicates the payload held no usable records.
	ErrNoValidEntries = errors.New("importer: no valid entries")
	// ErrUnknownSchema indicates an unrecognised schema selector.
	ErrUnknownSchema = errors.New("importer: unknown schema")
	// ErrUnknownTransport indicates an unrecognised transport selector.
	ErrUnknownTransport = errors.New("importer: unknown transport")
)

// Transport is the container format of a backup.
type Transport int

const (
	// TransportXML is an Android shared-preferences XML document.
	TransportXML Transport = iota
	// TransportJSON is a bare JSON array.
	TransportJSON
)

// ParseTransport maps "xml" or "json" onto a Transport.
func ParseTransport(name string) (Transport, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "xml":
		return TransportXML, nil
	case "json":
		return TransportJSON, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTransport, name)
}

func (t Transport) String() string {
	switch t {
	case TransportXML:
		return "xml"
	case TransportJSON:
		return "json"
	}
	return fmt.Sprintf("Transport(%d)", int(t))
}

// Schema is the record layout of a backup.
type Schema string

const (
	// SchemaTOTP holds third-party TOTP accounts.
	SchemaTOTP Schema = "totp"
	// SchemaNative holds Authy-issued accounts.
	SchemaNative Schema = "native"
)

// ParseSchema maps "totp" or "native" onto a Schema.
func ParseSchema(name string) (Schema, error) {
	switch s := Schema(strings.ToLower(strings.TrimSpace(name))); s {
	case SchemaTOTP, SchemaNative:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSchema, name)
}

// Report counts the outcome of an import.
type Report struct {
	Imported int
	Skipped  int
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the logger skipped records are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(i *Importer) {
		if l != nil {
			i.logger = l
		}
	}
}

// Importer converts backups into tokens. It holds no state between calls.
type Importer struct {
	logger *zap.Logger
}

// New returns an Importer.
func New(opts ...Option) *Importer {
	i := &Importer{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import dispatches on schema.
func (i *Importer) Import(data []byte, schema Schema, tr Transport, target []token.Token) ([]token.Token, Report, error) {
	switch schema {
	case SchemaTOTP:
		return i.ImportTOTP(data, tr, target)
	case SchemaNative:
		return i.ImportNative(data, tr, target)
	}
	return target, Report{}, fmt.Errorf("%w: %q", ErrUnknownSchema, string(schema))
}

// ImportTOTP imports a TOTP-schema backup, appending the tokens to target.
func (i *Importer) ImportTOTP(data []byte, tr Transport, target []token.Token) ([]token.Token, Report, error) {
	return i.run(data, tr, SchemaTOTP, target, decodeTOTPRecord)
}

// ImportNative imports a native-schema backup, appending the tokens to target.
func (i *Importer) ImportNative(data []byte, tr Transport, target []token.Token) ([]token.Token, Report, error) {
	return i.run(data, tr, SchemaNative, target, decodeNativeRecord)
}

type recordDecoder func(json.RawMessage) (token.Token, error)

func (i *Importer) run(data []byte, tr Transport, schema Schema, target []token.Token, decode recordDecoder) ([]token.Token, Report, error) {
	var report Report

	payload, err := prepare(data, tr, schema)
	if err != nil {
		return target, report, err
	}

	var records []json.RawMessage
	if err := json.Unmarshal(payload, &records); err != nil {
		return target, report, fmt.Errorf("%w: payload is not a JSON array: %v", ErrExtractionFailed, err)
	}

	imported := make([]token.Token, 0, len(records))
	for idx, raw := range records {
		tok, err := decode(raw)
		if err != nil {
			report.Skipped++
			i.logger.Debug("skipping record",
				zap.String("schema", string(schema)),
				zap.Int("index", idx),
				zap.Error(err))
			continue
		}
		imported = append(imported, tok)
	}
	report.Imported = len(imported)

	if report.Imported == 0 {
		return target, report, fmt.Errorf("%w: %d records, %d skipped", ErrNoValidEntries, len(records), report.Skipped)
	}

	i.logger.Info("import complete",
		zap.String("schema", string(schema)),
		zap.Stringer("transport", tr),
		zap.Int("imported", report.Imported),
		zap.Int("skipped", report.Skipped))

	return append(slices.Clip(target), imported...), report, nil
}

// ImportTOTP imports a TOTP-schema backup with a default Importer.
func ImportTOTP(data []byte, tr Transport, target []token.Token) ([]token.Token, Report, error) {
	return New().ImportTOTP(data, tr, target)
}

// ImportNative imports a native-schema backup with a default Importer.
func ImportNative(data []byte, tr Transport, target []token.Token) ([]token.Token, Report, error) {
	return New().ImportNative(data, tr, target)
}
