package importer

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"
)

// Shared-preferences keys the Authy Android app stores its account lists under.
const (
	totpPrefsKey   = "com.authy.storage.tokens.authenticator.key"
	nativePrefsKey = "com.authy.storage.tokens.authy.key"
)

type prefsDocument struct {
	XMLName xml.Name      `xml:"map"`
	Strings []prefsString `xml:"string"`
}

type prefsString struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// prepare returns the JSON payload for the given transport and schema.
func prepare(data []byte, tr Transport, schema Schema) ([]byte, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrExtractionFailed)
	}

	switch tr {
	case TransportJSON:
		return data, nil
	case TransportXML:
		key := totpPrefsKey
		if schema == SchemaNative {
			key = nativePrefsKey
		}
		return extractJSON(data, key)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownTransport, tr)
}

// extractJSON pulls the JSON document stored in the named <string> element.
func extractJSON(doc []byte, key string) ([]byte, error) {
	var prefs prefsDocument
	if err := xml.Unmarshal(doc, &prefs); err != nil {
		return nil, fmt.Errorf("%w: malformed XML: %v", ErrExtractionFailed, err)
	}

	for _, s := range prefs.Strings {
		if s.Name != key {
			continue
		}
		payload := []byte(strings.TrimSpace(s.Value))
		if !json.Valid(payload) {
			return nil, fmt.Errorf("%w: element %q does not hold valid JSON", ErrExtractionFailed, key)
		}
		return payload, nil
	}
	return nil, fmt.Errorf("%w: element %q not found", ErrExtractionFailed, key)
}
