package store

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jeremyhahn/go-otpvault/pkg/codec"
	"github.com/jeremyhahn/go-otpvault/pkg/token"
)

// File layout, version 1 (big endian):
//
//	magic    [4]byte "OTPV"
//	version  uint16
//	kdf      uint8   1 = Argon2id
//	time     uint32
//	memory   uint32  KiB
//	threads  uint8
//	saltLen  uint8   followed by salt
//	nonceLen uint8   followed by nonce
//	AES-256-GCM ciphertext || tag
//
// Everything before the ciphertext is authenticated as GCM additional data.
const (
	formatVersion uint16 = 1
	kdfArgon2id   uint8  = 1
	nonceSize            = 12
	tagSize              = 16
)

var magic = [4]byte{'O', 'T', 'P', 'V'}

// fixed header bytes before the variable-length salt and nonce
const fixedHeaderLen = 4 + 2 + 1 + 4 + 4 + 1

type header struct {
	version uint16
	kdf     KDFParams
	salt    []byte
	nonce   []byte
}

func (h header) marshal() []byte {
	var buf bytes.Buffer
	buf.Grow(fixedHeaderLen + 2 + len(h.salt) + len(h.nonce))
	buf.Write(magic[:])
	_ = binary.Write(&buf, binary.BigEndian, h.version)
	buf.WriteByte(kdfArgon2id)
	_ = binary.Write(&buf, binary.BigEndian, h.kdf.Time)
	_ = binary.Write(&buf, binary.BigEndian, h.kdf.MemoryKiB)
	buf.WriteByte(h.kdf.Threads)
	buf.WriteByte(byte(len(h.salt)))
	buf.Write(h.salt)
	buf.WriteByte(byte(len(h.nonce)))
	buf.Write(h.nonce)
	return buf.Bytes()
}

// parseHeader splits a store file into its header, the raw header bytes used
// as additional data, and the ciphertext.
func parseHeader(data []byte) (header, []byte, []byte, error) {
	var h header
	if len(data) < fixedHeaderLen+1 {
		return h, nil, nil, fmt.Errorf("%w: file too short (%d bytes)", ErrCorrupt, len(data))
	}
	if !bytes.Equal(data[:4], magic[:]) {
		return h, nil, nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}

	h.version = binary.BigEndian.Uint16(data[4:6])
	if h.version != formatVersion {
		return h, nil, nil, fmt.Errorf("%w: version %d", ErrUnsupportedVersion, h.version)
	}
	if data[6] != kdfArgon2id {
		return h, nil, nil, fmt.Errorf("%w: unknown key derivation function %d", ErrCorrupt, data[6])
	}
	h.kdf = KDFParams{
		Time:      binary.BigEndian.Uint32(data[7:11]),
		MemoryKiB: binary.BigEndian.Uint32(data[11:15]),
		Threads:   data[15],
	}
	if err := h.kdf.Validate(); err != nil {
		return h, nil, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	off := fixedHeaderLen
	saltLen := int(data[off])
	off++
	if saltLen == 0 || len(data) < off+saltLen+1 {
		return h, nil, nil, fmt.Errorf("%w: truncated salt", ErrCorrupt)
	}
	h.salt = data[off : off+saltLen]
	off += saltLen

	nLen := int(data[off])
	off++
	if nLen != nonceSize || len(data) < off+nLen+tagSize {
		return h, nil, nil, fmt.Errorf("%w: truncated nonce or ciphertext", ErrCorrupt)
	}
	h.nonce = data[off : off+nLen]
	off += nLen

	return h, data[:off], data[off:], nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("store: failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// sealFile encrypts plaintext under key and returns the complete file image.
func sealFile(key []byte, h header, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	hdr := h.marshal()
	return aead.Seal(hdr, h.nonce, plaintext, hdr), nil
}

// openSealed authenticates and decrypts the ciphertext of a parsed file.
func openSealed(key []byte, h header, aad, ciphertext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, h.nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrWrongPassword
	}
	return plaintext, nil
}

type payload struct {
	Tokens []record `json:"tokens"`
}

type record struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	Label     string    `json:"label"`
	Icon      string    `json:"icon,omitempty"`
	Secret    []byte    `json:"secret"`
	Digits    uint      `json:"digits"`
	Algorithm string    `json:"algorithm"`
	Period    uint      `json:"period"`
	Counter   uint64    `json:"counter"`
}

func encodeEntries(entries []Entry) ([]byte, error) {
	p := payload{Tokens: make([]record, 0, len(entries))}
	for _, e := range entries {
		tp := e.Token.Params()
		p.Tokens = append(p.Tokens, record{
			ID:        e.ID,
			Kind:      string(tp.Kind),
			Label:     tp.Label,
			Icon:      tp.Icon,
			Secret:    tp.Secret,
			Digits:    tp.Digits,
			Algorithm: string(tp.Algorithm),
			Period:    tp.Period,
			Counter:   tp.Counter,
		})
	}
	out, err := json.Marshal(p)
	for i := range p.Tokens {
		wipe(p.Tokens[i].Secret)
	}
	if err != nil {
		return nil, fmt.Errorf("store: failed to encode tokens: %w", err)
	}
	return out, nil
}

func decodeEntries(plaintext []byte) ([]Entry, error) {
	var p payload
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrCorrupt, err)
	}
	defer func() {
		for i := range p.Tokens {
			wipe(p.Tokens[i].Secret)
		}
	}()

	entries := make([]Entry, 0, len(p.Tokens))
	for i, r := range p.Tokens {
		kind, err := token.ParseKind(r.Kind)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrCorrupt, i, err)
		}
		alg, err := codec.ParseAlgorithm(r.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrCorrupt, i, err)
		}
		tok, err := token.FromParams(token.Params{
			Kind:      kind,
			Label:     r.Label,
			Icon:      r.Icon,
			Secret:    r.Secret,
			Digits:    r.Digits,
			Algorithm: alg,
			Period:    r.Period,
			Counter:   r.Counter,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrCorrupt, i, err)
		}
		id := r.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		entries = append(entries, Entry{ID: id, Token: tok})
	}
	return entries, nil
}
