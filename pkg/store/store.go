package store

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeremyhahn/go-otpvault/pkg/token"
)

// Common errors returned by the store.
var (
	// ErrWrongPassword indicates decryption or integrity verification failed.
	ErrWrongPassword = errors.New("store: wrong password")
	// ErrNotFound indicates no store file exists at the configured path.
	ErrNotFound = errors.New("store: not found")
	// ErrAlreadyExists indicates a store file is already present at the path.
	ErrAlreadyExists = errors.New("store: already exists")
	// ErrCorrupt indicates the file exists but is structurally invalid.
	ErrCorrupt = errors.New("store: corrupt")
	// ErrUnsupportedVersion indicates a header version this reader does not know.
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported format version", ErrCorrupt)
	// ErrIOFailure indicates the storage medium failed during read or write.
	ErrIOFailure = errors.New("store: i/o failure")
	// ErrNotOpen indicates an operation that requires a loaded store.
	ErrNotOpen = errors.New("store: not open")
	// ErrAlreadyOpen indicates Initialize on a store that is already open.
	ErrAlreadyOpen = errors.New("store: already open")
	// ErrEmptyPassword indicates an empty password.
	ErrEmptyPassword = errors.New("store: empty password")
	// ErrEntryNotFound indicates no entry carries the requested id.
	ErrEntryNotFound = errors.New("store: entry not found")
	// ErrInvalidKDFParams indicates unusable key derivation costs.
	ErrInvalidKDFParams = errors.New("store: invalid key derivation parameters")
)

// Entry is a token together with its stable identifier in the store.
type Entry struct {
	ID    uuid.UUID
	Token token.Token
}

// Option configures a Store.
type Option func(*Store)

// WithKDFParams sets the Argon2id costs used when the store writes a new
// key. Existing files are always opened with the costs recorded in them.
func WithKDFParams(p KDFParams) Option {
	return func(s *Store) { s.params = p }
}

// WithLogger sets the store's logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Store is an encrypted, password-protected, ordered collection of tokens
// persisted as a single file.
//
// A Store is either closed or open. Initialize and a successful Load open
// it; Close, or a failed Load, closes it. The derived key is cached while
// open so Save does not repeat key derivation.
//
// Store is not safe for concurrent use. Password slices passed to its
// methods are zeroed before the method returns.
type Store struct {
	path   string
	params KDFParams
	logger *zap.Logger

	// cached key material and collection; only valid while open
	key     []byte
	kdf     KDFParams
	salt    []byte
	entries []Entry
	open    bool
}

// New returns a closed Store for the file at path.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:   path,
		params: DefaultKDFParams(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the configured file path.
func (s *Store) Path() string { return s.path }

// IsOpen reports whether the store holds a decrypted collection.
func (s *Store) IsOpen() bool { return s.open }

// Exists reports whether a file is present at the store's path.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Initialize creates an empty store file encrypted under password and opens
// the store. It never overwrites an existing file.
func (s *Store) Initialize(password []byte) error {
	defer wipe(password)

	if s.open {
		return ErrAlreadyOpen
	}
	if len(password) == 0 {
		return ErrEmptyPassword
	}
	if err := s.params.Validate(); err != nil {
		return err
	}
	if _, err := os.Stat(s.path); err == nil {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, s.path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	salt, err := randomBytes(saltSize)
	if err != nil {
		return err
	}
	key := s.params.deriveKey(password, salt)

	if err := s.write(key, s.params, salt, nil); err != nil {
		wipe(key)
		return err
	}

	s.setOpen(key, s.params, salt, []Entry{})
	s.logger.Info("store initialized", zap.String("path", s.path))
	return nil
}

// Load decrypts the store file with password and opens the store. It
// returns a copy of the collection in stored order.
func (s *Store) Load(password []byte) ([]Entry, error) {
	defer wipe(password)
	s.Close()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	h, aad, ciphertext, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	key := h.kdf.deriveKey(password, h.salt)
	plaintext, err := openSealed(key, h, aad, ciphertext)
	if err != nil {
		wipe(key)
		s.logger.Debug("store decryption failed", zap.String("path", s.path))
		return nil, err
	}
	defer wipe(plaintext)

	entries, err := decodeEntries(plaintext)
	if err != nil {
		wipe(key)
		return nil, err
	}

	s.setOpen(key, h.kdf, append([]byte(nil), h.salt...), entries)
	s.logger.Info("store loaded", zap.String("path", s.path), zap.Int("tokens", len(entries)))
	return cloneEntries(entries), nil
}

// Save encrypts the current collection with the cached key and atomically
// replaces the store file.
func (s *Store) Save() error {
	if !s.open {
		return ErrNotOpen
	}
	if err := s.write(s.key, s.kdf, s.salt, s.entries); err != nil {
		return err
	}
	s.logger.Info("store saved", zap.String("path", s.path), zap.Int("tokens", len(s.entries)))
	return nil
}

// SaveTokens replaces the collection with tokens, in order, and saves it.
// password must be the one the store was opened with. Each token keeps the
// ID of the entry previously at its position; tokens past the old length get
// fresh IDs.
func (s *Store) SaveTokens(tokens []token.Token, password []byte) error {
	defer wipe(password)

	if err := s.verify(password); err != nil {
		return err
	}
	entries := make([]Entry, 0, len(tokens))
	for i, t := range tokens {
		id := uuid.New()
		if i < len(s.entries) {
			id = s.entries[i].ID
		}
		entries = append(entries, Entry{ID: id, Token: t.Clone()})
	}
	if err := s.write(s.key, s.kdf, s.salt, entries); err != nil {
		return err
	}
	s.entries = entries
	s.logger.Info("store saved", zap.String("path", s.path), zap.Int("tokens", len(entries)))
	return nil
}

// ChangePassword re-encrypts the open collection under a key derived from
// newPassword with a fresh salt. oldPassword must match the password the
// store was opened with.
func (s *Store) ChangePassword(oldPassword, newPassword []byte) error {
	defer wipe(oldPassword)
	defer wipe(newPassword)

	if err := s.verify(oldPassword); err != nil {
		return err
	}
	if len(newPassword) == 0 {
		return ErrEmptyPassword
	}
	if err := s.params.Validate(); err != nil {
		return err
	}

	salt, err := randomBytes(saltSize)
	if err != nil {
		return err
	}
	key := s.params.deriveKey(newPassword, salt)
	if err := s.write(key, s.params, salt, s.entries); err != nil {
		wipe(key)
		return err
	}

	wipe(s.key)
	s.key, s.kdf, s.salt = key, s.params, salt
	s.logger.Info("store password changed", zap.String("path", s.path))
	return nil
}

// Close discards the collection and wipes cached key material. It is safe
// to call more than once.
func (s *Store) Close() {
	if s.key != nil {
		wipe(s.key)
	}
	s.key = nil
	s.salt = nil
	s.entries = nil
	s.kdf = KDFParams{}
	s.open = false
}

// Entries returns a copy of the collection in stored order.
func (s *Store) Entries() ([]Entry, error) {
	if !s.open {
		return nil, ErrNotOpen
	}
	return cloneEntries(s.entries), nil
}

// Tokens returns copies of the stored tokens in order.
func (s *Store) Tokens() ([]token.Token, error) {
	if !s.open {
		return nil, ErrNotOpen
	}
	out := make([]token.Token, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Token.Clone())
	}
	return out, nil
}

// Get returns a copy of the token stored under id.
func (s *Store) Get(id uuid.UUID) (token.Token, error) {
	i, err := s.index(id)
	if err != nil {
		return token.Token{}, err
	}
	return s.entries[i].Token.Clone(), nil
}

// Insert appends tok to the in-memory collection and returns its id.
// Call Save to persist.
func (s *Store) Insert(tok token.Token) (uuid.UUID, error) {
	if !s.open {
		return uuid.Nil, ErrNotOpen
	}
	id := uuid.New()
	s.entries = append(s.entries, Entry{ID: id, Token: tok.Clone()})
	return id, nil
}

// Update replaces the token stored under id, keeping its position.
// Call Save to persist.
func (s *Store) Update(id uuid.UUID, tok token.Token) error {
	i, err := s.index(id)
	if err != nil {
		return err
	}
	s.entries[i].Token = tok.Clone()
	return nil
}

// Remove deletes the token stored under id, preserving the order of the
// rest. Call Save to persist.
func (s *Store) Remove(id uuid.UUID) error {
	i, err := s.index(id)
	if err != nil {
		return err
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return nil
}

func (s *Store) index(id uuid.UUID) (int, error) {
	if !s.open {
		return -1, ErrNotOpen
	}
	for i, e := range s.entries {
		if e.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
}

// verify checks password against the cached key.
func (s *Store) verify(password []byte) error {
	if !s.open {
		return ErrNotOpen
	}
	candidate := s.kdf.deriveKey(password, s.salt)
	defer wipe(candidate)
	if !keysEqual(candidate, s.key) {
		return ErrWrongPassword
	}
	return nil
}

func (s *Store) setOpen(key []byte, kdf KDFParams, salt []byte, entries []Entry) {
	s.key = key
	s.kdf = kdf
	s.salt = salt
	s.entries = entries
	s.open = true
}

// write encrypts entries and atomically replaces the store file.
func (s *Store) write(key []byte, kdf KDFParams, salt []byte, entries []Entry) error {
	plaintext, err := encodeEntries(entries)
	if err != nil {
		return err
	}
	defer wipe(plaintext)

	nonce, err := randomBytes(nonceSize)
	if err != nil {
		return err
	}
	image, err := sealFile(key, header{version: formatVersion, kdf: kdf, salt: salt, nonce: nonce}, plaintext)
	if err != nil {
		return err
	}
	return writeAtomic(s.path, image)
}

// writeAtomic writes data to a temporary file in the target directory,
// syncs it and renames it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: create directory: %v", ErrIOFailure, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temporary file: %v", ErrIOFailure, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("%w: write temporary file: %v", ErrIOFailure, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("%w: sync temporary file: %v", ErrIOFailure, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close temporary file: %v", ErrIOFailure, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: replace store file: %v", ErrIOFailure, err)
	}
	return nil
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("store: failed to read random bytes: %w", err)
	}
	return b, nil
}

func cloneEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = Entry{ID: e.ID, Token: e.Token.Clone()}
	}
	return out
}
