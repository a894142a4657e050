package store

import (
	"crypto/subtle"
	"fmt"
	"runtime"

	"golang.org/x/crypto/argon2"
)

const (
	keyLen   = 32
	saltSize = 16
)

// Upper bounds on Argon2id costs. Headers outside them are rejected before
// any key derivation runs.
const (
	MaxKDFTime      uint32 = 64
	MaxKDFMemoryKiB uint32 = 1 << 20 // 1 GiB
)

// KDFParams are the Argon2id cost parameters recorded in every store file.
type KDFParams struct {
	// Time is the number of passes over memory.
	Time uint32 `yaml:"time"`
	// MemoryKiB is the memory cost in KiB.
	MemoryKiB uint32 `yaml:"memory_kib"`
	// Threads is the degree of parallelism.
	Threads uint8 `yaml:"threads"`
}

// DefaultKDFParams returns t=3, m=64 MiB, p=4.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Time:      3,
		MemoryKiB: 64 * 1024,
		Threads:   4,
	}
}

// Validate rejects zero costs and costs above MaxKDFTime or MaxKDFMemoryKiB.
func (p KDFParams) Validate() error {
	if p.Time == 0 || p.MemoryKiB == 0 || p.Threads == 0 {
		return fmt.Errorf("%w: time, memory and threads must be non-zero", ErrInvalidKDFParams)
	}
	if p.Time > MaxKDFTime {
		return fmt.Errorf("%w: time %d exceeds %d", ErrInvalidKDFParams, p.Time, MaxKDFTime)
	}
	if p.MemoryKiB > MaxKDFMemoryKiB {
		return fmt.Errorf("%w: memory %d KiB exceeds %d KiB", ErrInvalidKDFParams, p.MemoryKiB, MaxKDFMemoryKiB)
	}
	return nil
}

func (p KDFParams) deriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, p.Time, p.MemoryKiB, p.Threads, keyLen)
}

// wipe zeroes b in place.
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

func keysEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
