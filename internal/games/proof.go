package games

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Proof computes the randomness digest for one resolution:
// HMAC-SHA256 over "clientSeed:nonce", keyed by the server seed. The hex
// digest is the sole source of randomness for that resolution.
func Proof(serverSeed, clientSeed string, nonce int64) string {
	mac := hmac.New(sha256.New, []byte(serverSeed))
	fmt.Fprintf(mac, "%s:%d", clientSeed, nonce)
	return hex.EncodeToString(mac.Sum(nil))
}

// SeedHash is the commit published before a server seed is ever used.
func SeedHash(seed string) string {
	h := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(h[:])
}

func NewServerSeed() (string, error) {
	return randomHex(32)
}

func NewClientSeed() (string, error) {
	return randomHex(16)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate seed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// digest serves fixed-size windows of a proof's bytes. When the 32 digest
// bytes are exhausted it chains to SHA-256 of the running digest, so any
// number of draws stays deterministic and replayable from the proof alone.
type digest struct {
	buf []byte
	off int
}

func newDigest(proof string) (*digest, error) {
	buf, err := hex.DecodeString(proof)
	if err != nil {
		return nil, fmt.Errorf("decode proof: %w", err)
	}
	if len(buf) == 0 {
		return nil, fmt.Errorf("decode proof: empty digest")
	}
	return &digest{buf: buf}, nil
}

func (d *digest) window(n int) []byte {
	if d.off+n > len(d.buf) {
		next := sha256.Sum256(d.buf)
		d.buf = next[:]
		d.off = 0
	}
	w := d.buf[d.off : d.off+n]
	d.off += n
	return w
}

func (d *digest) uint32() uint32 {
	return binary.BigEndian.Uint32(d.window(4))
}

func (d *digest) uint16() uint16 {
	return binary.BigEndian.Uint16(d.window(2))
}

func (d *digest) byte() byte {
	return d.window(1)[0]
}

// float64 maps a 4-byte window onto [0, 1).
func (d *digest) float64() float64 {
	return float64(d.uint32()) / float64(1<<32)
}
