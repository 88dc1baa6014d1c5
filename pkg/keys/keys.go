// Package keys implements archive key generation and deterministic
// DiscoveryKey derivation: a one-way 32-byte value announced on the wire
// in place of the public key it's derived from.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

const (
	// Size is the length, in bytes, of both a Key and a DiscoveryKey.
	Size = 32
	// discoveryDomain namespaces the discovery key derivation so that it can
	// never collide with a use of BLAKE2b for some other purpose.
	discoveryDomain = "dhive-discovery-v1"
)

// Key is a 32-byte Ed25519 public key identifying an archive.
type Key [Size]byte

// DiscoveryKey is a one-way, 32-byte derivation of a Key used to announce
// and look up peers without revealing the archive key itself.
type DiscoveryKey [Size]byte

// Pair holds a freshly generated archive keypair.
type Pair struct {
	Public  Key
	Private ed25519.PrivateKey
}

// Generate creates a new Ed25519 archive keypair.
func Generate() (*Pair, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "unable to generate archive keypair")
	}
	var key Key
	copy(key[:], public)
	return &Pair{Public: key, Private: private}, nil
}

// Sign signs a block of log data with the archive's secret key.
func (p *Pair) Sign(data []byte) []byte {
	return ed25519.Sign(p.Private, data)
}

// Verify checks a signature against an archive's public key.
func Verify(key Key, data, signature []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(key[:]), data, signature)
}

// Discovery computes the DiscoveryKey for a given archive Key.
func Discovery(key Key) DiscoveryKey {
	hash, err := blake2b.New256([]byte(discoveryDomain))
	if err != nil {
		// Only possible if the key exceeds BLAKE2b's 64-byte key limit, which
		// discoveryDomain never will.
		panic("unable to construct discovery hash: " + err.Error())
	}
	hash.Write(key[:])
	var discovery DiscoveryKey
	copy(discovery[:], hash.Sum(nil))
	return discovery
}

// Hex returns the canonical lowercase hex form of a Key, used as the cache
// key throughout the Registry.
func (k Key) Hex() string {
	return hex.EncodeToString(k[:])
}

// Hex returns the canonical lowercase hex form of a DiscoveryKey.
func (d DiscoveryKey) Hex() string {
	return hex.EncodeToString(d[:])
}

// ParseKey parses a 64-character lowercase hex string into a Key.
func ParseKey(hexKey string) (Key, error) {
	var key Key
	if len(hexKey) != Size*2 {
		return key, errors.New("incorrect key length")
	}
	decoded, err := hex.DecodeString(hexKey)
	if err != nil {
		return key, errors.Wrap(err, "unable to decode hex key")
	}
	copy(key[:], decoded)
	return key, nil
}
