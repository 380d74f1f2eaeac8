// Package identity provisions anonymous participant identities and derives
// storage keys from device fingerprints.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"
)

// ErrWeakFingerprint is returned when a raw device fingerprint is too short
// to be worth counting against.
var ErrWeakFingerprint = errors.New("identity: fingerprint too weak")

const (
	// minFingerprintLength is a minimal spoof-resistance heuristic; clearing
	// browser state still resets the fingerprint, which is accepted.
	minFingerprintLength = 10

	keyIterations = 4096
	keyLength     = 32
)

// Provider issues anonymous identifiers and maps raw device fingerprints to
// opaque storage keys. Raw fingerprints never reach the database; only the
// derived key does.
type Provider struct {
	salt []byte
}

// NewProvider constructs a provider keyed with the given salt. The salt is
// deployment wide, not per device: the goal is unlinkability of stored keys
// across deployments, not password grade hardening.
func NewProvider(salt string) *Provider {
	return &Provider{salt: []byte(salt)}
}

// NewAnonymousID returns a fresh opaque participant identifier.
func (p *Provider) NewAnonymousID() string {
	return "anon-" + uuid.NewString()
}

// DeviceKey derives the opaque quota key for a raw fingerprint.
func (p *Provider) DeviceKey(fingerprint string) (string, error) {
	trimmed := strings.TrimSpace(fingerprint)
	if len(trimmed) < minFingerprintLength {
		return "", ErrWeakFingerprint
	}
	key := pbkdf2.Key([]byte(trimmed), p.salt, keyIterations, keyLength, sha256.New)
	return hex.EncodeToString(key), nil
}
