package carve

import (
	"crypto/sha256"
	"fmt"
	"hash"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

// ChecksumAlgorithm selects the digest computed over each artifact.
type ChecksumAlgorithm string

const (
	// ChecksumNone disables artifact digests.
	ChecksumNone ChecksumAlgorithm = ""
	// ChecksumSHA256 is SHA-256.
	ChecksumSHA256 ChecksumAlgorithm = "sha256"
	// ChecksumBLAKE3 is the 256-bit BLAKE3 hash.
	ChecksumBLAKE3 ChecksumAlgorithm = "blake3"
	// ChecksumXXHash is the 64-bit xxHash, for fast deduplication only.
	ChecksumXXHash ChecksumAlgorithm = "xxhash"
)

// NewHasher returns a hash.Hash for algorithm, or nil for ChecksumNone.
func NewHasher(algorithm ChecksumAlgorithm) (hash.Hash, error) {
	switch algorithm {
	case ChecksumNone:
		return nil, nil
	case ChecksumSHA256:
		return sha256.New(), nil
	case ChecksumBLAKE3:
		return blake3.New(), nil
	case ChecksumXXHash:
		return xxhash.New(), nil
	default:
		return nil, fmt.Errorf("unsupported checksum algorithm: %q", algorithm)
	}
}

// ParseChecksumAlgorithm validates a user-supplied algorithm name.
// "none" and the empty string both disable digests.
func ParseChecksumAlgorithm(name string) (ChecksumAlgorithm, error) {
	if name == "none" {
		return ChecksumNone, nil
	}
	alg := ChecksumAlgorithm(name)
	if _, err := NewHasher(alg); err != nil {
		return ChecksumNone, err
	}
	return alg, nil
}
