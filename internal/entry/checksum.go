package entry

import (
	"crypto/sha256"
	"crypto/subtle"
)

// ChecksumSizeBytes is the width of a SHA-256 digest.
const ChecksumSizeBytes = sha256.Size

// Checksum computes the SHA-256 digest of the payload.
func Checksum(payload []byte) [ChecksumSizeBytes]byte {
	return sha256.Sum256(payload)
}

// ValidateChecksum returns true if the provided digest matches the computed SHA-256 of the payload
func ValidateChecksum(payload []byte, checksum [ChecksumSizeBytes]byte) bool {
	expected := Checksum(payload)
	return subtle.ConstantTimeCompare(expected[:], checksum[:]) == 1
}
