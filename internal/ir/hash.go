package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainModel     = "arachne/model/v1"
	DomainSemistate = "arachne/semistate/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash computes the content-addressed ID of v under domain.
// v must be accepted by MarshalCanonical.
func ContentHash(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("content hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// ModelHash computes the content-addressed ID of a model. Stored with
// every exploration session so replays can detect a changed model.
func ModelHash(m *Model) (string, error) {
	return ContentHash(DomainModel, m.Canonical())
}

// MustModelHash is like ModelHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustModelHash(m *Model) string {
	h, err := ModelHash(m)
	if err != nil {
		panic(err)
	}
	return h
}
