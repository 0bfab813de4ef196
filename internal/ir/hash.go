package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainQuery    = "aqlkit/query/v1"
	DomainSnapshot = "aqlkit/snapshot/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// QueryFingerprint identifies a compiled query by its text and bind
// variables. Two compilations of equal queries share a fingerprint.
func QueryFingerprint(query string, bindVars map[string]any) (string, error) {
	vars := make(map[string]any, len(bindVars))
	for k, v := range bindVars {
		vars[k] = v
	}
	canonical, err := MarshalCanonical(map[string]any{
		"query":    query,
		"bindVars": vars,
	})
	if err != nil {
		return "", fmt.Errorf("QueryFingerprint: %w", err)
	}
	return hashWithDomain(DomainQuery, canonical), nil
}

// SnapshotHash identifies a serialized query snapshot. The snapshot is
// decoded and re-encoded canonically so formatting differences do not
// change the hash.
func SnapshotHash(snapshot []byte) (string, error) {
	v, err := DecodeValue(snapshot)
	if err != nil {
		return "", fmt.Errorf("SnapshotHash: %w", err)
	}
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("SnapshotHash: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// MustQueryFingerprint is like QueryFingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustQueryFingerprint(query string, bindVars map[string]any) string {
	fp, err := QueryFingerprint(query, bindVars)
	if err != nil {
		panic(err)
	}
	return fp
}
