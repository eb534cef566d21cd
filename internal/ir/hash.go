package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows the algorithm to change later.
const (
	DomainRecord = "cloudrec/record/v1"
	DomainSchema = "cloudrec/schema/v1"
	DomainAsset  = "cloudrec/asset/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte keeps the
// domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ChangeTag computes the content hash of a record's canonical encoding.
// Two structurally equal records always share a change tag, so an upsert
// can tell whether anything changed.
func ChangeTag(r *Record) (string, error) {
	canonical, err := MarshalRecord(r)
	if err != nil {
		return "", fmt.Errorf("ChangeTag: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRecord, canonical), nil
}

// SchemaHash computes the content hash of a set of schemas.
// The input must already be in canonical encoded form.
func SchemaHash(encoded IRArray) (string, error) {
	canonical, err := MarshalCanonical(encoded)
	if err != nil {
		return "", fmt.Errorf("SchemaHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSchema, canonical), nil
}

// AssetChecksum computes the content address of asset bytes.
func AssetChecksum(data []byte) string {
	return hashWithDomain(DomainAsset, data)
}

// MustChangeTag is like ChangeTag but panics on error.
// Use only in tests or when the record is known to be encodable.
func MustChangeTag(r *Record) string {
	tag, err := ChangeTag(r)
	if err != nil {
		panic(err)
	}
	return tag
}
