package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Domain prefixes for content-addressed signatures.
// Version suffix enables future algorithm migration.
const (
	DomainRecord = "formgraph/record/v1"
	DomainFacet  = "formgraph/facet/v1"
	DomainSeed   = "formgraph/seed/v1"
	DomainGraph  = "formgraph/graph/v1"
)

// maxSeedPropertyKeys bounds how many property keys participate in a seed
// signature so that very wide shapes still hash in constant space.
const maxSeedPropertyKeys = 50

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash computes the domain-separated content hash of an arbitrary
// structured value. Deterministic and order-independent over object keys:
// two structurally equal inputs hash alike regardless of key order.
// Fails with a SerializationError on non-serializable input.
func Hash(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return hashWithDomain(domain, canonical), nil
}

// MustHash is like Hash but panics on error.
// Use only in tests or when inputs are known to be serializable.
func MustHash(domain string, v any) string {
	h, err := Hash(domain, v)
	if err != nil {
		panic(err)
	}
	return h
}

// SeedSignature computes the stable signature for a seeded shape.
// An explicit id wins; otherwise the signature is the hash of a stable
// seed built from the type, the name, and the sorted top property keys.
func SeedSignature(id, typ, name string, propKeys []string) (string, error) {
	if id != "" {
		return id, nil
	}

	keys := make([]string, len(propKeys))
	copy(keys, propKeys)
	sort.Strings(keys)
	if len(keys) > maxSeedPropertyKeys {
		keys = keys[:maxSeedPropertyKeys]
	}

	seed := Object{
		"type": String(typ),
		"name": String(name),
		"keys": stringArray(keys),
	}
	return Hash(DomainSeed, seed)
}

// ThingSignature computes the reflect-stage signature for a thing:
// hash of id + type + sorted owned-property keys + sorted essence keys.
func ThingSignature(id, typ string, propKeys, essenceKeys []string) (string, error) {
	pk := make([]string, len(propKeys))
	copy(pk, propKeys)
	sort.Strings(pk)

	ek := make([]string, len(essenceKeys))
	copy(ek, essenceKeys)
	sort.Strings(ek)

	seed := Object{
		"id":           String(id),
		"type":         String(typ),
		"prop_keys":    stringArray(pk),
		"essence_keys": stringArray(ek),
	}
	return Hash(DomainFacet, seed)
}

// PropertySignature computes the reflect-stage signature for a property:
// hash of id + owner id + key + the value's canonical text.
func PropertySignature(id, ownerID, key string, value Value) (string, error) {
	valueText := ""
	if value != nil {
		data, err := MarshalCanonical(value)
		if err != nil {
			return "", fmt.Errorf("property signature: %w", err)
		}
		valueText = string(data)
	}

	seed := Object{
		"id":    String(id),
		"owner": String(ownerID),
		"key":   String(key),
		"value": String(valueText),
	}
	return Hash(DomainFacet, seed)
}

func stringArray(ss []string) Array {
	arr := make(Array, len(ss))
	for i, s := range ss {
		arr[i] = String(s)
	}
	return arr
}
