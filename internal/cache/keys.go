package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key namespaces. Response and image entries never collide because the
// prefix is part of the key.
const (
	PrefixModerate = "cache:moderate"
	PrefixImage    = "cache:image"
)

// hashLen is the truncation length of the hex digest. Truncation keeps
// keys compact; an accidental collision only yields a wrong cache hit,
// never a security break.
const hashLen = 16

// Key derives the cache key for a unit of content. The key is a pure
// function of the bytes: identical content always maps to the same key
// regardless of when or from whom it arrived.
func Key(prefix string, content []byte) string {
	sum := sha256.Sum256(content)
	return prefix + ":" + hex.EncodeToString(sum[:])[:hashLen]
}
