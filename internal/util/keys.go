package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// StorageKey isolates a document key inside its collection:
//
//	doc:<collection>:<key>
func StorageKey(collection, key string) string {
	var b strings.Builder
	b.Grow(len("doc:") + len(collection) + 1 + len(key))
	b.WriteString("doc:")
	b.WriteString(collection)
	b.WriteByte(':')
	b.WriteString(key)
	return b.String()
}

// Redact returns a short stable digest of k, safe to put in logs.
func Redact(k string) string {
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}
