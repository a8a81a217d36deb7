// Package store implements a filesystem-backed key-value store: one JSON
// document per logical key, an in-memory index rebuilt from directory
// contents, per-path operation lanes, and an fsnotify-driven sync layer
// that reconciles external changes across instances sharing a directory.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// tmpMarker is the reserved substring identifying in-flight temporary
// files. A name containing it is never a valid record and is ignored by
// the scanner and the watcher.
const tmpMarker = ".tmp-"

// Record is the on-disk envelope persisted per key. The embedded Key must
// equal the logical key whose digest named the file; this is what lets the
// index be rebuilt purely from directory contents.
type Record struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Digest maps an arbitrary key to its deterministic, filesystem-safe file
// name (sha256 hex).
func Digest(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// encodeRecord serializes the {key, value} envelope. The value may be any
// JSON-serializable Go value; it is stored opaquely.
func encodeRecord(key string, value interface{}) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value for key %q: %w", key, err)
	}
	data, err := json.Marshal(Record{Key: key, Value: raw})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record for key %q: %w", key, err)
	}
	return data, nil
}

// decodeRecord parses an on-disk record. Envelopes without a key field are
// rejected: they cannot have been produced by the engine and would poison
// the index.
func decodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to parse record: %w", err)
	}
	if rec.Key == "" {
		return Record{}, fmt.Errorf("record has no key field")
	}
	return rec, nil
}

// tempName returns a sibling temporary path for a final record path. Same
// directory, so the completing rename never crosses filesystems.
func tempName(final string) string {
	return final + tmpMarker + uuid.NewString()
}

// isTempName reports whether a file name (or path) carries the temporary
// marker.
func isTempName(name string) bool {
	return strings.Contains(name, tmpMarker)
}
