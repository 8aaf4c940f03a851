// Package identity mints stable, deterministic identifiers for document
// tasks so the same task line produces the same id across runs even when no
// link has been recorded yet.
package identity

import (
	"crypto/sha1"
	"encoding/base32"
	"fmt"
	"log/slog"
	"strings"
)

var base32Encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// MintDocUUID derives a stable block id for a document task from its vault
// id, file path, line number, and normalized description. The same four
// inputs always produce the same id, so re-walking a vault that hasn't
// changed reproduces identical ids without consulting the link store.
//
// existing is the set of ids already in use in the same file; on collision
// (two distinct tasks normalizing to the same hash) a numeric suffix -1
// through -100 is appended, mirroring the source tool's block-id minting.
// When every suffix is taken too, a warning is logged and the first 16
// characters of the hash are returned instead.
func MintDocUUID(vaultID, filePath string, lineNumber int, description string, existing map[string]bool) string {
	normalized := strings.ToLower(strings.TrimSpace(description))
	unique := fmt.Sprintf("%s|%s|%d|%s", vaultID, filePath, lineNumber, normalized)

	sum := sha1.Sum([]byte(unique))
	base := strings.ToLower(base32Encoding.EncodeToString(sum[:]))[:8]

	if existing == nil {
		return base
	}

	id := base
	for counter := 1; existing[id]; counter++ {
		if counter > 100 {
			long := strings.ToLower(base32Encoding.EncodeToString(sum[:]))[:16]
			slog.Warn("block id collision suffixes exhausted, using a 16-character id", "file", filePath, "line", lineNumber, "id", long)
			return long
		}
		id = fmt.Sprintf("%s-%d", base, counter)
	}
	return id
}

// MintRemUUID derives a stable id for a reminder-store record that has no
// native persistent identifier of its own, from its list id, title, and due
// date string. Gateways whose native item id is already stable (most are)
// should use that id directly instead of calling this.
func MintRemUUID(listID, title, due string) string {
	normalized := strings.ToLower(strings.TrimSpace(title))
	unique := fmt.Sprintf("%s|%s|%s", listID, normalized, due)
	sum := sha1.Sum([]byte(unique))
	return strings.ToLower(base32Encoding.EncodeToString(sum[:]))[:8]
}
