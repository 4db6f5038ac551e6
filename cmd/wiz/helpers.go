package main

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// hashHex digests an ordered list of strings into a stable hex key, used
// to name cache entries. Unlike the resolver's own hashPackages (which
// must be collision-resistant across already-disambiguated qualified
// identifiers), this only needs to be stable across repeated CLI
// invocations with the same arguments, so a plain separator-joined digest
// is enough.
func hashHex(parts []string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(h.Sum(nil))
}
