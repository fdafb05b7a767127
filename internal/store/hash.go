package store

import (
	"crypto/sha256"
	"fmt"
)

// ComputeSignatureHash computes a deterministic hash from a symbol's
// semantic identity: name key, kind, access, declared type and parameters
// in order. Location changes do NOT affect the hash.
func ComputeSignatureHash(nameKey, kind, access, detail string, params []string) string {
	h := sha256.New()

	fmt.Fprintf(h, "name:%s\n", nameKey)
	fmt.Fprintf(h, "kind:%s\n", kind)
	fmt.Fprintf(h, "access:%s\n", access)
	fmt.Fprintf(h, "type:%s\n", detail)

	// Parameter order is part of the signature.
	for i, p := range params {
		fmt.Fprintf(h, "param:%d:%s\n", i, p)
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}
