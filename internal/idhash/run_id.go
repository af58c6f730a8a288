package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(symbol|start|end|config_fingerprint)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(
	symbol string,
	start int64,
	end int64,
	configFingerprint string,
) string {
	data := fmt.Sprintf("%s|%d|%d|%s",
		symbol,
		start,
		end,
		configFingerprint,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
