package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(run_id|signal_type|entry_time|strike)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	runID string,
	signalType string,
	entryTime int64,
	strike float64,
) string {
	data := fmt.Sprintf("%s|%s|%d|%g",
		runID,
		signalType,
		entryTime,
		strike,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
