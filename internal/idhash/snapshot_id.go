package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"whale-screener/internal/domain"
)

// ComputeSnapshotID computes a deterministic snapshot_id using SHA256.
// Formula: SHA256(address|captured_at|source)
// Returns hex-encoded hash (64 characters).
func ComputeSnapshotID(address string, capturedAt int64, source domain.DataSource) string {
	data := fmt.Sprintf("%s|%d|%s", address, capturedAt, string(source))
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
