package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTransferID computes a deterministic transfer_id using SHA256.
// Formula: SHA256(operation_id|leg|from|to|amount)
// Returns hex-encoded hash (64 characters).
func ComputeTransferID(
	operationID string,
	leg int,
	from string,
	to string,
	amount uint64,
) string {
	data := fmt.Sprintf("%s|%d|%s|%s|%d",
		operationID,
		leg,
		from,
		to,
		amount,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
