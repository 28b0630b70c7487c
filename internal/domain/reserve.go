package domain

// PremiumReserve is the anchor record of an exchange pair.
// Its vault is custodied by the record itself.
type PremiumReserve struct {
	ID           string // derived from ("premium-reserve", mint, label)
	PremiumMint  string // token type accepted into this reserve
	PremiumVault string // token account holding the premium balance
	GoLiveAt     int64  // unix seconds; swaps allowed once now > GoLiveAt
	CreatedAt    int64  // unix seconds
	Capacity     uint32 // declared number of normal reserves; metadata only
	Owner        string // sole withdrawal and child-creation authority
	Label        string // caller-chosen seed string
	Bump         uint8
	VaultBump    uint8
}

// CustodyKey returns the key that signs for transfers out of PremiumVault.
func (r *PremiumReserve) CustodyKey() string { return r.ID }

// NormalReserve is one child of a PremiumReserve, the other side of a swap pair.
type NormalReserve struct {
	ID          string // derived from ("normal-mint-reserve", parent, mint)
	ParentID    string // ID of the owning PremiumReserve; never changes
	NormalMint  string // differs from the parent's PremiumMint
	NormalVault string
	GoLiveAt    int64
	CreatedAt   int64
	Bump        uint8
	VaultBump   uint8
}

// CustodyKey returns the key that signs for transfers out of NormalVault.
func (r *NormalReserve) CustodyKey() string { return r.ID }

// IsLive reports whether a reserve with the given go-live time accepts swaps at now.
func IsLive(goLiveAt, now int64) bool {
	return goLiveAt < now
}

// ClampGoLive never lets a reserve activate before its own creation instant.
func ClampGoLive(requested, now int64) int64 {
	if requested < now {
		return now
	}
	return requested
}
