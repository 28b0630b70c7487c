package domain

// TokenAccount holds a balance of one mint.
// Corresponds to token_accounts table in PostgreSQL.
type TokenAccount struct {
	Address string // derived account address
	Mint    string // token type held
	Owner   string // key allowed to authorize debits (reserve ID for vaults)
	Amount  uint64 // balance in base units
	Frozen  bool   // frozen accounts reject debits and credits
}

// Transfer is one executed movement of tokens, as recorded in the journal.
type Transfer struct {
	ID          string // deterministic hash, see idhash.ComputeTransferID
	OperationID string // unit of work that executed the transfer
	Operation   string // one of the Op* constants
	Leg         int    // 0 for the inbound leg, 1 for the outbound leg
	From        string
	To          string
	Mint        string
	Amount      uint64
	Authority   string // signer key or custodian reserve ID
	ExecutedAt  int64  // unix seconds
}

// Operation names used in journals and metrics.
const (
	OpCreatePremium        = "create_premium_reserve"
	OpCreateNormal         = "create_normal_reserve"
	OpSwapPremiumForNormal = "swap_premium_for_normal"
	OpSwapNormalForPremium = "swap_normal_for_premium"
	OpWithdrawPremium      = "withdraw_premium"
	OpWithdrawNormal       = "withdraw_normal"
	OpMintTo               = "mint_to"
)
