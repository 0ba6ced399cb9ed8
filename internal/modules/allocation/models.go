// Package allocation holds the airdrop allocation table and the
// normalized-key wallet lookup built on top of it.
package allocation

import "strings"

// walletKeyEllipsis is the separator used in truncated wallet keys. It is
// the same single ellipsis rune the source table uses for its shortened
// display addresses, so normalized search input compares equal to stored keys.
const walletKeyEllipsis = "…"

// AllocationRecord is one participant's reward entry. Records are immutable
// after import; their position in the table order is the participant's rank
// (zero-based internally, 1-based when displayed).
type AllocationRecord struct {
	Name          string  `json:"name"`
	WalletAddress string  `json:"wallet"` // canonical display form, mixed case
	WalletKey     string  `json:"-"`      // derived via NormalizeWallet
	DropAmount    float64 `json:"drop_amount"`
	ShardCount    float64 `json:"shard_count"`
}

// NormalizeWallet derives the lookup key for a wallet address.
//
// Inputs of length 10 or more are truncated to the first 6 and last 4
// characters, lowercased, joined with an ellipsis. Shorter inputs are only
// lowercased - they are assumed to already be in short/display form. The
// same rule is applied to stored addresses at import time and to raw search
// input, otherwise lookups would silently miss.
func NormalizeWallet(wallet string) string {
	if len(wallet) >= 10 {
		front := strings.ToLower(wallet[:6])
		back := strings.ToLower(wallet[len(wallet)-4:])
		return front + walletKeyEllipsis + back
	}
	return strings.ToLower(wallet)
}

// SearchResult is the payload for a successful wallet search.
type SearchResult struct {
	Record    AllocationRecord `json:"record"`
	Position  int              `json:"position"` // zero-based position in table order
	Rank      int              `json:"rank"`     // 1-based display rank
	DropText  string           `json:"drop_text"`
	ShardText string           `json:"shards_text"`
}
