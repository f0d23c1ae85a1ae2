package domain

// EventType identifies a committed vault operation in the audit log.
type EventType string

// Event types emitted by the vault service.
const (
	EventVaultInitialized EventType = "vault_initialized"
	EventDeposited        EventType = "deposited"
	EventInvested         EventType = "invested"
	EventProtocolAdded    EventType = "protocol_added"
	EventProtocolToggled  EventType = "protocol_toggled"
)

// Event records one committed state change for the audit trail.
// Corresponds to vault_events table in ClickHouse.
type Event struct {
	VaultID      string    `json:"vault_id"`                // vault the event belongs to
	Type         EventType `json:"type"`                    // what happened
	Actor        string    `json:"actor"`                   // identity that performed the operation
	Target       string    `json:"target,omitempty"`        // protocol target or depositor, depending on type
	ProtocolName string    `json:"protocol_name,omitempty"` // label of the protocol, for protocol/invest events
	Amount       uint64    `json:"amount"`                  // asset amount moved, 0 for registry events
	SharesMinted uint64    `json:"shares_minted"`           // shares issued, deposit events only
	Enabled      bool      `json:"enabled"`                 // resulting flag, protocol_toggled events only
	TotalAssets  uint64    `json:"total_assets"`            // vault totals after the event
	TotalShares  uint64    `json:"total_shares"`
	Timestamp    int64     `json:"timestamp_ms"` // Unix timestamp in milliseconds
}
