package constants

// ContractStatus is the canonical status for rows in the contracts ledger.
type ContractStatus string

// Stable values (store these exact strings in DB).
const (
	ContractPending    ContractStatus = "pending"    // seen but not yet dispatched
	ContractProcessing ContractStatus = "processing" // handed to the pipeline
	ContractCompleted  ContractStatus = "completed"  // all stages finished
	ContractFailed     ContractStatus = "failed"     // terminal failure
)

// Agent result statuses stored per (contract, agent).
const (
	AgentSuccess = "success"
	AgentError   = "error"
)

// Match types on a stored estimate match.
const (
	MatchAuto   = "auto"
	MatchManual = "manual"
)
