package types

// ExecutionPhase represents the lifecycle phase of a swap execution.
type ExecutionPhase string

const (
	// PhaseIdle is the phase before any transaction has been submitted.
	PhaseIdle ExecutionPhase = "IDLE"
	// PhaseSending is the phase while the broadcast is in flight.
	PhaseSending ExecutionPhase = "SENDING"
	// PhasePending is the phase while the receipt is awaited.
	PhasePending ExecutionPhase = "PENDING"
	// PhaseConfirmed is the phase after the receipt confirmed success.
	PhaseConfirmed ExecutionPhase = "CONFIRMED"
	// PhaseFailed is the phase after a send or confirmation failure.
	PhaseFailed ExecutionPhase = "FAILED"
)

// ExecutionState is a snapshot of the execution lifecycle.
//
// Fields:
// - Phase: the current lifecycle phase.
// - TxHash: the hash of the broadcast transaction, if any.
// - Err: the first error observed across send and confirmation.
type ExecutionState struct {
	Phase  ExecutionPhase
	TxHash string
	Err    error
}
