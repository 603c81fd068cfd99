package manager

import "github.com/tailored-agentic-units/persist/observability"

// Manager event types.
const (
	EventStateSaved         observability.EventType = "manager.state.saved"
	EventStateLoaded        observability.EventType = "manager.state.loaded"
	EventStateQuarantined   observability.EventType = "manager.state.quarantined"
	EventStateRestoreFailed observability.EventType = "manager.state.restore_failed"
	EventQuarantineFailed   observability.EventType = "manager.state.quarantine_failed"
)
