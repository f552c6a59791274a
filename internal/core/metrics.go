package core

import "time"

// Recorder abstracts metrics reporting so services never depend on a
// concrete metrics backend.
type Recorder interface {
	// RecordSyncRun reports a completed sync pass for a provider with a
	// result label ("success", "recoverable", "error").
	RecordSyncRun(provider string, result string, duration time.Duration)

	// RecordItemUpsert reports a cascade layer actually modifying state.
	// layer is "item", "task" or "notification".
	RecordItemUpsert(provider string, layer string)

	// RecordStaleSweep reports how many items a staleness sweep completed.
	RecordStaleSweep(provider string, count int)

	// RecordConnectionTransition reports a connection status change.
	RecordConnectionTransition(provider string, from, to string)

	// RecordBrokerRequest reports a broker round trip.
	RecordBrokerRequest(operation string, success bool, duration time.Duration)
}
