package models

import "time"

// FailureKind identifies a class of caught, non-fatal failure.
type FailureKind string

const (
	// FailureMalformedSubject: a product in an alert batch had no identifying
	// name and was skipped.
	FailureMalformedSubject FailureKind = "malformed_subject"
	// FailureTransportUninitialized: the real-time channel was not ready and
	// an event was dropped.
	FailureTransportUninitialized FailureKind = "transport_uninitialized"
	// FailureDispatch: the outbound mail or telegram transport rejected a send.
	FailureDispatch FailureKind = "dispatch"
	// FailureCompose: a digest body could not be rendered.
	FailureCompose FailureKind = "compose"
	// FailureScan: an inventory read failed during a sweep.
	FailureScan FailureKind = "scan"
)

// Failure records one caught failure. Nothing in the pipeline crashes the
// host; failures surface here and in the logs only.
type Failure struct {
	Kind FailureKind
	Err  error
	Time time.Time
}

// FailureSink receives caught failures. A nil sink discards them.
type FailureSink func(Failure)

// Report sends a failure to the sink if one is configured.
func (s FailureSink) Report(kind FailureKind, err error, at time.Time) {
	if s == nil {
		return
	}
	s(Failure{Kind: kind, Err: err, Time: at})
}
