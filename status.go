// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fut

// Version distinguishes reuse cycles of a pooled completion source.
//
// A fresh source starts at version 1. Reset advances the version, so any
// token issued for the previous cycle stops matching the moment the source
// is recycled. Staleness is an equality check, never an ordering check, so
// wraparound is tolerated; the increment skips [AnyVersion].
type Version uint32

// AnyVersion skips the version check, matching whichever cycle is current.
// It serves producers that own the only completion path for a source.
// Presenting it to consumption operations bypasses the stale-token
// protection as well, so consumers holding a handle from CreateFuture
// should present the handle's real token instead.
const AnyVersion Version = 0

// Status is the observable state of one activation cycle.
type Status uint8

const (
	// Pending: activated, not yet completed.
	Pending Status = iota
	// Succeeded: completed with a result value.
	Succeeded
	// Faulted: completed with a producer-supplied error.
	Faulted
	// Canceled: completed by the bound cancellation signal.
	Canceled
	// TimedOut: completed by the bound timeout.
	TimedOut
)

// String returns the status name for diagnostics.
func (s Status) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Succeeded:
		return "Succeeded"
	case Faulted:
		return "Faulted"
	case Canceled:
		return "Canceled"
	case TimedOut:
		return "TimedOut"
	}
	return "Unknown"
}

// Lifecycle phases of one reuse cycle:
//
//	recycled → activated → completed → consumed → (reset) → recycled
const (
	phaseRecycled uint64 = iota
	phaseActivated
	phaseCompleted
	phaseConsumed
)

// Result slot outcome tags. The tag lives in the status word so a single
// atomic load observes {version, outcome, phase} consistently.
const (
	outcomeEmpty uint64 = iota
	outcomeSuccess
	outcomeFault
	outcomeCanceled
	outcomeTimedOut
)

// Status word layout: [version:32 | unused:16 | outcome:8 | phase:8].
//
// All transitions are performed under the per-source spin lock and published
// with a release store; lock-free readers (GetStatus fast path, stale-fire
// checks) acquire-load the whole word and never observe a torn
// version/outcome/phase combination.
func packStatus(ver Version, outcome, phase uint64) uint64 {
	return uint64(ver)<<32 | outcome<<8 | phase
}

func statusVersion(word uint64) Version {
	return Version(word >> 32)
}

func statusOutcome(word uint64) uint64 {
	return (word >> 8) & 0xff
}

func statusPhase(word uint64) uint64 {
	return word & 0xff
}

// nextVersion advances a cycle version, skipping AnyVersion on wraparound.
func nextVersion(ver Version) Version {
	ver++
	if ver == AnyVersion {
		ver++
	}
	return ver
}

// outcomeStatus maps a completed outcome tag to its public Status.
func outcomeStatus(outcome uint64) Status {
	switch outcome {
	case outcomeSuccess:
		return Succeeded
	case outcomeFault:
		return Faulted
	case outcomeCanceled:
		return Canceled
	case outcomeTimedOut:
		return TimedOut
	}
	return Pending
}
