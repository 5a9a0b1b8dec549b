package automod

import (
	"strings"
)

// Effects is the mutable container for one evaluation's outcome: whether
// the message should be deleted, how many strikes the author earned, and
// the human-readable reason fragments, one per contributing detector.
//
// An Effects value is owned by a single evaluation and needs no locking.
// The deletion flag is monotonic: once set it cannot be reverted within the
// evaluation.
type Effects struct {
	deleteMessage bool
	strikeTotal   int
	reasons       []string
}

// Delete marks the message for deletion.
func (e *Effects) Delete() {
	e.deleteMessage = true
}

// AddStrikes records a detector's contribution. Negative amounts are
// ignored; a zero amount still records the reason fragment, matching the
// behavior for detectors configured with a zero strike weight.
func (e *Effects) AddStrikes(amount int, reason string) {
	if amount > 0 {
		e.strikeTotal += amount
	}
	if reason != "" {
		e.reasons = append(e.reasons, reason)
	}
}

func (e *Effects) ShouldDelete() bool {
	return e.deleteMessage
}

func (e *Effects) StrikeTotal() int {
	return e.strikeTotal
}

// Reason joins the contributing detectors' fragments for audit output.
func (e *Effects) Reason() string {
	return strings.Join(e.reasons, ", ")
}
