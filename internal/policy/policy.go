// Package policy turns map freshness and impact analysis into a single
// run decision. Every undecidable or error condition resolves to a full
// run; a selective run is only ever chosen on a fresh map with a
// non-empty, non-escalated impact set.
package policy

import (
	"tia/internal/covermap"
	"tia/internal/gitdiff"
	"tia/internal/impact"
)

// Mode is the kind of test run to perform.
type Mode string

const (
	// RunImpacted executes only the impacted test set.
	RunImpacted Mode = "RUN_IMPACTED"
	// RunFull executes the entire suite.
	RunFull Mode = "RUN_FULL"
)

// State classifies the coverage map before deciding.
type State string

const (
	// NoData means no coverage map is available.
	NoData State = "NO_DATA"
	// Stale means a map exists but cannot be trusted for this base.
	Stale State = "STALE"
	// Ready means the map is present and fresh.
	Ready State = "READY"
)

// Decision is the immutable outcome of selection. Tests is populated
// only for RunImpacted.
type Decision struct {
	Mode   Mode     `json:"mode"`
	State  State    `json:"state"`
	Reason string   `json:"reason"`
	Tests  []string `json:"tests,omitempty"`
}

// Input carries everything the policy needs to decide.
type Input struct {
	// Differential is false for mainline builds with no comparison base.
	Differential bool

	// AlwaysFull reflects the repo policy opt-out of selective runs.
	AlwaysFull bool

	// MapExists reports whether a persisted coverage map was found.
	MapExists bool

	// Freshness is the map freshness check result; ignored when
	// MapExists is false.
	Freshness covermap.Freshness

	ChangeSet *gitdiff.ChangeSet
	Impact    *impact.Result
}

// Decide computes the run decision. Checks are ordered so the broadest
// reason wins: build context first, then map availability, then map
// freshness, then the impact result itself.
func Decide(in Input) Decision {
	if !in.Differential {
		return Decision{Mode: RunFull, State: classify(in), Reason: "not a differential build"}
	}

	if in.AlwaysFull {
		return Decision{Mode: RunFull, State: classify(in), Reason: "selective runs disabled by repository policy"}
	}

	if !in.MapExists {
		return Decision{Mode: RunFull, State: NoData, Reason: "coverage map unavailable"}
	}

	if !in.Freshness.Fresh {
		return Decision{Mode: RunFull, State: Stale, Reason: "coverage map stale: " + in.Freshness.Reason}
	}

	if in.ChangeSet == nil || in.ChangeSet.IsEmpty() {
		// An empty change set is ambiguous (nothing to select on), and
		// ambiguity resolves toward testing more.
		return Decision{Mode: RunFull, State: Ready, Reason: "no changes detected against base"}
	}

	if in.Impact == nil {
		return Decision{Mode: RunFull, State: Ready, Reason: "no impact analysis available"}
	}

	if in.Impact.Escalated {
		return Decision{Mode: RunFull, State: Ready, Reason: "escalation: " + in.Impact.EscalationReason}
	}

	if len(in.Impact.Tests) == 0 {
		return Decision{Mode: RunFull, State: Ready, Reason: "no impact mapping found"}
	}

	return Decision{
		Mode:   RunImpacted,
		State:  Ready,
		Reason: "impacted tests selected from coverage map",
		Tests:  in.Impact.Tests,
	}
}

func classify(in Input) State {
	if !in.MapExists {
		return NoData
	}
	if !in.Freshness.Fresh {
		return Stale
	}
	return Ready
}
