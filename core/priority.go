package core

import (
	"fmt"
	"strings"
)

// =============================================================================
// Priority: dispatch tier of a job
// =============================================================================

// Priority is the dispatch tier of a job. Higher tiers are always dequeued
// before lower tiers; within a tier jobs run in submission order.
type Priority int

const (
	// PriorityStream is the high-throughput streaming tier and the lowest one.
	// It is the default priority of a new job.
	PriorityStream Priority = iota

	// PriorityLow is for background work that may be delayed.
	PriorityLow

	// PriorityRegular is for ordinary work.
	PriorityRegular

	// PriorityHigh is for latency-sensitive work.
	PriorityHigh
)

// NumPriorities is the number of priority tiers.
const NumPriorities = int(PriorityHigh) + 1

// DefaultPriority is the priority assigned to jobs that never call SetPriority.
const DefaultPriority = PriorityStream

// Valid reports whether p is one of the known tiers.
func (p Priority) Valid() bool {
	return p >= PriorityStream && p <= PriorityHigh
}

func (p Priority) String() string {
	switch p {
	case PriorityStream:
		return "stream"
	case PriorityLow:
		return "low"
	case PriorityRegular:
		return "regular"
	case PriorityHigh:
		return "high"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// ParsePriority converts a tier name ("stream", "low", "regular", "high") into a Priority.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stream", "":
		return PriorityStream, nil
	case "low":
		return PriorityLow, nil
	case "regular", "normal":
		return PriorityRegular, nil
	case "high":
		return PriorityHigh, nil
	default:
		return PriorityStream, fmt.Errorf("unknown priority %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler so priorities read well in config files.
func (p Priority) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid priority %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Priority) UnmarshalText(text []byte) error {
	v, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
