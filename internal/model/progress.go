package model

// Status is the coarse export stage of one format.
type Status int

const (
	StatusPending Status = iota
	StatusRecording
	StatusRendering
	StatusPackaging
	StatusDone
	StatusFailed
)

// Percentages marking the start of each stage.
const (
	PercentRecording = 10
	PercentRendering = 30
	PercentPackaging = 90
	PercentDone      = 100
)

// String returns the lowercase stage name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRecording:
		return "recording"
	case StatusRendering:
		return "rendering"
	case StatusPackaging:
		return "packaging"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StatusFor derives the stage from a percentage.
func StatusFor(percent int) Status {
	switch {
	case percent >= PercentDone:
		return StatusDone
	case percent >= PercentPackaging:
		return StatusPackaging
	case percent >= PercentRendering:
		return StatusRendering
	case percent >= PercentRecording:
		return StatusRecording
	default:
		return StatusPending
	}
}

// FormatProgress is one entry of a ProgressState snapshot.
type FormatProgress struct {
	Key     string
	Percent int
	Status  Status
}

// ProgressState maps format keys to a percentage.
//
// The key set is fixed at construction: Set ignores keys that were not
// selected, so the state always holds exactly the job's formats. A
// ProgressState belongs to a single job and is not safe for concurrent use.
type ProgressState struct {
	order   []string
	percent map[string]int
}

// NewProgressState returns a state with every key at 0%. Duplicate keys are
// stored once.
func NewProgressState(keys []string) *ProgressState {
	ps := &ProgressState{percent: make(map[string]int, len(keys))}
	for _, k := range keys {
		if _, ok := ps.percent[k]; ok {
			continue
		}
		ps.order = append(ps.order, k)
		ps.percent[k] = 0
	}
	return ps
}

// Set updates the percentage for key, clamped to 0..100. It reports whether
// the key belongs to the state.
func (ps *ProgressState) Set(key string, percent int) bool {
	if _, ok := ps.percent[key]; !ok {
		return false
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	ps.percent[key] = percent
	return true
}

// SetAll updates every key to percent.
func (ps *ProgressState) SetAll(percent int) {
	for _, k := range ps.order {
		ps.Set(k, percent)
	}
}

// Get returns the percentage for key.
func (ps *ProgressState) Get(key string) (int, bool) {
	p, ok := ps.percent[key]
	return p, ok
}

// Len returns the number of tracked formats.
func (ps *ProgressState) Len() int {
	return len(ps.order)
}

// Snapshot returns the entries in selection order.
func (ps *ProgressState) Snapshot() []FormatProgress {
	out := make([]FormatProgress, len(ps.order))
	for i, k := range ps.order {
		p := ps.percent[k]
		out[i] = FormatProgress{Key: k, Percent: p, Status: StatusFor(p)}
	}
	return out
}
