package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	SampleMood Phase = iota
	SampleDone
)

func (p Phase) String() string {
	switch p {
	case SampleMood:
		return "sample_mood"
	case SampleDone:
		return "sample_done"
	default:
		return "unknown"
	}
}

func sampledUpdate(step, total int, mood string, err error) ProgressUpdate {
	msg := fmt.Sprintf("Sampled %s", mood)
	if err != nil {
		msg = fmt.Sprintf("Failed to sample %s: %v", mood, err)
	}
	return ProgressUpdate{Phase: SampleMood, Step: step, Total: total, Message: msg}
}

func sampleDoneUpdate(total, failed int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SampleDone,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("Sampled %d moods (%d failed)", total, failed),
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
