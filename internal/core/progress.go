package core

import "sync"

// progressTracker owns a run's ProgressInfo. Mutations happen under the lock;
// the sink receives a copy after each one.
type progressTracker struct {
	mu   sync.Mutex
	info ProgressInfo
	sink ProgressSink
}

func newProgressTracker(runID string, sink ProgressSink) *progressTracker {
	return &progressTracker{
		info: ProgressInfo{RunID: runID, Errors: []string{}},
		sink: sink,
	}
}

// update applies fn and reports the result.
func (t *progressTracker) update(fn func(*ProgressInfo)) {
	t.mu.Lock()
	fn(&t.info)
	snap := t.copyLocked()
	t.mu.Unlock()

	if t.sink != nil {
		t.sink(snap)
	}
}

func (t *progressTracker) phase(p ImportPhase, description string) {
	t.update(func(info *ProgressInfo) {
		info.Phase = p
		info.Description = description
	})
}

func (t *progressTracker) addErrors(errs ...string) {
	if len(errs) == 0 {
		return
	}
	t.update(func(info *ProgressInfo) {
		info.Errors = append(info.Errors, errs...)
	})
}

func (t *progressTracker) snapshot() ProgressInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.copyLocked()
}

func (t *progressTracker) copyLocked() ProgressInfo {
	snap := t.info
	snap.Errors = append([]string(nil), t.info.Errors...)
	return snap
}
