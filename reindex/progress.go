package reindex

import "time"

// Progress receives periodic reindexing progress: how many chunks are done
// out of the total. It is called from the reindexing goroutine.
type Progress func(done, total int)

// tracker invokes a Progress callback every reportInterval records, plus
// once at completion.
type tracker struct {
	callback       Progress
	total          int
	current        int
	reportInterval int
	lastReported   int
	startTime      time.Time
}

func newTracker(callback Progress, total, reportInterval int) *tracker {
	if reportInterval <= 0 {
		reportInterval = 1
	}
	return &tracker{
		callback:       callback,
		total:          total,
		reportInterval: reportInterval,
		startTime:      time.Now(),
	}
}

// advance increases the current progress by delta, reporting when a report
// interval is crossed.
func (t *tracker) advance(delta int) {
	t.current += delta
	if t.current > t.total {
		t.current = t.total
	}

	if t.callback != nil && t.current-t.lastReported >= t.reportInterval {
		t.callback(t.current, t.total)
		t.lastReported = t.current
	}
}

// finish reports final progress.
func (t *tracker) finish() {
	t.current = t.total
	if t.callback != nil {
		t.callback(t.current, t.total)
	}
}

// elapsed returns the time since the tracker was created.
func (t *tracker) elapsed() time.Duration {
	return time.Since(t.startTime)
}
