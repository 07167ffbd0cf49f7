package replay

import "time"

// Stats are cumulative engine counters for health reporting.
type Stats struct {
	Draining       bool
	Drains         uint64
	ProcessedCount uint64
	FailedCount    uint64
	SkippedCount   uint64
	LastTrigger    Trigger
	LastError      string
	LastErrorAt    *time.Time
	LastDrainAt    *time.Time
}

// GetStats returns current engine statistics.
func (e *Engine) GetStats() Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	s := e.stats
	s.Draining = e.Draining()
	return s
}

func (e *Engine) recordDrain(res Result) {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	now := time.Now()
	e.stats.Drains++
	e.stats.ProcessedCount += uint64(res.Processed)
	e.stats.FailedCount += uint64(res.Failed)
	e.stats.SkippedCount += uint64(res.Skipped)
	e.stats.LastTrigger = res.Trigger
	e.stats.LastDrainAt = &now
	for _, r := range res.Records {
		if r.Err != nil {
			e.stats.LastError = r.Err.Error()
			e.stats.LastErrorAt = &now
		}
	}
}

func (e *Engine) recordError(err error) {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	now := time.Now()
	e.stats.LastError = err.Error()
	e.stats.LastErrorAt = &now
}
