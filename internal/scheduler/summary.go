package scheduler

import "newswire/internal/domain/entity"

// SourceSummary is the per-source outcome tally for one run.
type SourceSummary struct {
	Inserted         int
	SkippedNoDate    int
	SkippedDuplicate int
	ErrorsByKind     map[entity.ScrapeErrorKind]int
}

func newSourceSummary() *SourceSummary {
	return &SourceSummary{ErrorsByKind: map[entity.ScrapeErrorKind]int{}}
}

// Errors returns the total failure count across kinds.
func (ss *SourceSummary) Errors() int {
	total := 0
	for _, n := range ss.ErrorsByKind {
		total += n
	}
	return total
}

// Processed returns everything this source went through, success or not.
func (ss *SourceSummary) Processed() int {
	return ss.Inserted + ss.SkippedNoDate + ss.SkippedDuplicate + ss.Errors()
}

// Summary aggregates one run across sources.
type Summary struct {
	Sources map[string]*SourceSummary
}

// Inserted returns the run-wide insert count.
func (s *Summary) Inserted() int {
	total := 0
	for _, ss := range s.Sources {
		total += ss.Inserted
	}
	return total
}

// Errors returns the run-wide failure count.
func (s *Summary) Errors() int {
	total := 0
	for _, ss := range s.Sources {
		total += ss.Errors()
	}
	return total
}

// Skipped returns the run-wide skip count, both no-date and duplicate.
func (s *Summary) Skipped() int {
	total := 0
	for _, ss := range s.Sources {
		total += ss.SkippedNoDate + ss.SkippedDuplicate
	}
	return total
}

// record folds one outcome into the source counters. Caller holds the
// scheduler mutex.
func (st *sourceState) record(o Outcome) {
	switch {
	case o.ErrorKind != "":
		st.errors++
		st.summary.ErrorsByKind[o.ErrorKind]++
	case o.Inserted:
		st.summary.Inserted++
	case o.NoDate:
		st.summary.SkippedNoDate++
	case o.Duplicate:
		st.summary.SkippedDuplicate++
	}
}

// snapshotSummary copies the per-source tallies into a Summary.
func (s *Scheduler) snapshotSummary() *Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := &Summary{Sources: map[string]*SourceSummary{}}
	for slug, state := range s.sources {
		copied := &SourceSummary{
			Inserted:         state.summary.Inserted,
			SkippedNoDate:    state.summary.SkippedNoDate,
			SkippedDuplicate: state.summary.SkippedDuplicate,
			ErrorsByKind:     map[entity.ScrapeErrorKind]int{},
		}
		for kind, n := range state.summary.ErrorsByKind {
			copied.ErrorsByKind[kind] = n
		}
		out.Sources[slug] = copied
	}
	return out
}
