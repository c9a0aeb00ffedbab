package session

import (
	"fmt"
	"os"

	"github.com/marmos91/tracebroker/internal/wire"
)

// writeSummaries writes times.csv and tree.txt at Terminate, per spec.md
// §4.7 item 10.
func (s *Session) writeSummaries() error {
	if err := s.writeTimes(); err != nil {
		return err
	}
	return s.writeTree()
}

func (s *Session) writeTimes() error {
	f, err := os.OpenFile(s.paths.SummaryFile("times.csv"), os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("session: open times.csv: %w", err)
	}
	defer f.Close()

	for id, sp := range s.state.Spans() {
		agg := sp.Aggregates
		minS, minMs, minUs := wire.Decompose(agg.Min.Std())
		maxS, maxMs, maxUs := wire.Decompose(agg.Max.Std())
		avgS, avgMs, avgUs := wire.Decompose(agg.Average().Std())

		_, err := fmt.Fprintf(f, "%d,%d,%d,%d,%d,%d,%d,%d,%d,%d\n",
			id,
			minS, minMs, minUs,
			maxS, maxMs, maxUs,
			avgS, avgMs, avgUs,
		)
		if err != nil {
			return fmt.Errorf("session: write times.csv row: %w", err)
		}
	}
	return nil
}

func (s *Session) writeTree() error {
	f, err := os.OpenFile(s.paths.SummaryFile("tree.txt"), os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("session: open tree.txt: %w", err)
	}
	defer f.Close()

	if err := s.tree.Write(f); err != nil {
		return fmt.Errorf("session: write tree.txt: %w", err)
	}
	return nil
}
