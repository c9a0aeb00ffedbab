// Package paths resolves the on-disk layout rooted at a data directory,
// partitioned per connected client index (spec.md §4.2, §6).
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// Role identifies one of the three per-span subdirectories a client's tree
// is split into.
type Role int

const (
	RoleRuns Role = iota
	RoleEvents
	RoleMetadata
)

func (r Role) dirName() string {
	switch r {
	case RoleRuns:
		return "runs"
	case RoleEvents:
		return "events"
	case RoleMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

// Paths resolves the subdirectories for one client index under a shared
// data root. Construction is idempotent: creating the tree for client 0
// does not disturb a pre-existing tree for client 1, and re-creating the
// same client's tree is a no-op.
type Paths struct {
	root      string
	clientDir string
}

// New creates (if absent) dataDir/<clientIdx>/{runs,events,metadata} and
// returns a Paths resolving into it.
func New(dataDir string, clientIdx int) (*Paths, error) {
	clientDir := filepath.Join(dataDir, fmt.Sprintf("%d", clientIdx))

	for _, role := range []Role{RoleRuns, RoleEvents, RoleMetadata} {
		dir := filepath.Join(clientDir, role.dirName())
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("paths: create %s: %w", dir, err)
		}
	}

	return &Paths{root: dataDir, clientDir: clientDir}, nil
}

// Get returns the directory for the given role.
func (p *Paths) Get(role Role) string {
	return filepath.Join(p.clientDir, role.dirName())
}

// ClientDir returns this client's root directory (dataDir/<clientIdx>).
func (p *Paths) ClientDir() string {
	return p.clientDir
}

// SpanFile returns the CSV path for a span id under the given role, e.g.
// runs/7.csv.
func (p *Paths) SpanFile(role Role, spanID uint32) string {
	return filepath.Join(p.Get(role), fmt.Sprintf("%d.csv", spanID))
}

// SummaryFile returns the path for one of the session-level summary files
// written at Terminate (times.csv, tree.txt) or on Project (info.csv).
func (p *Paths) SummaryFile(name string) string {
	return filepath.Join(p.clientDir, name)
}
