// Package migration moves a node's chain data and network identity key
// between deployment backends. One parameterized planner serves forward,
// reverse and dry runs, so the printed plan is by construction the plan
// that gets applied, and a forward migration followed by the reverse
// restores the original layout.
package migration

import (
	"github.com/dwellir/polkadot-node-manager/interfaces"
)

// Plan describes one backend-to-backend migration. It is pure data computed
// before any mutation; dry runs print it and stop.
type Plan struct {
	Source      interfaces.Backend `json:"source"`
	Destination interfaces.Backend `json:"destination"`

	DataSource      string `json:"dataSource"`
	DataDestination string `json:"dataDestination"`

	KeySource      string `json:"keySource"`
	KeyDestination string `json:"keyDestination"`

	// Owner the destination files must end up with.
	Owner string `json:"owner"`

	Reverse bool `json:"reverse"`
	DryRun  bool `json:"dryRun"`
}

// ComputePlan builds the migration plan between the binary and snap
// backends. Reverse swaps source and destination; everything else is
// derived, which keeps the two directions symmetric.
func ComputePlan(layout interfaces.Layout, reverse, dryRun bool) Plan {
	src, dst := interfaces.BackendBinary, interfaces.BackendSnap
	if reverse {
		src, dst = dst, src
	}
	return Plan{
		Source:          src,
		Destination:     dst,
		DataSource:      layout.DataDirFor(src),
		DataDestination: layout.DataDirFor(dst),
		KeySource:       layout.NodeKeyFileFor(src),
		KeyDestination:  layout.NodeKeyFileFor(dst),
		Owner:           layout.OwnerFor(dst),
		Reverse:         reverse,
		DryRun:          dryRun,
	}
}
