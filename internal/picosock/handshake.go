package picosock

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// VersionGate builds an AcceptHook that ties acceptance on a given port to
// whether this build's version satisfies that port's semver constraint,
// the way a fleet rolls a new listener out to only the builds that declare
// support for it. buildVersion must parse as a semver version; a port with
// no configured constraint is always accepted.
//
// The gate is decided entirely from the build's own version, not anything
// read off the connection: the preallocated socket the broker hands it is
// accepted purely for parity with the rest of the AcceptHook contract
// (spec.md §4.6's `(file, local_port)` signature) and is otherwise unused
// here. A hook that gated on the peer's own first line would need to read
// from that socket before deciding, which would mean blocking the single
// worker goroutine on data only that same goroutine can deliver: deadlock.
func VersionGate(buildVersion string, constraints map[uint16]string) (AcceptHook, error) {
	v, err := semver.NewVersion(buildVersion)
	if err != nil {
		return nil, err
	}
	compiled := make(map[uint16]*semver.Constraints, len(constraints))
	for port, expr := range constraints {
		c, err := semver.NewConstraint(expr)
		if err != nil {
			return nil, err
		}
		compiled[port] = c
	}
	return func(_ *Socket, port uint16) error {
		c, ok := compiled[port]
		if !ok {
			return nil
		}
		if !c.Check(v) {
			return fmt.Errorf("version gate: build %s does not satisfy %q on port %d", v, constraints[port], port)
		}
		return nil
	}, nil
}
