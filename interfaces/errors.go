package interfaces

import "errors"

// Error taxonomy for the lifecycle manager. Every failure surfaced by the
// core wraps exactly one of these sentinels so callers can distinguish the
// kinds with errors.Is without parsing message strings. None of them trigger
// automatic retries inside this module; retry policy belongs to the
// orchestration layer.
var (
	// ErrConfiguration marks ambiguous or missing configuration. Fatal until
	// the operator reconfigures.
	ErrConfiguration = errors.New("configuration error")

	// ErrArtifact marks a download failure, checksum mismatch or unsupported
	// artifact format. The provisioning run is abandoned with no partial
	// install; safe to retry after the source is fixed.
	ErrArtifact = errors.New("artifact error")

	// ErrInstallation marks a failed plan execution. The atomic-replace
	// discipline guarantees the previous installation is still in place.
	ErrInstallation = errors.New("installation error")

	// ErrMigrationPrecondition marks a migration refused before any mutation:
	// service still running, source absent, or destination not empty.
	ErrMigrationPrecondition = errors.New("migration precondition error")

	// ErrMigrationIO marks a copy failure mid-migration. The source is
	// guaranteed intact and the migration is retryable.
	ErrMigrationIO = errors.New("migration io error")

	// ErrRPC marks an unreachable node or a malformed RPC response.
	ErrRPC = errors.New("rpc error")

	// ErrExtrinsic marks a chain-level rejection of a signed transaction,
	// carrying the chain's own reason string.
	ErrExtrinsic = errors.New("extrinsic error")
)
