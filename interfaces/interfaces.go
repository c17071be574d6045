package interfaces

import "context"

// Health is the node's own view of its sync state, from the system health
// RPC call.
type Health struct {
	Peers           int  `json:"peers"`
	IsSyncing       bool `json:"isSyncing"`
	ShouldHavePeers bool `json:"shouldHavePeers"`
}

// PeerInfo describes one connected peer as reported by the node. Listing
// peers requires the node to run with unsafe RPC methods enabled.
type PeerInfo struct {
	PeerID   string `json:"peerId"`
	Roles    string `json:"roles"`
	BestHash string `json:"bestHash"`
}

// ValidatorKeys is one entry of the chain's queued key-assignment list: the
// session keys that will act for a validator address starting at the next
// era boundary.
type ValidatorKeys struct {
	Validator Address
	Keys      SessionKey
}

// NodeRPC is the narrow capability interface over the locally running node's
// JSON-RPC endpoint. Method names and parameter encodings are an external
// protocol contract owned by the implementation; key-management logic only
// ever sees this interface.
//
// All calls fail immediately when the node is unreachable; no retries are
// performed at this layer.
type NodeRPC interface {
	// RotateKeys asks the node to generate a fresh set of session keys in
	// its local keystore and returns their concatenated public identifier.
	RotateKeys(ctx context.Context) (SessionKey, error)

	// HasSessionKeys reports whether the given keys are all present in the
	// node's local keystore. An absent key is a negative result, not an
	// error.
	HasSessionKeys(ctx context.Context, key SessionKey) (bool, error)

	// InsertKey inserts a keypair derived from the mnemonic into the node's
	// keystore under the given key type.
	InsertKey(ctx context.Context, keyType, mnemonic string, address Address) error

	// QueuedKeys returns the chain's queued session-key assignments taking
	// effect at the next era boundary.
	QueuedKeys(ctx context.Context) ([]ValidatorKeys, error)

	// SubmitSetKeys signs and submits the extrinsic binding the session key
	// to the address. Submission success does not imply the binding took
	// effect; that is delayed until the era boundary.
	SubmitSetKeys(ctx context.Context, address Address, key SessionKey) error

	// Health returns the node's sync and peer state.
	Health(ctx context.Context) (Health, error)

	// NodeRoles returns the roles the node runs with, e.g. "Authority".
	NodeRoles(ctx context.Context) ([]string, error)

	// SystemVersion returns the client version string.
	SystemVersion(ctx context.Context) (string, error)

	// BlockHeight returns the node's current best block number.
	BlockHeight(ctx context.Context) (uint64, error)

	// Peers lists currently connected peers.
	Peers(ctx context.Context) ([]PeerInfo, error)
}

// ExtrinsicSigner turns a set-keys intent into a signed, SCALE-encoded
// extrinsic ready for submission. Encoding is chain specific and therefore
// an injected collaborator rather than part of this module.
type ExtrinsicSigner interface {
	// SignSetKeys returns the hex-encoded signed extrinsic binding key to
	// address, signed with the configured signing secret.
	SignSetKeys(address Address, key SessionKey) (string, error)

	// SignerAddress is the address derived from the configured signing
	// secret, used as the default target for start-validating.
	SignerAddress() (Address, error)
}

// ServiceSupervisor exposes the one fact this module needs from the external
// process supervisor: whether the node service is currently active. Starting
// and stopping the service remains the orchestrator's job.
type ServiceSupervisor interface {
	Running(ctx context.Context) (bool, error)
}

// ArtifactSource downloads a single remote object. Implementations exist per
// URL scheme; resolution from URL to source is handled by the fetcher
// factory.
type ArtifactSource interface {
	// Fetch retrieves the object and returns its contents.
	Fetch(ctx context.Context) ([]byte, error)

	// Filename is the base name the object should be stored under.
	Filename() string
}
