// Package noderpc implements the node RPC capability interface over the
// node's local JSON-RPC endpoint. Substrate-style nodes speak plain
// JSON-RPC 2.0, so the protocol-agnostic go-ethereum rpc client is used as
// the transport. The method names collected here are the external protocol
// contract; nothing outside this package knows them.
package noderpc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/dwellir/polkadot-node-manager/interfaces"
)

const (
	methodRotateKeys      = "author_rotateKeys"
	methodHasSessionKeys  = "author_hasSessionKeys"
	methodInsertKey       = "author_insertKey"
	methodSubmitExtrinsic = "author_submitExtrinsic"
	methodQueuedKeys      = "session_queuedKeys"
	methodHealth          = "system_health"
	methodNodeRoles       = "system_nodeRoles"
	methodVersion         = "system_version"
	methodGetHeader       = "chain_getHeader"
	methodPeers           = "system_peers"
)

// Client talks to the locally running node. Calls fail immediately when the
// node is unreachable (not yet started or still syncing its RPC surface);
// no retries happen at this layer.
type Client struct {
	rpc    *gethrpc.Client
	signer interfaces.ExtrinsicSigner
	log    *slog.Logger
}

// Dial connects to the node's RPC endpoint, typically
// http://localhost:<rpc-port>. signer may be nil when extrinsic submission
// is not needed.
func Dial(ctx context.Context, endpoint string, signer interfaces.ExtrinsicSigner, log *slog.Logger) (*Client, error) {
	rpcClient, err := gethrpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: dialing %s: %v", interfaces.ErrRPC, endpoint, err)
	}
	return &Client{rpc: rpcClient, signer: signer, log: log}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.rpc.Close()
}

func (c *Client) RotateKeys(ctx context.Context) (interfaces.SessionKey, error) {
	var result string
	if err := c.rpc.CallContext(ctx, &result, methodRotateKeys); err != nil {
		return "", fmt.Errorf("%w: %s: %v", interfaces.ErrRPC, methodRotateKeys, err)
	}
	key, err := interfaces.NewSessionKey(result)
	if err != nil {
		return "", fmt.Errorf("%w: node returned malformed session key: %v", interfaces.ErrRPC, err)
	}
	return key, nil
}

func (c *Client) HasSessionKeys(ctx context.Context, key interfaces.SessionKey) (bool, error) {
	var result bool
	if err := c.rpc.CallContext(ctx, &result, methodHasSessionKeys, key.String()); err != nil {
		return false, fmt.Errorf("%w: %s: %v", interfaces.ErrRPC, methodHasSessionKeys, err)
	}
	return result, nil
}

func (c *Client) InsertKey(ctx context.Context, keyType, mnemonic string, address interfaces.Address) error {
	var result any
	if err := c.rpc.CallContext(ctx, &result, methodInsertKey, keyType, mnemonic, address.String()); err != nil {
		return fmt.Errorf("%w: %s: %v", interfaces.ErrRPC, methodInsertKey, err)
	}
	return nil
}

// queuedKeysEntry matches the wire form of one queued assignment: a
// two-element tuple of validator address and key bundle.
type queuedKeysEntry struct {
	Validator string
	Keys      string
}

func (e *queuedKeysEntry) UnmarshalJSON(data []byte) error {
	var tuple [2]string
	if err := unmarshalTuple(data, &tuple); err != nil {
		return err
	}
	e.Validator, e.Keys = tuple[0], tuple[1]
	return nil
}

func (c *Client) QueuedKeys(ctx context.Context) ([]interfaces.ValidatorKeys, error) {
	var entries []queuedKeysEntry
	if err := c.rpc.CallContext(ctx, &entries, methodQueuedKeys); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", interfaces.ErrRPC, methodQueuedKeys, err)
	}

	assignments := make([]interfaces.ValidatorKeys, 0, len(entries))
	for _, e := range entries {
		addr, err := interfaces.NewAddress(e.Validator)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed validator address %q in queued keys: %v", interfaces.ErrRPC, e.Validator, err)
		}
		key, err := interfaces.NewSessionKey(e.Keys)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed session keys for %s in queued keys: %v", interfaces.ErrRPC, addr, err)
		}
		assignments = append(assignments, interfaces.ValidatorKeys{Validator: addr, Keys: key})
	}
	return assignments, nil
}

func (c *Client) SubmitSetKeys(ctx context.Context, address interfaces.Address, key interfaces.SessionKey) error {
	if c.signer == nil {
		return fmt.Errorf("%w: no extrinsic signer configured", interfaces.ErrConfiguration)
	}

	signed, err := c.signer.SignSetKeys(address, key)
	if err != nil {
		return fmt.Errorf("%w: signing set-keys extrinsic: %v", interfaces.ErrExtrinsic, err)
	}

	var hash string
	if err := c.rpc.CallContext(ctx, &hash, methodSubmitExtrinsic, signed); err != nil {
		// The chain's own rejection reason is surfaced verbatim.
		return fmt.Errorf("%w: %v", interfaces.ErrExtrinsic, err)
	}

	c.log.Info("Extrinsic submitted",
		slog.String("hash", hash),
		slog.String("address", address.String()))
	return nil
}

func (c *Client) Health(ctx context.Context) (interfaces.Health, error) {
	var health interfaces.Health
	if err := c.rpc.CallContext(ctx, &health, methodHealth); err != nil {
		return interfaces.Health{}, fmt.Errorf("%w: %s: %v", interfaces.ErrRPC, methodHealth, err)
	}
	return health, nil
}

func (c *Client) NodeRoles(ctx context.Context) ([]string, error) {
	var roles []string
	if err := c.rpc.CallContext(ctx, &roles, methodNodeRoles); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", interfaces.ErrRPC, methodNodeRoles, err)
	}
	return roles, nil
}

func (c *Client) SystemVersion(ctx context.Context) (string, error) {
	var version string
	if err := c.rpc.CallContext(ctx, &version, methodVersion); err != nil {
		return "", fmt.Errorf("%w: %s: %v", interfaces.ErrRPC, methodVersion, err)
	}
	return version, nil
}

// header is the subset of the chain header this client reads.
type header struct {
	Number string `json:"number"`
}

func (c *Client) BlockHeight(ctx context.Context) (uint64, error) {
	var h header
	if err := c.rpc.CallContext(ctx, &h, methodGetHeader); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", interfaces.ErrRPC, methodGetHeader, err)
	}
	height, err := hexutil.DecodeUint64(h.Number)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed block number %q: %v", interfaces.ErrRPC, h.Number, err)
	}
	return height, nil
}

func (c *Client) Peers(ctx context.Context) ([]interfaces.PeerInfo, error) {
	var peers []interfaces.PeerInfo
	if err := c.rpc.CallContext(ctx, &peers, methodPeers); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", interfaces.ErrRPC, methodPeers, err)
	}
	return peers, nil
}

var _ interfaces.NodeRPC = (*Client)(nil)
