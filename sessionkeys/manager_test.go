package sessionkeys

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dwellir/polkadot-node-manager/interfaces"
)

// Well-known substrate development addresses.
const (
	aliceAddr = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	bobAddr   = "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockNodeRPC implements interfaces.NodeRPC for testing.
type MockNodeRPC struct {
	mock.Mock
}

func (m *MockNodeRPC) RotateKeys(ctx context.Context) (interfaces.SessionKey, error) {
	args := m.Called(ctx)
	return args.Get(0).(interfaces.SessionKey), args.Error(1)
}

func (m *MockNodeRPC) HasSessionKeys(ctx context.Context, key interfaces.SessionKey) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockNodeRPC) InsertKey(ctx context.Context, keyType, mnemonic string, address interfaces.Address) error {
	args := m.Called(ctx, keyType, mnemonic, address)
	return args.Error(0)
}

func (m *MockNodeRPC) QueuedKeys(ctx context.Context) ([]interfaces.ValidatorKeys, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.ValidatorKeys), args.Error(1)
}

func (m *MockNodeRPC) SubmitSetKeys(ctx context.Context, address interfaces.Address, key interfaces.SessionKey) error {
	args := m.Called(ctx, address, key)
	return args.Error(0)
}

func (m *MockNodeRPC) Health(ctx context.Context) (interfaces.Health, error) {
	args := m.Called(ctx)
	return args.Get(0).(interfaces.Health), args.Error(1)
}

func (m *MockNodeRPC) NodeRoles(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockNodeRPC) SystemVersion(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockNodeRPC) BlockHeight(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockNodeRPC) Peers(ctx context.Context) ([]interfaces.PeerInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).([]interfaces.PeerInfo), args.Error(1)
}

// MockSigner implements interfaces.ExtrinsicSigner for testing.
type MockSigner struct {
	mock.Mock
}

func (m *MockSigner) SignSetKeys(address interfaces.Address, key interfaces.SessionKey) (string, error) {
	args := m.Called(address, key)
	return args.String(0), args.Error(1)
}

func (m *MockSigner) SignerAddress() (interfaces.Address, error) {
	args := m.Called()
	return args.Get(0).(interfaces.Address), args.Error(1)
}

func TestRotate(t *testing.T) {
	rpc := new(MockNodeRPC)
	rpc.On("RotateKeys", mock.Anything).Return(interfaces.SessionKey("0xdeadbeef"), nil)

	mgr := NewManager(rpc, nil, testLogger())
	key, err := mgr.Rotate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", key.String())
	rpc.AssertExpectations(t)
}

func TestHas(t *testing.T) {
	t.Run("key present", func(t *testing.T) {
		rpc := new(MockNodeRPC)
		rpc.On("HasSessionKeys", mock.Anything, interfaces.SessionKey("0xdeadbeef")).Return(true, nil)

		mgr := NewManager(rpc, nil, testLogger())
		has, err := mgr.Has(context.Background(), "0xdeadbeef")
		require.NoError(t, err)
		assert.True(t, has)
	})

	t.Run("key absent is a negative result, not an error", func(t *testing.T) {
		rpc := new(MockNodeRPC)
		rpc.On("HasSessionKeys", mock.Anything, interfaces.SessionKey("0xdeadbeef")).Return(false, nil)

		mgr := NewManager(rpc, nil, testLogger())
		has, err := mgr.Has(context.Background(), "0xdeadbeef")
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("malformed key fails before any RPC", func(t *testing.T) {
		rpc := new(MockNodeRPC)
		mgr := NewManager(rpc, nil, testLogger())

		_, err := mgr.Has(context.Background(), "not-hex")
		assert.ErrorIs(t, err, interfaces.ErrConfiguration)
		rpc.AssertNotCalled(t, "HasSessionKeys", mock.Anything, mock.Anything)
	})
}

func TestInsert(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		rpc := new(MockNodeRPC)
		rpc.On("InsertKey", mock.Anything, "aura", "bottom drive obey lake curtain smoke basket hold race lonely fit walk", interfaces.Address(aliceAddr)).Return(nil)

		mgr := NewManager(rpc, nil, testLogger())
		err := mgr.Insert(context.Background(), "bottom drive obey lake curtain smoke basket hold race lonely fit walk", aliceAddr)
		assert.NoError(t, err)
		rpc.AssertExpectations(t)
	})

	t.Run("empty mnemonic", func(t *testing.T) {
		mgr := NewManager(new(MockNodeRPC), nil, testLogger())
		err := mgr.Insert(context.Background(), "", aliceAddr)
		assert.ErrorIs(t, err, interfaces.ErrConfiguration)
	})

	t.Run("invalid address", func(t *testing.T) {
		mgr := NewManager(new(MockNodeRPC), nil, testLogger())
		err := mgr.Insert(context.Background(), "some mnemonic", "not-an-address")
		assert.ErrorIs(t, err, interfaces.ErrConfiguration)
	})
}

func TestFindValidatorAddress(t *testing.T) {
	queued := []interfaces.ValidatorKeys{
		{Validator: interfaces.Address(aliceAddr), Keys: interfaces.SessionKey("0xaaaa")},
		{Validator: interfaces.Address(bobAddr), Keys: interfaces.SessionKey("0xbbbb")},
	}

	t.Run("second entry matches", func(t *testing.T) {
		rpc := new(MockNodeRPC)
		rpc.On("QueuedKeys", mock.Anything).Return(queued, nil)
		rpc.On("HasSessionKeys", mock.Anything, interfaces.SessionKey("0xaaaa")).Return(false, nil)
		rpc.On("HasSessionKeys", mock.Anything, interfaces.SessionKey("0xbbbb")).Return(true, nil)

		mgr := NewManager(rpc, nil, testLogger())
		addr, found, err := mgr.FindValidatorAddress(context.Background())
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, bobAddr, addr.String())
	})

	t.Run("no match", func(t *testing.T) {
		rpc := new(MockNodeRPC)
		rpc.On("QueuedKeys", mock.Anything).Return(queued, nil)
		rpc.On("HasSessionKeys", mock.Anything, mock.Anything).Return(false, nil)

		mgr := NewManager(rpc, nil, testLogger())
		_, found, err := mgr.FindValidatorAddress(context.Background())
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("rpc failure propagates", func(t *testing.T) {
		rpc := new(MockNodeRPC)
		rpc.On("QueuedKeys", mock.Anything).Return(nil, errors.New("connection refused"))

		mgr := NewManager(rpc, nil, testLogger())
		_, _, err := mgr.FindValidatorAddress(context.Background())
		assert.Error(t, err)
	})
}

func TestIsValidatingNextEra(t *testing.T) {
	queued := []interfaces.ValidatorKeys{
		{Validator: interfaces.Address(aliceAddr), Keys: interfaces.SessionKey("0xaaaa")},
	}

	t.Run("assigned and key held", func(t *testing.T) {
		rpc := new(MockNodeRPC)
		rpc.On("QueuedKeys", mock.Anything).Return(queued, nil)
		rpc.On("HasSessionKeys", mock.Anything, interfaces.SessionKey("0xaaaa")).Return(true, nil)

		mgr := NewManager(rpc, nil, testLogger())
		validating, err := mgr.IsValidatingNextEra(context.Background(), aliceAddr)
		require.NoError(t, err)
		assert.True(t, validating)
	})

	t.Run("address not queued", func(t *testing.T) {
		rpc := new(MockNodeRPC)
		rpc.On("QueuedKeys", mock.Anything).Return(queued, nil)

		mgr := NewManager(rpc, nil, testLogger())
		validating, err := mgr.IsValidatingNextEra(context.Background(), bobAddr)
		require.NoError(t, err)
		assert.False(t, validating)
	})

	t.Run("invalid address", func(t *testing.T) {
		mgr := NewManager(new(MockNodeRPC), nil, testLogger())
		_, err := mgr.IsValidatingNextEra(context.Background(), "garbage")
		assert.ErrorIs(t, err, interfaces.ErrConfiguration)
	})
}

func TestStartValidating(t *testing.T) {
	t.Run("explicit address", func(t *testing.T) {
		rpc := new(MockNodeRPC)
		rpc.On("RotateKeys", mock.Anything).Return(interfaces.SessionKey("0xabcdef12"), nil)
		rpc.On("SubmitSetKeys", mock.Anything, interfaces.Address(aliceAddr), interfaces.SessionKey("0xabcdef12")).Return(nil)

		mgr := NewManager(rpc, nil, testLogger())
		result, err := mgr.StartValidating(context.Background(), aliceAddr)
		require.NoError(t, err)
		assert.Equal(t, aliceAddr, result.Address.String())
		assert.Equal(t, "0xabcdef12", result.Key.String())
		rpc.AssertExpectations(t)
	})

	t.Run("default address from signer", func(t *testing.T) {
		rpc := new(MockNodeRPC)
		rpc.On("RotateKeys", mock.Anything).Return(interfaces.SessionKey("0xabcdef12"), nil)
		rpc.On("SubmitSetKeys", mock.Anything, interfaces.Address(bobAddr), interfaces.SessionKey("0xabcdef12")).Return(nil)

		signer := new(MockSigner)
		signer.On("SignerAddress").Return(interfaces.Address(bobAddr), nil)

		mgr := NewManager(rpc, signer, testLogger())
		result, err := mgr.StartValidating(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, bobAddr, result.Address.String())
	})

	t.Run("no signer and no address", func(t *testing.T) {
		mgr := NewManager(new(MockNodeRPC), nil, testLogger())
		_, err := mgr.StartValidating(context.Background(), "")
		assert.ErrorIs(t, err, interfaces.ErrConfiguration)
	})

	t.Run("submission failure propagates", func(t *testing.T) {
		rpc := new(MockNodeRPC)
		rpc.On("RotateKeys", mock.Anything).Return(interfaces.SessionKey("0xabcdef12"), nil)
		rpc.On("SubmitSetKeys", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("Invalid Transaction"))

		mgr := NewManager(rpc, nil, testLogger())
		_, err := mgr.StartValidating(context.Background(), aliceAddr)
		assert.Error(t, err)
	})
}
