package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/dwellir/polkadot-node-manager/common"
)

func TestNewUsesPackageNamespace(t *testing.T) {
	m := New(common.PackageName)

	m.MigrationRuns.WithLabelValues("data", "success").Inc()
	m.RPCCalls.WithLabelValues("get-session-key", "success").Inc()
	m.OperationDuration.WithLabelValues("get-session-key").Observe(0.1)

	assert.Equal(t, 1, testutil.CollectAndCount(m.MigrationRuns,
		"polkadot_node_manager_migration_runs_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RPCCalls,
		"polkadot_node_manager_rpc_calls_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(m.OperationDuration,
		"polkadot_node_manager_operation_duration_seconds"))
}
