package metrics

import (
	"errors"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-dhtlink/config"
	"github.com/dep2p/go-dhtlink/pkg/types"
)

// TestMetrics_Status 测试状态指标
func TestMetrics_Status(t *testing.T) {
	m, err := New("test", prom.NewRegistry())
	require.NoError(t, err)

	m.ObserveStatus(types.StatusDisconnected, types.StatusConnecting)
	m.ObserveStatus(types.StatusConnecting, types.StatusConnected)

	assert.Equal(t, float64(types.StatusConnected), testutil.ToFloat64(m.status))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("connecting", "connected")))
}

// TestMetrics_Counters 测试计数器
func TestMetrics_Counters(t *testing.T) {
	m, err := New("test", prom.NewRegistry())
	require.NoError(t, err)

	m.ObserveConnectAttempt()
	m.ObserveConnectAttempt()
	m.ObservePoll(PollOK)
	m.ObservePoll(PollSkipped)
	m.ObservePeerOp("connect", nil)
	m.ObservePeerOp("connect", errors.New("boom"))
	m.SetPeerCount(4)
	m.SetDiscoveredPeers(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.connectAttempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pollTicks.WithLabelValues(PollSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.peerOps.WithLabelValues("connect", "error")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.peerCount))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.discoveredPeers))
}

// TestMetrics_NilSafe nil 指标可以直接调用
func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveStatus(types.StatusDisconnected, types.StatusConnecting)
		m.ObserveConnectAttempt()
		m.ObserveConnectResult("failed")
		m.ObservePoll(PollError)
		m.ObserveNatNotification(types.NotifyWarning)
		m.ObserveBackendEvent(types.EventNatStatusUpdate)
	})
}

// TestMetrics_DuplicateRegistration 重复注册返回错误
func TestMetrics_DuplicateRegistration(t *testing.T) {
	reg := prom.NewRegistry()
	_, err := New("test", reg)
	require.NoError(t, err)

	_, err = New("test", reg)
	assert.Error(t, err)
}

// TestModule_Disabled 禁用指标时提供 nil
func TestModule_Disabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Metrics.Enable = false

	var m *Metrics
	app := fxtest.New(t,
		fx.Supply(cfg),
		Module(),
		fx.Populate(&m),
	)
	app.RequireStart()
	defer app.RequireStop()

	assert.Nil(t, m)
}

// TestModule_Registerer 使用注入的 Registerer
func TestModule_Registerer(t *testing.T) {
	reg := prom.NewRegistry()

	var m *Metrics
	app := fxtest.New(t,
		fx.Provide(func() prom.Registerer { return reg }),
		Module(),
		fx.Populate(&m),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.NotNil(t, m)
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
