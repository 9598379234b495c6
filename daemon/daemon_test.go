package daemon

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/bsv-blockchain/minichain/chaincfg"
	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/services/miner/cpuminer"
	"github.com/bsv-blockchain/minichain/settings"
	"github.com/bsv-blockchain/minichain/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings(t *testing.T, storeURL string) *settings.Settings {
	t.Helper()

	u, err := url.Parse(storeURL)
	require.NoError(t, err)

	return &settings.Settings{
		ClientName:               "daemon-test",
		DataFolder:               t.TempDir(),
		ChainCfgParams:           &chaincfg.RegressionNetParams,
		PrometheusEndpoint:       "/metrics",
		HealthCheckListenAddress: "127.0.0.1:0",
		BlockChain: settings.BlockChainSettings{
			StoreURL:    u,
			SnapshotKey: "blockchain",
		},
		Miner: settings.MinerSettings{
			MaxIterations:    1000,
			ProgressInterval: 1000,
			MaxTxPerBlock:    10,
		},
		P2P: settings.P2PSettings{
			IP:               "127.0.0.1",
			BlockTopic:       "blocks",
			TransactionTopic: "transactions",
			MaxConnections:   10,
			DialBackoff:      time.Minute,
		},
		Sync: settings.SyncSettings{
			EventChannelSize: 10,
			SettleDelay:      10 * time.Millisecond,
		},
	}
}

func newTestDaemon() *Daemon {
	return New(WithLoggerFactory(func(string) ulogger.Logger {
		return &ulogger.TestLogger{}
	}))
}

func get(t *testing.T, addr, path string) (int, string) {
	t.Helper()

	resp, err := http.Get("http://" + addr + path) //nolint:noctx // test helper
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestNew(t *testing.T) {
	d := New()
	require.NotNil(t, d)
	require.NotNil(t, d.doneCh)
	require.NotNil(t, d.stopCh)
	require.NotNil(t, d.ServiceManager)
	assert.Nil(t, d.Chain())
}

func TestNew_WithOptions(t *testing.T) {
	t.Run("WithLoggerFactory", func(t *testing.T) {
		var loggerFactoryUsed bool

		d := New(WithLoggerFactory(func(serviceName string) ulogger.Logger {
			loggerFactoryUsed = true
			return &ulogger.TestLogger{}
		}))
		require.NotNil(t, d)

		// the service manager logger comes from the factory
		assert.True(t, loggerFactoryUsed)
	})

	t.Run("WithContext", func(t *testing.T) {
		customCtx, cancel := context.WithCancel(context.Background())

		d := New(WithContext(customCtx))
		assert.Equal(t, customCtx, d.Ctx)

		cancel()

		select {
		case <-d.ServiceManager.Ctx.Done():
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for service manager context to be cancelled")
		}
	})

	t.Run("WithRewardAddress", func(t *testing.T) {
		d := New(WithRewardAddress("alice"))
		assert.Equal(t, "alice", d.rewardAddress)
	})
}

func TestDaemonStartAndStop(t *testing.T) {
	d := newTestDaemon()
	tSettings := testSettings(t, "memory:///")

	readyCh := make(chan struct{})
	startErr := make(chan error, 1)

	go func() {
		startErr <- d.Start(&ulogger.TestLogger{}, tSettings, readyCh)
	}()

	select {
	case <-readyCh:
	case err := <-startErr:
		t.Fatalf("daemon stopped before it was ready: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for the daemon to be ready")
	}

	require.NotNil(t, d.Chain())
	assert.Equal(t, 1, d.Chain().Len())
	assert.Equal(t, 0, d.Pool().Len())
	assert.Equal(t, "IDLE", d.Coordinator().State())
	assert.NotEmpty(t, d.P2P().PeerID())

	addr := d.HTTPAddr()
	require.NotEmpty(t, addr)

	status, _ := get(t, addr, "/health/liveness")
	assert.Equal(t, http.StatusOK, status)

	status, body := get(t, addr, "/health/readiness")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Coordinator")

	block, result, err := d.Miner().MineBlock(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, cpuminer.Found, result.Status)
	require.NotNil(t, block)

	assert.Equal(t, 2, d.Chain().Len())
	assert.Equal(t, tSettings.ChainCfgParams.CoinbaseReward, d.Chain().Balance("alice"))

	status, body = get(t, addr, "/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "minichain_miner_blocks_mined")

	require.NoError(t, d.Stop(10*time.Second))
	require.NoError(t, <-startErr)

	select {
	case <-d.Done():
	default:
		t.Fatal("Done should be closed after Stop")
	}
}

func TestDaemonStartFailsOnUnknownStore(t *testing.T) {
	d := newTestDaemon()

	err := d.Start(&ulogger.TestLogger{}, testSettings(t, "redis://localhost"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))

	select {
	case <-d.Done():
	case <-time.After(time.Second):
		t.Fatal("Done should be closed when Start fails")
	}

	assert.Nil(t, d.Chain())
}

func TestDaemonStartFailsOnMissingRewardAddress(t *testing.T) {
	d := newTestDaemon()

	tSettings := testSettings(t, "memory:///")
	tSettings.Miner.AutoMineInterval = time.Second

	err := d.Start(&ulogger.TestLogger{}, tSettings)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrServiceError))
}

func TestDaemonKeepsChainAcrossRestarts(t *testing.T) {
	tSettings := testSettings(t, "sqlite:///blockchain")

	run := func(mine bool) int {
		d := newTestDaemon()

		readyCh := make(chan struct{})
		startErr := make(chan error, 1)

		go func() {
			startErr <- d.Start(&ulogger.TestLogger{}, tSettings, readyCh)
		}()

		select {
		case <-readyCh:
		case err := <-startErr:
			t.Fatalf("daemon stopped before it was ready: %v", err)
		case <-time.After(10 * time.Second):
			t.Fatal("timeout waiting for the daemon to be ready")
		}

		if mine {
			_, _, err := d.Miner().MineBlock(context.Background(), "bob")
			require.NoError(t, err)
		}

		length := d.Chain().Len()

		require.NoError(t, d.Stop(10*time.Second))
		require.NoError(t, <-startErr)

		return length
	}

	assert.Equal(t, 2, run(true))
	assert.Equal(t, 2, run(false))
}
