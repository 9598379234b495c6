package minichain

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/bsv-blockchain/minichain/chaincfg"
	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/services/blockassembly"
	"github.com/bsv-blockchain/minichain/services/blockchain"
	"github.com/bsv-blockchain/minichain/services/miner"
	"github.com/bsv-blockchain/minichain/services/netsync"
	"github.com/bsv-blockchain/minichain/services/wallet"
	"github.com/bsv-blockchain/minichain/settings"
	"github.com/bsv-blockchain/minichain/stores/blob/memory"
	"github.com/bsv-blockchain/minichain/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPeers struct {
	dialed []string
}

func (p *stubPeers) Connect(_ context.Context, addr string) error {
	p.dialed = append(p.dialed, addr)

	if !strings.HasPrefix(addr, "/ip4/") {
		return errors.NewInvalidArgumentError("invalid multiaddr %q", addr)
	}

	return nil
}

func (p *stubPeers) Addrs() []string {
	return []string{"/ip4/127.0.0.1/tcp/42000/p2p/self"}
}

type consoleNode struct {
	chain  *blockchain.Chain
	pool   *blockassembly.Pool
	wallet *wallet.Wallet
	peers  *stubPeers
	out    *bytes.Buffer
}

func newConsoleNode(t *testing.T) *consoleNode {
	t.Helper()

	tSettings := &settings.Settings{
		ChainCfgParams: &chaincfg.RegressionNetParams,
		BlockChain:     settings.BlockChainSettings{SnapshotKey: "blockchain", PersistRetryCount: 1},
		Miner:          settings.MinerSettings{MaxIterations: 1000, ProgressInterval: 1000, MaxTxPerBlock: 10},
		Sync:           settings.SyncSettings{EventChannelSize: 4},
	}

	chain, err := blockchain.New(context.Background(), &ulogger.TestLogger{}, tSettings, memory.New())
	require.NoError(t, err)

	w, err := wallet.New()
	require.NoError(t, err)

	return &consoleNode{
		chain:  chain,
		pool:   blockassembly.NewPool(),
		wallet: w,
		peers:  &stubPeers{},
		out:    &bytes.Buffer{},
	}
}

func (n *consoleNode) run(t *testing.T, input ...string) string {
	t.Helper()

	tSettings := &settings.Settings{
		ChainCfgParams: &chaincfg.RegressionNetParams,
		Miner:          settings.MinerSettings{MaxIterations: 1000, ProgressInterval: 1000, MaxTxPerBlock: 10},
		Sync:           settings.SyncSettings{EventChannelSize: 4},
	}

	coordinator := netsync.NewCoordinator(&ulogger.TestLogger{}, tSettings, n.chain, n.pool)
	blockMiner := miner.NewMiner(&ulogger.TestLogger{}, tSettings, n.chain, n.pool, nil, "")

	in := strings.NewReader(strings.Join(input, "\n") + "\n")
	console := NewConsole(in, n.out, "alice", n.wallet, n.chain, n.pool, coordinator, blockMiner, n.peers)

	require.NoError(t, console.Run(context.Background()))

	return n.out.String()
}

func TestConsolePaymentRoundTrip(t *testing.T) {
	n := newConsoleNode(t)

	// the second payment finds the only coin already pending
	out := n.run(t,
		"2",
		"1", "bob", "30",
		"1", "bob", "30",
		"5",
		"2",
		"3",
		"6", "bob",
		"4",
		"7",
	)

	assert.Contains(t, out, "Wallet address: "+n.wallet.Address())
	assert.Contains(t, out, "Listening on /ip4/127.0.0.1/tcp/42000/p2p/self")
	assert.Contains(t, out, "New block mined!")
	assert.Contains(t, out, "created and added to pending pool!")
	assert.Contains(t, out, "Failed to create transaction: insufficient funds")
	assert.Contains(t, out, "Pending Transactions: 1")
	assert.Contains(t, out, "alice's balance: 70")
	assert.Contains(t, out, "Balance of bob: 30")
	assert.Contains(t, out, "Block #2")
	assert.Contains(t, out, "Goodbye!")

	assert.Equal(t, 3, n.chain.Len())
	assert.Equal(t, 0, n.pool.Len())
	assert.Equal(t, uint64(70), n.chain.Balance(n.wallet.Address()))
	assert.Equal(t, uint64(30), n.chain.Balance("bob"))
}

func TestConsoleRejectsBadInput(t *testing.T) {
	n := newConsoleNode(t)

	out := n.run(t,
		"9",
		"1", "bob", "lots",
		"1", "bob", "10",
		"8", "not-a-multiaddr",
		"8", "/ip4/10.0.0.1/tcp/42000/p2p/other",
		"7",
	)

	assert.Contains(t, out, "Invalid choice!")
	assert.Contains(t, out, `Invalid amount "lots"`)
	assert.Contains(t, out, "Failed to create transaction: insufficient funds")
	assert.Contains(t, out, "Failed to connect to not-a-multiaddr")
	assert.Contains(t, out, "Connected to /ip4/10.0.0.1/tcp/42000/p2p/other")

	assert.Equal(t, []string{"not-a-multiaddr", "/ip4/10.0.0.1/tcp/42000/p2p/other"}, n.peers.dialed)
	assert.Equal(t, 0, n.pool.Len())
}

func TestConsoleEndsOnEOF(t *testing.T) {
	n := newConsoleNode(t)

	out := n.run(t, "4")

	assert.Contains(t, out, "Block #0")
	assert.NotContains(t, out, "Goodbye!")
}

func TestConsoleEndsOnCancel(t *testing.T) {
	n := newConsoleNode(t)

	ctx, cancel := context.WithCancel(context.Background())

	// a reader that never delivers a line
	blocked, writer := io.Pipe()
	defer writer.Close()

	console := NewConsole(blocked, n.out, "alice", n.wallet, n.chain, n.pool, nil, nil, nil)

	done := make(chan error, 1)

	go func() {
		done <- console.Run(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("console did not stop after cancel")
	}
}
