package minichain

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/model"
	"github.com/bsv-blockchain/minichain/services/miner/cpuminer"
	"github.com/bsv-blockchain/minichain/services/wallet"
	"github.com/bsv-blockchain/minichain/stores/utxo"
)

type Ledger interface {
	Blocks() []*model.Block
	Balance(address string) uint64
	UnspentFor(address string) []utxo.Unspent
}

type PendingPool interface {
	Transactions() []*model.Transaction
}

type Broadcaster interface {
	BroadcastTransaction(ctx context.Context, tx *model.Transaction) error
}

type BlockMiner interface {
	MineBlock(ctx context.Context, rewardAddress string) (*model.Block, cpuminer.Result, error)
}

type PeerConnector interface {
	Connect(ctx context.Context, addr string) error
	Addrs() []string
}

// Console is the interactive menu of a running node.
type Console struct {
	out         io.Writer
	lines       <-chan string
	user        string
	wallet      *wallet.Wallet
	chain       Ledger
	pool        PendingPool
	broadcaster Broadcaster
	miner       BlockMiner
	peers       PeerConnector
}

func NewConsole(in io.Reader, out io.Writer, user string, w *wallet.Wallet, chain Ledger, pool PendingPool,
	broadcaster Broadcaster, miner BlockMiner, peers PeerConnector) *Console {
	lines := make(chan string)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	return &Console{
		out:         out,
		lines:       lines,
		user:        user,
		wallet:      w,
		chain:       chain,
		pool:        pool,
		broadcaster: broadcaster,
		miner:       miner,
		peers:       peers,
	}
}

const menu = `
Blockchain Demo Menu:
1. Create new transaction
2. Mine new block
3. Show balance
4. Show blockchain
5. Show pending transactions
6. Show balance of an address
7. Exit
8. Connect to peer
Enter your choice: `

// Run shows the menu until the user exits, the input ends or ctx is cancelled.
func (c *Console) Run(ctx context.Context) error {
	c.printf("Wallet address: %s\n", c.wallet.Address())

	if c.peers != nil {
		for _, addr := range c.peers.Addrs() {
			c.printf("Listening on %s\n", addr)
		}
	}

	for {
		c.printf("%s", menu)

		choice, ok := c.readLine(ctx)
		if !ok {
			return nil
		}

		switch choice {
		case "1":
			c.createTransaction(ctx)
		case "2":
			c.mineBlock(ctx)
		case "3":
			c.printf("%s's balance: %d\n", c.user, c.chain.Balance(c.wallet.Address()))
		case "4":
			c.showChain()
		case "5":
			c.showPending()
		case "6":
			c.showBalance(ctx)
		case "7":
			c.printf("Goodbye!\n")
			return nil
		case "8":
			c.connect(ctx)
		default:
			c.printf("Invalid choice!\n")
		}
	}
}

func (c *Console) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

func (c *Console) readLine(ctx context.Context) (string, bool) {
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-c.lines:
		return strings.TrimSpace(line), ok
	}
}

func (c *Console) prompt(ctx context.Context, text string) (string, bool) {
	c.printf("%s", text)
	return c.readLine(ctx)
}

func (c *Console) createTransaction(ctx context.Context) {
	to, ok := c.prompt(ctx, "Enter recipient address: ")
	if !ok {
		return
	}

	amountStr, ok := c.prompt(ctx, "Enter amount: ")
	if !ok {
		return
	}

	amount, err := strconv.ParseUint(amountStr, 10, 64)
	if err != nil {
		c.printf("Invalid amount %q\n", amountStr)
		return
	}

	tx, err := c.wallet.CreateTransaction(to, amount, c.spendable())
	if err != nil {
		if errors.Is(err, errors.ErrInsufficientFunds) {
			c.printf("Failed to create transaction: insufficient funds\n")
		} else {
			c.printf("Failed to create transaction: %v\n", err)
		}

		return
	}

	if err = c.wallet.SignTransaction(tx); err != nil {
		c.printf("Failed to sign transaction: %v\n", err)
		return
	}

	if err = c.broadcaster.BroadcastTransaction(ctx, tx); err != nil {
		if errors.Is(err, errors.ErrNetworkError) {
			c.printf("Transaction %s added to pending pool but not broadcast: %v\n", tx.Hash(), err)
		} else {
			c.printf("Failed to send transaction: %v\n", err)
		}

		return
	}

	c.printf("Transaction %s created and added to pending pool!\n", tx.Hash())
}

// spendable is the wallet's view of the UTXO set minus the outputs pooled transactions already
// spend, so that two payments made before the next block do not pick the same coins.
func (c *Console) spendable() []utxo.Unspent {
	pending := make(map[string]struct{})

	for _, tx := range c.pool.Transactions() {
		for _, in := range tx.Inputs {
			pending[fmt.Sprintf("%s:%d", in.PrevTx, in.PrevIndex)] = struct{}{}
		}
	}

	all := c.chain.UnspentFor(c.wallet.Address())
	view := make([]utxo.Unspent, 0, len(all))

	for _, u := range all {
		if _, spent := pending[fmt.Sprintf("%s:%d", u.TxHash, u.Index)]; !spent {
			view = append(view, u)
		}
	}

	return view
}

func (c *Console) mineBlock(ctx context.Context) {
	c.printf("Mining...\n")

	block, result, err := c.miner.MineBlock(ctx, c.wallet.Address())
	if err != nil {
		c.printf("Mining failed: %v\n", err)
		return
	}

	if block == nil {
		c.printf("No block found after %d iterations, pending transactions kept\n", result.Iterations)
		return
	}

	c.printf("New block mined! %s (nonce %d, %d transactions)\n", result.Hash, result.Nonce, len(block.Transactions))
}

func (c *Console) showChain() {
	c.printf("Blockchain:\n")

	for i, block := range c.chain.Blocks() {
		c.printf("Block #%d\n", i)
		c.printf("  Hash: %s\n", block.Hash())
		c.printf("  Previous Hash: %s\n", block.Header.PrevHash)
		c.printf("  Timestamp: %d\n", block.Header.Timestamp)
		c.printf("  Nonce: %d\n", block.Header.Nonce)
		c.printf("  Transactions: %d\n\n", len(block.Transactions))
	}
}

func (c *Console) showPending() {
	txs := c.pool.Transactions()

	c.printf("Pending Transactions: %d\n", len(txs))

	for i, tx := range txs {
		c.printf("Transaction #%d %s\n", i, tx.Hash())

		for _, out := range tx.Outputs {
			c.printf("  %d -> %s\n", out.Value, out.ScriptPubKey)
		}
	}
}

func (c *Console) showBalance(ctx context.Context) {
	address, ok := c.prompt(ctx, "Enter address to check: ")
	if !ok {
		return
	}

	c.printf("Balance of %s: %d\n", address, c.chain.Balance(address))
}

func (c *Console) connect(ctx context.Context) {
	if c.peers == nil {
		c.printf("Networking is disabled\n")
		return
	}

	addr, ok := c.prompt(ctx, "Enter peer multiaddr: ")
	if !ok {
		return
	}

	if err := c.peers.Connect(ctx, addr); err != nil {
		c.printf("Failed to connect to %s: %v\n", addr, err)
		return
	}

	c.printf("Connected to %s\n", addr)
}
