// Package minichain is the command line of the node: running a node with its interactive console,
// managing wallet files and inspecting a stored chain.
package minichain

import (
	"context"
	"fmt"
	"os"

	"github.com/bsv-blockchain/minichain/daemon"
	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/services/blockchain"
	"github.com/bsv-blockchain/minichain/services/wallet"
	"github.com/bsv-blockchain/minichain/settings"
	"github.com/bsv-blockchain/minichain/stores/blob"
	"github.com/bsv-blockchain/minichain/ulogger"
	"github.com/ordishs/gocore"
	"github.com/urfave/cli/v2"
)

// NewApp builds the command line. Settings are read through gocore, flags override them.
func NewApp(progname, version, commit string) *cli.App {
	gocore.SetInfo(progname, version, commit)

	return &cli.App{
		Name:    progname,
		Usage:   "a minimal proof-of-work UTXO ledger",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Commands: []*cli.Command{
			nodeCommand(progname),
			walletCommand(),
			chainCommand(),
		},
	}
}

func nodeCommand(progname string) *cli.Command {
	return &cli.Command{
		Name:  "node",
		Usage: "Run a node and its interactive console",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "user",
				Usage: "user name, selects the wallet file <user>_wallet.json",
			},
			&cli.StringSliceFlag{
				Name:  "connect",
				Usage: "multiaddr of a peer to dial once the node is up",
			},
			&cli.DurationFlag{
				Name:  "mine-interval",
				Usage: "mine a block on this interval, 0 disables auto-mining",
			},
			&cli.BoolFlag{
				Name:  "headless",
				Usage: "run without the interactive console",
			},
		},
		Action: func(c *cli.Context) error {
			return runNode(c, progname)
		},
	}
}

func runNode(c *cli.Context, progname string) error {
	tSettings := settings.NewSettings()

	if c.IsSet("mine-interval") {
		tSettings.Miner.AutoMineInterval = c.Duration("mine-interval")
	}

	user := tSettings.ClientName
	walletFile := tSettings.Wallet.File

	if c.IsSet("user") {
		user = c.String("user")
		walletFile = user + "_wallet.json"
	}

	headless := c.Bool("headless")

	// the console owns stdout
	logWriter := os.Stdout
	if !headless {
		logWriter = os.Stderr
	}

	loggerFactory := func(serviceName string) ulogger.Logger {
		return ulogger.New(serviceName,
			ulogger.WithLevel(tSettings.LogLevel),
			ulogger.WithLoggerType(tSettings.LoggerType),
			ulogger.WithPretty(tSettings.PrettyLogs),
			ulogger.WithWriter(logWriter),
		)
	}

	logger := loggerFactory(progname)

	w, created, err := wallet.LoadOrCreate(walletFile)
	if err != nil {
		return err
	}

	if created {
		logger.Infof("created wallet %s with address %s", walletFile, w.Address())
	} else {
		logger.Infof("loaded wallet %s with address %s", walletFile, w.Address())
	}

	rewardAddress := tSettings.Miner.RewardAddress
	if rewardAddress == "" {
		rewardAddress = w.Address()
	}

	d := daemon.New(
		daemon.WithLoggerFactory(loggerFactory),
		daemon.WithContext(c.Context),
		daemon.WithRewardAddress(rewardAddress),
	)

	readyCh := make(chan struct{})
	startErr := make(chan error, 1)

	go func() {
		startErr <- d.Start(logger, tSettings, readyCh)
	}()

	select {
	case <-readyCh:
	case err = <-startErr:
		return err
	}

	ctx := d.ServiceManager.Ctx

	for _, addr := range c.StringSlice("connect") {
		if err = d.P2P().Connect(ctx, addr); err != nil {
			logger.Warnf("failed to connect to %s: %v", addr, err)
		}
	}

	if !headless {
		console := NewConsole(os.Stdin, c.App.Writer, user, w, d.Chain(), d.Pool(), d.Coordinator(), d.Miner(), d.P2P())

		if err = console.Run(ctx); err != nil {
			logger.Errorf("console: %v", err)
		}

		if err = d.Stop(); err != nil {
			logger.Warnf("%v", err)
		}
	}

	return <-startErr
}

func walletCommand() *cli.Command {
	fileFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:  "file",
			Usage: "wallet file, defaults to wallet_file",
		}
	}

	walletFile := func(c *cli.Context) string {
		if c.IsSet("file") {
			return c.String("file")
		}

		return settings.NewSettings().Wallet.File
	}

	return &cli.Command{
		Name:  "wallet",
		Usage: "Manage wallet files",
		Subcommands: []*cli.Command{
			{
				Name:  "new",
				Usage: "Create a new wallet file",
				Flags: []cli.Flag{
					fileFlag(),
					&cli.BoolFlag{Name: "force", Usage: "overwrite an existing wallet"},
				},
				Action: func(c *cli.Context) error {
					path := walletFile(c)

					if _, err := os.Stat(path); err == nil && !c.Bool("force") {
						return errors.NewInvalidArgumentError("wallet %s already exists, use --force to overwrite it", path)
					}

					w, err := wallet.New()
					if err != nil {
						return err
					}

					if err = w.Save(path); err != nil {
						return err
					}

					_, _ = fmt.Fprintln(c.App.Writer, w.Address())

					return nil
				},
			},
			{
				Name:  "address",
				Usage: "Print the address of a wallet file",
				Flags: []cli.Flag{fileFlag()},
				Action: func(c *cli.Context) error {
					w, err := wallet.Load(walletFile(c))
					if err != nil {
						return err
					}

					_, _ = fmt.Fprintln(c.App.Writer, w.Address())

					return nil
				},
			},
		},
	}
}

func chainCommand() *cli.Command {
	return &cli.Command{
		Name:  "chain",
		Usage: "Inspect the stored chain",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print every block of the stored chain",
				Action: func(c *cli.Context) error {
					return withChain(c, func(chain *blockchain.Chain) error {
						for i, block := range chain.Blocks() {
							_, _ = fmt.Fprintf(c.App.Writer, "%d %s prev=%s nonce=%d txs=%d\n",
								i, block.Hash(), block.Header.PrevHash, block.Header.Nonce, len(block.Transactions))
						}

						return nil
					})
				},
			},
			{
				Name:      "balance",
				Usage:     "Print the balance of an address",
				ArgsUsage: "<address>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return errors.NewInvalidArgumentError("expected one address")
					}

					return withChain(c, func(chain *blockchain.Chain) error {
						_, _ = fmt.Fprintln(c.App.Writer, chain.Balance(c.Args().First()))
						return nil
					})
				},
			},
		},
	}
}

// withChain loads the chain from the configured snapshot store. A store without a snapshot
// yields the genesis chain.
func withChain(c *cli.Context, fn func(chain *blockchain.Chain) error) error {
	tSettings := settings.NewSettings()
	logger := ulogger.New("chain", ulogger.WithLevel("ERROR"), ulogger.WithWriter(os.Stderr))

	store, err := blob.NewStore(logger, tSettings.BlockChain.StoreURL, tSettings.DataFolder)
	if err != nil {
		return err
	}

	defer func() {
		_ = store.Close(context.Background())
	}()

	chain, err := blockchain.New(c.Context, logger, tSettings, store)
	if err != nil {
		return err
	}

	return fn(chain)
}
