package daemon

import (
	"context"

	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/services/blockassembly"
	"github.com/bsv-blockchain/minichain/services/blockchain"
	"github.com/bsv-blockchain/minichain/services/miner"
	"github.com/bsv-blockchain/minichain/services/netsync"
	"github.com/bsv-blockchain/minichain/services/p2p"
	"github.com/bsv-blockchain/minichain/settings"
	"github.com/bsv-blockchain/minichain/stores/blob"
	"github.com/bsv-blockchain/minichain/util/servicemanager"
)

// startServices loads the chain and registers the long running services. They start in the
// order coordinator, p2p, miner so that inbound events always have a consumer and the miner
// always has a transport to publish to.
func (d *Daemon) startServices(ctx context.Context, tSettings *settings.Settings, sm *servicemanager.ServiceManager) error {
	if tSettings == nil {
		return errors.NewConfigurationError("no settings")
	}

	store, err := blob.NewStore(d.loggerFactory("blob"), tSettings.BlockChain.StoreURL, tSettings.DataFolder)
	if err != nil {
		return err
	}

	d.servicesMu.Lock()
	d.store = store
	d.servicesMu.Unlock()

	chain, err := blockchain.New(ctx, d.loggerFactory("bchn"), tSettings, store)
	if err != nil {
		return err
	}

	pool := blockassembly.NewPool()

	coordinator := netsync.NewCoordinator(d.loggerFactory("sync"), tSettings, chain, pool)

	p2pServer := p2p.NewServer(d.loggerFactory("p2p"), tSettings, coordinator)
	coordinator.SetPublisher(p2pServer)

	blockMiner := miner.NewMiner(d.loggerFactory("miner"), tSettings, chain, pool, p2pServer, d.rewardAddress)

	d.servicesMu.Lock()
	d.chain = chain
	d.pool = pool
	d.coordinator = coordinator
	d.p2pServer = p2pServer
	d.miner = blockMiner
	d.servicesMu.Unlock()

	if err = sm.AddService("Coordinator", coordinator); err != nil {
		return err
	}

	if err = sm.AddService("P2P", p2pServer); err != nil {
		return err
	}

	return sm.AddService("Miner", blockMiner)
}
