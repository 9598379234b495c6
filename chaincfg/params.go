// Package chaincfg defines the parameters of the networks a minichain node can join.
package chaincfg

import (
	"errors"
	"fmt"
)

// Params defines a minichain network by the values that must agree between peers:
// the proof-of-work difficulty and the fixed genesis block.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// Difficulty is the number of leading hex '0' characters a block hash needs.
	Difficulty uint64

	// GenesisTimestamp, GenesisMerkleRoot, GenesisAddress, GenesisReward and
	// GenesisCoinbaseText fully determine the genesis block, so every node on
	// the network derives the same genesis hash.
	GenesisTimestamp    int64
	GenesisMerkleRoot   string
	GenesisAddress      string
	GenesisReward       uint64
	GenesisCoinbaseText string

	// CoinbaseReward is paid to the miner of every block after genesis.
	CoinbaseReward uint64

	// MaxTxPerBlock is the number of pool transactions included next to the coinbase.
	MaxTxPerBlock int

	// DefaultPort is the first port the p2p listener tries.
	DefaultPort int
}

// MainNetParams defines the network parameters for the main network.
var MainNetParams = Params{
	Name:                "mainnet",
	Difficulty:          2,
	GenesisTimestamp:    1748793600,
	GenesisMerkleRoot:   "genesis_merkle_root",
	GenesisAddress:      "genesis_address",
	GenesisReward:       100,
	GenesisCoinbaseText: "Genesis Block - Blockchain Demo",
	CoinbaseReward:      50,
	MaxTxPerBlock:       10,
	DefaultPort:         40000,
}

// TestNetParams uses a single leading zero so blocks are found quickly.
var TestNetParams = Params{
	Name:                "testnet",
	Difficulty:          1,
	GenesisTimestamp:    1748793600,
	GenesisMerkleRoot:   "genesis_merkle_root",
	GenesisAddress:      "genesis_address",
	GenesisReward:       100,
	GenesisCoinbaseText: "Genesis Block - Blockchain Demo",
	CoinbaseReward:      50,
	MaxTxPerBlock:       10,
	DefaultPort:         41000,
}

// RegressionNetParams accepts any hash as valid proof of work.
var RegressionNetParams = Params{
	Name:                "regtest",
	Difficulty:          0,
	GenesisTimestamp:    1748793600,
	GenesisMerkleRoot:   "genesis_merkle_root",
	GenesisAddress:      "genesis_address",
	GenesisReward:       100,
	GenesisCoinbaseText: "Genesis Block - Blockchain Demo",
	CoinbaseReward:      50,
	MaxTxPerBlock:       10,
	DefaultPort:         42000,
}

var ErrUnknownNetwork = errors.New("unknown network")

func GetChainParams(network string) (*Params, error) {
	switch network {
	case "mainnet":
		return &MainNetParams, nil
	case "testnet":
		return &TestNetParams, nil
	case "regtest":
		return &RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("%w %s", ErrUnknownNetwork, network)
	}
}
