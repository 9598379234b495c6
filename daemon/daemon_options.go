package daemon

import (
	"context"

	"github.com/bsv-blockchain/minichain/ulogger"
)

// Option is a functional option type for configuring the Daemon.
type Option func(*Daemon)

// WithLoggerFactory provides a custom logger factory for the Daemon and its services.
func WithLoggerFactory(factory func(serviceName string) ulogger.Logger) Option {
	return func(d *Daemon) {
		d.loggerFactory = factory
	}
}

func WithContext(ctx context.Context) Option {
	return func(d *Daemon) {
		d.Ctx = ctx
	}
}

// WithRewardAddress sets the address the auto-mine loop pays block rewards to, usually the
// address of the node's wallet.
func WithRewardAddress(address string) Option {
	return func(d *Daemon) {
		d.rewardAddress = address
	}
}
