// Package daemon wires the node together: the snapshot store, the chain, the pending pool, the
// sync coordinator, the p2p transport and the miner, plus the health and metrics HTTP endpoint.
package daemon

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bsv-blockchain/minichain/errors"
	"github.com/bsv-blockchain/minichain/services/blockassembly"
	"github.com/bsv-blockchain/minichain/services/blockchain"
	"github.com/bsv-blockchain/minichain/services/miner"
	"github.com/bsv-blockchain/minichain/services/netsync"
	"github.com/bsv-blockchain/minichain/services/p2p"
	"github.com/bsv-blockchain/minichain/settings"
	"github.com/bsv-blockchain/minichain/stores/blob"
	"github.com/bsv-blockchain/minichain/ulogger"
	"github.com/bsv-blockchain/minichain/util/servicemanager"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Daemon struct {
	Ctx           context.Context
	doneCh        chan struct{}
	closeDoneOnce sync.Once

	stopCh         chan struct{} // closed once all services have stopped
	closeStopOnce  sync.Once
	serverMu       sync.Mutex
	server         *http.Server
	serverAddr     string
	ServiceManager *servicemanager.ServiceManager
	loggerFactory  func(serviceName string) ulogger.Logger
	rewardAddress  string

	servicesMu  sync.RWMutex
	store       blob.Store
	chain       *blockchain.Chain
	pool        *blockassembly.Pool
	coordinator *netsync.Coordinator
	p2pServer   *p2p.Server
	miner       *miner.Miner
}

func New(opts ...Option) *Daemon {
	d := &Daemon{
		Ctx:    context.Background(),
		doneCh: make(chan struct{}),
		stopCh: make(chan struct{}),
		// default logger factory
		loggerFactory: func(serviceName string) ulogger.Logger {
			return ulogger.New(serviceName)
		},
	}

	for _, opt := range opts {
		opt(d)
	}

	d.ServiceManager = servicemanager.NewServiceManager(d.Ctx, d.loggerFactory("ServiceManager"))

	return d
}

// Start builds and starts every service and blocks until they have all stopped, either because
// one of them failed, the process was signalled or Stop was called. readyCh, when given, is
// closed once every service reported ready.
func (d *Daemon) Start(logger ulogger.Logger, tSettings *settings.Settings, readyCh ...chan struct{}) error {
	defer d.closeStopOnce.Do(func() { close(d.stopCh) })

	sm := d.ServiceManager

	if err := d.startServices(sm.Ctx, tSettings, sm); err != nil {
		logger.Errorf("error starting services: %v", err)

		sm.ForceShutdown()
		_ = sm.Wait()

		d.closeStore(logger)

		return err
	}

	go func() {
		sm.WaitForServiceToBeReady()

		if sm.Ctx.Err() != nil {
			return
		}

		logger.Infof("all services ready")

		for _, ch := range readyCh {
			close(ch)
		}
	}()

	if err := d.startHTTPServer(logger, tSettings); err != nil {
		sm.ForceShutdown()
		_ = sm.Wait()

		d.closeStore(logger)

		return err
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- sm.Wait()
	}()

	var err error

	select {
	case err = <-waitErr:
		if err != nil {
			logger.Errorf("services failed: %v", err)
		}
	case <-d.doneCh:
		logger.Infof("daemon shutdown requested")

		sm.ForceShutdown()

		logger.Infof("daemon shutdown waiting for services to finish")

		if err = <-waitErr; err != nil {
			logger.Errorf("error during service shutdown: %v", err)
		}

		logger.Infof("daemon shutdown completed")
	}

	d.shutdownHTTPServer(logger)
	d.closeStore(logger)

	return err
}

// Stop asks Start to shut everything down and waits up to timeout (default 10s) for it.
func (d *Daemon) Stop(timeout ...time.Duration) error {
	d.closeDoneOnce.Do(func() { close(d.doneCh) })

	shutdownTimeout := 10 * time.Second
	if len(timeout) > 0 {
		shutdownTimeout = timeout[0]
	}

	timer := time.NewTimer(shutdownTimeout)
	defer timer.Stop()

	select {
	case <-d.stopCh:
		return nil
	case <-timer.C:
		return errors.NewProcessingError("timeout waiting for services to stop after %v", shutdownTimeout)
	}
}

// Done is closed once Start has returned.
func (d *Daemon) Done() <-chan struct{} {
	return d.stopCh
}

// startHTTPServer serves the health endpoints and, when prometheusEndpoint is set, the metrics on
// health_httpListenAddress. An empty listen address disables the server.
func (d *Daemon) startHTTPServer(logger ulogger.Logger, tSettings *settings.Settings) error {
	listenAddress := tSettings.HealthCheckListenAddress
	if listenAddress == "" {
		return nil
	}

	sm := d.ServiceManager

	mux := http.NewServeMux()

	healthFunc := func(liveness bool) func(http.ResponseWriter, *http.Request) {
		return func(w http.ResponseWriter, r *http.Request) {
			status, details, err := sm.HealthHandler(r.Context(), liveness)
			if err != nil {
				logger.Warnf("health check failed: %v", err)
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(details))
		}
	}

	mux.HandleFunc("/health", healthFunc(false))
	mux.HandleFunc("/health/readiness", healthFunc(false))
	mux.HandleFunc("/health/liveness", healthFunc(true))

	if tSettings.PrometheusEndpoint != "" {
		mux.Handle(tSettings.PrometheusEndpoint, promhttp.Handler())
	}

	listener, err := net.Listen("tcp", listenAddress)
	if err != nil {
		return errors.NewServiceError("failed to listen on %s", listenAddress, err)
	}

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 20 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	d.serverMu.Lock()
	d.server = server
	d.serverAddr = listener.Addr().String()
	d.serverMu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("health check server stopped: %v", err)
		}
	}()

	logger.Infof("Health check endpoint listening on http://%s/health", listener.Addr())

	return nil
}

func (d *Daemon) shutdownHTTPServer(logger ulogger.Logger) {
	d.serverMu.Lock()
	defer d.serverMu.Unlock()

	if d.server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.server.Shutdown(ctx); err != nil {
		logger.Warnf("Error shutting down health check server: %v", err)
	}

	d.server = nil
}

// HTTPAddr is the address the health server is bound to, empty when it is disabled.
func (d *Daemon) HTTPAddr() string {
	d.serverMu.Lock()
	defer d.serverMu.Unlock()

	return d.serverAddr
}

func (d *Daemon) closeStore(logger ulogger.Logger) {
	d.servicesMu.RLock()
	store := d.store
	d.servicesMu.RUnlock()

	if store == nil {
		return
	}

	logger.Debugf("closing blockchain store")

	if err := store.Close(context.Background()); err != nil {
		logger.Warnf("error closing blockchain store: %v", err)
	}
}

func (d *Daemon) Chain() *blockchain.Chain {
	d.servicesMu.RLock()
	defer d.servicesMu.RUnlock()

	return d.chain
}

func (d *Daemon) Pool() *blockassembly.Pool {
	d.servicesMu.RLock()
	defer d.servicesMu.RUnlock()

	return d.pool
}

func (d *Daemon) Coordinator() *netsync.Coordinator {
	d.servicesMu.RLock()
	defer d.servicesMu.RUnlock()

	return d.coordinator
}

func (d *Daemon) P2P() *p2p.Server {
	d.servicesMu.RLock()
	defer d.servicesMu.RUnlock()

	return d.p2pServer
}

func (d *Daemon) Miner() *miner.Miner {
	d.servicesMu.RLock()
	defer d.servicesMu.RUnlock()

	return d.miner
}
