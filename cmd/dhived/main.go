// Command dhived is the archive runtime daemon: it holds the registry,
// swarm hub, sync engine, crawler, and garbage collector for the lifetime
// of the process, and exposes a minimal control-plane service over a local
// IPC socket for cmd/dhive to dial into.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"google.golang.org/grpc"

	"github.com/dhive/dhive/cmd/cmdsupport"
	"github.com/dhive/dhive/pkg/configuration"
	"github.com/dhive/dhive/pkg/crawler"
	"github.com/dhive/dhive/pkg/daemon"
	"github.com/dhive/dhive/pkg/daemon/control"
	"github.com/dhive/dhive/pkg/dhive"
	"github.com/dhive/dhive/pkg/gc"
	"github.com/dhive/dhive/pkg/grpcutil"
	"github.com/dhive/dhive/pkg/logging"
	"github.com/dhive/dhive/pkg/metastore"
	"github.com/dhive/dhive/pkg/nameresolver"
	"github.com/dhive/dhive/pkg/registry"
	"github.com/dhive/dhive/pkg/swarm"
	"github.com/dhive/dhive/pkg/syncengine"
)

// defaultSwarmAddress is the Dat ecosystem's well-known replication port;
// SwarmHub falls back to an OS-assigned port if the bind fails.
const defaultSwarmAddress = "0.0.0.0:3282"

func run() error {
	lock, err := daemon.AcquireLock(logging.RootLogger)
	if err != nil {
		return fmt.Errorf("unable to acquire daemon lock (is another dhived instance running?): %w", err)
	}
	defer lock.Release()

	terminationSignals := make(chan os.Signal, 1)
	signal.Notify(terminationSignals, cmdsupport.TerminationSignals...)

	logFile, err := daemon.OpenLog()
	if err != nil {
		return fmt.Errorf("unable to open daemon log: %w", err)
	}
	defer logFile.Close()

	logger := logging.NewLogger(logging.LevelInfo, io.MultiWriter(logFile, os.Stderr))

	globalConfigPath, err := configuration.GlobalConfigurationPath()
	if err != nil {
		return fmt.Errorf("unable to compute configuration path: %w", err)
	}
	cfg, err := configuration.Load(globalConfigPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("unable to load configuration: %w", err)
		}
		cfg = &configuration.YAMLConfiguration{}
	}

	store := metastore.NewMemArchiveStore()

	datPath := cfg.DatPath
	if datPath == "" {
		datPath, err = dhive.DataPath(true)
		if err != nil {
			return fmt.Errorf("unable to compute data path: %w", err)
		}
	}

	discovery := newLoopbackDiscovery()
	swarmHub := swarm.New(discovery, logger.Sublogger("swarm"))
	if _, err := swarmHub.Listen(defaultSwarmAddress); err != nil {
		return fmt.Errorf("unable to bind swarm listener: %w", err)
	}
	swarmHub.SetBandwidthLimits(float64(cfg.Bandwidth.UploadLimit), float64(cfg.Bandwidth.DownloadLimit))

	fsProvider := &localFSProvider{datPath: datPath}
	syncEngine := syncengine.New(syncengine.Config{
		DatPath: datPath,
		FS:      fsProvider,
		Logger:  logger.Sublogger("syncengine"),
	})

	resolverCacheDir, err := dhive.DataPath(true)
	if err != nil {
		return fmt.Errorf("unable to compute name resolver cache path: %w", err)
	}
	resolverCachePath := filepath.Join(resolverCacheDir, "nameresolver-cache.json")
	resolver := nameresolver.New(nameresolver.Config{
		Providers: []nameresolver.Provider{
			nameresolver.NewCloudflareProvider(),
			nameresolver.NewGoogleProvider(),
		},
		CachePath: resolverCachePath,
		Logger:    logger.Sublogger("nameresolver"),
	})

	// crawlerInstance is ready to crawl as soon as a host is bound to a
	// private or followed archive; cmd/dhive doesn't yet expose a command
	// for adding crawl sources, so nothing calls CrawlSite/WatchSite on it
	// in this build.
	crawlerInstance := crawler.New(crawler.Config{
		Store:    metastore.NewMemCrawlStore(),
		Changes:  &fsChangeSource{fs: fsProvider},
		Resolver: &dnsChecker{resolve: resolver.ResolveName},
		Logger:   logger.Sublogger("crawler"),
		Indexers: crawler.DefaultIndexers(),
	})
	logger.Debugf("crawler %p ready with %d indexers", crawlerInstance, len(crawler.DefaultIndexers()))

	reg := registry.New(registry.Config{
		DatPath:  datPath,
		Store:    store,
		Resolver: resolver,
		Swarm:    swarmHub,
		Sync:     syncEngine,
		Logger:   logger.Sublogger("registry"),
	})
	defer reg.Close()

	swarmCtx, cancelSwarm := context.WithCancel(context.Background())
	defer cancelSwarm()
	go swarmHub.ServeDiscovery(swarmCtx)
	go func() {
		if err := swarmHub.Serve(swarmCtx); err != nil {
			logger.Errorf("swarm listener terminated abnormally: %v", err)
		}
	}()

	trashPath, err := dhive.DataPath(true, dhive.TrashDirectoryName)
	if err != nil {
		return fmt.Errorf("unable to compute trash path: %w", err)
	}

	collector := gc.New(gc.Config{
		Store:     store,
		Registry:  reg,
		TrashPath: trashPath,
		Logger:    logger.Sublogger("gc"),
	})
	gcCtx, cancelGC := context.WithCancel(context.Background())
	defer cancelGC()
	go collector.RunRegularly(gcCtx)

	grpcServer := grpc.NewServer(
		grpc.MaxSendMsgSize(grpcutil.MaximumMessageSize),
		grpc.MaxRecvMsgSize(grpcutil.MaximumMessageSize),
	)
	defer grpcServer.Stop()

	controlServer := control.New()
	control.RegisterControlServer(grpcServer, controlServer)

	listener, err := daemon.NewListener(logger.Sublogger("ipc"))
	if err != nil {
		return fmt.Errorf("unable to create IPC listener: %w", err)
	}
	defer listener.Close()

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- grpcServer.Serve(listener)
	}()

	select {
	case s := <-terminationSignals:
		logger.Infof("received termination signal: %v", s)
		return nil
	case <-controlServer.Termination:
		logger.Info("received termination request over control service")
		return nil
	case err := <-serverErrors:
		logger.Errorf("control server terminated abnormally: %v", err)
		return fmt.Errorf("control server terminated abnormally: %w", err)
	}
}

func main() {
	if err := run(); err != nil {
		cmdsupport.Fatal(err)
	}
}
