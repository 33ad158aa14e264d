// Command zoned is the authoritative DNS and zone management server:
// it loads configuration, scans the zone store, and serves UDP/53
// queries alongside the HTTP/JSON management API described in §6.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clusterdns/zoned/internal/config"
	"github.com/clusterdns/zoned/internal/eventbus"
	"github.com/clusterdns/zoned/internal/httpapi"
	"github.com/clusterdns/zoned/internal/metrics"
	"github.com/clusterdns/zoned/internal/replication"
	"github.com/clusterdns/zoned/internal/resolver"
	"github.com/clusterdns/zoned/internal/transport"
	"github.com/clusterdns/zoned/internal/zoneactor"
	"github.com/clusterdns/zoned/internal/zonestore"
)

var configPath = flag.String("config", "zoned.yaml", "path to YAML config file")

func main() {
	flag.Parse()

	log := logrus.StandardLogger()
	if os.Getenv("ZONED_LOG_FORMAT") == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("loading configuration")
	}

	log.WithFields(logrus.Fields{
		"zones_folder": cfg.ZonesFolder,
		"dns_port":     cfg.DNSPort,
		"http_port":    cfg.HTTPPort,
		"peers":        len(cfg.Peers),
	}).Info("starting zoned")

	store, err := zonestore.NewStore(cfg.ZonesFolder, log)
	if err != nil {
		log.WithError(err).Fatal("opening zone store")
	}

	valid, invalid := store.ScanStartup()
	log.WithFields(logrus.Fields{"valid": valid, "invalid": invalid}).Info("zone store startup scan complete")

	bus := eventbus.New(64)
	logZoneEvents(bus, log)

	repl := replication.New(replication.Config{
		Peers:       cfg.Peers,
		QuorumRatio: cfg.ReplicationQuorumRatio,
		Timeout:     time.Duration(cfg.ReplicationTimeoutMs) * time.Millisecond,
		Log:         log,
	})

	cache := zoneactor.New(store, repl, bus, log)
	defer cache.Close()

	res := resolver.New(cache)

	udpServer := transport.NewServer(transport.Config{
		Addr:     fmt.Sprintf(":%d", cfg.DNSPort),
		Resolver: res,
		Log:      log,
	})
	if err := udpServer.Start(); err != nil {
		log.WithError(err).Fatal("starting UDP listener")
	}

	mux := httpapi.NewRouter(cache, cfg.APIToken, log)
	mux.Handle("/metrics", metrics.Handler())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: mux,
	}
	go func() {
		log.WithField("addr", httpServer.Addr).Info("zone management API listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("http server shutdown")
	}
	if err := udpServer.Stop(); err != nil {
		log.WithError(err).Warn("udp server shutdown")
	}

	log.Info("zoned stopped")
}

// logZoneEvents subscribes to eventbus.TopicZone for the process
// lifetime and logs a one-line summary of every zone lifecycle
// transition the cache publishes.
func logZoneEvents(bus *eventbus.Bus, log *logrus.Logger) {
	sub := bus.Subscribe(context.Background(), eventbus.TopicZone)
	go func() {
		for evt := range sub.Ch {
			ze, ok := evt.Data.(zoneactor.ZoneEvent)
			if !ok {
				continue
			}
			log.WithFields(logrus.Fields{"domain": ze.Domain, "action": ze.Action}).Info("zone event")
		}
	}()
}
