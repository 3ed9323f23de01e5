//go:build linux
// +build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/gotoolkits/resetmon/config"
	"github.com/gotoolkits/resetmon/metrics"
	"github.com/gotoolkits/resetmon/monitor"
	. "github.com/gotoolkits/resetmon/outputer"
	"github.com/gotoolkits/resetmon/resolver"
	"github.com/gotoolkits/resetmon/subscriber"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if err := cfg.Verify(); err != nil {
		fmt.Println("Invalid configuration:", err)
		os.Exit(1)
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	m := metrics.New()
	if cfg.MetricsAddress != "" {
		go func() {
			if err := metrics.Serve(ctx, m, cfg.MetricsAddress, cfg.MetricsPath); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	outputer, err := NewOutputer(cfg.Format, Options{
		Exclude:          cfg.Exclude,
		LogPath:          cfg.LogPath,
		HoneycombAPIKey:  cfg.Honeycomb.APIKey,
		HoneycombDataset: cfg.Honeycomb.Dataset,
		HoneycombAPIHost: cfg.Honeycomb.APIHost,
	})
	if err != nil {
		return err
	}
	if c, ok := outputer.(interface{ Close() }); ok {
		defer c.Close()
	}

	fmt.Println("Connecting...")
	source, err := subscriber.Open(ctx, cfg.Source, cfg.Endpoint, cfg.Topic)
	if errors.Is(err, subscriber.ErrClosed) {
		// interrupted before the publisher came up
		return nil
	} else if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		log.Println("Received signal, exiting program..")
		if err := source.Close(); err != nil {
			log.WithError(err).Error("closing subscriber")
		}
	}()

	mon := monitor.New(source, resolver.New(newLookuper(cfg), resolver.NewCache(), resolver.WithMetrics(m)), outputer,
		monitor.WithMetrics(m),
		monitor.WithParseFailureHook(func(line string, err error) {
			log.WithField("line", line).Debug("Dropping message")
		}),
	)
	return mon.Run(ctx)
}

func newLookuper(cfg config.Config) resolver.Lookuper {
	if cfg.Resolver == "dns" {
		return resolver.NewDNSLookuper(cfg.DNSServer, cfg.DNSTimeout)
	}
	return resolver.SystemLookuper()
}
