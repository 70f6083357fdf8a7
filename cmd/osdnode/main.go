// Package main is the OSD node executable, the analogue of the
// retrieved source's cmd/aisnode: parse flags, load config, build the
// core, and run its serve loop until interrupted.
/*
 * Copyright (c) 2026, the osd authors. All rights reserved.
 */
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/inmemosd/osd/cluster"
	"github.com/inmemosd/osd/dispatch"
	"github.com/inmemosd/osd/iov"
	"github.com/inmemosd/osd/nlog"
	"github.com/inmemosd/osd/osd"
	"github.com/inmemosd/osd/stats"
	"github.com/inmemosd/osd/store"
)

func main() {
	var (
		confFile  string
		osdID     int
		listen    string
		logLevel  string
		noopWrite bool
	)
	flag.StringVar(&confFile, "config", "", "path to JSON config file")
	flag.IntVar(&osdID, "id", -1, "this OSD's numeric id (overrides config)")
	flag.StringVar(&listen, "listen", "", "listen address (overrides config)")
	flag.StringVar(&logLevel, "loglevel", "", "log level: info | warning | error (overrides config)")
	flag.BoolVar(&noopWrite, "noop-write", false, "benchmarking fast path: skip writes of 4096 bytes or more")
	flag.Parse()

	cfg := osd.DefaultConfig()
	if confFile != "" {
		loaded, err := osd.LoadConfig(confFile)
		if err != nil {
			nlog.Errorf("config: %v", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if osdID >= 0 {
		cfg.OSDID = int32(osdID)
	}
	if listen != "" {
		cfg.ListenAddr = listen
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	cfg.NoopWrite = cfg.NoopWrite || noopWrite
	nlog.SetLevel(cfg.LogLevel)

	alloc := iov.NewHeapAllocator()
	st := store.New(alloc, cfg.NoopWrite)
	metrics := stats.NewMetrics(prometheus.DefaultRegisterer)
	disp := dispatch.New(st, nil, metrics)

	initial := cluster.NewClusterMap(1, []cluster.OSDInfo{{ID: cfg.OSDID, Addr: cfg.ListenAddr, Weight: 1}})
	reg := cluster.NewRegistry(initial)

	msgr := newWSMessenger(cfg.ListenAddr, alloc)
	sess := osd.NewSession(msgr, disp, reg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	nlog.Infof("osd %d listening on %s", cfg.OSDID, cfg.ListenAddr)
	if err := msgr.ListenAndServe(ctx); err != nil {
		nlog.Errorf("messenger: %v", err)
		os.Exit(1)
	}
	if err := sess.Serve(ctx); err != nil {
		nlog.Errorf("session: %v", err)
	}
	nlog.Flush()
}
