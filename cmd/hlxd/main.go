// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/latentcollapse/hlx-core/internal/cas"
	"github.com/latentcollapse/hlx-core/internal/config"
	"github.com/latentcollapse/hlx-core/internal/dispatch"
	"github.com/latentcollapse/hlx-core/internal/runtimeEnv"
	"github.com/latentcollapse/hlx-core/internal/transport"
	"github.com/latentcollapse/hlx-core/internal/util"
	"github.com/latentcollapse/hlx-core/pkg/log"
	"github.com/latentcollapse/hlx-core/pkg/nats"
	"github.com/latentcollapse/hlx-core/pkg/schema"

	_ "github.com/mattn/go-sqlite3"
)

func main() {
	var flagGops bool
	var flagConfigFile string
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.StringVar(&flagConfigFile, "config", "./config.json", "Overwrite the default config options by those specified in `config.json`")
	flag.Parse()

	// See https://github.com/google/gops (runtime overhead is almost zero)
	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	if err := runtimeEnv.LoadEnv("./.env"); err != nil {
		log.Fatalf("parsing './.env' file failed: %s", err.Error())
	}

	if err := config.Init(flagConfigFile); err != nil {
		log.Fatal(err)
	}
	keys := config.Keys

	store, err := openStore(keys)
	if err != nil {
		log.Fatalf("opening CAS store: %s", err.Error())
	}
	defer store.Close()

	registry := dispatch.NewRegistry()
	registry.Register(dispatch.ContractEcho, dispatch.NewEchoHandler())
	registry.Register(dispatch.ContractCASPut, dispatch.NewCASPutHandler(store))

	var observe transport.BatchObserver
	var natsClient *nats.Client
	if keys.NATSUrl != "" {
		natsClient, err = nats.NewClient(nats.NatsConfig{Address: keys.NATSUrl})
		if err != nil {
			log.Warnf("NATS: %s, batch-completion publication disabled", err.Error())
		} else {
			observe = dispatch.NATSObserver(natsClient)
		}
	}

	promReg := prometheus.NewRegistry()
	if keys.MetricsAddr != "" {
		serveMetrics(keys.MetricsAddr, promReg)
	}

	srv := transport.NewServer(transport.Config{
		Network:        keys.Network,
		Address:        keys.Address,
		MaxConnections: keys.MaxConnections,
		BatchDeadline:  keys.BatchDeadline(),
		RateLimit:      rate.Limit(keys.RateLimitPerSec),
		RateBurst:      keys.RateBurst,
	}, registry, promReg, observe)

	ln, err := srv.Listen()
	if err != nil {
		log.Fatalf("listen on %s %s: %s", keys.Network, keys.Address, err.Error())
	}
	log.Printf("hlxd listening on %s %s", keys.Network, keys.Address)

	// Because the socket may live at a privileged path, the listener
	// must be established first, then the user can be changed.
	if err := runtimeEnv.DropPrivileges(keys.User, keys.Group); err != nil {
		log.Fatalf("error while changing user: %s", err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Serve(ctx, ln); err != nil {
			log.Errorf("transport.Serve: %s", err.Error())
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-sigs
		runtimeEnv.SystemdNotifiy(false, "shutting down")
		cancel()
	}()

	if os.Getenv("GOGC") == "" {
		debug.SetGCPercent(25)
	}
	runtimeEnv.SystemdNotifiy(true, "running")
	wg.Wait()

	if natsClient != nil {
		natsClient.Close()
	}
	log.Print("Graceful shutdown completed!")
}

var validObjectKinds = []string{"file", "s3"}

// openStore builds the configured CAS object backend and opens the
// index on top of it.
func openStore(keys schema.ProgramConfig) (*cas.Store, error) {
	if !util.Contains(validObjectKinds, keys.Object.Kind) {
		return nil, fmt.Errorf("object.kind %q must be one of %v", keys.Object.Kind, validObjectKinds)
	}

	var backend cas.ObjectBackend
	var err error

	switch keys.Object.Kind {
	case "s3":
		backend, err = cas.NewS3Backend(context.Background(), keys.Object.Bucket, keys.Object.Prefix)
	default:
		backend, err = cas.NewFSBackend(keys.Object.Root)
	}
	if err != nil {
		return nil, err
	}

	return cas.Open(keys.DB, backend, keys.CacheBytes)
}
