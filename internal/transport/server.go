// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package transport

import (
	"context"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/latentcollapse/hlx-core/internal/batch"
	"github.com/latentcollapse/hlx-core/internal/dispatch"
	"github.com/latentcollapse/hlx-core/internal/errs"
	"github.com/latentcollapse/hlx-core/pkg/log"
)

// Config configures one Server. The zero value is not usable;
// NewServer fills in the documented defaults for zero fields.
type Config struct {
	// Network is "unix" or "tcp" (spec.md §6: "implementation choice").
	Network string
	// Address is the socket path (for "unix") or host:port (for "tcp").
	// Defaults to "/tmp/hlx_vulkan.sock" on an empty Network/Address.
	Address string
	// MaxConnections bounds the number of connections served
	// concurrently; additional accepts block until a slot frees up.
	MaxConnections int
	// BatchDeadline is the per-batch wall-clock budget passed to
	// dispatch.Registry.Dispatch as a context deadline (spec.md §5).
	BatchDeadline time.Duration
	// RateLimit bounds batches accepted per second per connection;
	// zero disables rate limiting.
	RateLimit rate.Limit
	RateBurst int
}

// BatchObserver is notified once per completed batch, after the
// response has been encoded but independent of whether the write to
// the peer succeeds. SPEC_FULL.md §4.8 wires this to an optional NATS
// publication of batch_id + status + instruction count.
type BatchObserver func(batchID [batch.BatchIDSize]byte, instructionCount int, resp batch.Response)

const defaultSocketPath = "/tmp/hlx_vulkan.sock"

func (c Config) withDefaults() Config {
	if c.Network == "" {
		c.Network = "unix"
	}
	if c.Address == "" {
		c.Address = defaultSocketPath
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 64
	}
	if c.BatchDeadline <= 0 {
		c.BatchDeadline = 30 * time.Second
	}
	return c
}

// Server accepts connections and dispatches the batches read from
// them against a registry. It owns no CAS or registry state of its
// own — both are constructed by cmd/hlxd and handed in, per spec.md
// §9's rejection of package-level singletons.
type Server struct {
	cfg      Config
	registry *dispatch.Registry
	metrics  *metrics
	observe  BatchObserver

	connWG sync.WaitGroup
	sem    chan struct{}
}

// NewServer builds a Server. reg may be nil to skip Prometheus
// registration (used by tests); observe may be nil to disable batch
// observability publication.
func NewServer(cfg Config, registry *dispatch.Registry, reg prometheus.Registerer, observe BatchObserver) *Server {
	cfg = cfg.withDefaults()
	return &Server{
		cfg:      cfg,
		registry: registry,
		metrics:  newMetrics(reg),
		observe:  observe,
		sem:      make(chan struct{}, cfg.MaxConnections),
	}
}

// Listen opens the configured listener. For a UNIX socket it first
// removes any stale path left behind by an unclean shutdown — the
// same idiom control-plane daemons use for their domain sockets
// (grounded on the kryptco-kr daemon's socket.Listen helper).
func (s *Server) Listen() (net.Listener, error) {
	if s.cfg.Network == "unix" {
		_ = os.Remove(s.cfg.Address)
	}
	ln, err := net.Listen(s.cfg.Network, s.cfg.Address)
	if err != nil {
		return nil, errs.Wrap(errs.TransportClosed, err, "listen on %s %s", s.cfg.Network, s.cfg.Address)
	}
	return ln, nil
}

// Serve accepts connections on ln until ctx is canceled, at which
// point it closes ln and waits for in-flight connections to finish
// their current batch before returning.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.connWG.Wait()
				return nil
			default:
				return errs.Wrap(errs.TransportClosed, err, "accept")
			}
		}

		select {
		case s.sem <- struct{}{}:
		case <-ctx.Done():
			conn.Close()
			s.connWG.Wait()
			return nil
		}

		s.connWG.Add(1)
		s.metrics.connectionsOpen.Inc()
		go func() {
			defer s.connWG.Done()
			defer func() { <-s.sem }()
			defer s.metrics.connectionsOpen.Dec()
			s.handleConn(ctx, conn)
		}()
	}
}

// handleConn serves one connection to completion: batches are read
// and dispatched in strict FIFO order (spec.md §5) until a frame read
// or write fails, at which point the connection is closed.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	// On cancellation, unblock a pending read so the connection ends
	// after its current batch instead of waiting for the peer.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()

	limiter := newConnLimiter(s.cfg.RateLimit, s.cfg.RateBurst)

	for {
		payload, err := readFrame(conn)
		if err != nil {
			if err != io.EOF {
				log.Debugf("transport: closing connection from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}

		resp, batchID, nInstr := s.dispatchFrame(ctx, payload)

		respBytes, err := batch.EncodeResponse(resp)
		if err != nil {
			log.Errorf("transport: encoding response: %v", err)
			return
		}
		if s.observe != nil {
			s.observe(batchID, nInstr, resp)
		}

		if err := writeFrame(conn, respBytes); err != nil {
			log.Debugf("transport: write failed for %s: %v", conn.RemoteAddr(), err)
			return
		}
	}
}

// dispatchFrame decodes one request frame and runs it through the
// registry under the configured per-batch deadline, recording
// Prometheus observations along the way.
func (s *Server) dispatchFrame(ctx context.Context, payload []byte) (batch.Response, [batch.BatchIDSize]byte, int) {
	start := time.Now()
	req, err := batch.Decode(payload)
	if err != nil {
		s.metrics.batchesTotal.WithLabelValues("decode_error").Inc()
		return batch.Response{Err: err.Error()}, req.BatchID, 0
	}

	dctx, cancel := context.WithTimeout(ctx, s.cfg.BatchDeadline)
	defer cancel()

	resp := s.registry.Dispatch(dctx, req)
	s.metrics.batchLatency.Observe(time.Since(start).Seconds())

	if resp.Err != "" {
		s.metrics.batchesTotal.WithLabelValues("dispatch_error").Inc()
	} else {
		s.metrics.batchesTotal.WithLabelValues("success").Inc()
	}

	return resp, req.BatchID, len(req.Instructions)
}

func newConnLimiter(limit rate.Limit, burst int) *rate.Limiter {
	if limit <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(limit, burst)
}
