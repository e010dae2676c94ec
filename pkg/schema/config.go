// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schema

import "time"

// ObjectBackendConfig selects and configures the CAS object layer
// (internal/cas.FSBackend or internal/cas.S3Backend).
type ObjectBackendConfig struct {
	// Kind is "file" or "s3".
	Kind string `json:"kind"`

	// Root is the object root directory, used when Kind is "file".
	Root string `json:"root"`

	// Bucket and Prefix are used when Kind is "s3".
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
}

// Format of the configuration (file). See below for the defaults.
type ProgramConfig struct {
	// Network is "unix" or "tcp".
	Network string `json:"network"`

	// Address is a socket path (for "unix") or a host:port (for "tcp").
	Address string `json:"address"`

	// MaxConnections bounds concurrently served connections.
	MaxConnections int `json:"max-connections"`

	// BatchDeadlineMs is the per-batch wall-clock budget in milliseconds.
	BatchDeadlineMs int `json:"batch-deadline-ms"`

	// RateLimitPerSec bounds batches/sec per connection; 0 disables it.
	RateLimitPerSec float64 `json:"rate-limit-per-sec"`
	RateBurst       int     `json:"rate-burst"`

	// DBDriver is "sqlite3"; DB is a driver-specific DSN (a filename
	// for sqlite3).
	DBDriver string `json:"db-driver"`
	DB       string `json:"db"`

	// CacheBytes is the budget of the CAS index's read-through query
	// cache, counted in cached rows (see cas.Open), not bytes.
	CacheBytes int `json:"cache-bytes"`

	// Object configures the CAS object layer.
	Object ObjectBackendConfig `json:"object"`

	// Validate is decoded from the config file but no code path reads
	// it: the CAS writes metadata JSON without validating it against
	// the embedded metadata schema.
	Validate bool `json:"validate"`

	// NATSUrl, if not empty, is dialed to publish one message per
	// completed batch to subject hlx.batch.completed.
	NATSUrl string `json:"nats-url"`

	// Drop root permissions once .env was read and the socket was bound.
	User  string `json:"user"`
	Group string `json:"group"`

	// MetricsAddr, if not empty, is where a Prometheus /metrics
	// handler is served (host:port).
	MetricsAddr string `json:"metrics-addr"`
}

// BatchDeadline returns BatchDeadlineMs as a time.Duration.
func (c *ProgramConfig) BatchDeadline() time.Duration {
	return time.Duration(c.BatchDeadlineMs) * time.Millisecond
}
