// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads and validates cmd/hlxd's process configuration.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/latentcollapse/hlx-core/pkg/schema"
)

// Keys holds the active configuration, populated by Init. It is a
// package-level var in the teacher's own idiom (internal/config.Keys),
// but unlike this module's cas.Store and dispatch.Registry it carries
// no live connections or mutable runtime state — just the parsed,
// read-only shape of the config file — so cmd/hlxd sets it once at
// startup and nothing downstream depends on it being assigned again.
var Keys = defaultKeys()

func defaultKeys() schema.ProgramConfig {
	return schema.ProgramConfig{
		Network:         "unix",
		Address:         "/tmp/hlx_vulkan.sock",
		MaxConnections:  64,
		BatchDeadlineMs: 30000,
		DBDriver:        "sqlite3",
		DB:              "./var/hlx.db",
		CacheBytes:      8 << 20,
		Object: schema.ObjectBackendConfig{
			Kind: "file",
			Root: "./var/cas",
		},
		Validate: false,
	}
}

// Init reads flagConfigFile into Keys, validating it against the
// embedded config schema first and rejecting unknown fields the same
// way the teacher's config.Init does. A missing file is not an error:
// the defaults above are a usable standalone configuration.
func Init(flagConfigFile string) error {
	raw, err := os.ReadFile(flagConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := schema.Validate(schema.Config, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	return nil
}
