// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInit(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(fp, []byte(`{
		"network": "tcp",
		"address": "127.0.0.1:9090",
		"db-driver": "sqlite3",
		"db": "./var/hlx.db",
		"object": { "kind": "file", "root": "./var/cas" },
		"validate": true
	}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Init(fp); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if Keys.Network != "tcp" || Keys.Address != "127.0.0.1:9090" {
		t.Errorf("wrong address\ngot: %s %s", Keys.Network, Keys.Address)
	}
	if !Keys.Validate {
		t.Errorf("expected Validate to be true")
	}
}

func TestInitMissingFileKeepsDefaults(t *testing.T) {
	Keys = defaultKeys()
	if err := Init(filepath.Join(t.TempDir(), "does-not-exist.json")); err != nil {
		t.Fatalf("Init on missing file should not error: %v", err)
	}
	if Keys.Network != "unix" {
		t.Errorf("expected defaults to survive a missing config file")
	}
}

func TestInitRejectsUnknownField(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(fp, []byte(`{
		"network": "unix",
		"address": "/tmp/hlx.sock",
		"db-driver": "sqlite3",
		"db": "./var/hlx.db",
		"object": { "kind": "file", "root": "./var/cas" },
		"typo-field": true
	}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Init(fp); err == nil {
		t.Errorf("expected an error for an unknown config field")
	}
}
