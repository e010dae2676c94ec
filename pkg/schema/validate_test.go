// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schema

import (
	"bytes"
	"testing"
)

func TestValidateConfig(t *testing.T) {
	json := []byte(`{
		"network": "unix",
		"address": "/tmp/hlx_vulkan.sock",
		"db-driver": "sqlite3",
		"db": "./var/hlx.db",
		"object": { "kind": "file", "root": "./var/cas" }
	}`)

	if err := Validate(Config, bytes.NewReader(json)); err != nil {
		t.Errorf("Error is not nil! %v", err)
	}
}

func TestValidateConfigRejectsUnknownNetwork(t *testing.T) {
	json := []byte(`{
		"network": "pigeon",
		"address": "/tmp/hlx_vulkan.sock",
		"db-driver": "sqlite3",
		"db": "./var/hlx.db",
		"object": { "kind": "file", "root": "./var/cas" }
	}`)

	if err := Validate(Config, bytes.NewReader(json)); err == nil {
		t.Errorf("expected validation error for unknown network")
	}
}

func TestValidateMetadata(t *testing.T) {
	json := []byte(`{
		"bindings": [{"set": 0, "binding": 1, "kind": "uniform"}],
		"tags": ["postprocess", "bloom"]
	}`)

	if err := Validate(Metadata, bytes.NewReader(json)); err != nil {
		t.Errorf("Error is not nil! %v", err)
	}
}

func TestValidateMetadataAllowsEmpty(t *testing.T) {
	if err := Validate(Metadata, bytes.NewReader([]byte(`{}`))); err != nil {
		t.Errorf("Error is not nil! %v", err)
	}
}
