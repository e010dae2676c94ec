// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package dispatch implements the dispatch shell of spec.md §4.8: a
// process-wide, read-after-startup registry mapping contract_id to a
// handler, and the per-batch evaluation loop of §4.7 that resolves
// ChainRef parameters and visits instructions in strict order.
package dispatch

import (
	"context"
	"sync"

	"github.com/latentcollapse/hlx-core/internal/batch"
	"github.com/latentcollapse/hlx-core/internal/errs"
	"github.com/latentcollapse/hlx-core/internal/value"
)

// ParamSpec declares one expected named parameter of a handler.
type ParamSpec struct {
	Name string
	Kind value.Kind
}

// Handler is the pure per-instruction evaluation function. It receives
// a fully-resolved parameter environment (ChainRef already substituted)
// and returns one Result. Side effects belong to the handler.
type Handler func(ctx context.Context, params map[string]value.Value) (batch.Result, error)

// HandlerSpec pairs a Handler with the parameter shape the dispatcher
// validates before invoking it.
type HandlerSpec struct {
	Params []ParamSpec
	Fn     Handler
}

// Registry is the process-wide contract_id → HandlerSpec map of
// spec.md §4.8. It is populated once at startup by cmd/hlxd and is
// safe for concurrent reads thereafter; Register after the hot path
// has started is still supported (guarded by a mutex) but is not the
// intended usage.
type Registry struct {
	mu       sync.RWMutex
	handlers map[uint32]HandlerSpec
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[uint32]HandlerSpec)}
}

// Register adds spec under contractID. Re-registering an id overwrites
// the previous handler; cmd/hlxd registers each id once.
func (r *Registry) Register(contractID uint32, spec HandlerSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[contractID] = spec
}

func (r *Registry) lookup(contractID uint32) (HandlerSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.handlers[contractID]
	return spec, ok
}

// validateParams checks that instr supplies every parameter
// spec.Params declares, each with the declared kind, per spec.md §4.8:
// "the dispatcher validates names and kinds before invoking."
// Supplied parameters that spec.Params does not declare are not
// rejected; they are passed to the handler unchecked.
func validateParams(spec HandlerSpec, supplied map[string]value.Value) error {
	for _, want := range spec.Params {
		got, ok := supplied[want.Name]
		if !ok {
			return errs.New(errs.ParamMissing, "missing parameter %q", want.Name)
		}
		if got.Kind != want.Kind {
			return errs.New(errs.ParamTypeMismatch, "parameter %q: expected %v, got %v", want.Name, want.Kind, got.Kind)
		}
	}
	return nil
}
