// SPDX-License-Identifier: Apache-2.0

package main

import (
	"sync"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/byu9/fuzzy-forecast/golang/fuzzy_tree/ftl"
)

var errInvalidHandle = errors.New("invalid model handle")

//floatView views length doubles at ptr. With detach the data is copied into Go memory,
//otherwise writes go straight to the caller's buffer.
func floatView(ptr unsafe.Pointer, length int, detach bool) ([]float64, error) {
	switch {
	case length < 0:
		return nil, errors.Errorf("negative length %d", length)
	case length == 0:
		return nil, nil
	case ptr == nil:
		return nil, errors.New("null pointer for non-empty slice")
	}
	view := unsafe.Slice((*float64)(ptr), length)
	if !detach {
		return view, nil
	}
	return append([]float64(nil), view...), nil
}

//registry hands out integer handles for models owned by the Go side.
type registry struct {
	mu         sync.Mutex
	nextHandle uint64
	models     map[uint64]*ftl.Regressor

	lastErrorMu sync.Mutex
	lastError   string
}

func newRegistry() *registry {
	return &registry{nextHandle: 1, models: make(map[uint64]*ftl.Regressor)}
}

func (r *registry) store(model *ftl.Regressor) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	handle := r.nextHandle
	r.models[handle] = model
	r.nextHandle++
	return handle
}

func (r *registry) fetch(handle uint64) (*ftl.Regressor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	model, ok := r.models[handle]
	if !ok {
		return nil, errors.Wrapf(errInvalidHandle, "handle %d", handle)
	}
	return model, nil
}

func (r *registry) free(handle uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.models, handle)
}

func (r *registry) setLastError(err error) {
	r.lastErrorMu.Lock()
	defer r.lastErrorMu.Unlock()
	if err != nil {
		r.lastError = err.Error()
	} else {
		r.lastError = ""
	}
}

func (r *registry) getLastError() string {
	r.lastErrorMu.Lock()
	defer r.lastErrorMu.Unlock()
	return r.lastError
}

//status records err and maps it to a C return code: 0 on success, code otherwise.
func (r *registry) status(err error, code int) int {
	r.setLastError(err)
	if err != nil {
		return code
	}
	return 0
}

func fit(fm ftl.FMatrix, params ftl.GrowParams) (*ftl.Regressor, error) {
	model := ftl.NewRegressor(params)
	if err := model.Fit(fm); err != nil {
		return nil, err
	}
	return model, nil
}

//tuneParams builds tuning parameters with one optimizer kind for every parameter.
func tuneParams(iterations int, kind string, learningRate float64, heuristic int, confidence, initialGain float64) ftl.TuneParams {
	params := ftl.DefaultTuneParams(iterations, learningRate)
	if kind != "" {
		params.Optimizers.Gain.Kind = kind
		params.Optimizers.Threshold.Kind = kind
		params.Optimizers.Value.Kind = kind
	}
	params.Fuzzify = ftl.FuzzifyParams{Heuristic: ftl.GainHeuristic(heuristic), Confidence: confidence, InitialGain: initialGain}
	return params
}
