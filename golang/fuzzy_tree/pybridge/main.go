// SPDX-License-Identifier: Apache-2.0

package main

/*
#cgo CFLAGS: -I.
#include <stdlib.h>
*/
import "C"

import (
	"io"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/byu9/fuzzy-forecast/golang/fuzzy_tree/ftl"
)

var (
	models         = newRegistry()
	logSilenceOnce sync.Once
)

func silenceLogs() {
	logSilenceOnce.Do(func() {
		logrus.SetOutput(io.Discard)
	})
}

func floatSlice(ptr *C.double, length int, detach bool) ([]float64, error) {
	return floatView(unsafe.Pointer(ptr), length, detach)
}

func buildDense(ptr *C.double, rows, cols C.int) (*mat.Dense, error) {
	r, c := int(rows), int(cols)
	if r <= 0 || c <= 0 {
		return nil, errors.Wrapf(ftl.ErrDimensionMismatch, "invalid matrix dimensions %dx%d", r, c)
	}
	data, err := floatSlice(ptr, r*c, true)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(r, c, data), nil
}

func buildFMatrix(featuresPtr *C.double, rows, cols C.int, targetPtr *C.double) (ftl.FMatrix, error) {
	features, err := buildDense(featuresPtr, rows, cols)
	if err != nil {
		return ftl.FMatrix{}, err
	}
	target, err := floatSlice(targetPtr, int(rows), true)
	if err != nil {
		return ftl.FMatrix{}, err
	}
	return ftl.FMatrix{Features: features, Target: mat.NewVecDense(int(rows), target)}, nil
}

//export FitModel
func FitModel(
	featuresPtr *C.double,
	rows C.int,
	cols C.int,
	targetPtr *C.double,
	minSamples C.int,
	minImpurityDecrease C.double,
	threadsNum C.int,
) C.ulonglong {
	models.setLastError(nil)
	silenceLogs()

	fm, err := buildFMatrix(featuresPtr, rows, cols, targetPtr)
	if err != nil {
		models.setLastError(err)
		return 0
	}
	model, err := fit(fm, ftl.GrowParams{
		MinSamples:          int(minSamples),
		MinImpurityDecrease: float64(minImpurityDecrease),
		ThreadsNum:          max(1, int(threadsNum)),
	})
	if err != nil {
		models.setLastError(err)
		return 0
	}
	return C.ulonglong(models.store(model))
}

//export FuzzifyModel
func FuzzifyModel(handle C.ulonglong, heuristic C.int, confidence, initialGain C.double) C.int {
	model, err := models.fetch(uint64(handle))
	if err != nil {
		return C.int(models.status(err, 1))
	}
	err = model.Fuzzify(ftl.FuzzifyParams{
		Heuristic:   ftl.GainHeuristic(heuristic),
		Confidence:  float64(confidence),
		InitialGain: float64(initialGain),
	})
	return C.int(models.status(err, 2))
}

//export TuneModel
func TuneModel(
	handle C.ulonglong,
	featuresPtr *C.double,
	rows C.int,
	cols C.int,
	targetPtr *C.double,
	iterations C.int,
	optimizerKind *C.char,
	learningRate C.double,
	heuristic C.int,
	confidence C.double,
	initialGain C.double,
	lossHistoryPtr *C.double,
) C.int {
	model, err := models.fetch(uint64(handle))
	if err != nil {
		return C.int(models.status(err, 1))
	}
	fm, err := buildFMatrix(featuresPtr, rows, cols, targetPtr)
	if err != nil {
		return C.int(models.status(err, 2))
	}

	kind := ""
	if optimizerKind != nil {
		kind = C.GoString(optimizerKind)
	}
	history, err := model.Tune(fm, tuneParams(int(iterations), kind, float64(learningRate), int(heuristic), float64(confidence), float64(initialGain)))
	if err != nil {
		return C.int(models.status(err, 3))
	}

	if lossHistoryPtr != nil {
		out, err := floatSlice(lossHistoryPtr, len(history), false)
		if err != nil {
			return C.int(models.status(err, 4))
		}
		copy(out, history)
	}
	return C.int(models.status(nil, 0))
}

//export Predict
func Predict(handle C.ulonglong, featuresPtr *C.double, rows C.int, cols C.int, outputPtr *C.double) C.int {
	model, err := models.fetch(uint64(handle))
	if err != nil {
		return C.int(models.status(err, 1))
	}
	features, err := buildDense(featuresPtr, rows, cols)
	if err != nil {
		return C.int(models.status(err, 2))
	}
	prediction, err := model.Predict(features)
	if err != nil {
		return C.int(models.status(err, 3))
	}
	out, err := floatSlice(outputPtr, int(rows), false)
	if err != nil {
		return C.int(models.status(err, 4))
	}
	copy(out, prediction.RawVector().Data)
	return C.int(models.status(nil, 0))
}

//export SaveModel
func SaveModel(handle C.ulonglong, path *C.char) C.int {
	model, err := models.fetch(uint64(handle))
	if err != nil {
		return C.int(models.status(err, 1))
	}
	return C.int(models.status(model.Save(C.GoString(path)), 2))
}

//export LoadModel
func LoadModel(path *C.char) C.ulonglong {
	silenceLogs()
	model, err := ftl.LoadModel(C.GoString(path))
	if err != nil {
		models.setLastError(err)
		return 0
	}
	models.setLastError(nil)
	return C.ulonglong(models.store(model))
}

//export RenderTree
func RenderTree(handle C.ulonglong, path, figureType *C.char) C.int {
	model, err := models.fetch(uint64(handle))
	if err != nil {
		return C.int(models.status(err, 1))
	}
	goFigureType := C.GoString(figureType)
	if goFigureType == "" {
		goFigureType = "svg"
	}
	format, err := ftl.GraphFormat(goFigureType)
	if err != nil {
		return C.int(models.status(err, 2))
	}
	return C.int(models.status(model.RenderFile(C.GoString(path), format), 3))
}

//export DescribeModel
func DescribeModel(handle C.ulonglong) *C.char {
	model, err := models.fetch(uint64(handle))
	if err != nil {
		models.setLastError(err)
		return nil
	}
	description, err := model.Describe()
	if err != nil {
		models.setLastError(err)
		return nil
	}
	models.setLastError(nil)
	return C.CString(description)
}

//export FreeModel
func FreeModel(handle C.ulonglong) {
	models.free(uint64(handle))
}

//export GetLastError
func GetLastError() *C.char {
	errStr := models.getLastError()
	if errStr == "" {
		return nil
	}
	return C.CString(errStr)
}

//export FreeCString
func FreeCString(str *C.char) {
	if str != nil {
		C.free(unsafe.Pointer(str))
	}
}

func main() {}
