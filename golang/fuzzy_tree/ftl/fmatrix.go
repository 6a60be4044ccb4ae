package ftl

import (
	"math"
	"os"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

//FMatrix contains a training or evaluation data set: a feature matrix and a matching target.
type FMatrix struct {
	Features     *mat.Dense
	Target       *mat.VecDense
	FeatureNames []string
	Description  *string
}

//NewFMatrix builds a data set from row slices.
func NewFMatrix(features [][]float64, target []float64) (FMatrix, error) {
	if len(features) == 0 {
		return FMatrix{}, errors.Wrap(ErrDimensionMismatch, "empty feature matrix")
	}
	w := len(features[0])
	data := make([]float64, 0, len(features)*w)
	for p, row := range features {
		if len(row) != w {
			return FMatrix{}, errors.Wrapf(ErrDimensionMismatch, "row %d has %d columns, expected %d", p, len(row), w)
		}
		data = append(data, row...)
	}
	fm := FMatrix{Features: mat.NewDense(len(features), w, data)}
	if target != nil {
		fm.Target = mat.NewVecDense(len(target), append([]float64(nil), target...))
	}
	return fm, fm.validatedDimensions(target != nil)
}

//SetDescription sets a description for an FMatrix object
func (fm *FMatrix) SetDescription(description string) {
	fm.Description = &description
}

//Height returns the number of rows of a matrix.
func Height(m mat.Matrix) int {
	h, _ := m.Dims()
	return h
}

//validatedDimensions checks the consistency of dimensions in arrays from the current dataset.
func (fm FMatrix) validatedDimensions(needTarget bool) error {
	if fm.Features == nil {
		return errors.Wrap(ErrDimensionMismatch, "missing features")
	}
	h, w := fm.Features.Dims()
	if h == 0 || w == 0 {
		return errors.Wrapf(ErrDimensionMismatch, "empty feature matrix %dx%d", h, w)
	}
	if len(fm.FeatureNames) != 0 && len(fm.FeatureNames) != w {
		return errors.Wrapf(ErrDimensionMismatch, "%d feature names for %d columns", len(fm.FeatureNames), w)
	}
	if fm.Target == nil {
		if needTarget {
			return errors.Wrap(ErrDimensionMismatch, "missing target")
		}
		return nil
	}
	if th := fm.Target.Len(); th != h {
		return errors.Wrapf(ErrDimensionMismatch, "the target height %d is not equal to the features height %d", th, h)
	}
	return nil
}

//validatedFinite rejects NaN and infinite values, the split search needs a total order.
func (fm FMatrix) validatedFinite() error {
	h, w := fm.Features.Dims()
	for p := 0; p < h; p++ {
		for q := 0; q < w; q++ {
			if v := fm.Features.At(p, q); math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.Wrapf(ErrInvalidParameter, "feature %d of row %d is %g", q, p, v)
			}
		}
		if fm.Target != nil {
			if v := fm.Target.AtVec(p); math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.Wrapf(ErrInvalidParameter, "target of row %d is %g", p, v)
			}
		}
	}
	return nil
}

//Split partitions the rows by a crisp gate: rows passing the test go left.
func (fm FMatrix) Split(gate *CrispGate) (left, right FMatrix) {
	h, w := fm.Features.Dims()
	var leftRows, rightRows []int
	for p := 0; p < h; p++ {
		if gate.Test(fm.Features.At(p, gate.FeatureNumber)) {
			leftRows = append(leftRows, p)
		} else {
			rightRows = append(rightRows, p)
		}
	}
	return fm.subset(leftRows, w), fm.subset(rightRows, w)
}

func (fm FMatrix) subset(rows []int, w int) FMatrix {
	out := FMatrix{FeatureNames: fm.FeatureNames}
	if len(rows) == 0 {
		return out
	}
	out.Features = mat.NewDense(len(rows), w, nil)
	out.Target = mat.NewVecDense(len(rows), nil)
	for ind, p := range rows {
		out.Features.SetRow(ind, fm.Features.RawRowView(p))
		out.Target.SetVec(ind, fm.Target.AtVec(p))
	}
	return out
}

//ReadFMatrix reads the features and the target of a data set from npy files.
func ReadFMatrix(fileNameFeatures, fileNameTarget string) (fm FMatrix, err error) {
	log.Infof("\ttry to load features <%s>", fileNameFeatures)
	if fm.Features, err = ReadNpy(fileNameFeatures); err != nil {
		return fm, err
	}
	if fileNameTarget != "" {
		log.Infof("\ttry to load target <%s>", fileNameTarget)
		if fm.Target, err = ReadNpyVector(fileNameTarget); err != nil {
			return fm, err
		}
	}
	return fm, fm.validatedDimensions(fileNameTarget != "")
}

//ReadNpy reads a two dimensional npy file. One dimensional arrays become a single column.
func ReadNpy(fileName string) (*mat.Dense, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open %s", fileName)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "can't read npy header of %s", fileName)
	}

	shape := r.Header.Descr.Shape
	switch len(shape) {
	case 1:
		var data []float64
		if err := r.Read(&data); err != nil {
			return nil, errors.Wrapf(err, "can't read %s", fileName)
		}
		return mat.NewDense(len(data), 1, data), nil
	case 2:
		denseMat := &mat.Dense{}
		if err := r.Read(denseMat); err != nil {
			return nil, errors.Wrapf(err, "can't read %s", fileName)
		}
		return denseMat, nil
	default:
		return nil, errors.Wrapf(ErrDimensionMismatch, "%s has %d dimensions", fileName, len(shape))
	}
}

//ReadNpyVector reads a target vector. Column matrices (n, 1) are accepted as well.
func ReadNpyVector(fileName string) (*mat.VecDense, error) {
	m, err := ReadNpy(fileName)
	if err != nil {
		return nil, err
	}
	if _, w := m.Dims(); w != 1 {
		return nil, errors.Wrapf(ErrDimensionMismatch, "%s has %d columns, expected a vector", fileName, w)
	}
	return mat.VecDenseCopyOf(m.ColView(0)), nil
}

//WriteNpy stores a matrix in an npy file.
func WriteNpy(fileName string, m mat.Matrix) error {
	dst, err := os.Create(fileName)
	if err != nil {
		return errors.Wrapf(err, "can't open file %s to write", fileName)
	}
	if err := npyio.Write(dst, m); err != nil {
		dst.Close()
		return errors.Wrapf(err, "can't write %s", fileName)
	}
	return dst.Close()
}

//WriteNpyVector stores a vector as a one dimensional npy array.
func WriteNpyVector(fileName string, values []float64) error {
	dst, err := os.Create(fileName)
	if err != nil {
		return errors.Wrapf(err, "can't open file %s to write", fileName)
	}
	if err := npyio.Write(dst, values); err != nil {
		dst.Close()
		return errors.Wrapf(err, "can't write %s", fileName)
	}
	return dst.Close()
}
