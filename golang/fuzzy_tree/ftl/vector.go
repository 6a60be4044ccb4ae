package ftl

import "gonum.org/v1/gonum/mat"

func vecData(v mat.Vector) []float64 {
	data := make([]float64, v.Len())
	for p := range data {
		data[p] = v.AtVec(p)
	}
	return data
}

func ones(n int) *mat.VecDense {
	v := mat.NewVecDense(n, nil)
	for p := 0; p < n; p++ {
		v.SetVec(p, 1)
	}
	return v
}
