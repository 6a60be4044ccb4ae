package ftl

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/byu9/fuzzy-forecast/golang/fuzzy_tree/optim"
)

var log = logrus.WithField("component", "ftl")

var (
	// ErrNotFitted is returned when a model is used before a tree was grown.
	ErrNotFitted = errors.New("model is not fitted")

	// ErrStaleState is returned when a backward pass does not match the current model state.
	ErrStaleState = errors.New("stale forward pass")

	// ErrDimensionMismatch is returned when row or column counts disagree.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInvalidParameter is shared with the optimizers.
	ErrInvalidParameter = optim.ErrInvalidParameter
)
