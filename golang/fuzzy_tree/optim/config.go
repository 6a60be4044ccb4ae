package optim

import (
	"github.com/pkg/errors"
)

const (
	KindConstant = "constant"
	KindRMSProp  = "rmsprop"
	KindAdam     = "adam"
)

const (
	defaultDecayRate = 0.9
	defaultBeta1     = 0.9
	defaultBeta2     = 0.999
)

//Config describes an optimizer. One Config may produce many independent optimizers.
type Config struct {
	Kind         string  `json:"kind" yaml:"kind" mapstructure:"kind"`
	LearningRate float64 `json:"learning_rate" yaml:"learning_rate" mapstructure:"learning_rate"`

	// DecayRate is used by rmsprop, Beta1 and Beta2 by adam; nil selects the default.
	DecayRate *float64 `json:"decay_rate,omitempty" yaml:"decay_rate,omitempty" mapstructure:"decay_rate"`

	Beta1 *float64 `json:"beta1,omitempty" yaml:"beta1,omitempty" mapstructure:"beta1"`
	Beta2 *float64 `json:"beta2,omitempty" yaml:"beta2,omitempty" mapstructure:"beta2"`
}

//Float is a helper for the optional fields of Config.
func Float(v float64) *float64 {
	return &v
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

//New builds a fresh optimizer described by the config.
func (c Config) New() (Optimizer, error) {
	switch c.Kind {
	case KindConstant, "":
		return NewConstantStep(c.LearningRate)
	case KindRMSProp:
		return NewRMSProp(c.LearningRate, valueOr(c.DecayRate, defaultDecayRate))
	case KindAdam:
		return NewAdam(c.LearningRate, valueOr(c.Beta1, defaultBeta1), valueOr(c.Beta2, defaultBeta2))
	default:
		return nil, errors.Wrapf(ErrInvalidParameter, "unknown optimizer kind %q", c.Kind)
	}
}

//Validate checks the config without keeping the optimizer.
func (c Config) Validate() error {
	_, err := c.New()
	return err
}

//Configs holds one optimizer description per kind of trainable parameter.
type Configs struct {
	Gain      Config `json:"gain" yaml:"gain" mapstructure:"gain"`
	Threshold Config `json:"threshold" yaml:"threshold" mapstructure:"threshold"`
	Value     Config `json:"value" yaml:"value" mapstructure:"value"`
}

//Uniform uses the same config for every parameter kind.
func Uniform(c Config) Configs {
	return Configs{Gain: c, Threshold: c, Value: c}
}
