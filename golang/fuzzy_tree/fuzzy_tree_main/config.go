package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/byu9/fuzzy-forecast/golang/fuzzy_tree/ftl"
	"github.com/byu9/fuzzy-forecast/golang/fuzzy_tree/metrics"
	"github.com/byu9/fuzzy-forecast/golang/fuzzy_tree/optim"
)

var errConfig = errors.New("invalid config")

//validator is implemented by every mode config.
type validator interface {
	Validate() error
}

//defaulter is implemented by configs with default values.
type defaulter interface {
	SetDefaults(v *viper.Viper)
}

//decodeConfig reads a JSON or YAML config file into out and validates it.
func decodeConfig(srcConfig string, out validator) error {
	v := viper.New()
	if d, ok := out.(defaulter); ok {
		d.SetDefaults(v)
	}
	v.SetConfigFile(srcConfig)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "can't read config %s", srcConfig)
	}
	if err := v.Unmarshal(out); err != nil {
		return errors.Wrapf(err, "can't decode config %s", srcConfig)
	}
	return out.Validate()
}

func required(name, value string) error {
	if value == "" {
		return errors.Wrapf(errConfig, "%s is required", name)
	}
	return nil
}

//DataConfig names the npy files of one data set.
type DataConfig struct {
	Description    string `mapstructure:"description"`
	FileNameInput  string `mapstructure:"filename_features"`
	FileNameTarget string `mapstructure:"filename_target"`
}

func (c DataConfig) Validate() error {
	return multierr.Combine(required("filename_features", c.FileNameInput), required("filename_target", c.FileNameTarget))
}

func (c DataConfig) read(featureNames []string) (ftl.FMatrix, error) {
	fm, err := ftl.ReadFMatrix(c.FileNameInput, c.FileNameTarget)
	if err != nil {
		return fm, err
	}
	if c.Description != "" {
		fm.SetDescription(c.Description)
	}
	fm.FeatureNames = featureNames
	return fm, nil
}

type SynthConfig struct {
	Samples        int     `mapstructure:"samples"`
	Noise          float64 `mapstructure:"noise"`
	Seed           int64   `mapstructure:"seed"`
	FileNameInput  string  `mapstructure:"filename_features"`
	FileNameTarget string  `mapstructure:"filename_target"`
}

func (c *SynthConfig) SetDefaults(v *viper.Viper) {
	v.SetDefault("samples", 201)
	v.SetDefault("seed", 1)
}

func (c SynthConfig) Validate() error {
	var err error
	if c.Samples < 2 {
		err = multierr.Append(err, errors.Wrapf(errConfig, "samples %d must be at least 2", c.Samples))
	}
	if c.Noise < 0 {
		err = multierr.Append(err, errors.Wrapf(errConfig, "noise %g must not be negative", c.Noise))
	}
	return multierr.Combine(err, required("filename_features", c.FileNameInput), required("filename_target", c.FileNameTarget))
}

type GrowConfig struct {
	Train               DataConfig `mapstructure:"train"`
	FeatureNames        []string   `mapstructure:"feature_names"`
	FileNameModel       string     `mapstructure:"filename_model"`
	MinSamples          int        `mapstructure:"min_samples"`
	MinImpurityDecrease float64    `mapstructure:"min_impurity_decrease"`
	Impurity            string     `mapstructure:"impurity"`
	ThreadsNum          int        `mapstructure:"threads_num"`
}

func (c *GrowConfig) SetDefaults(v *viper.Viper) {
	v.SetDefault("min_samples", 5)
	v.SetDefault("threads_num", 1)
}

func (c GrowConfig) impurity() (metrics.Impurity, error) {
	switch c.Impurity {
	case "", "sse":
		return metrics.SumOfSquaredError, nil
	case "mse":
		return metrics.MeanSquaredErrorImpurity, nil
	}
	return nil, errors.Wrapf(errConfig, "unknown impurity %q", c.Impurity)
}

func (c GrowConfig) Validate() error {
	var err error
	if c.MinSamples < 1 {
		err = multierr.Append(err, errors.Wrapf(errConfig, "min_samples %d must be at least 1", c.MinSamples))
	}
	if c.MinImpurityDecrease < 0 {
		err = multierr.Append(err, errors.Wrapf(errConfig, "min_impurity_decrease %g must not be negative", c.MinImpurityDecrease))
	}
	_, impurityErr := c.impurity()
	return multierr.Combine(err, impurityErr, c.Train.Validate(), required("filename_model", c.FileNameModel))
}

func (c GrowConfig) params() ftl.GrowParams {
	impurity, _ := c.impurity()
	return ftl.GrowParams{
		MinSamples:          c.MinSamples,
		MinImpurityDecrease: c.MinImpurityDecrease,
		Impurity:            impurity,
		ThreadsNum:          c.ThreadsNum,
	}
}

type TuneConfig struct {
	Train              DataConfig    `mapstructure:"train"`
	Tests              []DataConfig  `mapstructure:"tests"`
	FileNameModel      string        `mapstructure:"filename_model"`
	FileNameTunedModel string        `mapstructure:"filename_tuned_model"`
	FileNameLossCurve  string        `mapstructure:"filename_loss_curve"`
	Iterations         int           `mapstructure:"iterations"`
	GainHeuristic      string        `mapstructure:"gain_heuristic"`
	Confidence         float64       `mapstructure:"confidence"`
	InitialGain        float64       `mapstructure:"initial_gain"`
	Optimizers         optim.Configs `mapstructure:"optimizers"`
}

func (c *TuneConfig) SetDefaults(v *viper.Viper) {
	v.SetDefault("iterations", 1000)
	v.SetDefault("gain_heuristic", ftl.GainFromMargin.String())
	v.SetDefault("confidence", ftl.DefaultFuzzifyParams().Confidence)
	for _, kind := range []string{"gain", "threshold", "value"} {
		v.SetDefault("optimizers."+kind+".kind", optim.KindAdam)
		v.SetDefault("optimizers."+kind+".learning_rate", 0.01)
	}
}

func (c TuneConfig) fuzzifyParams() (ftl.FuzzifyParams, error) {
	heuristic, err := ftl.ParseGainHeuristic(c.GainHeuristic)
	return ftl.FuzzifyParams{Heuristic: heuristic, Confidence: c.Confidence, InitialGain: c.InitialGain}, err
}

func (c TuneConfig) Validate() error {
	var err error
	if c.Iterations < 0 {
		err = multierr.Append(err, errors.Wrapf(errConfig, "iterations %d must not be negative", c.Iterations))
	}
	for ind, test := range c.Tests {
		err = multierr.Append(err, errors.Wrapf(test.Validate(), "tests[%d]", ind))
	}
	_, fuzzifyErr := c.fuzzifyParams()
	return multierr.Combine(err, fuzzifyErr,
		c.Train.Validate(),
		required("filename_model", c.FileNameModel),
		required("filename_tuned_model", c.FileNameTunedModel),
		errors.Wrap(c.Optimizers.Gain.Validate(), "gain optimizer"),
		errors.Wrap(c.Optimizers.Threshold.Validate(), "threshold optimizer"),
		errors.Wrap(c.Optimizers.Value.Validate(), "value optimizer"),
	)
}

func (c TuneConfig) params() ftl.TuneParams {
	fuzzify, _ := c.fuzzifyParams()
	return ftl.TuneParams{
		Iterations: c.Iterations,
		Loss:       metrics.MSE{},
		Optimizers: c.Optimizers,
		Fuzzify:    fuzzify,
	}
}

type PredictConfig struct {
	FileNameInput      string `mapstructure:"filename_features"`
	FileNameModel      string `mapstructure:"filename_model"`
	FileNamePrediction string `mapstructure:"filename_prediction"`
}

func (c PredictConfig) Validate() error {
	return multierr.Combine(
		required("filename_features", c.FileNameInput),
		required("filename_model", c.FileNameModel),
		required("filename_prediction", c.FileNamePrediction),
	)
}

type DescribeConfig struct {
	FileNameModel string   `mapstructure:"filename_model"`
	FeatureNames  []string `mapstructure:"feature_names"`
}

func (c DescribeConfig) Validate() error {
	return required("filename_model", c.FileNameModel)
}

type GraphConfig struct {
	FileNameModel  string `mapstructure:"filename_model"`
	FigureType     string `mapstructure:"figure_type"`
	FileNameFigure string `mapstructure:"filename_figure"`
}

func (c GraphConfig) Validate() error {
	_, err := ftl.GraphFormat(c.FigureType)
	return multierr.Combine(err, required("filename_model", c.FileNameModel), required("filename_figure", c.FileNameFigure))
}

type LcurveConfig struct {
	TuneConfig            `mapstructure:",squash"`
	FileNameLearningCurve string `mapstructure:"filename_learning_curve"`
}

func (c LcurveConfig) Validate() error {
	return multierr.Combine(c.TuneConfig.Validate(), required("filename_learning_curve", c.FileNameLearningCurve))
}

type ReportConfig struct {
	FileNameModel string       `mapstructure:"filename_model"`
	Tests         []DataConfig `mapstructure:"tests"`
}

func (c ReportConfig) Validate() error {
	err := required("filename_model", c.FileNameModel)
	if len(c.Tests) == 0 {
		err = multierr.Append(err, errors.Wrap(errConfig, "at least one test set is required"))
	}
	for ind, test := range c.Tests {
		err = multierr.Append(err, errors.Wrapf(test.Validate(), "tests[%d]", ind))
	}
	return err
}
