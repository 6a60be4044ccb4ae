package main

import (
	"fmt"
	"io"
	"math"
	"math/rand"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/mat"

	"github.com/byu9/fuzzy-forecast/golang/fuzzy_tree/ftl"
	"github.com/byu9/fuzzy-forecast/golang/fuzzy_tree/metrics"
)

//modeCommand builds a subcommand that decodes the --config file into a fresh config and runs it.
func modeCommand[C any, P interface {
	*C
	validator
}](use, short string, run func(config *C, out io.Writer) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := new(C)
			if err := decodeConfig(viper.GetString("config"), P(config)); err != nil {
				return err
			}
			return run(config, cmd.OutOrStdout())
		},
	}
}

var (
	synthCmd    = modeCommand[SynthConfig]("synth", "write a Lorentzian peak data set", synth)
	growCmd     = modeCommand[GrowConfig]("grow", "grow a crisp regression tree", grow)
	tuneCmd     = modeCommand[TuneConfig]("tune", "fuzzify a tree and tune it by gradient descent", tune)
	predictCmd  = modeCommand[PredictConfig]("predict", "write model predictions", predict)
	describeCmd = modeCommand[DescribeConfig]("describe", "print one rule per leaf", describe)
	graphCmd    = modeCommand[GraphConfig]("graph", "render the tree", graph)
	lcurveCmd   = modeCommand[LcurveConfig]("lcurve", "dump train and test learning curves of a tuning run", lcurve)
	reportCmd   = modeCommand[ReportConfig]("report", "print regression metrics of a model", report)
)

//lorentzian is the peak 1/(1+(x/0.1)^2).
func lorentzian(x float64) float64 {
	return 1 / (1 + math.Pow(x/0.1, 2))
}

func synth(config *SynthConfig, _ io.Writer) error {
	rng := rand.New(rand.NewSource(config.Seed))
	features := mat.NewDense(config.Samples, 1, nil)
	target := make([]float64, config.Samples)
	for p := range target {
		x := -1 + 2*float64(p)/float64(config.Samples-1)
		features.Set(p, 0, x)
		target[p] = lorentzian(x) + config.Noise*rng.NormFloat64()
	}
	if err := ftl.WriteNpy(config.FileNameInput, features); err != nil {
		return err
	}
	log.Infof("%d samples written to <%s> and <%s>", config.Samples, config.FileNameInput, config.FileNameTarget)
	return ftl.WriteNpyVector(config.FileNameTarget, target)
}

func grow(config *GrowConfig, _ io.Writer) error {
	log.Println("load train")
	fm, err := config.Train.read(config.FeatureNames)
	if err != nil {
		return err
	}
	model := ftl.NewRegressor(config.params())
	if err := model.Fit(fm); err != nil {
		return err
	}
	return model.Save(config.FileNameModel)
}

//tuneRun loads the model and the data sets of a tuning config.
func tuneRun(config *TuneConfig) (model *ftl.Regressor, train ftl.FMatrix, tests []ftl.FMatrix, err error) {
	if model, err = ftl.LoadModel(config.FileNameModel); err != nil {
		return nil, train, nil, err
	}
	log.Println("load train")
	if train, err = config.Train.read(model.FeatureNames); err != nil {
		return nil, train, nil, err
	}
	for _, testConfig := range config.Tests {
		log.Println("load test", testConfig.Description)
		test, err := testConfig.read(model.FeatureNames)
		if err != nil {
			return nil, train, nil, err
		}
		tests = append(tests, test)
	}
	return model, train, tests, nil
}

func tune(config *TuneConfig, _ io.Writer) error {
	model, train, _, err := tuneRun(config)
	if err != nil {
		return err
	}
	params := config.params()
	params.Progress = progressLogger(config.Iterations)
	history, err := model.Tune(train, params)
	if err != nil {
		return err
	}
	if config.FileNameLossCurve != "" {
		if err := ftl.WriteNpyVector(config.FileNameLossCurve, history); err != nil {
			return err
		}
	}
	return model.Save(config.FileNameTunedModel)
}

func progressLogger(iterations int) func(int, float64) {
	step := max(1, iterations/10)
	return func(iteration int, loss float64) {
		if iteration%step == 0 || iteration == iterations-1 {
			log.Infof("iteration %d/%d: loss %.6g", iteration+1, iterations, loss)
		}
	}
}

//lcurve tunes on the train set and records the loss of every test set at every iteration.
func lcurve(config *LcurveConfig, _ io.Writer) error {
	model, train, tests, err := tuneRun(&config.TuneConfig)
	if err != nil {
		return err
	}

	titles := []string{"train"}
	testHistories := make([][]float64, len(tests))
	for ind, test := range tests {
		title := fmt.Sprintf("test_%d", ind)
		if test.Description != nil {
			title = *test.Description
		}
		titles = append(titles, title)
	}

	params := config.params()
	params.Progress = func(iteration int, loss float64) {
		for ind, test := range tests {
			prediction, err := model.Predict(test.Features)
			value := math.NaN()
			if err == nil {
				value = params.Loss.Value(prediction.RawVector().Data, test.Target.RawVector().Data)
			}
			testHistories[ind] = append(testHistories[ind], value)
		}
	}
	trainHistory, err := model.Tune(train, params)
	if err != nil {
		return err
	}

	dump, err := ftl.NewLearningCurvesDump(titles, append([][]float64{trainHistory}, testHistories...)...)
	if err != nil {
		return err
	}
	if config.FileNameTunedModel != "" {
		if err := model.Save(config.FileNameTunedModel); err != nil {
			return err
		}
	}
	return dump.Save(config.FileNameLearningCurve)
}

func predict(config *PredictConfig, _ io.Writer) error {
	features, err := ftl.ReadNpy(config.FileNameInput)
	if err != nil {
		return err
	}
	model, err := ftl.LoadModel(config.FileNameModel)
	if err != nil {
		return err
	}
	prediction, err := model.Predict(features)
	if err != nil {
		return err
	}
	return ftl.WriteNpyVector(config.FileNamePrediction, prediction.RawVector().Data)
}

func describe(config *DescribeConfig, out io.Writer) error {
	model, err := ftl.LoadModel(config.FileNameModel)
	if err != nil {
		return err
	}
	if len(config.FeatureNames) != 0 {
		if len(config.FeatureNames) != model.Width() {
			return errors.Wrapf(errConfig, "%d feature names for a model with %d features", len(config.FeatureNames), model.Width())
		}
		model.FeatureNames = config.FeatureNames
	}
	description, err := model.Describe()
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, description)
	return err
}

func graph(config *GraphConfig, _ io.Writer) error {
	model, err := ftl.LoadModel(config.FileNameModel)
	if err != nil {
		return err
	}
	format, err := ftl.GraphFormat(config.FigureType)
	if err != nil {
		return err
	}
	return model.RenderFile(config.FileNameFigure, format)
}

func report(config *ReportConfig, out io.Writer) error {
	model, err := ftl.LoadModel(config.FileNameModel)
	if err != nil {
		return err
	}
	for ind, testConfig := range config.Tests {
		test, err := testConfig.read(model.FeatureNames)
		if err != nil {
			return err
		}
		prediction, err := model.Predict(test.Features)
		if err != nil {
			return err
		}
		prefix := testConfig.Description
		if prefix == "" {
			prefix = fmt.Sprintf("test_%d", ind)
		}
		if _, err := io.WriteString(out, metrics.Report(prefix, prediction.RawVector().Data, test.Target.RawVector().Data)); err != nil {
			return err
		}
	}
	return nil
}
