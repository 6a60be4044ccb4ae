package main

import (
	"os"
	"runtime"
	"runtime/pprof"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var rootCmd = &cobra.Command{
	Use:   "fuzzy_tree",
	Short: "fuzzy regression trees",
	Long:  "grow crisp regression trees, fuzzify them and tune them by gradient descent",

	// SilenceUsage is an option to silence usage when an error occurs.
	SilenceUsage: true,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if viper.GetBool("debug") {
			log.SetLevel(log.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "debug flag")
	rootCmd.PersistentFlags().String("config", "fuzzy_config.json", "a config file for the run of the program")
	rootCmd.PersistentFlags().String("memprofile", "", "write memory profile to `file`")

	rootCmd.AddCommand(synthCmd, growCmd, tuneCmd, predictCmd, describeCmd, graphCmd, lcurveCmd, reportCmd)
}

func writeMemProfile(fileName string) error {
	f, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer f.Close()
	runtime.GC()
	return pprof.WriteHeapProfile(f)
}

func main() {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.SetEnvPrefix("fuzzy_tree")
	viper.AutomaticEnv()

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		log.WithError(err).Errorf("failed to bind persistent flags. please check the flag settings.")
	}

	log.SetFormatter(&prefixed.TextFormatter{})

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Fatalf("cannot execute command")
	}

	if memprofile := viper.GetString("memprofile"); memprofile != "" {
		if err := writeMemProfile(memprofile); err != nil {
			log.WithError(err).Fatal("could not write memory profile")
		}
	}
}
