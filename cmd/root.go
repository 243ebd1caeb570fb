package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sessionprobe/internal/banner"
)

var (
	cfgFile string
	target  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sessionprobe",
	Short: "sessionprobe - session service diagnostic harness",
	Long: `
sessionprobe exercises a remote session service over gRPC and tells you
what is wrong with it.

Probes:
  diagnose    latency/error/concurrency probes plus a root-cause verdict
  scenario    deterministic session lifecycle checks
  stress      concurrent multi-client session churn
  contention  shared-uid and rapid create/delete contention probes
  leak        long-horizon growth probe`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	},
}

func Execute() {
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sessionprobe.yaml)")
	rootCmd.PersistentFlags().StringVarP(&target, "target", "t", "localhost:50051", "session service address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	viper.BindPFlag("target", rootCmd.PersistentFlags().Lookup("target"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".sessionprobe")
		}
	}
	viper.AutomaticEnv()
	viper.ReadInConfig()
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func resolveTarget() string {
	return viper.GetString("target")
}
