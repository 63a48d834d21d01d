package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/flanksource/clicky"
	"github.com/flanksource/commons/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flanksource/sdg-cache/internal/cache"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sdg-cache",
	Short: "Persistent cache for OpenAlex works and SDG classifications",
	Long: `sdg-cache stores OpenAlex work metadata and SDG classification results in a
local SQLite file so that repeated runs never fetch or classify the same work twice.

Entries live until they are overwritten; there is no expiry.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cache.Configure(cache.Options{
			Path:        viper.GetString("db"),
			BusyTimeout: time.Duration(viper.GetInt("busy-timeout")) * time.Millisecond,
		})
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sdg-cache.yaml)")
	rootCmd.PersistentFlags().String("db", cache.DefaultPath, "Path to the cache database")
	rootCmd.PersistentFlags().Int("busy-timeout", int(cache.DefaultBusyTimeout.Milliseconds()), "Milliseconds to wait on a locked database")

	_ = viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("busy-timeout", rootCmd.PersistentFlags().Lookup("busy-timeout"))

	clicky.BindAllFlags(rootCmd.PersistentFlags())
	logger.BindFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".sdg-cache")
	}

	viper.SetEnvPrefix("SDG_CACHE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logger.Infof("Using config file: %s", viper.ConfigFileUsed())
	}
}
