// Copyright 2026 The Lingua Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lingua-ml/lingua/pkg/lingua/lib/logging"
	"github.com/lingua-ml/lingua/pkg/lingua/lib/paths"
)

var (
	cfgFile string
	Version string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "lingua",
	Short: "Translate large text files with ONNX seq2seq models",
	Long: `Translate line-oriented text files through an encoder-decoder
translation model, streaming the input so files of any size fit in memory
and shrinking the batch size automatically when the accelerator runs out
of memory.

Examples:
  # Translate a file from English to German
  lingua translate --sentences-path in.txt --output-path out/out.txt \
    --source-lang en --target-lang de --model ~/.lingua/models/m2m100

  # Score translations against references
  lingua eval --predictions-path out/out.txt --references-path refs.txt`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.Version = Version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "config file path (e.g. lingua.yaml)")
	rootCmd.PersistentFlags().
		String("log-level", "info", "set the logging level (e.g. debug, info, warn, error)")
	rootCmd.PersistentFlags().
		String("log-style", "terminal", "set the logging output style (terminal, json, noop)")

	mustBindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	mustBindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	mustBindPFlag("log.style", rootCmd.PersistentFlags().Lookup("log-style"))

	viper.SetDefault("models_dir", paths.DefaultModelsDir())
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.style", "terminal")
}

func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", key, err))
	}
}

// newLogger builds the command logger from viper config.
func newLogger() *logging.Config {
	return &logging.Config{
		Level: logging.Level(viper.GetString("log.level")),
		Style: logging.Style(viper.GetString("log.style")),
	}
}

// initConfig reads in the .env file, config file and environment variables.
func initConfig() {
	// A local .env can carry LINGUA_* variables for development setups.
	_ = godotenv.Load()

	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err != nil {
			fmt.Fprintf(os.Stderr, "Config file not found: %s\n", cfgFile)
			os.Exit(1)
		}
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigName(".lingua")
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("lingua")
	}

	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("LINGUA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		// Only error if the user explicitly specified a config file.
		fmt.Fprintf(os.Stderr, "Error reading config file [%s]: %v\n", viper.ConfigFileUsed(), err)
		os.Exit(1)
	}
}
