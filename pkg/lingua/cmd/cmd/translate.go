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
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lingua-ml/lingua/pkg/lingua/lib/backends"
	"github.com/lingua-ml/lingua/pkg/lingua/lib/coordinator"
	"github.com/lingua-ml/lingua/pkg/lingua/lib/logging"
	"github.com/lingua-ml/lingua/pkg/lingua/lib/seq2seq"
	"github.com/lingua-ml/lingua/pkg/lingua/lib/tokenizers"
	"github.com/lingua-ml/lingua/pkg/lingua/lib/translator"
)

var (
	sentencesPath     string
	outputPath        string
	sourceLang        string
	targetLang        string
	startingBatchSize int
	modelFlag         string
	cacheDir          string
	maxLength         int
	numBeams          int
	precisionFlag     string
	padToMaxLength    bool
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate a text file, one sentence per line",
	Long: `Translate every line of --sentences-path into --target-lang and write
the results to --output-path in input order, one translation per line.

The starting batch size is halved automatically whenever the accelerator
reports an out-of-memory condition; the pass restarts from the first line
so the output is always complete and ordered.`,
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVar(&sentencesPath, "sentences-path", "",
		"path to a txt file containing the sentences to translate, one per line")
	translateCmd.Flags().StringVar(&outputPath, "output-path", "",
		"path to the txt file where translated sentences will be written")
	translateCmd.Flags().StringVar(&sourceLang, "source-lang", "",
		"source language id (e.g. en)")
	translateCmd.Flags().StringVar(&targetLang, "target-lang", "",
		"target language id (e.g. de)")
	translateCmd.Flags().IntVar(&startingBatchSize, "starting-batch-size", 128,
		"starting batch size, automatically reduced on out-of-memory errors")
	translateCmd.Flags().StringVar(&modelFlag, "model", "",
		"model directory, or a model name resolved under --cache-dir")
	translateCmd.Flags().StringVar(&cacheDir, "cache-dir", "",
		"directory holding downloaded models (default ~/.lingua/models)")
	translateCmd.Flags().IntVar(&maxLength, "max-length", 128,
		"maximum tokens in a source sentence and in a generated sentence")
	translateCmd.Flags().IntVar(&numBeams, "num-beams", 5,
		"number of beams for beam search")
	translateCmd.Flags().StringVar(&precisionFlag, "precision", "32",
		"model precision: 32, fp16 or bf16")
	translateCmd.Flags().BoolVar(&padToMaxLength, "pad-to-max-length", false,
		"pad every batch to max-length instead of dynamically (fixed-shape backends)")

	for _, required := range []string{"sentences-path", "output-path", "source-lang", "target-lang", "model"} {
		cobra.CheckErr(translateCmd.MarkFlagRequired(required))
	}
}

func runTranslate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logging.NewLogger(newLogger())
	defer func() {
		_ = logger.Sync()
	}()

	// Invalid precision is a configuration error; fail before loading anything.
	precision, err := backends.ParsePrecision(precisionFlag)
	if err != nil {
		return err
	}

	factory, err := backends.NewSessionFactory()
	if err != nil {
		return err
	}

	modelDir, err := resolveModelDir(modelFlag, cacheDir)
	if err != nil {
		return err
	}

	logger.Info("loading model", zap.String("model", modelDir))
	model, err := seq2seq.LoadModel(modelDir, factory, backends.WithPrecision(precision))
	if err != nil {
		return err
	}
	defer func() {
		_ = model.Close()
	}()

	logger.Info("loading tokenizer", zap.String("model", modelDir))
	codec, err := tokenizers.LoadCodec(modelDir)
	if err != nil {
		return err
	}

	// Multilingual models mark both sides: the source marker is prepended to
	// every encoded sentence, the target marker is forced as the first
	// generated token.
	forcedBOS, err := model.Config().LangTokenID(targetLang)
	if err != nil {
		return err
	}
	if srcID, err := model.Config().LangTokenID(sourceLang); err == nil {
		codec = tokenizers.WithSourcePrefix(codec, srcID)
	} else {
		logger.Debug("no source language marker, encoding without prefix",
			zap.String("source_lang", sourceLang))
	}

	driver, err := translator.New(translator.Config{
		SentencesPath:     sentencesPath,
		OutputPath:        outputPath,
		StartingBatchSize: startingBatchSize,
		MaxLength:         maxLength,
		NumBeams:          numBeams,
		ForcedBOS:         forcedBOS,
		PadToMaxLength:    padToMaxLength,
	}, codec, model, coordinator.Local{}, logger)
	if err != nil {
		return err
	}

	if err := driver.Run(ctx); err != nil {
		return err
	}

	fmt.Println("Translation done.")
	return nil
}

// resolveModelDir accepts either a directory path or a model name looked up
// under the cache directory. Names with a namespace separator (e.g.
// "facebook/m2m100_418M") map to nested cache subdirectories.
func resolveModelDir(model, cache string) (string, error) {
	if info, err := os.Stat(model); err == nil && info.IsDir() {
		return model, nil
	}
	if cache == "" {
		cache = viper.GetString("models_dir")
	}
	candidate := filepath.Join(cache, filepath.FromSlash(model))
	if info, err := os.Stat(candidate); err == nil && info.IsDir() {
		return candidate, nil
	}
	return "", fmt.Errorf("model %q not found (looked in %s)", model, candidate)
}
