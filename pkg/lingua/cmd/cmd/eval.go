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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lingua-ml/lingua/pkg/lingua/lib/dataset"
	"github.com/lingua-ml/lingua/pkg/lingua/lib/logging"
	"github.com/lingua-ml/lingua/pkg/lingua/lib/scoring"
)

var (
	predictionsPath string
	referencesPath  string
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Score translations against reference translations",
	Long: `Compare --predictions-path against --references-path line by line and
report corpus-level exact-match rate and character n-gram F-score.

Both files must contain the same number of lines.`,
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVar(&predictionsPath, "predictions-path", "",
		"path to a txt file containing the translations to score, one per line")
	evalCmd.Flags().StringVar(&referencesPath, "references-path", "",
		"path to a txt file containing the reference translations, one per line")

	for _, required := range []string{"predictions-path", "references-path"} {
		cobra.CheckErr(evalCmd.MarkFlagRequired(required))
	}
}

// pairAdapter exposes a dataset.ParallelReader as a scoring.PairSource.
type pairAdapter struct {
	reader *dataset.ParallelReader
}

func (a pairAdapter) Next() (string, []string, error) {
	pair, err := a.reader.Next()
	if err != nil {
		return "", nil, err
	}
	return pair.Prediction, pair.References, nil
}

func runEval(cmd *cobra.Command, args []string) error {
	logger := logging.NewLogger(newLogger())
	defer func() {
		_ = logger.Sync()
	}()

	reader, err := dataset.NewParallelReader(predictionsPath, referencesPath, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = reader.Close()
	}()

	logger.Info("scoring translations",
		zap.String("predictions", predictionsPath),
		zap.String("references", referencesPath),
		zap.Int("pairs", reader.Len()))

	result, err := scoring.Score(pairAdapter{reader: reader})
	if err != nil {
		return err
	}

	fmt.Printf("pairs:       %d\n", result.Pairs)
	fmt.Printf("exact match: %.4f\n", result.ExactMatch)
	fmt.Printf("chrF:        %.4f\n", result.ChrF)
	return nil
}
