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

// Command lingua translates text files with seq2seq models and scores the
// results against reference translations.
package main

import "github.com/lingua-ml/lingua/pkg/lingua/cmd/cmd"

func main() {
	cmd.Execute()
}
