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

//go:build onnx

package backends

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// onnx runtime environment is process-global and initialized once.
var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// NewSessionFactory returns the ONNX Runtime session factory.
//
// Runtime requirements:
//   - Set LD_LIBRARY_PATH (or ONNXRUNTIME_ROOT) so libonnxruntime can be found.
//   - For CUDA: include /usr/local/cuda/lib64 on LD_LIBRARY_PATH as well.
func NewSessionFactory() (SessionFactory, error) {
	ortInitOnce.Do(func() {
		if libDir := onnxLibraryDir(); libDir != "" {
			ort.SetSharedLibraryPath(filepath.Join(libDir, onnxLibraryName()))
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("initializing ONNX Runtime: %w", ortInitErr)
	}
	return &onnxSessionFactory{}, nil
}

type onnxSessionFactory struct{}

func (f *onnxSessionFactory) Backend() BackendType {
	return BackendONNX
}

// CreateSession loads the graph at path. Precision is resolved upstream by
// graph-file selection (PrecisionOf); the session runs the file it is given.
func (f *onnxSessionFactory) CreateSession(path string, opts ...SessionOption) (Session, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("reading model metadata from %s: %w", path, err)
	}

	inputNames := make([]string, len(inputs))
	inputInfo := make([]TensorInfo, len(inputs))
	for i, info := range inputs {
		inputNames[i] = info.Name
		inputInfo[i] = TensorInfo{Name: info.Name, Shape: info.Dimensions}
	}
	outputNames := make([]string, len(outputs))
	for i, info := range outputs {
		outputNames[i] = info.Name
	}

	session, err := ort.NewDynamicAdvancedSession(path, inputNames, outputNames, nil)
	if err != nil {
		return nil, fmt.Errorf("creating session for %s: %w", path, err)
	}

	return &onnxSession{
		session:     session,
		inputInfo:   inputInfo,
		outputNames: outputNames,
	}, nil
}

type onnxSession struct {
	session     *ort.DynamicAdvancedSession
	inputInfo   []TensorInfo
	outputNames []string
}

func (s *onnxSession) InputInfo() []TensorInfo {
	return s.inputInfo
}

func (s *onnxSession) Run(inputs []NamedTensor) ([]NamedTensor, error) {
	ortInputs := make([]ort.Value, len(inputs))
	defer func() {
		for _, v := range ortInputs {
			if v != nil {
				_ = v.Destroy()
			}
		}
	}()

	for i, input := range inputs {
		value, err := newOrtTensor(input)
		if err != nil {
			return nil, fmt.Errorf("building input %s: %w", input.Name, err)
		}
		ortInputs[i] = value
	}

	// Outputs are allocated by the runtime.
	ortOutputs := make([]ort.Value, len(s.outputNames))
	if err := s.session.Run(ortInputs, ortOutputs); err != nil {
		return nil, fmt.Errorf("running session: %w", err)
	}
	defer func() {
		for _, v := range ortOutputs {
			if v != nil {
				_ = v.Destroy()
			}
		}
	}()

	results := make([]NamedTensor, len(ortOutputs))
	for i, out := range ortOutputs {
		tensor, err := fromOrtValue(s.outputNames[i], out)
		if err != nil {
			return nil, err
		}
		results[i] = tensor
	}
	return results, nil
}

func (s *onnxSession) Close() error {
	if s.session != nil {
		err := s.session.Destroy()
		s.session = nil
		return err
	}
	return nil
}

func newOrtTensor(input NamedTensor) (ort.Value, error) {
	shape := ort.NewShape(input.Shape...)
	switch data := input.Data.(type) {
	case []int64:
		return ort.NewTensor(shape, data)
	case []float32:
		return ort.NewTensor(shape, data)
	case []bool:
		return ort.NewTensor(shape, data)
	default:
		return nil, fmt.Errorf("unsupported tensor data type %T", input.Data)
	}
}

func fromOrtValue(name string, value ort.Value) (NamedTensor, error) {
	switch v := value.(type) {
	case *ort.Tensor[float32]:
		data := make([]float32, len(v.GetData()))
		copy(data, v.GetData())
		return NamedTensor{Name: name, Shape: v.GetShape(), Data: data}, nil
	case *ort.Tensor[int64]:
		data := make([]int64, len(v.GetData()))
		copy(data, v.GetData())
		return NamedTensor{Name: name, Shape: v.GetShape(), Data: data}, nil
	default:
		return NamedTensor{}, fmt.Errorf("unsupported output tensor type %T for %s", value, name)
	}
}

// onnxLibraryDir returns the directory containing the ONNX Runtime shared
// library, checking ONNXRUNTIME_ROOT first and then LD_LIBRARY_PATH.
func onnxLibraryDir() string {
	platform := runtime.GOOS + "-" + runtime.GOARCH

	if root := os.Getenv("ONNXRUNTIME_ROOT"); root != "" {
		platformDir := filepath.Join(root, platform, "lib")
		if _, err := os.Stat(filepath.Join(platformDir, onnxLibraryName())); err == nil {
			return platformDir
		}
		directDir := filepath.Join(root, "lib")
		if _, err := os.Stat(filepath.Join(directDir, onnxLibraryName())); err == nil {
			return directDir
		}
	}

	if ldPath := os.Getenv("LD_LIBRARY_PATH"); ldPath != "" {
		for _, dir := range filepath.SplitList(ldPath) {
			if _, err := os.Stat(filepath.Join(dir, onnxLibraryName())); err == nil {
				return dir
			}
		}
	}

	return ""
}

func onnxLibraryName() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "libonnxruntime.so"
	}
}
