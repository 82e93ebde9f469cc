// Package embed turns face crops into L2-normalized embedding vectors
// using an ONNX vision model.
package embed

import (
	"fmt"
	"image"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/nabeeladzan/lxfu/internal/faceprint"
)

var (
	initOnce sync.Once
	initErr  error
)

// initRuntime initializes the onnxruntime environment once per process.
// The shared library location can be overridden with LXFU_ONNXRUNTIME_LIB.
func initRuntime() error {
	initOnce.Do(func() {
		if lib := os.Getenv("LXFU_ONNXRUNTIME_LIB"); lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		initErr = ort.InitializeEnvironment()
	})
	return initErr
}

// Extractor runs inference over face crops. Safe for concurrent use; runs
// are serialized on a single session.
type Extractor struct {
	mu         sync.Mutex
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
}

// NewExtractor loads the ONNX model and prepares an inference session.
// Input and output names are read from the model itself.
func NewExtractor(modelPath string) (*Extractor, error) {
	if err := initRuntime(); err != nil {
		return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect model %s: %w", modelPath, err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model %s has no usable input or output", modelPath)
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create inference session: %w", err)
	}

	return &Extractor{
		session:    session,
		inputName:  inputs[0].Name,
		outputName: outputs[0].Name,
	}, nil
}

// Extract computes the L2-normalized embedding of a face crop. For models
// that emit per-token outputs the leading (CLS) token is used.
func (e *Extractor) Extract(img image.Image) ([]float32, error) {
	input, err := ort.NewTensor(ort.NewShape(1, 3, InputSize, InputSize), Preprocess(img))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	outputs := []ort.Value{nil}
	e.mu.Lock()
	err = e.session.Run([]ort.Value{input}, outputs)
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type %T", outputs[0])
	}
	defer out.Destroy()

	shape := out.GetShape()
	dim := int(shape[len(shape)-1])
	raw := out.GetData()
	if dim <= 0 || dim > len(raw) {
		return nil, fmt.Errorf("unexpected output shape %v", shape)
	}

	return faceprint.Normalize(raw[:dim]), nil
}

// Close releases the inference session.
func (e *Extractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	return err
}
