package scoring

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXPredictor runs a serialized ONNX classifier through onnxruntime.
// It is selected with model_backend "onnx" and exists for deployments that
// ship the original training export instead of the JSON tree artifact.
//
// Classifier exports emit a class label rather than a continuous score, so
// labels are mapped onto the score range: 0 -> 0, 1 -> 100. The threshold
// rule then behaves identically for both backends.
type ONNXPredictor struct {
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
	width      int
}

const labelScale = 100

// ortInit guards one-time environment initialization for the process.
var ortInit sync.Once

// ONNXOption applies a configuration option when loading an ONNX model.
type ONNXOption func(*onnxConfig)

type onnxConfig struct {
	libraryPath string
}

// WithSharedLibrary points the runtime at the onnxruntime shared library.
func WithSharedLibrary(path string) ONNXOption {
	return func(c *onnxConfig) { c.libraryPath = path }
}

// LoadONNX loads the model once and keeps the session alive for the process
// lifetime. Sessions are read-only after load and safe for concurrent Run.
func LoadONNX(modelPath string, opts ...ONNXOption) (*ONNXPredictor, error) {
	var cfg onnxConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var initErr error
	ortInit.Do(func() {
		if cfg.libraryPath != "" {
			ort.SetSharedLibraryPath(cfg.libraryPath)
		}
		initErr = ort.InitializeEnvironment()
	})
	if initErr != nil {
		return nil, fmt.Errorf("%w: initializing onnxruntime: %v", ErrModelLoad, initErr)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: inspecting %s: %v", ErrModelLoad, modelPath, err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("%w: %s declares no inputs or outputs", ErrModelLoad, modelPath)
	}

	dims := inputs[0].Dimensions
	if len(dims) == 0 {
		return nil, fmt.Errorf("%w: %s input has no shape", ErrModelLoad, modelPath)
	}
	width := int(dims[len(dims)-1])
	if width <= 0 {
		return nil, fmt.Errorf("%w: %s input width is dynamic", ErrModelLoad, modelPath)
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: creating session for %s: %v", ErrModelLoad, modelPath, err)
	}

	return &ONNXPredictor{
		session:    session,
		inputName:  inputs[0].Name,
		outputName: outputs[0].Name,
		width:      width,
	}, nil
}

// Width implements Predictor.
func (p *ONNXPredictor) Width() int { return p.width }

// Predict implements Predictor for a single vector.
func (p *ONNXPredictor) Predict(_ context.Context, vec []float32) (float64, error) {
	if len(vec) != p.width {
		return 0, fmt.Errorf("vector has %d values, model expects %d", len(vec), p.width)
	}

	input, err := ort.NewTensor(ort.NewShape(1, int64(p.width)), vec)
	if err != nil {
		return 0, fmt.Errorf("building input tensor: %w", err)
	}
	defer input.Destroy()

	outputs := []ort.Value{nil}
	if err := p.session.Run([]ort.Value{input}, outputs); err != nil {
		return 0, fmt.Errorf("running session: %w", err)
	}
	defer outputs[0].Destroy()

	switch out := outputs[0].(type) {
	case *ort.Tensor[int64]:
		data := out.GetData()
		if len(data) == 0 {
			return 0, fmt.Errorf("empty label output")
		}
		return float64(data[0]) * labelScale, nil
	case *ort.Tensor[float32]:
		data := out.GetData()
		if len(data) == 0 {
			return 0, fmt.Errorf("empty score output")
		}
		return float64(data[0]), nil
	case *ort.Tensor[float64]:
		data := out.GetData()
		if len(data) == 0 {
			return 0, fmt.Errorf("empty score output")
		}
		return data[0], nil
	default:
		return 0, fmt.Errorf("unsupported output type %T", outputs[0])
	}
}

// Close releases the session. The environment stays up for the process.
func (p *ONNXPredictor) Close() error {
	if p.session != nil {
		p.session.Destroy()
		p.session = nil
	}
	return nil
}
