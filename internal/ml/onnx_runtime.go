package ml

import (
	"fmt"
	"os"
	"sync"

	onnxruntime "github.com/yalue/onnxruntime_go"

	"sentinel/pkg/errors"
)

var (
	envOnce sync.Once
	envErr  error
)

// SessionConfig names the model file and its tensors
type SessionConfig struct {
	ModelPath         string
	SharedLibraryPath string // empty uses the platform default lookup
	InputName         string
	LabelOutput       string
	ProbabilityOutput string
	NumClasses        int
}

// ONNXModel wraps an ONNX Runtime session for a binary or multi-class
// classifier exported with probabilities as a plain float tensor.
// Run is safe for concurrent use; tensors are allocated per call.
type ONNXModel struct {
	session    *onnxruntime.DynamicAdvancedSession
	numClasses int
}

// initEnvironment initializes the process-wide ONNX runtime exactly once
func initEnvironment(sharedLibraryPath string) error {
	envOnce.Do(func() {
		if sharedLibraryPath != "" {
			onnxruntime.SetSharedLibraryPath(sharedLibraryPath)
		}
		if err := onnxruntime.InitializeEnvironment(); err != nil {
			envErr = errors.Wrap(err, "failed to initialize ONNX runtime")
		}
	})
	return envErr
}

// LoadONNXModel loads an ONNX model from file
func LoadONNXModel(cfg SessionConfig) (*ONNXModel, error) {
	if cfg.ModelPath == "" {
		return nil, errors.Wrap(errors.ErrModelUnavailable, "model path is empty")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(errors.ErrModelUnavailable, "model file: %v", err)
	}
	if cfg.NumClasses <= 0 {
		cfg.NumClasses = 2
	}

	if err := initEnvironment(cfg.SharedLibraryPath); err != nil {
		return nil, err
	}

	options, err := onnxruntime.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session options")
	}
	defer options.Destroy()

	// Dynamic session: the batch dimension is set per call
	session, err := onnxruntime.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.LabelOutput, cfg.ProbabilityOutput}, options)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load ONNX model %s", cfg.ModelPath)
	}

	return &ONNXModel{
		session:    session,
		numClasses: cfg.NumClasses,
	}, nil
}

// Predict runs inference on one feature row.
// Returns the predicted class index and the per-class probabilities.
func (m *ONNXModel) Predict(row []float32) (int64, []float32, error) {
	if m == nil || m.session == nil {
		return 0, nil, errors.Wrap(errors.ErrModelUnavailable, "model session is nil")
	}

	// Input tensor: shape [1, num_features]
	inputTensor, err := onnxruntime.NewTensor(onnxruntime.NewShape(1, int64(len(row))), row)
	if err != nil {
		return 0, nil, errors.Wrap(err, "failed to create input tensor")
	}
	defer inputTensor.Destroy()

	// Output 1: predicted label (int64, shape [1])
	labels := make([]int64, 1)
	labelTensor, err := onnxruntime.NewTensor(onnxruntime.NewShape(1), labels)
	if err != nil {
		return 0, nil, errors.Wrap(err, "failed to create label output tensor")
	}
	defer labelTensor.Destroy()

	// Output 2: probabilities (float32, shape [1, num_classes])
	probabilities := make([]float32, m.numClasses)
	probTensor, err := onnxruntime.NewTensor(onnxruntime.NewShape(1, int64(m.numClasses)), probabilities)
	if err != nil {
		return 0, nil, errors.Wrap(err, "failed to create probabilities output tensor")
	}
	defer probTensor.Destroy()

	if err := m.session.Run(
		[]onnxruntime.Value{inputTensor},
		[]onnxruntime.Value{labelTensor, probTensor},
	); err != nil {
		return 0, nil, errors.Wrap(err, "inference failed")
	}

	label := labels[0]
	if label < 0 || label >= int64(m.numClasses) {
		return 0, nil, fmt.Errorf("invalid class index: %d", label)
	}

	return label, probabilities, nil
}

// Destroy cleans up the ONNX session
func (m *ONNXModel) Destroy() {
	if m != nil && m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
}
