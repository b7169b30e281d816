package authenticity

import (
	"sentinel/internal/domain/features"
	"sentinel/internal/ml"
	"sentinel/pkg/errors"
)

// FakeClass is the label index the classifier was trained to emit for fake profiles
const FakeClass = 1

// Classifier is the trained fake-profile model backed by ONNX Runtime
type Classifier struct {
	model *ml.ONNXModel
}

// NewClassifier loads the exported authenticity model
func NewClassifier(cfg ml.SessionConfig) (*Classifier, error) {
	cfg.NumClasses = 2
	model, err := ml.LoadONNXModel(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load authenticity model")
	}

	return &Classifier{model: model}, nil
}

// PredictProba returns P(fake) for a row encoded in features.ModelInputOrder
func (c *Classifier) PredictProba(encoded []float32) (float64, error) {
	if c.model == nil {
		return 0, errors.Wrap(errors.ErrModelUnavailable, "classifier model is not loaded")
	}
	if len(encoded) != len(features.ModelInputOrder) {
		return 0, errors.Wrapf(errors.ErrModelUnavailable,
			"expected %d features, got %d", len(features.ModelInputOrder), len(encoded))
	}

	_, probabilities, err := c.model.Predict(encoded)
	if err != nil {
		return 0, errors.Wrap(err, "classification failed")
	}

	return float64(probabilities[FakeClass]), nil
}

// Close cleans up the classifier resources
func (c *Classifier) Close() {
	if c.model != nil {
		c.model.Destroy()
		c.model = nil
	}
}
