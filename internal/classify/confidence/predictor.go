package confidence

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Predictor is a multinomial logistic layer over embedding vectors: one
// weight row and bias per label, softmaxed into a probability distribution.
// The blob is exported by the offline training job as JSON. Immutable after
// load.
type Predictor struct {
	labels  []string
	weights [][]float64 // [len(labels)][dim]
	bias    []float64   // [len(labels)]
	dim     int
}

type predictorBlob struct {
	Labels  []string    `json:"labels"`
	Weights [][]float64 `json:"weights"`
	Bias    []float64   `json:"bias"`
}

// LoadPredictor reads and validates a predictor blob. Any inconsistency is a
// startup failure: the service must not come up with a half-loaded model.
func LoadPredictor(path string) (*Predictor, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read predictor blob: %w", err)
	}

	var blob predictorBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("parse predictor blob: %w", err)
	}
	return NewPredictor(blob.Labels, blob.Weights, blob.Bias)
}

// NewPredictor validates shapes and returns a ready predictor.
func NewPredictor(labels []string, weights [][]float64, bias []float64) (*Predictor, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("predictor has no labels")
	}
	if len(weights) != len(labels) || len(bias) != len(labels) {
		return nil, fmt.Errorf("predictor shape mismatch: %d labels, %d weight rows, %d biases",
			len(labels), len(weights), len(bias))
	}
	dim := len(weights[0])
	if dim == 0 {
		return nil, fmt.Errorf("predictor weight rows are empty")
	}
	for i, row := range weights {
		if len(row) != dim {
			return nil, fmt.Errorf("predictor weight row %d has %d dims, want %d", i, len(row), dim)
		}
	}
	return &Predictor{labels: labels, weights: weights, bias: bias, dim: dim}, nil
}

// Labels returns the fixed label set in predictor order.
func (p *Predictor) Labels() []string {
	return p.labels
}

// Dim returns the expected embedding dimensionality.
func (p *Predictor) Dim() int {
	return p.dim
}

// Probabilities returns the softmax distribution over labels for the vector.
func (p *Predictor) Probabilities(vec []float32) ([]float64, error) {
	if len(vec) != p.dim {
		return nil, fmt.Errorf("embedding has %d dims, predictor expects %d", len(vec), p.dim)
	}

	logits := make([]float64, len(p.labels))
	maxLogit := math.Inf(-1)
	for i, row := range p.weights {
		z := p.bias[i]
		for j, w := range row {
			z += w * float64(vec[j])
		}
		logits[i] = z
		if z > maxLogit {
			maxLogit = z
		}
	}

	// softmax shifted by the max logit for numerical stability
	var sum float64
	for i, z := range logits {
		logits[i] = math.Exp(z - maxLogit)
		sum += logits[i]
	}
	for i := range logits {
		logits[i] /= sum
	}
	return logits, nil
}
