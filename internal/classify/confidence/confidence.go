// Package confidence implements the statistical second tier: an embedding
// extractor feeding a probabilistic label predictor, gated by a confidence
// threshold.
package confidence

import (
	"context"
	"fmt"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/sift/internal/classify"
	"github.com/linnemanlabs/sift/internal/embed"
)

// DefaultThreshold is the minimum top-class probability required to accept a
// prediction instead of declaring Unclassified.
const DefaultThreshold = 0.5

// healthProbe is the canned input HealthCheck runs through the full pipeline.
const healthProbe = "System test message"

// Classifier wraps an embedder and a predictor. Both artifacts are loaded
// eagerly before construction succeeds; read-only afterwards, so one
// Classifier serves all request goroutines without synchronization.
type Classifier struct {
	embedder  embed.Embedder
	predictor *Predictor
	threshold float64
	logger    log.Logger
}

// New validates the loaded artifacts against each other and returns a ready
// classifier. A nil embedder or predictor is a configuration error: the
// waterfall cannot start without its middle tier.
func New(embedder embed.Embedder, predictor *Predictor, threshold float64, logger log.Logger) (*Classifier, error) {
	if embedder == nil {
		return nil, fmt.Errorf("confidence: embedder is required")
	}
	if predictor == nil {
		return nil, fmt.Errorf("confidence: predictor is required")
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("confidence: threshold %v outside [0,1]", threshold)
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Classifier{
		embedder:  embedder,
		predictor: predictor,
		threshold: threshold,
		logger:    logger,
	}, nil
}

// Classify embeds the message, predicts a distribution over the fixed label
// set, and returns the arg-max label with its probability when it clears the
// threshold, or the Unclassified sentinel with that probability otherwise.
// An empty message is a non-match, not an error. A pipeline failure (the
// artifacts were loaded at construction, so this is an internal condition) is
// returned as an error rather than silently downgraded.
func (c *Classifier) Classify(message string) (string, float64, error) {
	if message == "" {
		return classify.Unclassified, 0, nil
	}

	vec, err := c.embedder.Embed(message)
	if err != nil {
		return "", 0, fmt.Errorf("confidence: embedding failed: %w", err)
	}

	probs, err := c.predictor.Probabilities(vec)
	if err != nil {
		return "", 0, fmt.Errorf("confidence: prediction failed: %w", err)
	}

	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}

	top := probs[best]
	if top < c.threshold {
		return classify.Unclassified, top, nil
	}
	return c.predictor.Labels()[best], top, nil
}

// HealthCheck re-runs the full pipeline on a canned input and reports whether
// it succeeded, absorbing any failure.
func (c *Classifier) HealthCheck(ctx context.Context) bool {
	_, _, err := c.Classify(healthProbe)
	if err != nil {
		c.logger.Error(ctx, err, "confidence health check failed")
		return false
	}
	return true
}
