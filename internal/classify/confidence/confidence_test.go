package confidence

import (
	"context"
	"errors"
	"testing"

	"github.com/linnemanlabs/sift/internal/classify"
)

// stubEmbedder returns a fixed vector for every text.
type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(_ string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

func (s *stubEmbedder) Close() error { return nil }

// testPredictor strongly favors the first label for positive first
// components and the second label otherwise.
func testPredictor(t *testing.T) *Predictor {
	t.Helper()
	p, err := NewPredictor(
		[]string{"User Action", "System Notification"},
		[][]float64{{8, 0}, {-8, 0}},
		[]float64{0, 0},
	)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestNew_RequiresArtifacts(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, testPredictor(t), 0.5, nil); err == nil {
		t.Error("expected error for nil embedder")
	}
	if _, err := New(&stubEmbedder{}, nil, 0.5, nil); err == nil {
		t.Error("expected error for nil predictor")
	}
	if _, err := New(&stubEmbedder{}, testPredictor(t), 1.5, nil); err == nil {
		t.Error("expected error for threshold outside [0,1]")
	}
}

func TestClassify_ConfidentPrediction(t *testing.T) {
	t.Parallel()

	c, err := New(&stubEmbedder{vec: []float32{1, 0}}, testPredictor(t), 0.5, nil)
	if err != nil {
		t.Fatal(err)
	}

	label, prob, err := c.Classify("User User1 did something")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if label != "User Action" {
		t.Errorf("label = %q, want User Action", label)
	}
	if prob <= 0.5 {
		t.Errorf("probability = %v, want > 0.5", prob)
	}
}

func TestClassify_BelowThreshold(t *testing.T) {
	t.Parallel()

	// zero vector produces a uniform distribution, top probability 0.5
	c, err := New(&stubEmbedder{vec: []float32{0, 0}}, testPredictor(t), 0.9, nil)
	if err != nil {
		t.Fatal(err)
	}

	label, prob, err := c.Classify("qwerty zxcvb 12345")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if label != classify.Unclassified {
		t.Errorf("label = %q, want %q", label, classify.Unclassified)
	}
	if prob != 0.5 {
		t.Errorf("probability = %v, want the reported top probability 0.5", prob)
	}
}

func TestClassify_ThresholdBoundaryAccepts(t *testing.T) {
	t.Parallel()

	// uniform distribution, top probability exactly equals the threshold
	c, err := New(&stubEmbedder{vec: []float32{0, 0}}, testPredictor(t), 0.5, nil)
	if err != nil {
		t.Fatal(err)
	}

	label, _, err := c.Classify("anything")
	if err != nil {
		t.Fatal(err)
	}
	if label == classify.Unclassified {
		t.Error("probability equal to the threshold must be accepted")
	}
}

func TestClassify_EmptyMessage(t *testing.T) {
	t.Parallel()

	c, err := New(&stubEmbedder{vec: []float32{1, 0}}, testPredictor(t), 0.5, nil)
	if err != nil {
		t.Fatal(err)
	}

	label, prob, err := c.Classify("")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if label != classify.Unclassified || prob != 0 {
		t.Errorf("got (%q, %v), want (%q, 0)", label, prob, classify.Unclassified)
	}
}

func TestClassify_EmbedderFailureIsError(t *testing.T) {
	t.Parallel()

	c, err := New(&stubEmbedder{err: errors.New("session destroyed")}, testPredictor(t), 0.5, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := c.Classify("anything"); err == nil {
		t.Error("pipeline failure must surface as an error, not a silent Unclassified")
	}
}

func TestClassify_Idempotent(t *testing.T) {
	t.Parallel()

	c, err := New(&stubEmbedder{vec: []float32{1, 0}}, testPredictor(t), 0.5, nil)
	if err != nil {
		t.Fatal(err)
	}

	l1, p1, _ := c.Classify("stable input")
	l2, p2, _ := c.Classify("stable input")
	if l1 != l2 || p1 != p2 {
		t.Errorf("repeated classification drifted: (%q,%v) vs (%q,%v)", l1, p1, l2, p2)
	}
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	healthy, err := New(&stubEmbedder{vec: []float32{1, 0}}, testPredictor(t), 0.5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !healthy.HealthCheck(context.Background()) {
		t.Error("healthy pipeline reported unhealthy")
	}

	broken, err := New(&stubEmbedder{err: errors.New("boom")}, testPredictor(t), 0.5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if broken.HealthCheck(context.Background()) {
		t.Error("broken pipeline reported healthy")
	}
}
