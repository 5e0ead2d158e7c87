package classify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"unicode/utf8"
)

// mockPattern returns a fixed label when the message matches a table entry.
type mockPattern struct {
	mu     sync.Mutex
	table  map[string]string
	calls  int
	panics bool
}

func (m *mockPattern) Match(message string) (string, bool) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.panics {
		panic("pattern table corrupted")
	}
	label, ok := m.table[message]
	return label, ok
}

// mockConfidence returns a preconfigured label/probability.
type mockConfidence struct {
	mu      sync.Mutex
	label   string
	prob    float64
	err     error
	calls   int
	healthy bool
}

func (m *mockConfidence) Classify(_ string) (string, float64, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return "", 0, m.err
	}
	return m.label, m.prob, nil
}

func (m *mockConfidence) HealthCheck(_ context.Context) bool { return m.healthy }

// mockGenerative returns a preconfigured label/error.
type mockGenerative struct {
	mu      sync.Mutex
	label   string
	err     error
	calls   int
	healthy bool
}

func (m *mockGenerative) Classify(_ context.Context, _ string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return Unclassified, m.err
	}
	return m.label, nil
}

func (m *mockGenerative) HealthCheck(_ context.Context) bool { return m.healthy }

func newTestDispatcher(p *mockPattern, c *mockConfidence, g *mockGenerative) *Dispatcher {
	return NewDispatcher(DefaultRouting(), p, c, g, NewRecorder(), Hooks{}, nil)
}

func TestClassify_PatternShortCircuits(t *testing.T) {
	t.Parallel()

	p := &mockPattern{table: map[string]string{
		"Backup completed successfully.": "System Notification",
	}}
	c := &mockConfidence{label: "Something Else", prob: 0.99}
	g := &mockGenerative{label: "Workflow Error"}
	d := newTestDispatcher(p, c, g)

	out := d.Classify(context.Background(), "WebServer", "Backup completed successfully.")

	if out.Label != "System Notification" {
		t.Errorf("label = %q, want %q", out.Label, "System Notification")
	}
	if out.Method != MethodPattern {
		t.Errorf("method = %q, want %q", out.Method, MethodPattern)
	}
	if out.Confidence != nil {
		t.Error("pattern outcome should carry no confidence")
	}
	if c.calls != 0 {
		t.Errorf("confidence tier called %d times, want 0", c.calls)
	}
	if g.calls != 0 {
		t.Errorf("generative tier called %d times, want 0", g.calls)
	}
}

func TestClassify_FallsThroughToConfidence(t *testing.T) {
	t.Parallel()

	p := &mockPattern{table: map[string]string{}}
	c := &mockConfidence{label: Unclassified, prob: 0.31}
	d := newTestDispatcher(p, c, &mockGenerative{})

	out := d.Classify(context.Background(), "WebServer", "qwerty zxcvb 12345")

	if out.Label != Unclassified {
		t.Errorf("label = %q, want %q", out.Label, Unclassified)
	}
	if out.Method != MethodConfidence {
		t.Errorf("method = %q, want %q", out.Method, MethodConfidence)
	}
	if out.Confidence == nil || *out.Confidence >= 0.5 {
		t.Errorf("confidence = %v, want reported probability < 0.5", out.Confidence)
	}
	if p.calls != 1 {
		t.Errorf("pattern tier called %d times, want 1", p.calls)
	}
}

func TestClassify_GenerativeOnlySource(t *testing.T) {
	t.Parallel()

	p := &mockPattern{table: map[string]string{
		"Backup completed successfully.": "System Notification",
	}}
	c := &mockConfidence{label: "User Action", prob: 0.9}
	g := &mockGenerative{label: "Workflow Error"}
	d := newTestDispatcher(p, c, g)

	out := d.Classify(context.Background(), GenerativeOnlySource, "Backup completed successfully.")

	if out.Label != "Workflow Error" {
		t.Errorf("label = %q, want %q", out.Label, "Workflow Error")
	}
	if out.Method != MethodGenerative {
		t.Errorf("method = %q, want %q", out.Method, MethodGenerative)
	}
	if p.calls != 0 || c.calls != 0 {
		t.Errorf("pattern/confidence called %d/%d times, want 0/0", p.calls, c.calls)
	}
	if g.calls != 1 {
		t.Errorf("generative tier called %d times, want 1", g.calls)
	}
}

func TestClassify_GenerativeExhaustionDegrades(t *testing.T) {
	t.Parallel()

	g := &mockGenerative{err: errors.New("attempts exhausted: connection refused")}
	d := newTestDispatcher(&mockPattern{}, &mockConfidence{}, g)

	out := d.Classify(context.Background(), GenerativeOnlySource, "Case escalation failed")

	if out.Label != Unclassified {
		t.Errorf("label = %q, want %q", out.Label, Unclassified)
	}
	if out.Method != MethodError {
		t.Errorf("method = %q, want %q", out.Method, MethodError)
	}

	snap := d.MetricsSnapshot()
	if snap.ByMethod[MethodError] != 1 {
		t.Errorf("error bucket = %d, want 1", snap.ByMethod[MethodError])
	}
	if snap.Errors != 1 {
		t.Errorf("errors = %d, want 1", snap.Errors)
	}
}

func TestClassify_ConfidenceErrorDegrades(t *testing.T) {
	t.Parallel()

	c := &mockConfidence{err: errors.New("model not loaded")}
	d := newTestDispatcher(&mockPattern{}, c, &mockGenerative{})

	out := d.Classify(context.Background(), "WebServer", "some message")

	if out.Label != Unclassified {
		t.Errorf("label = %q, want %q", out.Label, Unclassified)
	}
	if out.Method != MethodError {
		t.Errorf("method = %q, want %q", out.Method, MethodError)
	}
	if out.Confidence != nil {
		t.Error("degraded outcome should carry no confidence")
	}
}

func TestClassify_TierPanicAbsorbed(t *testing.T) {
	t.Parallel()

	p := &mockPattern{panics: true}
	d := newTestDispatcher(p, &mockConfidence{}, &mockGenerative{})

	out := d.Classify(context.Background(), "WebServer", "anything")

	if out.Label != Unclassified {
		t.Errorf("label = %q, want %q", out.Label, Unclassified)
	}
	if out.Method != MethodError {
		t.Errorf("method = %q, want %q", out.Method, MethodError)
	}
}

func TestClassify_NilTierDegrades(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(DefaultRouting(), nil, nil, nil, NewRecorder(), Hooks{}, nil)

	out := d.Classify(context.Background(), "WebServer", "anything")

	if out.Label != Unclassified {
		t.Errorf("label = %q, want %q", out.Label, Unclassified)
	}
	if out.Method != MethodError {
		t.Errorf("method = %q, want %q", out.Method, MethodError)
	}
}

func TestClassify_EmptyChainYieldsUnclassified(t *testing.T) {
	t.Parallel()

	routes := NewRoutingTable(map[string][]Tier{"Silent": {}}, []Tier{TierPattern})
	d := NewDispatcher(routes, &mockPattern{}, nil, nil, NewRecorder(), Hooks{}, nil)

	out := d.Classify(context.Background(), "Silent", "anything")

	if out.Label != Unclassified {
		t.Errorf("label = %q, want %q", out.Label, Unclassified)
	}
	if out.Method != MethodUnclassified {
		t.Errorf("method = %q, want %q", out.Method, MethodUnclassified)
	}
}

func TestClassifyBatch_OrderPreservedAndIsolated(t *testing.T) {
	t.Parallel()

	p := &mockPattern{table: map[string]string{
		"Backup completed successfully.": "System Notification",
	}}
	c := &mockConfidence{label: "User Action", prob: 0.8}
	g := &mockGenerative{err: errors.New("remote down")}
	d := newTestDispatcher(p, c, g)

	entries := []Entry{
		{Source: "WebServer", Message: "Backup completed successfully."},
		{Source: GenerativeOnlySource, Message: "legacy text"},
		{Source: "Database", Message: "something statistical"},
	}

	outcomes := d.ClassifyBatch(context.Background(), entries)

	if len(outcomes) != 3 {
		t.Fatalf("len(outcomes) = %d, want 3", len(outcomes))
	}
	if outcomes[0].Method != MethodPattern || outcomes[0].Label != "System Notification" {
		t.Errorf("outcome[0] = %+v, want pattern/System Notification", outcomes[0])
	}
	if outcomes[1].Method != MethodError || outcomes[1].Label != Unclassified {
		t.Errorf("outcome[1] = %+v, want degraded entry", outcomes[1])
	}
	if outcomes[2].Method != MethodConfidence || outcomes[2].Label != "User Action" {
		t.Errorf("outcome[2] = %+v, want confidence/User Action", outcomes[2])
	}
}

func TestMetrics_TotalEqualsCallCount(t *testing.T) {
	t.Parallel()

	p := &mockPattern{table: map[string]string{"match me": "User Action"}}
	c := &mockConfidence{label: Unclassified, prob: 0.1}
	g := &mockGenerative{err: errors.New("down")}
	d := newTestDispatcher(p, c, g)

	const n = 12
	for i := 0; i < n; i++ {
		switch i % 3 {
		case 0:
			d.Classify(context.Background(), "WebServer", "match me")
		case 1:
			d.Classify(context.Background(), "WebServer", "no match")
		case 2:
			d.Classify(context.Background(), GenerativeOnlySource, "legacy")
		}
	}

	snap := d.MetricsSnapshot()
	if snap.Total != n {
		t.Errorf("total = %d, want %d", snap.Total, n)
	}
	if snap.ByMethod[MethodPattern] != 4 {
		t.Errorf("pattern bucket = %d, want 4", snap.ByMethod[MethodPattern])
	}
	if snap.ByMethod[MethodConfidence] != 4 {
		t.Errorf("confidence bucket = %d, want 4", snap.ByMethod[MethodConfidence])
	}
	if snap.ByMethod[MethodError] != 4 {
		t.Errorf("error bucket = %d, want 4", snap.ByMethod[MethodError])
	}
}

func TestClassify_HooksObserveMethod(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		observed []Method
	)
	hooks := Hooks{
		OnClassified: func(method Method, _ float64, _ bool) {
			mu.Lock()
			observed = append(observed, method)
			mu.Unlock()
		},
	}
	p := &mockPattern{table: map[string]string{"hit": "User Action"}}
	d := NewDispatcher(DefaultRouting(), p, &mockConfidence{label: Unclassified, prob: 0.2}, nil, NewRecorder(), hooks, nil)

	d.Classify(context.Background(), "WebServer", "hit")
	d.Classify(context.Background(), "WebServer", "miss")

	mu.Lock()
	defer mu.Unlock()
	if len(observed) != 2 {
		t.Fatalf("hook fired %d times, want 2", len(observed))
	}
	if observed[0] != MethodPattern || observed[1] != MethodConfidence {
		t.Errorf("observed = %v, want [pattern confidence]", observed)
	}
}

func TestTierHealth(t *testing.T) {
	t.Parallel()

	c := &mockConfidence{healthy: true}
	g := &mockGenerative{healthy: false}
	d := newTestDispatcher(&mockPattern{}, c, g)

	health := d.TierHealth(context.Background())

	if !health["confidence"] {
		t.Error("confidence tier should report healthy")
	}
	if health["generative"] {
		t.Error("generative tier should report unhealthy")
	}
}

func TestClassify_Idempotent(t *testing.T) {
	t.Parallel()

	p := &mockPattern{table: map[string]string{"stable": "User Action"}}
	d := newTestDispatcher(p, &mockConfidence{label: "X", prob: 0.9}, &mockGenerative{})

	first := d.Classify(context.Background(), "WebServer", "stable")
	second := d.Classify(context.Background(), "WebServer", "stable")

	if first.Label != second.Label || first.Method != second.Method {
		t.Errorf("repeated classification drifted: %+v vs %+v", first, second)
	}
}

func TestTruncate_RuneBoundary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		s    string
		n    int
		want string
	}{
		{"shorter than limit", "hello", 10, "hello"},
		{"exact limit", "hello", 5, "hello"},
		{"ascii cut", "hello world", 5, "hello"},
		{"cut inside two-byte rune", "abcé", 4, "abc"},
		{"cut inside three-byte rune", "ab€", 3, "ab"},
		{"cut inside four-byte rune", "a\U0001F600", 2, "a"},
		{"cut on rune boundary", "é", 2, "é"},
		{"all multibyte", "€€", 5, "€"},
		{"limit zero", "hello", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := truncate(tt.s, tt.n)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.s, tt.n, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) = %q is not valid UTF-8", tt.s, tt.n, got)
			}
		})
	}
}
