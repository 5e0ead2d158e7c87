package classify

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/linnemanlabs/go-core/log"
)

// PatternTier is the fast first tier: an ordered rule table over the message
// text. ok is false when no rule matches.
type PatternTier interface {
	Match(message string) (label string, ok bool)
}

// ConfidenceTier is the statistical second tier. It always yields a label
// (possibly Unclassified when the top probability is below threshold) together
// with that probability; err is reserved for internal failures such as an
// unloaded model.
type ConfidenceTier interface {
	Classify(message string) (label string, confidence float64, err error)
}

// GenerativeTier is the remote third tier. Implementations absorb transient
// remote failures internally; a non-nil err means every attempt was exhausted
// and the returned label is the degraded sentinel.
type GenerativeTier interface {
	Classify(ctx context.Context, message string) (label string, err error)
}

// HealthChecker is implemented by stateful tiers that support liveness probing.
type HealthChecker interface {
	HealthCheck(ctx context.Context) bool
}

// Dispatcher routes each entry through its tier chain, invokes tiers strictly
// in order until one yields a label, records the outcome, and guarantees a
// label is always produced. It never returns an error and never panics: any
// tier failure degrades to the Unclassified sentinel with an error metric.
//
// All tier references are fixed at construction, so the dispatcher is safe for
// unsynchronized concurrent use.
type Dispatcher struct {
	routes     *RoutingTable
	pattern    PatternTier
	confidence ConfidenceTier
	generative GenerativeTier
	recorder   *Recorder
	hooks      Hooks
	logger     log.Logger
}

// NewDispatcher wires the waterfall together. Routes defaults to
// DefaultRouting and recorder to a fresh Recorder when nil; tiers may be nil,
// in which case any chain reaching them degrades that entry.
func NewDispatcher(
	routes *RoutingTable,
	pattern PatternTier,
	confidence ConfidenceTier,
	generative GenerativeTier,
	recorder *Recorder,
	hooks Hooks,
	logger log.Logger,
) *Dispatcher {
	if routes == nil {
		routes = DefaultRouting()
	}
	if recorder == nil {
		recorder = NewRecorder()
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Dispatcher{
		routes:     routes,
		pattern:    pattern,
		confidence: confidence,
		generative: generative,
		recorder:   recorder,
		hooks:      hooks,
		logger:     logger,
	}
}

// Classify runs one entry through its routed tier chain and returns the
// outcome. Wall-clock timing wraps the entire call, not individual tiers, and
// is recorded once together with the producing method and error flag.
func (d *Dispatcher) Classify(ctx context.Context, source, message string) Outcome {
	start := time.Now()

	label, method, confidence, err := d.runChain(ctx, source, message)

	elapsedMs := float64(time.Since(start).Microseconds()) / 1000.0

	if err != nil {
		d.logger.Error(ctx, err, "classification degraded",
			"source", source,
			"message", truncate(message, 100),
		)
		label = Unclassified
		method = MethodError
		confidence = nil
	}

	d.recorder.Record(method, elapsedMs, err != nil)
	if d.hooks.OnClassified != nil {
		d.hooks.OnClassified(method, elapsedMs/1000.0, err != nil)
	}

	if err == nil {
		d.logger.Info(ctx, "classification complete",
			"source", source,
			"method", method,
			"label", label,
			"processing_time_ms", elapsedMs,
		)
	}

	return Outcome{
		Label:      label,
		Method:     method,
		Confidence: confidence,
		LatencyMs:  elapsedMs,
	}
}

// ClassifyBatch classifies an ordered sequence of entries and returns outcomes
// in the same order. Entries are processed sequentially so expensive tiers
// never run speculatively; a failure on one entry degrades only that entry.
func (d *Dispatcher) ClassifyBatch(ctx context.Context, entries []Entry) []Outcome {
	start := time.Now()

	outcomes := make([]Outcome, 0, len(entries))
	for _, e := range entries {
		outcomes = append(outcomes, d.Classify(ctx, e.Source, e.Message))
	}

	if d.hooks.OnBatch != nil {
		d.hooks.OnBatch(len(entries), time.Since(start).Seconds())
	}
	return outcomes
}

// MetricsSnapshot returns a consistent aggregate view of the recorder.
func (d *Dispatcher) MetricsSnapshot() Snapshot {
	return d.recorder.Snapshot()
}

// TierHealth probes every stateful tier that supports health checking and
// returns its liveness keyed by tier name.
func (d *Dispatcher) TierHealth(ctx context.Context) map[string]bool {
	health := make(map[string]bool, 2)
	if hc, ok := d.confidence.(HealthChecker); ok {
		health[string(TierConfidence)] = hc.HealthCheck(ctx)
	}
	if hc, ok := d.generative.(HealthChecker); ok {
		health[string(TierGenerative)] = hc.HealthCheck(ctx)
	}
	return health
}

// runChain executes the routed tiers in order and returns the first label
// produced. Tier panics and errors surface as err so Classify can degrade.
func (d *Dispatcher) runChain(ctx context.Context, source, message string) (label string, method Method, confidence *float64, err error) {
	for _, tier := range d.routes.Chain(source) {
		switch tier {
		case TierPattern:
			var ok bool
			label, ok, err = d.runPattern(message)
			if err != nil {
				return "", MethodError, nil, err
			}
			if ok {
				return label, MethodPattern, nil, nil
			}
			// no match, fall through to the next tier

		case TierConfidence:
			var p float64
			label, p, err = d.runConfidence(message)
			if err != nil {
				return "", MethodError, nil, err
			}
			return label, MethodConfidence, &p, nil

		case TierGenerative:
			label, err = d.runGenerative(ctx, message)
			if err != nil {
				return "", MethodError, nil, err
			}
			return label, MethodGenerative, nil, nil

		default:
			return "", MethodError, nil, fmt.Errorf("unknown tier %q routed for source %q", tier, source)
		}
	}

	// chain exhausted without any tier producing a label
	return Unclassified, MethodUnclassified, nil, nil
}

func (d *Dispatcher) runPattern(message string) (label string, ok bool, err error) {
	defer recoverTier(TierPattern, &err)
	if d.pattern == nil {
		return "", false, fmt.Errorf("pattern tier not configured")
	}
	label, ok = d.pattern.Match(message)
	return label, ok, nil
}

func (d *Dispatcher) runConfidence(message string) (label string, confidence float64, err error) {
	defer recoverTier(TierConfidence, &err)
	if d.confidence == nil {
		return "", 0, fmt.Errorf("confidence tier not configured")
	}
	return d.confidence.Classify(message)
}

func (d *Dispatcher) runGenerative(ctx context.Context, message string) (label string, err error) {
	defer recoverTier(TierGenerative, &err)
	if d.generative == nil {
		return "", fmt.Errorf("generative tier not configured")
	}
	return d.generative.Classify(ctx, message)
}

// recoverTier converts a tier panic into an error so the dispatcher boundary
// holds its never-raises contract.
func recoverTier(tier Tier, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s tier panic: %v", tier, r)
	}
}

// truncate cuts s to at most n bytes without splitting a multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
