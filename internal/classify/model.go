package classify

// Unclassified is the sentinel label returned whenever no tier can produce a
// confident classification. Callers always receive a non-empty label.
const Unclassified = "Unclassified"

// Method identifies which waterfall tier produced a label.
type Method string

const (
	// MethodPattern means the ordered regex rule table matched.
	MethodPattern Method = "pattern"

	// MethodConfidence means the embedding classifier produced the label
	// (including a below-threshold "Unclassified").
	MethodConfidence Method = "confidence"

	// MethodGenerative means the remote generative fallback produced the label.
	MethodGenerative Method = "generative"

	// MethodUnclassified means no tier in the chain yielded a label.
	MethodUnclassified Method = "unclassified"

	// MethodError means a tier failed and the dispatcher degraded the result.
	MethodError Method = "error"
)

// Methods lists every method bucket in snapshot order.
var Methods = []Method{
	MethodPattern,
	MethodConfidence,
	MethodGenerative,
	MethodUnclassified,
	MethodError,
}

// Entry is a single log line to classify. The request layer validates that
// both fields are non-empty, trimmed, and bounded before handing entries to
// the dispatcher.
type Entry struct {
	Source  string `json:"source"`
	Message string `json:"log_message"`
}

// Outcome is the result of classifying one entry. Label is never empty and
// Method names the tier that actually produced the label, never a tier that
// failed earlier in the chain.
type Outcome struct {
	Label      string   `json:"label"`
	Method     Method   `json:"method"`
	Confidence *float64 `json:"confidence,omitempty"`
	LatencyMs  float64  `json:"processing_time_ms"`
}
