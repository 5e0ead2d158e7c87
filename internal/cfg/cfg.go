package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config holds sift-specific configuration fields, alongside the common
// go-core Registerable and Validatable packages wired up in main.
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int

	APIToken string

	PatternTablePath string

	EmbedModelPath      string
	EmbedVocabPath      string
	EmbedLibPath        string
	PredictorBlobPath   string
	ConfidenceThreshold float64

	LLMProvider       string
	LLMAPIKey         string
	LLMModel          string
	LLMTemperature    float64
	LLMTimeoutSeconds int
	LLMMaxAttempts    int
	LLMBaseDelayMS    int

	DatabaseURL string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on API routes (empty = auth disabled)")
	fs.StringVar(&c.PatternTablePath, "pattern-table", "", "YAML pattern rule table (empty = built-in default rules)")
	fs.StringVar(&c.EmbedModelPath, "embed-model", "models/embedder.onnx", "ONNX embedding model path")
	fs.StringVar(&c.EmbedVocabPath, "embed-vocab", "models/vocab.txt", "WordPiece vocabulary path")
	fs.StringVar(&c.EmbedLibPath, "embed-lib", "", "ONNX Runtime shared library path (empty = next to the model)")
	fs.StringVar(&c.PredictorBlobPath, "predictor-blob", "models/predictor.json", "serialized label predictor blob path")
	fs.Float64Var(&c.ConfidenceThreshold, "confidence-threshold", 0.5, "minimum top-class probability to accept a statistical prediction (0..1)")
	fs.StringVar(&c.LLMProvider, "llm-provider", "groq", "generative fallback provider: groq or claude")
	fs.StringVar(&c.LLMAPIKey, "llm-api-key", "", "API key for the generative fallback provider")
	fs.StringVar(&c.LLMModel, "llm-model", "llama-3.3-70b-versatile", "generative fallback model name")
	fs.Float64Var(&c.LLMTemperature, "llm-temperature", 0.5, "generative fallback sampling temperature")
	fs.IntVar(&c.LLMTimeoutSeconds, "llm-timeout-seconds", 30, "per-attempt timeout for generative fallback calls (1..300)")
	fs.IntVar(&c.LLMMaxAttempts, "llm-max-attempts", 3, "total generative fallback attempts per classification (1..10)")
	fs.IntVar(&c.LLMBaseDelayMS, "llm-base-delay-ms", 1000, "base backoff delay between generative attempts in milliseconds")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory history store)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// Embedding artifacts are required: the confidence tier fails fatally
	// without them.
	if c.EmbedModelPath == "" {
		errs = append(errs, errors.New("EMBED_MODEL is required"))
	}
	if c.EmbedVocabPath == "" {
		errs = append(errs, errors.New("EMBED_VOCAB is required"))
	}
	if c.PredictorBlobPath == "" {
		errs = append(errs, errors.New("PREDICTOR_BLOB is required"))
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("invalid CONFIDENCE_THRESHOLD %v (must be 0..1)", c.ConfidenceThreshold))
	}

	if c.LLMProvider != "groq" && c.LLMProvider != "claude" {
		errs = append(errs, fmt.Errorf("invalid LLM_PROVIDER %q (must be groq or claude)", c.LLMProvider))
	}
	if c.LLMAPIKey == "" {
		errs = append(errs, errors.New("LLM_API_KEY is required"))
	}
	if c.LLMModel == "" {
		errs = append(errs, errors.New("LLM_MODEL is required"))
	}
	if c.LLMTimeoutSeconds <= 0 || c.LLMTimeoutSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid LLM_TIMEOUT_SECONDS %d (must be 1..300)", c.LLMTimeoutSeconds))
	}
	if c.LLMMaxAttempts <= 0 || c.LLMMaxAttempts > 10 {
		errs = append(errs, fmt.Errorf("invalid LLM_MAX_ATTEMPTS %d (must be 1..10)", c.LLMMaxAttempts))
	}
	if c.LLMBaseDelayMS < 0 {
		errs = append(errs, fmt.Errorf("invalid LLM_BASE_DELAY_MS %d (must be >= 0)", c.LLMBaseDelayMS))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
