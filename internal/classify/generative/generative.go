// Package generative implements the last waterfall tier: a remote
// generative-text call with bounded retries, linear backoff, and a delimiter
// parse of the model's free-text output. Every per-call failure is absorbed
// into the degraded sentinel; only construction can fail.
package generative

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/sift/internal/classify"
	"github.com/linnemanlabs/sift/internal/llm"
)

// ErrAttemptsExhausted marks a classification where every remote attempt
// failed. The label returned alongside it is still the usable sentinel.
var ErrAttemptsExhausted = errors.New("generative attempts exhausted")

// categoryRE extracts the label from the delimiter the prompt instructs the
// model to use. DOTALL so a label split across lines still parses.
var categoryRE = regexp.MustCompile(`(?s)<category>(.*)</category>`)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultTimeout     = 30 * time.Second

	responseTokens = 128

	// healthTimeout bounds the low-cost probe classification.
	healthTimeout = 5 * time.Second
)

// DefaultLabels is the closed label set the prompt offers the model.
var DefaultLabels = []string{"Workflow Error", "Deprecation Warning"}

// Options configures a Client. Zero values take the defaults above.
type Options struct {
	Labels      []string
	Temperature float64
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration

	// OnAttempt, when set, observes every remote attempt.
	OnAttempt func(seconds float64, isError bool)
}

// Client is the generative fallback tier. Read-only after construction.
type Client struct {
	provider    llm.Provider
	labels      []string
	temperature float64
	timeout     time.Duration
	maxAttempts int
	baseDelay   time.Duration
	onAttempt   func(seconds float64, isError bool)
	logger      log.Logger
}

// New creates the fallback client. A nil provider is a configuration error.
func New(provider llm.Provider, opts Options, logger log.Logger) (*Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("generative: provider is required")
	}
	if logger == nil {
		logger = log.Nop()
	}
	if len(opts.Labels) == 0 {
		opts.Labels = DefaultLabels
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	return &Client{
		provider:    provider,
		labels:      opts.Labels,
		temperature: opts.Temperature,
		timeout:     opts.Timeout,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		onAttempt:   opts.OnAttempt,
		logger:      logger,
	}, nil
}

// Classify asks the remote model to choose one label from the closed set.
// Each attempt is individually bounded by the configured timeout; after a
// failed attempt the client sleeps attempt × baseDelay before retrying. When
// every attempt fails the sentinel label is returned together with
// ErrAttemptsExhausted so the dispatcher can record the degradation.
func (c *Client) Classify(ctx context.Context, message string) (string, error) {
	if message == "" {
		return classify.Unclassified, nil
	}

	prompt := c.buildPrompt(message)
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		start := time.Now()
		out, err := c.complete(ctx, prompt)
		elapsed := time.Since(start).Seconds()

		if c.onAttempt != nil {
			c.onAttempt(elapsed, err != nil)
		}

		if err == nil {
			label, found := ExtractCategory(out)
			if !found {
				// model ignored the delimiter; degrade, don't retry
				c.logger.Warn(ctx, "generative response missing category delimiter",
					"attempt", attempt,
				)
				return classify.Unclassified, nil
			}
			c.logger.Info(ctx, "generative classification successful",
				"label", label,
				"attempt", attempt,
				"latency_s", elapsed,
			)
			return label, nil
		}

		lastErr = err
		c.logger.Warn(ctx, "generative attempt failed",
			"attempt", attempt,
			"max_attempts", c.maxAttempts,
			"error", err.Error(),
		)

		if attempt < c.maxAttempts {
			select {
			case <-time.After(time.Duration(attempt) * c.baseDelay):
			case <-ctx.Done():
				return classify.Unclassified, fmt.Errorf("%w: %w", ErrAttemptsExhausted, ctx.Err())
			}
		}
	}

	return classify.Unclassified, fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, c.maxAttempts, lastErr)
}

// HealthCheck performs one low-cost classification and reports whether the
// remote service answered, absorbing any error.
func (c *Client) HealthCheck(ctx context.Context) bool {
	hctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	_, err := c.complete(hctx, c.buildPrompt("health check probe"))
	if err != nil {
		c.logger.Error(ctx, err, "generative health check failed")
	}
	return err == nil
}

// complete runs one bounded provider attempt.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.provider.Complete(actx, &llm.Request{
		Prompt:      prompt,
		MaxTokens:   responseTokens,
		Temperature: c.temperature,
	})
}

func (c *Client) buildPrompt(message string) string {
	return fmt.Sprintf(`Classify the log message into one of these categories: %s.
If you can't figure out a category, use "Unclassified".
Put the category inside <category> </category> tags.
Log message: %s`, strings.Join(c.labels, ", "), message)
}

// ExtractCategory parses the delimited label out of the model's free-text
// output. An absent delimiter or empty label reports found=false.
func ExtractCategory(output string) (string, bool) {
	m := categoryRE.FindStringSubmatch(output)
	if m == nil {
		return "", false
	}
	label := strings.TrimSpace(m[1])
	if label == "" {
		return "", false
	}
	return label, true
}
