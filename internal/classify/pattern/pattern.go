// Package pattern implements the first waterfall tier: an ordered table of
// (regex, label) rules evaluated first-match-wins over the message text. The
// table is immutable after construction, so a Matcher is safe for
// unsynchronized concurrent use.
package pattern

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/linnemanlabs/go-core/log"
	"gopkg.in/yaml.v3"
)

// Rule pairs a regular expression with the label it yields. Rule tables are
// edited independently of code, so a malformed expression must never take the
// service down.
type Rule struct {
	Pattern string `yaml:"pattern"`
	Label   string `yaml:"label"`
}

type compiledRule struct {
	re    *regexp.Regexp
	label string
}

// Matcher evaluates rules in table order and returns the first matching label.
type Matcher struct {
	rules []compiledRule
}

// New compiles the rule table, preserving order. A rule that fails to compile
// is logged and skipped; the rest of the table keeps evaluating.
func New(ctx context.Context, rules []Rule, logger log.Logger) *Matcher {
	if logger == nil {
		logger = log.Nop()
	}

	compiled := make([]compiledRule, 0, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			logger.Warn(ctx, "skipping malformed pattern rule",
				"index", i,
				"pattern", r.Pattern,
				"error", err.Error(),
			)
			continue
		}
		compiled = append(compiled, compiledRule{re: re, label: r.Label})
	}

	logger.Info(ctx, "pattern matcher initialized",
		"rule_count", len(compiled),
		"skipped", len(rules)-len(compiled),
	)

	return &Matcher{rules: compiled}
}

// Match returns the label of the first rule found anywhere within the message,
// or ok=false when nothing matches or the message is empty.
func (m *Matcher) Match(message string) (string, bool) {
	if message == "" {
		return "", false
	}
	for _, r := range m.rules {
		if r.re.MatchString(message) {
			return r.label, true
		}
	}
	return "", false
}

// Len reports the number of usable rules.
func (m *Matcher) Len() int {
	return len(m.rules)
}

// DefaultRules returns the built-in rule table for common operational log
// shapes. Deployments override it with a YAML file via LoadFile.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: `User User\d+ logged (in|out).`, Label: "User Action"},
		{Pattern: `Backup (started|ended) at .*`, Label: "System Notification"},
		{Pattern: `Backup completed successfully.`, Label: "System Notification"},
		{Pattern: `System updated to version .*`, Label: "System Notification"},
		{Pattern: `File .* uploaded successfully by user .*`, Label: "System Notification"},
		{Pattern: `Disk cleanup completed successfully.`, Label: "System Notification"},
		{Pattern: `System reboot initiated by user .*`, Label: "System Notification"},
		{Pattern: `Account with ID .* created by .*`, Label: "User Action"},
	}
}

// LoadFile reads an ordered YAML rule table:
//
//	- pattern: 'Backup completed successfully.'
//	  label: System Notification
func LoadFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read pattern table: %w", err)
	}

	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse pattern table: %w", err)
	}
	return rules, nil
}
