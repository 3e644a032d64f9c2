package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

// Category is the failure class of a provider call.
type Category string

// Failure categories
const (
	CategoryTimeout       Category = "timeout"
	CategoryNetwork       Category = "network"
	CategoryRateLimit     Category = "rate_limit"
	CategoryServerError   Category = "server_error"
	CategoryContentFilter Category = "content_filter"
	CategoryUnknown       Category = "unknown"
)

// Classification is the retry decision for a failure.
type Classification struct {
	Category       Category
	Retryable      bool
	SuggestedDelay time.Duration
}

// ClassifierConfig holds the suggested delays per retryable category.
type ClassifierConfig struct {
	ShortDelay  time.Duration
	MediumDelay time.Duration
	LongDelay   time.Duration
}

// DefaultClassifierConfig returns the standard delays: 1s for timeouts and
// network errors, 5s for server errors, 30s for rate limits.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		ShortDelay:  time.Second,
		MediumDelay: 5 * time.Second,
		LongDelay:   30 * time.Second,
	}
}

// Classifier maps raw provider failures to retry decisions.
type Classifier struct {
	cfg    ClassifierConfig
	logger *slog.Logger
}

// NewClassifier creates a Classifier. Zero delays in cfg fall back to the
// defaults.
func NewClassifier(cfg ClassifierConfig, logger *slog.Logger) *Classifier {
	def := DefaultClassifierConfig()
	if cfg.ShortDelay <= 0 {
		cfg.ShortDelay = def.ShortDelay
	}
	if cfg.MediumDelay <= 0 {
		cfg.MediumDelay = def.MediumDelay
	}
	if cfg.LongDelay <= 0 {
		cfg.LongDelay = def.LongDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{cfg: cfg, logger: logger.With("component", "error_classifier")}
}

// retryDelayPattern matches "Please retry in 12.5s" and "retryDelay: 12s".
var retryDelayPattern = regexp.MustCompile(`(?i)(?:retry in |retryDelay["':\s]+)(\d+(?:\.\d+)?)\s*s`)

// ExtractRetryDelay parses a provider-suggested retry delay from an error
// message. It returns 0 when none is present.
func ExtractRetryDelay(msg string) time.Duration {
	m := retryDelayPattern.FindStringSubmatch(msg)
	if len(m) < 2 {
		return 0
	}
	seconds, err := strconv.ParseFloat(m[1], 64)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// Classify returns the retry decision for err. Unknown failures are logged
// verbatim so they can be diagnosed later.
func (c *Classifier) Classify(err error) Classification {
	if err == nil {
		return Classification{Category: CategoryUnknown}
	}

	category := c.category(err)
	result := Classification{Category: category}

	switch category {
	case CategoryTimeout, CategoryNetwork:
		result.Retryable = true
		result.SuggestedDelay = c.cfg.ShortDelay
	case CategoryServerError:
		result.Retryable = true
		result.SuggestedDelay = c.cfg.MediumDelay
	case CategoryRateLimit:
		result.Retryable = true
		result.SuggestedDelay = c.cfg.LongDelay
		if d := ExtractRetryDelay(err.Error()); d > 0 {
			result.SuggestedDelay = d
		}
	case CategoryUnknown:
		var pe *ProviderError
		attrs := []any{"error", err.Error(), "error_type", errorType(err)}
		if errors.As(err, &pe) {
			attrs = append(attrs, "provider", pe.Provider, "status", pe.Status, "message", pe.Message)
		}
		c.logger.Error("unclassified provider failure", attrs...)
	}

	return result
}

func (c *Classifier) category(err error) Category {
	var pe *ProviderError
	if errors.As(err, &pe) {
		if pe.Blocked {
			return CategoryContentFilter
		}
		if cat, ok := statusCategory(pe.Status); ok {
			return cat
		}
		// Other client errors are permanent; only a refusal worded as one
		// is treated differently.
		if pe.Status >= 400 && pe.Status <= 499 {
			if messageCategory(err.Error()) == CategoryContentFilter {
				return CategoryContentFilter
			}
			return CategoryUnknown
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CategoryTimeout
		}
		return CategoryNetwork
	}

	return messageCategory(err.Error())
}

func statusCategory(status int) (Category, bool) {
	switch {
	case status == http.StatusTooManyRequests:
		return CategoryRateLimit, true
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return CategoryTimeout, true
	case status >= 500 && status <= 599:
		return CategoryServerError, true
	default:
		return "", false
	}
}

// Message heuristics match whole words so that numbers and identifiers
// such as "1500" or "thereof" do not trigger them.
var (
	contentFilterPattern = regexp.MustCompile(`(?i)\b(safety|blocked|content[ _]filter|prohibited_content|recitation|refusal)\b`)
	rateLimitPattern     = regexp.MustCompile(`(?i)\b(429|resource_exhausted|rate[ _]limit(ed)?|quota|too many requests)\b`)
	timeoutPattern       = regexp.MustCompile(`(?i)\b(timeout|timed out|deadline exceeded)\b`)
	networkPattern       = regexp.MustCompile(`(?i)\b(connection refused|connection reset|no such host|broken pipe|unexpected eof|eof|network is unreachable)\b`)
	serverErrorPattern   = regexp.MustCompile(`(?i)\b(overloaded|unavailable|internal error|internal server error|bad gateway|50[0-4])\b`)
)

func messageCategory(msg string) Category {
	switch {
	case contentFilterPattern.MatchString(msg):
		return CategoryContentFilter
	case rateLimitPattern.MatchString(msg):
		return CategoryRateLimit
	case timeoutPattern.MatchString(msg):
		return CategoryTimeout
	case networkPattern.MatchString(msg):
		return CategoryNetwork
	case serverErrorPattern.MatchString(msg):
		return CategoryServerError
	default:
		return CategoryUnknown
	}
}

func errorType(err error) string {
	return fmt.Sprintf("%T", err)
}
