package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	log "github.com/sirupsen/logrus"
)

// FallbackService tries providers in order and moves on to the next one when
// a provider fails.
type FallbackService struct {
	providers []Completer
}

// NewFallbackService creates a fallback chain. Nil providers are skipped.
func NewFallbackService(providers ...Completer) *FallbackService {
	f := &FallbackService{}
	for _, p := range providers {
		if p != nil {
			f.providers = append(f.providers, p)
		}
	}
	return f
}

func (f *FallbackService) Name() string {
	names := make([]string, 0, len(f.providers))
	for _, p := range f.providers {
		names = append(names, p.Name())
	}
	return "fallback(" + strings.Join(names, ",") + ")"
}

// Complete implements Completer
func (f *FallbackService) Complete(ctx context.Context, prompt string, jsonOutput bool) (string, error) {
	if len(f.providers) == 0 {
		return "", errors.New("no AI provider available")
	}

	var errs []error
	for i, p := range f.providers {
		result, err := p.Complete(ctx, prompt, jsonOutput)
		if err == nil {
			if i > 0 {
				log.Printf("[AI] %s answered after fallback", p.Name())
			}
			return result, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		if ctx.Err() != nil {
			break
		}

		switch {
		case isQuotaError(err):
			log.Printf("[AI] %s quota exhausted: %v, falling back", p.Name(), err)
		case isConnectionError(err):
			log.Printf("[AI] %s connection failed: %v, falling back", p.Name(), err)
		default:
			log.Printf("[AI] %s error: %v, falling back", p.Name(), err)
		}
	}
	return "", errors.Join(errs...)
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return containsAny(err.Error(), "connection refused", "no such host", "network is unreachable", "connection reset", "timeout", "dial tcp", "EOF")
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	return containsAny(err.Error(), "429", "quota", "rate limit", "too many requests", "resource exhausted", "RESOURCE_EXHAUSTED")
}

func containsAny(s string, indicators ...string) bool {
	s = strings.ToLower(s)
	for _, indicator := range indicators {
		if strings.Contains(s, strings.ToLower(indicator)) {
			return true
		}
	}
	return false
}
