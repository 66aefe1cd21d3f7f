// Package policy decides whether a failed upstream call is retried
// against the operator-run fallback provider.
package policy

import (
	"github.com/groundupcareers/resume-enhancer/internal/domain"
)

// Attempt is the provider-selection state for one job. It is an explicit
// value threaded through the orchestrator rather than mutable state
// captured in a closure, so the retry decision is testable on its own.
type Attempt struct {
	Provider     domain.ProviderName
	Model        string
	UsedFallback bool
}

// FirstAttempt selects the initial provider/model for a job. With no
// usable credential the job routes straight to the fallback provider.
func FirstAttempt(cred *domain.Credential) Attempt {
	if cred == nil {
		return Attempt{
			Provider:     domain.ProviderAbacus,
			Model:        domain.FallbackModel,
			UsedFallback: true,
		}
	}

	model := cred.DefaultModel
	if model == "" {
		model = domain.DefaultModel(cred.Provider)
	}
	return Attempt{Provider: cred.Provider, Model: model}
}

// ShouldFallback reports whether a failed attempt warrants one retry
// against the fallback provider. Retry is warranted only when the failed
// attempt used a user credential, the upstream rejected it as an
// authentication failure, and no fallback has been tried for this job.
// Fallback never cascades: a failure on the fallback attempt is terminal.
func ShouldFallback(attempt Attempt, failure *domain.UpstreamFailure) bool {
	if attempt.UsedFallback || attempt.Provider == domain.ProviderAbacus {
		return false
	}
	return failure.AuthFailure()
}

// FallbackAttempt builds the retry state: the fixed fallback provider and
// model, marked so no further fallback can occur.
func FallbackAttempt() Attempt {
	return Attempt{
		Provider:     domain.ProviderAbacus,
		Model:        domain.FallbackModel,
		UsedFallback: true,
	}
}
