package gamealert

import (
	"context"
	"fmt"

	"github.com/coregx/gamealert/model"
)

const (
	// DefaultSoftLimit is the subscription count from which a qualifying vote is required.
	DefaultSoftLimit = 5

	// DefaultHardLimit is the subscription count at which creation is always denied.
	DefaultHardLimit = 10
)

// QuotaTier identifies which limit produced a decision.
type QuotaTier string

const (
	// TierFree means the server is under the soft limit.
	TierFree QuotaTier = "free"

	// TierSoft means the server is between the soft and hard limits.
	TierSoft QuotaTier = "soft"

	// TierHard means the server has reached the hard limit.
	TierHard QuotaTier = "hard"
)

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed bool      `json:"allowed"`
	Reason  string    `json:"reason,omitempty"`
	Tier    QuotaTier `json:"tier"`
	Count   int       `json:"count"`
}

// QuotaPolicy applies the two-tier subscription limit for a server.
//
// Below the soft limit creation is always allowed. Between the soft and hard
// limits the requesting user must currently hold a qualifying vote. At the hard
// limit creation is denied regardless of votes.
//
// Check never mutates state.
type QuotaPolicy struct {
	subscriptions SubscriptionRepository
	reputation    ReputationService
	logger        Logger
	softLimit     int
	hardLimit     int
	countedKinds  []model.Kind
	voteURL       string
}

// QuotaOption is a function that configures a QuotaPolicy.
type QuotaOption func(*QuotaPolicy) error

// NewQuotaPolicy creates a quota policy.
//
// Required options:
//   - WithQuotaSubscriptions: subscription repository
//   - WithReputation: vote lookup
//
// Optional options:
//   - WithLimits: soft and hard limits (default: 5 and 10)
//   - WithCountedKinds: kinds counted against the quota (default: standing kinds)
//   - WithQuotaLogger: logger (default: NoopLogger)
func NewQuotaPolicy(opts ...QuotaOption) (*QuotaPolicy, error) {
	p := &QuotaPolicy{
		logger:       &NoopLogger{},
		softLimit:    DefaultSoftLimit,
		hardLimit:    DefaultHardLimit,
		countedKinds: model.StandingKinds(),
		voteURL:      model.VoteURL,
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply quota option", err)
		}
	}

	if p.subscriptions == nil {
		return nil, NewError(ErrCodeConfiguration, "SubscriptionRepository is required (use WithQuotaSubscriptions)")
	}
	if p.reputation == nil {
		return nil, NewError(ErrCodeConfiguration, "ReputationService is required (use WithReputation)")
	}

	return p, nil
}

// WithQuotaSubscriptions sets the repository used to count subscriptions.
func WithQuotaSubscriptions(repo SubscriptionRepository) QuotaOption {
	return func(p *QuotaPolicy) error {
		if repo == nil {
			return fmt.Errorf("subscription repository cannot be nil")
		}
		p.subscriptions = repo
		return nil
	}
}

// WithReputation sets the vote lookup used between the soft and hard limits.
func WithReputation(rep ReputationService) QuotaOption {
	return func(p *QuotaPolicy) error {
		if rep == nil {
			return fmt.Errorf("reputation service cannot be nil")
		}
		p.reputation = rep
		return nil
	}
}

// WithLimits sets the soft and hard limits. The soft limit must be below the hard limit.
func WithLimits(soft, hard int) QuotaOption {
	return func(p *QuotaPolicy) error {
		if soft <= 0 || hard <= 0 {
			return fmt.Errorf("limits must be > 0, got soft=%d hard=%d", soft, hard)
		}
		if soft >= hard {
			return fmt.Errorf("soft limit %d must be below hard limit %d", soft, hard)
		}
		p.softLimit = soft
		p.hardLimit = hard
		return nil
	}
}

// WithCountedKinds sets which subscription kinds count against the quota.
func WithCountedKinds(kinds ...model.Kind) QuotaOption {
	return func(p *QuotaPolicy) error {
		if len(kinds) == 0 {
			return fmt.Errorf("at least one counted kind is required")
		}
		for _, k := range kinds {
			if !k.IsValid() {
				return fmt.Errorf("unknown subscription kind %q", k)
			}
		}
		p.countedKinds = append([]model.Kind(nil), kinds...)
		return nil
	}
}

// WithQuotaLogger sets the logger.
func WithQuotaLogger(logger Logger) QuotaOption {
	return func(p *QuotaPolicy) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		p.logger = logger
		return nil
	}
}

// Limits returns the configured soft and hard limits.
func (p *QuotaPolicy) Limits() (soft, hard int) {
	return p.softLimit, p.hardLimit
}

// Check decides whether userID may create one more subscription in serverID.
//
// A failing count returns an error and no decision. A failing vote lookup
// returns a soft-tier denial together with the error.
func (p *QuotaPolicy) Check(ctx context.Context, serverID, userID string) (Decision, error) {
	count, err := p.subscriptions.CountByServer(ctx, serverID, p.countedKinds...)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to count subscriptions for server %s: %w", serverID, err)
	}

	if count >= p.hardLimit {
		return Decision{
			Allowed: false,
			Tier:    TierHard,
			Count:   count,
			Reason: fmt.Sprintf("This server already has %d alerts, the maximum is %d. "+
				"Delete an existing alert before adding a new one.", count, p.hardLimit),
		}, nil
	}

	if count < p.softLimit {
		return Decision{Allowed: true, Tier: TierFree, Count: count}, nil
	}

	softDenied := Decision{
		Allowed: false,
		Tier:    TierSoft,
		Count:   count,
		Reason: fmt.Sprintf("This server has %d alerts. Adding more than %d requires a vote: %s",
			count, p.softLimit, p.voteURL),
	}

	voted, err := p.reputation.HasQualifyingStatus(ctx, userID)
	if err != nil {
		p.logger.Warnf("Vote lookup failed for user %s, denying: %v", userID, err)
		return softDenied, fmt.Errorf("failed to check vote status for %s: %w", userID, err)
	}
	if !voted {
		return softDenied, nil
	}

	return Decision{Allowed: true, Tier: TierSoft, Count: count}, nil
}
