package gamealert

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/coregx/gamealert/model"
)

// Picker chooses one voter. Implementations must pick uniformly at random.
type Picker func(voters []string) string

// RandomPicker picks a voter uniformly at random with math/rand/v2.
func RandomPicker(voters []string) string {
	return voters[rand.IntN(len(voters))]
}

// RewardDraw picks winners for local giveaways whose end time has passed.
//
// Each run processes the oldest pending giveaway only. A giveaway with a winner
// is terminal. A failed draw leaves the giveaway pending for the next run, which
// may pick a different winner if the voter list changed.
type RewardDraw struct {
	giveaways   LocalGiveawayRepository
	reputation  ReputationService
	platform    ChatPlatform
	catalog     StoreCatalog
	logger      Logger
	diagnostics DiagnosticsReporter
	pick        Picker
	now         func() time.Time
}

// RewardDrawOption is a function that configures a RewardDraw.
type RewardDrawOption func(*RewardDraw) error

// NewRewardDraw creates a reward draw.
//
// Required options:
//   - WithDrawGiveaways: local giveaway repository
//   - WithDrawReputation: voter list
//   - WithDrawPlatform: chat platform for the winner's direct message
//   - WithDrawLogger: logger instance
//
// Optional options:
//   - WithDrawCatalog: store catalog for the game name in the prize message
//   - WithDrawDiagnostics: failure reporter (default: NoOpDiagnostics)
//   - WithPicker: winner selection (default: RandomPicker)
func NewRewardDraw(opts ...RewardDrawOption) (*RewardDraw, error) {
	d := &RewardDraw{
		diagnostics: &NoOpDiagnostics{},
		pick:        RandomPicker,
		now:         time.Now,
	}

	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply reward draw option", err)
		}
	}

	if d.giveaways == nil {
		return nil, NewError(ErrCodeConfiguration, "LocalGiveawayRepository is required (use WithDrawGiveaways)")
	}
	if d.reputation == nil {
		return nil, NewError(ErrCodeConfiguration, "ReputationService is required (use WithDrawReputation)")
	}
	if d.platform == nil {
		return nil, NewError(ErrCodeConfiguration, "ChatPlatform is required (use WithDrawPlatform)")
	}
	if d.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithDrawLogger)")
	}

	return d, nil
}

// WithDrawGiveaways sets the local giveaway repository.
func WithDrawGiveaways(repo LocalGiveawayRepository) RewardDrawOption {
	return func(d *RewardDraw) error {
		if repo == nil {
			return fmt.Errorf("local giveaway repository cannot be nil")
		}
		d.giveaways = repo
		return nil
	}
}

// WithDrawReputation sets the voter list source.
func WithDrawReputation(rep ReputationService) RewardDrawOption {
	return func(d *RewardDraw) error {
		if rep == nil {
			return fmt.Errorf("reputation service cannot be nil")
		}
		d.reputation = rep
		return nil
	}
}

// WithDrawPlatform sets the chat platform.
func WithDrawPlatform(platform ChatPlatform) RewardDrawOption {
	return func(d *RewardDraw) error {
		if platform == nil {
			return fmt.Errorf("platform cannot be nil")
		}
		d.platform = platform
		return nil
	}
}

// WithDrawCatalog sets the store catalog used to name the prize.
func WithDrawCatalog(catalog StoreCatalog) RewardDrawOption {
	return func(d *RewardDraw) error {
		d.catalog = catalog
		return nil
	}
}

// WithDrawLogger sets the logger instance.
func WithDrawLogger(logger Logger) RewardDrawOption {
	return func(d *RewardDraw) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		d.logger = logger
		return nil
	}
}

// WithDrawDiagnostics sets the failure reporter.
func WithDrawDiagnostics(reporter DiagnosticsReporter) RewardDrawOption {
	return func(d *RewardDraw) error {
		if reporter == nil {
			return fmt.Errorf("diagnostics reporter cannot be nil")
		}
		d.diagnostics = reporter
		return nil
	}
}

// WithPicker replaces the winner selection, mainly for tests.
func WithPicker(pick Picker) RewardDrawOption {
	return func(d *RewardDraw) error {
		if pick == nil {
			return fmt.Errorf("picker cannot be nil")
		}
		d.pick = pick
		return nil
	}
}

// DrawResult describes what a reward draw run did.
type DrawResult struct {
	Pending    int    // Giveaways waiting for a winner when the run started
	GiveawayID int64  // Giveaway processed, zero when none was pending
	WinnerID   string // Set only when a winner was recorded
	Err        error  // Draw failure; the giveaway stays pending
}

// Drawn reports whether this run recorded a winner.
func (r *DrawResult) Drawn() bool {
	return r.WinnerID != ""
}

// Run draws a winner for the oldest pending giveaway.
//
// The returned error is non-nil only when pending giveaways could not be loaded.
// Draw failures are reported to diagnostics and returned in DrawResult.Err.
func (d *RewardDraw) Run(ctx context.Context) (*DrawResult, error) {
	pending, err := d.giveaways.FindPendingDraws(ctx, d.now())
	if err != nil && !IsNoData(err) {
		return nil, fmt.Errorf("failed to find pending draws: %w", err)
	}

	result := &DrawResult{Pending: len(pending)}
	if len(pending) == 0 {
		return result, nil
	}

	giveaway := pending[0]
	result.GiveawayID = giveaway.ID
	if len(pending) > 1 {
		d.logger.Infof("%d giveaways pending, drawing giveaway %d first", len(pending), giveaway.ID)
	}

	winnerID, err := d.draw(ctx, giveaway.ID, giveaway.PrizeMessage(d.gameName(ctx, giveaway.AppID)))
	if err != nil {
		result.Err = err
		d.logger.Warnf("Reward draw for giveaway %d failed, leaving it pending: %v", giveaway.ID, err)
		if repErr := d.diagnostics.ReportDrawFailure(ctx, giveaway.ID, err); repErr != nil {
			d.logger.Warnf("Failed to report draw failure: %v", repErr)
		}
		return result, nil
	}

	result.WinnerID = winnerID
	d.logger.Infof("Giveaway %d won by %s", giveaway.ID, winnerID)
	return result, nil
}

// draw picks a voter, sends the prize privately and records the winner.
func (d *RewardDraw) draw(ctx context.Context, giveawayID int64, prize *model.Announcement) (string, error) {
	voters, err := d.reputation.QualifyingVoters(ctx)
	if err != nil {
		return "", NewErrorWithCause(ErrCodeDraw, "failed to fetch voters", err)
	}
	if len(voters) == 0 {
		return "", ErrNoVoters
	}

	winnerID := d.pick(voters)

	user, err := d.platform.GetOrFetchUser(ctx, winnerID)
	if err != nil {
		return "", NewErrorWithCause(ErrCodeDraw, fmt.Sprintf("failed to resolve winner %s", winnerID), err)
	}
	if err := user.Send(ctx, prize); err != nil {
		return "", NewErrorWithCause(ErrCodeDraw, fmt.Sprintf("failed to message winner %s", winnerID), err)
	}

	if err := d.giveaways.SetWinner(ctx, giveawayID, winnerID); err != nil {
		// The key is already with the winner.
		return "", NewErrorWithCause(ErrCodeDatabase, fmt.Sprintf("winner %s notified but not recorded", winnerID), err)
	}
	return winnerID, nil
}

// gameName looks up the prize name; an unknown name falls back to the app id.
func (d *RewardDraw) gameName(ctx context.Context, appID int64) string {
	if d.catalog == nil {
		return ""
	}
	details, err := d.catalog.AppDetails(ctx, appID)
	if err != nil {
		d.logger.Warnf("Failed to look up app %d for prize message: %v", appID, err)
		return ""
	}
	return details.Name
}
