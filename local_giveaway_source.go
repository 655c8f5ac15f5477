package gamealert

import (
	"context"
	"fmt"
	"strconv"

	"github.com/coregx/gamealert/model"
)

// LocalGiveawaySource adapts local giveaways to the dispatcher.
// Rendering fetches store details, so each candidate suspends on the catalog.
type LocalGiveawaySource struct {
	repo    LocalGiveawayRepository
	catalog StoreCatalog
}

// NewLocalGiveawaySource creates a candidate source over the local giveaway table.
func NewLocalGiveawaySource(repo LocalGiveawayRepository, catalog StoreCatalog) (*LocalGiveawaySource, error) {
	if repo == nil {
		return nil, NewError(ErrCodeConfiguration, "LocalGiveawayRepository is required")
	}
	if catalog == nil {
		return nil, NewError(ErrCodeConfiguration, "StoreCatalog is required")
	}
	return &LocalGiveawaySource{repo: repo, catalog: catalog}, nil
}

// FindUnannounced returns un-announced giveaways as renderable candidates.
func (s *LocalGiveawaySource) FindUnannounced(ctx context.Context) ([]Candidate, error) {
	rows, err := s.repo.FindUnannounced(ctx)
	if err != nil {
		return nil, err
	}
	candidates := make([]Candidate, len(rows))
	for i := range rows {
		candidates[i] = &localGiveawayCandidate{giveaway: rows[i], catalog: s.catalog}
	}
	return candidates, nil
}

// MarkAnnounced flips the announced flag of one giveaway.
func (s *LocalGiveawaySource) MarkAnnounced(ctx context.Context, candidateID string) error {
	id, err := strconv.ParseInt(candidateID, 10, 64)
	if err != nil {
		return NewErrorWithCause(ErrCodeValidation, fmt.Sprintf("invalid local giveaway id %q", candidateID), err)
	}
	return s.repo.MarkAnnounced(ctx, id)
}

type localGiveawayCandidate struct {
	giveaway model.LocalGiveaway
	catalog  StoreCatalog
}

func (c *localGiveawayCandidate) CandidateID() string {
	return c.giveaway.CandidateID()
}

func (c *localGiveawayCandidate) Render(ctx context.Context) (*model.Announcement, error) {
	details, err := c.catalog.AppDetails(ctx, c.giveaway.AppID)
	if err != nil {
		return nil, fmt.Errorf("fetch app details for %d: %w", c.giveaway.AppID, err)
	}
	return c.giveaway.Announcement(details), nil
}

// CreateLocalGiveaway validates the request and stores a giveaway that closes in one week.
// The dispatcher announces it on its next local-giveaway run.
func CreateLocalGiveaway(ctx context.Context, repo LocalGiveawayRepository, req CreateLocalGiveawayRequest) (model.LocalGiveaway, error) {
	if err := req.Validate(); err != nil {
		return model.LocalGiveaway{}, NewErrorWithCause(ErrCodeValidation, "invalid local giveaway", err)
	}
	g, err := repo.Save(ctx, model.NewLocalGiveaway(req.AppID, req.Key))
	if err != nil {
		return g, fmt.Errorf("save local giveaway: %w", err)
	}
	return g, nil
}
