package relica

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/coregx/relica"

	"github.com/coregx/gamealert"
	"github.com/coregx/gamealert/model"
)

// LocalGiveawayRepository implements gamealert.LocalGiveawayRepository using Relica.
type LocalGiveawayRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewLocalGiveawayRepository creates a new LocalGiveawayRepository without a table prefix.
func NewLocalGiveawayRepository(sqlDB *sql.DB, driverName string) *LocalGiveawayRepository {
	return &LocalGiveawayRepository{db: relica.WrapDB(sqlDB, driverName)}
}

// NewLocalGiveawayRepositoryWithPrefix creates a new LocalGiveawayRepository with custom table prefix.
func NewLocalGiveawayRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *LocalGiveawayRepository {
	return &LocalGiveawayRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *LocalGiveawayRepository) tableName() string {
	return r.tablePrefix + model.LocalGiveaway{}.TableName()
}

// Save inserts a new giveaway.
func (r *LocalGiveawayRepository) Save(ctx context.Context, g model.LocalGiveaway) (model.LocalGiveaway, error) {
	if g.CreationTime.IsZero() {
		g.CreationTime = time.Now()
	}
	if g.EndTime.IsZero() {
		g.EndTime = g.CreationTime.Add(model.LocalGiveawayDuration)
	}

	err := r.db.WithContext(ctx).Model(&g).Table(r.tableName()).Insert()
	if err != nil {
		return g, gamealert.NewErrorWithCause(gamealert.ErrCodeDatabase, "failed to insert local giveaway", err)
	}
	return g, nil
}

// FindUnannounced returns giveaways not yet announced, in id order.
func (r *LocalGiveawayRepository) FindUnannounced(ctx context.Context) ([]model.LocalGiveaway, error) {
	var rows []model.LocalGiveaway
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("announced = ?", false).
		OrderBy("id ASC").
		WithContext(ctx).
		All(&rows)
	if err != nil {
		return nil, gamealert.NewErrorWithCause(gamealert.ErrCodeDatabase, "failed to load unannounced local giveaways", err)
	}
	return rows, nil
}

// MarkAnnounced sets announced = true on one giveaway.
func (r *LocalGiveawayRepository) MarkAnnounced(ctx context.Context, id int64) error {
	_, err := r.db.WithContext(ctx).Update(r.tableName()).
		Set(map[string]interface{}{"announced": true}).
		Where("id = ?", id).
		WithContext(ctx).
		Execute()
	if err != nil {
		return gamealert.NewErrorWithCause(gamealert.ErrCodeDatabase, "failed to mark local giveaway announced", err)
	}
	return nil
}

// FindPendingDraws returns ended giveaways without a winner, oldest end time first.
func (r *LocalGiveawayRepository) FindPendingDraws(ctx context.Context, now time.Time) ([]model.LocalGiveaway, error) {
	var rows []model.LocalGiveaway
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("end_time <= ? AND winner IS NULL", now).
		OrderBy("end_time ASC").
		WithContext(ctx).
		All(&rows)
	if err != nil {
		return nil, gamealert.NewErrorWithCause(gamealert.ErrCodeDatabase, "failed to load pending draws", err)
	}

	// Ties on end_time break by id.
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].EndTime.Equal(rows[j].EndTime) {
			return rows[i].ID < rows[j].ID
		}
		return rows[i].EndTime.Before(rows[j].EndTime)
	})
	return rows, nil
}

// SetWinner records the winner. A giveaway that already has one keeps it, and
// ErrNoData is returned when no row was updated.
func (r *LocalGiveawayRepository) SetWinner(ctx context.Context, id int64, userID string) error {
	res, err := r.db.WithContext(ctx).Update(r.tableName()).
		Set(map[string]interface{}{"winner": userID}).
		Where("id = ? AND winner IS NULL", id).
		WithContext(ctx).
		Execute()
	if err != nil {
		return gamealert.NewErrorWithCause(gamealert.ErrCodeDatabase, "failed to record winner", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return gamealert.NewErrorWithCause(gamealert.ErrCodeDatabase, "failed to check recorded winner", err)
	}
	if n == 0 {
		return gamealert.ErrNoData
	}
	return nil
}
