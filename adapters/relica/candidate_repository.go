package relica

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/coregx/relica"

	"github.com/coregx/gamealert"
	"github.com/coregx/gamealert/model"
)

// candidateRow is an event-source row type that knows its own table.
type candidateRow interface {
	gamealert.Candidate
	TableName() string
}

// CandidateRepository implements gamealert.CandidateRepository for one event-source table.
// Rows are written by the ingestion side; this repository only reads them and flips announced.
type CandidateRepository[T candidateRow] struct {
	db          *relica.DB
	tablePrefix string
	numericID   bool
}

// NewGiveawayRepository creates the candidate repository over the GamerPower table.
func NewGiveawayRepository(sqlDB *sql.DB, driverName string) *CandidateRepository[model.Giveaway] {
	return NewGiveawayRepositoryWithPrefix(sqlDB, driverName, "")
}

// NewGiveawayRepositoryWithPrefix creates the GamerPower repository with custom table prefix.
func NewGiveawayRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *CandidateRepository[model.Giveaway] {
	return &CandidateRepository[model.Giveaway]{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix, numericID: true}
}

// NewFreeToPlayRepository creates the candidate repository over the FreeToGame table.
func NewFreeToPlayRepository(sqlDB *sql.DB, driverName string) *CandidateRepository[model.FreeToPlayGame] {
	return NewFreeToPlayRepositoryWithPrefix(sqlDB, driverName, "")
}

// NewFreeToPlayRepositoryWithPrefix creates the FreeToGame repository with custom table prefix.
func NewFreeToPlayRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *CandidateRepository[model.FreeToPlayGame] {
	return &CandidateRepository[model.FreeToPlayGame]{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix, numericID: true}
}

// NewGamePassRepository creates the candidate repository over the Game Pass table.
// Game Pass rows are keyed by store product id.
func NewGamePassRepository(sqlDB *sql.DB, driverName string) *CandidateRepository[model.GamePassTitle] {
	return NewGamePassRepositoryWithPrefix(sqlDB, driverName, "")
}

// NewGamePassRepositoryWithPrefix creates the Game Pass repository with custom table prefix.
func NewGamePassRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *CandidateRepository[model.GamePassTitle] {
	return &CandidateRepository[model.GamePassTitle]{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *CandidateRepository[T]) tableName() string {
	var zero T
	return r.tablePrefix + zero.TableName()
}

// FindUnannounced returns every row with announced = false, in id order.
func (r *CandidateRepository[T]) FindUnannounced(ctx context.Context) ([]gamealert.Candidate, error) {
	var rows []T
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("announced = ?", false).
		OrderBy("id ASC").
		WithContext(ctx).
		All(&rows)
	if err != nil {
		return nil, gamealert.NewErrorWithCause(gamealert.ErrCodeDatabase, fmt.Sprintf("failed to load %s rows", r.tableName()), err)
	}

	candidates := make([]gamealert.Candidate, len(rows))
	for i, row := range rows {
		candidates[i] = row
	}
	return candidates, nil
}

// MarkAnnounced sets announced = true on a single row. Marking twice is harmless.
func (r *CandidateRepository[T]) MarkAnnounced(ctx context.Context, candidateID string) error {
	var id interface{} = candidateID
	if r.numericID {
		n, err := strconv.ParseInt(candidateID, 10, 64)
		if err != nil {
			return gamealert.NewErrorWithCause(gamealert.ErrCodeValidation, fmt.Sprintf("invalid %s id %q", r.tableName(), candidateID), err)
		}
		id = n
	}

	_, err := r.db.WithContext(ctx).Update(r.tableName()).
		Set(map[string]interface{}{"announced": true}).
		Where("id = ?", id).
		WithContext(ctx).
		Execute()
	if err != nil {
		return gamealert.NewErrorWithCause(gamealert.ErrCodeDatabase, fmt.Sprintf("failed to mark %s row %s announced", r.tableName(), candidateID), err)
	}
	return nil
}
