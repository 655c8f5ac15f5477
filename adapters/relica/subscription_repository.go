package relica

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/coregx/relica"

	"github.com/coregx/gamealert"
	"github.com/coregx/gamealert/model"
)

// alertRow is one row of a standing alert table.
type alertRow struct {
	ID        int64          `db:"id"`
	UserID    string         `db:"user_id"`
	ServerID  string         `db:"server_id"`
	ChannelID string         `db:"channel_id"`
	Mentions  sql.NullString `db:"mentions"`
	CreatedAt time.Time      `db:"created_at"`
}

// priceAlertRow is one row of the price alert table.
type priceAlertRow struct {
	ID        int64          `db:"id"`
	UserID    string         `db:"user_id"`
	ServerID  string         `db:"server_id"`
	ChannelID string         `db:"channel_id"`
	Mentions  sql.NullString `db:"mentions"`
	CreatedAt time.Time      `db:"created_at"`
	Price     int64          `db:"price"`
	GameKey   string         `db:"game_key"`
	GameName  string         `db:"game_name"`
	ImageURL  sql.NullString `db:"image_url"`
}

func encodeMentions(m model.Mentions) sql.NullString {
	raw := m.Encode()
	return sql.NullString{String: raw, Valid: raw != ""}
}

func decodeMentions(raw sql.NullString) model.Mentions {
	if !raw.Valid {
		return nil
	}
	m, err := model.DecodeMentions(raw.String)
	if err != nil {
		return nil
	}
	return m
}

func (r alertRow) toModel(kind model.Kind) model.Subscription {
	return model.Subscription{
		ID:        r.ID,
		ServerID:  r.ServerID,
		ChannelID: r.ChannelID,
		UserID:    r.UserID,
		Kind:      kind,
		Mentions:  decodeMentions(r.Mentions),
		CreatedAt: r.CreatedAt,
	}
}

func (r priceAlertRow) toModel() model.Subscription {
	return model.Subscription{
		ID:        r.ID,
		ServerID:  r.ServerID,
		ChannelID: r.ChannelID,
		UserID:    r.UserID,
		Kind:      model.KindPrice,
		Mentions:  decodeMentions(r.Mentions),
		CreatedAt: r.CreatedAt,
		Price: &model.PriceTarget{
			GameKey:     r.GameKey,
			DisplayName: r.GameName,
			ImageURL:    r.ImageURL.String,
			TargetPrice: r.Price,
		},
	}
}

// SubscriptionRepository implements gamealert.SubscriptionRepository using Relica.
// Each kind lives in its own table; see model.Kind.Table.
type SubscriptionRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewSubscriptionRepository creates a new SubscriptionRepository without a table prefix.
func NewSubscriptionRepository(sqlDB *sql.DB, driverName string) *SubscriptionRepository {
	return &SubscriptionRepository{db: relica.WrapDB(sqlDB, driverName)}
}

// NewSubscriptionRepositoryWithPrefix creates a new SubscriptionRepository with custom table prefix.
func NewSubscriptionRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *SubscriptionRepository {
	return &SubscriptionRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *SubscriptionRepository) tableName(kind model.Kind) string {
	return r.tablePrefix + kind.Table()
}

// Save inserts a new subscription into its kind's table.
func (r *SubscriptionRepository) Save(ctx context.Context, sub model.Subscription) (model.Subscription, error) {
	if !sub.Kind.IsValid() {
		return sub, gamealert.NewError(gamealert.ErrCodeValidation, fmt.Sprintf("unknown subscription kind %q", sub.Kind))
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}

	if sub.Kind == model.KindPrice {
		if sub.Price == nil {
			return sub, gamealert.NewError(gamealert.ErrCodeValidation, "price subscription without target")
		}
		row := priceAlertRow{
			UserID:    sub.UserID,
			ServerID:  sub.ServerID,
			ChannelID: sub.ChannelID,
			Mentions:  encodeMentions(sub.Mentions),
			CreatedAt: sub.CreatedAt,
			Price:     sub.Price.TargetPrice,
			GameKey:   sub.Price.GameKey,
			GameName:  sub.Price.DisplayName,
			ImageURL:  sql.NullString{String: sub.Price.ImageURL, Valid: sub.Price.ImageURL != ""},
		}
		if err := r.db.WithContext(ctx).Model(&row).Table(r.tableName(model.KindPrice)).Insert(); err != nil {
			return sub, gamealert.NewErrorWithCause(gamealert.ErrCodeDatabase, "failed to insert price alert", err)
		}
		sub.ID = row.ID
		return sub, nil
	}

	row := alertRow{
		UserID:    sub.UserID,
		ServerID:  sub.ServerID,
		ChannelID: sub.ChannelID,
		Mentions:  encodeMentions(sub.Mentions),
		CreatedAt: sub.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Model(&row).Table(r.tableName(sub.Kind)).Insert(); err != nil {
		return sub, gamealert.NewErrorWithCause(gamealert.ErrCodeDatabase, fmt.Sprintf("failed to insert %s alert", sub.Kind), err)
	}
	sub.ID = row.ID
	return sub, nil
}

// ListByServer returns every subscription of the server across all kinds, oldest first.
func (r *SubscriptionRepository) ListByServer(ctx context.Context, serverID string) ([]model.Subscription, error) {
	var out []model.Subscription
	for _, kind := range model.AllKinds() {
		subs, err := r.list(ctx, kind, "server_id = ?", serverID)
		if err != nil {
			return nil, err
		}
		out = append(out, subs...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ListByKind returns every subscription of one kind across all servers.
func (r *SubscriptionRepository) ListByKind(ctx context.Context, kind model.Kind) ([]model.Subscription, error) {
	if !kind.IsValid() {
		return nil, gamealert.NewError(gamealert.ErrCodeValidation, fmt.Sprintf("unknown subscription kind %q", kind))
	}
	return r.list(ctx, kind, "", nil)
}

// CountByServer counts the server's subscriptions of the given kinds.
func (r *SubscriptionRepository) CountByServer(ctx context.Context, serverID string, kinds ...model.Kind) (int, error) {
	if len(kinds) == 0 {
		kinds = model.AllKinds()
	}
	total := 0
	for _, kind := range kinds {
		var count int64
		err := r.db.WithContext(ctx).Select("COUNT(*)").
			From(r.tableName(kind)).
			Where("server_id = ?", serverID).
			One(&count)
		if err != nil {
			return 0, gamealert.NewErrorWithCause(gamealert.ErrCodeDatabase, fmt.Sprintf("failed to count %s alerts", kind), err)
		}
		total += int(count)
	}
	return total, nil
}

// DeleteMatching deletes the server's subscriptions of one kind that pass the filter.
// The filter is translated into a single DELETE statement with the same semantics
// as gamealert.DeleteFilter.Matches.
func (r *SubscriptionRepository) DeleteMatching(ctx context.Context, serverID string, kind model.Kind, filter gamealert.DeleteFilter) (int, error) {
	if !kind.IsValid() {
		return 0, gamealert.NewError(gamealert.ErrCodeValidation, fmt.Sprintf("unknown subscription kind %q", kind))
	}

	conds := []string{"server_id = ?"}
	args := []interface{}{serverID}
	if filter.ChannelID != "" {
		conds = append(conds, "channel_id = ?")
		args = append(args, filter.ChannelID)
	}
	if filter.NamePrefix != "" || filter.TargetPrice != nil {
		// Only price subscriptions carry a name and a target.
		if kind != model.KindPrice {
			return 0, nil
		}
		if filter.TargetPrice != nil {
			conds = append(conds, "price = ?")
			args = append(args, *filter.TargetPrice)
		}
		if filter.NamePrefix != "" {
			// SUBSTR compares case-sensitively on every dialect, unlike LIKE on SQLite.
			conds = append(conds, "SUBSTR(game_name, 1, ?) = ?")
			args = append(args, utf8.RuneCountInString(filter.NamePrefix), filter.NamePrefix)
		}
	}

	return r.deleteWhere(ctx, kind, strings.Join(conds, " AND "), args...)
}

// DeleteByChannel removes the channel from every kind, one statement per table.
func (r *SubscriptionRepository) DeleteByChannel(ctx context.Context, channelID string) (int, error) {
	removed := 0
	for _, kind := range model.AllKinds() {
		n, err := r.deleteWhere(ctx, kind, "channel_id = ?", channelID)
		if err != nil {
			return removed, err
		}
		removed += n
	}
	return removed, nil
}

// Delete removes one subscription. Returns ErrNoData if it is already gone.
func (r *SubscriptionRepository) Delete(ctx context.Context, kind model.Kind, id int64) error {
	if !kind.IsValid() {
		return gamealert.NewError(gamealert.ErrCodeValidation, fmt.Sprintf("unknown subscription kind %q", kind))
	}
	n, err := r.deleteWhere(ctx, kind, "id = ?", id)
	if err != nil {
		return err
	}
	if n == 0 {
		return gamealert.ErrNoData
	}
	return nil
}

// CountChannels returns the number of distinct subscribed channels and servers.
func (r *SubscriptionRepository) CountChannels(ctx context.Context) (int, int, error) {
	channels := make(map[string]bool)
	servers := make(map[string]bool)
	for _, kind := range model.AllKinds() {
		subs, err := r.list(ctx, kind, "", nil)
		if err != nil {
			return 0, 0, err
		}
		for _, s := range subs {
			channels[s.ChannelID] = true
			servers[s.ServerID] = true
		}
	}
	return len(channels), len(servers), nil
}

// list loads one kind's table, optionally narrowed by a single condition.
func (r *SubscriptionRepository) list(ctx context.Context, kind model.Kind, where string, arg interface{}) ([]model.Subscription, error) {
	if kind == model.KindPrice {
		var rows []priceAlertRow
		q := r.db.WithContext(ctx).Select("*").From(r.tableName(kind))
		if where != "" {
			q = q.Where(where, arg)
		}
		if err := q.OrderBy("id ASC").WithContext(ctx).All(&rows); err != nil {
			return nil, gamealert.NewErrorWithCause(gamealert.ErrCodeDatabase, "failed to list price alerts", err)
		}
		subs := make([]model.Subscription, len(rows))
		for i, row := range rows {
			subs[i] = row.toModel()
		}
		return subs, nil
	}

	var rows []alertRow
	q := r.db.WithContext(ctx).Select("*").From(r.tableName(kind))
	if where != "" {
		q = q.Where(where, arg)
	}
	if err := q.OrderBy("id ASC").WithContext(ctx).All(&rows); err != nil {
		return nil, gamealert.NewErrorWithCause(gamealert.ErrCodeDatabase, fmt.Sprintf("failed to list %s alerts", kind), err)
	}
	subs := make([]model.Subscription, len(rows))
	for i, row := range rows {
		subs[i] = row.toModel(kind)
	}
	return subs, nil
}

// deleteWhere runs one DELETE against the kind's table and returns the affected row count.
func (r *SubscriptionRepository) deleteWhere(ctx context.Context, kind model.Kind, where string, args ...interface{}) (int, error) {
	res, err := r.db.WithContext(ctx).Delete(r.tableName(kind)).
		Where(where, args...).
		Execute()
	if err != nil {
		return 0, gamealert.NewErrorWithCause(gamealert.ErrCodeDatabase, fmt.Sprintf("failed to delete %s alerts", kind), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, gamealert.NewErrorWithCause(gamealert.ErrCodeDatabase, fmt.Sprintf("failed to count deleted %s alerts", kind), err)
	}
	return int(n), nil
}
