package relica

import (
	"database/sql"

	"github.com/coregx/gamealert"
)

// Repositories holds all repository implementations.
type Repositories struct {
	Subscription  gamealert.SubscriptionRepository
	Giveaway      gamealert.CandidateRepository
	FreeToPlay    gamealert.CandidateRepository
	GamePass      gamealert.CandidateRepository
	LocalGiveaway gamealert.LocalGiveawayRepository
}

// NewRepositories creates all repository implementations using Relica.
//
// The db parameter should be an *sql.DB connected to MySQL, PostgreSQL, or SQLite.
// The driverName should be "mysql", "postgres", or "sqlite3".
// Tables are unprefixed; see NewRepositoriesWithPrefix.
func NewRepositories(db *sql.DB, driverName string) *Repositories {
	return NewRepositoriesWithPrefix(db, driverName, "")
}

// NewRepositoriesWithPrefix creates all repository implementations with a custom table prefix.
func NewRepositoriesWithPrefix(db *sql.DB, driverName, prefix string) *Repositories {
	return &Repositories{
		Subscription:  NewSubscriptionRepositoryWithPrefix(db, driverName, prefix),
		Giveaway:      NewGiveawayRepositoryWithPrefix(db, driverName, prefix),
		FreeToPlay:    NewFreeToPlayRepositoryWithPrefix(db, driverName, prefix),
		GamePass:      NewGamePassRepositoryWithPrefix(db, driverName, prefix),
		LocalGiveaway: NewLocalGiveawayRepositoryWithPrefix(db, driverName, prefix),
	}
}
