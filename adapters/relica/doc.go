// Package relica provides repository implementations using Relica query builder.
//
// Relica (github.com/coregx/relica) is a lightweight, type-safe database query builder
// for Go with zero production dependencies.
//
// This package implements every gamealert repository interface:
//   - SubscriptionRepository (one alert table per kind)
//   - CandidateRepository for the GamerPower, FreeToGame and Game Pass tables
//   - LocalGiveawayRepository
//
// Example usage:
//
//	import (
//	    "database/sql"
//	    "github.com/coregx/gamealert"
//	    "github.com/coregx/gamealert/adapters/relica"
//	    _ "github.com/lib/pq"
//	)
//
//	db, err := sql.Open("postgres", dsn)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// driverName should be "mysql", "postgres", or "sqlite3"
//	repos := relica.NewRepositories(db, "postgres")
//
//	dispatcher, err := gamealert.NewDispatcher(
//	    gamealert.WithSubscriptions(repos.Subscription),
//	    gamealert.WithPlatform(platform),
//	)
package relica
