// Package gamealert is the alert dispatch and notification engine of a Discord
// game-deals bot.
//
// Channels subscribe to streams of events (store giveaways, new free-to-play games,
// Game Pass additions, the bot's own key giveaways) or to one-shot price targets.
// Ingesters outside this package fill one table per stream with announced = false
// rows; the engine turns every such row into one announcement per subscribed
// channel and flips the flag.
//
// # Components
//
//   - SubscriptionRepository: per-kind subscription persistence
//   - CandidateRepository: one event-source table with its announced flag
//   - Dispatcher: fan-out of candidates to subscribed channels, with pruning of dead channels
//   - PriceWatcher: batched price lookups that consume price subscriptions once satisfied
//   - QuotaPolicy and SubscriptionManager: two-tier per-server limits gated by votes
//   - RewardDraw: picks a voter as winner for ended local giveaways and sends the key
//   - Scheduler: runs every job on its own interval without overlapping runs
//
// # Delivery semantics
//
// A candidate is marked announced once every destination was attempted, whatever
// the outcome. Destinations that no longer exist, or that reject the bot, lose all
// their subscriptions unless debug mode is enabled. Transient failures are reported
// through the DiagnosticsReporter and never retried for the same candidate.
//
// # Quick Start
//
//	db, _ := sql.Open("postgres", dsn)
//	repos := relica.NewRepositories(db, "postgres")
//
//	dispatcher, err := gamealert.NewDispatcher(
//	    gamealert.WithSubscriptions(repos.Subscription),
//	    gamealert.WithPlatform(discord.NewPlatform(session)),
//	    gamealert.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry := gamealert.NewRegistry()
//	registry.Register(gamealert.NewDispatchJob(dispatcher, repos.Giveaway, model.KindGiveaway), 5*time.Minute)
//
//	scheduler, _ := gamealert.NewScheduler(
//	    gamealert.WithRegistry(registry),
//	    gamealert.WithSchedulerLogger(logger),
//	)
//	scheduler.Run(ctx)
//
// Database schemas for MySQL, PostgreSQL and SQLite are embedded in MigrationFiles
// and applied with goose; see cmd/gamealert-bot for the full wiring.
package gamealert
