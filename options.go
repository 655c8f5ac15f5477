package gamealert

import (
	"fmt"
	"time"
)

// DispatcherOption is a function that configures a Dispatcher.
//
// Example:
//
//	dispatcher, err := gamealert.NewDispatcher(
//	    gamealert.WithSubscriptions(repos.Subscription),
//	    gamealert.WithPlatform(discordPlatform),
//	    gamealert.WithLogger(logger),
//	    gamealert.WithDeliveryTimeout(10*time.Second), // optional
//	)
type DispatcherOption func(*Dispatcher) error

// WithSubscriptions sets the subscription repository used to resolve and prune destinations.
//
// This is a required option for NewDispatcher.
func WithSubscriptions(repo SubscriptionRepository) DispatcherOption {
	return func(d *Dispatcher) error {
		if repo == nil {
			return fmt.Errorf("subscription repository cannot be nil")
		}
		d.subscriptions = repo
		return nil
	}
}

// WithPlatform sets the chat platform used to deliver announcements.
//
// This is a required option for NewDispatcher.
func WithPlatform(platform ChatPlatform) DispatcherOption {
	return func(d *Dispatcher) error {
		if platform == nil {
			return fmt.Errorf("platform cannot be nil")
		}
		d.platform = platform
		return nil
	}
}

// WithLogger sets the logger instance for the dispatcher.
// Logger is required and must not be nil.
//
// This is a required option for NewDispatcher.
//
// Use NoopLogger for silent operation.
func WithLogger(logger Logger) DispatcherOption {
	return func(d *Dispatcher) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		d.logger = logger
		return nil
	}
}

// WithDiagnostics sets the reporter that receives delivery failures and pruned channels.
// This is an optional configuration - if not provided, NoOpDiagnostics will be used.
func WithDiagnostics(reporter DiagnosticsReporter) DispatcherOption {
	return func(d *Dispatcher) error {
		if reporter == nil {
			return fmt.Errorf("diagnostics reporter cannot be nil")
		}
		d.diagnostics = reporter
		return nil
	}
}

// WithDebugMode disables channel pruning. Failures are still reported.
// Use this against a test server where channels come and go.
func WithDebugMode(debug bool) DispatcherOption {
	return func(d *Dispatcher) error {
		d.debug = debug
		return nil
	}
}

// WithDeliveryTimeout bounds every single delivery attempt.
// This is an optional configuration - default is 15 seconds.
func WithDeliveryTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) error {
		if timeout <= 0 {
			return fmt.Errorf("delivery timeout must be > 0, got %v", timeout)
		}
		d.deliveryTimeout = timeout
		return nil
	}
}

// WithConcurrency caps how many destinations are attempted at once for one candidate.
// This is an optional configuration - default is 16.
func WithConcurrency(n int) DispatcherOption {
	return func(d *Dispatcher) error {
		if n <= 0 {
			return fmt.Errorf("concurrency must be > 0, got %d", n)
		}
		d.concurrency = n
		return nil
	}
}

// WithDispatchObserver sets an optional observer for delivery metrics.
func WithDispatchObserver(observer DispatchObserver) DispatcherOption {
	return func(d *Dispatcher) error {
		if observer == nil {
			return fmt.Errorf("dispatch observer cannot be nil")
		}
		d.observer = observer
		return nil
	}
}
