package gamealert

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/coregx/gamealert/model"
)

// maxTraceLength is how many bytes of a failure trace are kept, counted from the end.
const maxTraceLength = 1500

// DiagnosticsReporter receives operational failures that are recovered locally
// and must not reach end users.
//
// Implementations might post to an operator channel, page someone, or just log.
type DiagnosticsReporter interface {
	// ReportDeliveryFailure is called when an announcement could not reach a channel.
	ReportDeliveryFailure(ctx context.Context, channelID, candidateID string, err error) error

	// ReportChannelPruned is called after a dead channel was removed from every kind.
	ReportChannelPruned(ctx context.Context, channelID string, removed int) error

	// ReportDrawFailure is called when a reward draw leaves its giveaway pending.
	ReportDrawFailure(ctx context.Context, giveawayID int64, err error) error

	// ReportJobFailure is called when a scheduled job returns an error or panics.
	// The trace is already truncated.
	ReportJobFailure(ctx context.Context, job, runID string, err error, trace string) error

	// ReportCommandUsage is called for every subscription command that reaches the engine.
	ReportCommandUsage(ctx context.Context, usage CommandUsage) error
}

// CommandUsage describes one command invocation for the usage stream.
type CommandUsage struct {
	Command   string
	ServerID  string
	ChannelID string
	UserID    string
	Choices   []model.KeyValue
}

// TruncateTrace keeps at most the last 1500 bytes of a trace, starting on a rune boundary.
func TruncateTrace(trace string) string {
	if len(trace) <= maxTraceLength {
		return trace
	}
	cut := len(trace) - maxTraceLength
	for cut < len(trace) && !utf8.RuneStart(trace[cut]) {
		cut++
	}
	return trace[cut:]
}

// NoOpDiagnostics is a no-op implementation of DiagnosticsReporter.
// Use this when diagnostics are not needed.
type NoOpDiagnostics struct{}

// ReportDeliveryFailure does nothing.
func (n *NoOpDiagnostics) ReportDeliveryFailure(_ context.Context, _, _ string, _ error) error {
	return nil
}

// ReportChannelPruned does nothing.
func (n *NoOpDiagnostics) ReportChannelPruned(_ context.Context, _ string, _ int) error {
	return nil
}

// ReportDrawFailure does nothing.
func (n *NoOpDiagnostics) ReportDrawFailure(_ context.Context, _ int64, _ error) error {
	return nil
}

// ReportJobFailure does nothing.
func (n *NoOpDiagnostics) ReportJobFailure(_ context.Context, _, _ string, _ error, _ string) error {
	return nil
}

// ReportCommandUsage does nothing.
func (n *NoOpDiagnostics) ReportCommandUsage(_ context.Context, _ CommandUsage) error {
	return nil
}

// LoggingDiagnostics is a simple implementation that logs every report.
type LoggingDiagnostics struct {
	logger Logger
}

// NewLoggingDiagnostics creates a new LoggingDiagnostics.
func NewLoggingDiagnostics(logger Logger) *LoggingDiagnostics {
	return &LoggingDiagnostics{logger: logger}
}

// ReportDeliveryFailure logs the delivery failure.
func (d *LoggingDiagnostics) ReportDeliveryFailure(_ context.Context, channelID, candidateID string, err error) error {
	d.logger.Warnf("Delivery failed: channel=%s, candidate=%s, error=%v", channelID, candidateID, err)
	return nil
}

// ReportChannelPruned logs the pruned channel.
func (d *LoggingDiagnostics) ReportChannelPruned(_ context.Context, channelID string, removed int) error {
	d.logger.Infof("Channel pruned: channel=%s, subscriptions_removed=%d", channelID, removed)
	return nil
}

// ReportDrawFailure logs the draw failure.
func (d *LoggingDiagnostics) ReportDrawFailure(_ context.Context, giveawayID int64, err error) error {
	d.logger.Warnf("Reward draw failed: giveaway=%d, error=%v", giveawayID, err)
	return nil
}

// ReportJobFailure logs the job failure with its trace.
func (d *LoggingDiagnostics) ReportJobFailure(_ context.Context, job, runID string, err error, trace string) error {
	d.logger.Errorf("Job failed: job=%s, run=%s, error=%v\n%s", job, runID, err, trace)
	return nil
}

// ReportCommandUsage logs the command.
func (d *LoggingDiagnostics) ReportCommandUsage(_ context.Context, usage CommandUsage) error {
	d.logger.Infof("Command used: command=%s, server=%s, channel=%s, user=%s",
		usage.Command, usage.ServerID, usage.ChannelID, usage.UserID)
	return nil
}

// ChannelDiagnostics posts reports to operator channels on the chat platform.
// Failures go to the exception channel; command usage goes to the stream channel.
// An empty channel id disables that stream.
type ChannelDiagnostics struct {
	platform           ChatPlatform
	exceptionChannelID string
	streamChannelID    string
}

// NewChannelDiagnostics creates a ChannelDiagnostics.
func NewChannelDiagnostics(platform ChatPlatform, exceptionChannelID, streamChannelID string) *ChannelDiagnostics {
	return &ChannelDiagnostics{
		platform:           platform,
		exceptionChannelID: exceptionChannelID,
		streamChannelID:    streamChannelID,
	}
}

// ReportDeliveryFailure posts the failure to the exception channel.
func (d *ChannelDiagnostics) ReportDeliveryFailure(ctx context.Context, channelID, candidateID string, err error) error {
	a := model.NewAnnouncement("Delivery Failed")
	a.AddListedField("Details",
		model.KeyValue{Key: "Channel", Value: channelID},
		model.KeyValue{Key: "Candidate", Value: candidateID},
	)
	a.Content = codeBlock(TruncateTrace(err.Error()))
	return d.post(ctx, d.exceptionChannelID, a)
}

// ReportChannelPruned posts the pruned channel to the exception channel.
func (d *ChannelDiagnostics) ReportChannelPruned(ctx context.Context, channelID string, removed int) error {
	a := model.NewAnnouncement("Channel Pruned")
	a.AddListedField("Details",
		model.KeyValue{Key: "Channel", Value: channelID},
		model.KeyValue{Key: "Subscriptions Removed", Value: fmt.Sprintf("%d", removed)},
	)
	return d.post(ctx, d.exceptionChannelID, a)
}

// ReportDrawFailure posts the draw failure to the exception channel.
func (d *ChannelDiagnostics) ReportDrawFailure(ctx context.Context, giveawayID int64, err error) error {
	a := model.NewAnnouncement("Reward Draw Failed")
	a.AddListedField("Details", model.KeyValue{Key: "Giveaway", Value: fmt.Sprintf("%d", giveawayID)})
	a.Content = codeBlock(TruncateTrace(err.Error()))
	return d.post(ctx, d.exceptionChannelID, a)
}

// ReportJobFailure posts the failed job and its trace to the exception channel.
func (d *ChannelDiagnostics) ReportJobFailure(ctx context.Context, job, runID string, err error, trace string) error {
	a := model.NewAnnouncement("Job Failed")
	a.AddListedField("Details",
		model.KeyValue{Key: "Job", Value: job},
		model.KeyValue{Key: "Run", Value: runID},
		model.KeyValue{Key: "Error", Value: err.Error()},
	)
	if trace != "" {
		a.Content = codeBlock(trace)
	}
	return d.post(ctx, d.exceptionChannelID, a)
}

// ReportCommandUsage posts the command to the stream channel.
func (d *ChannelDiagnostics) ReportCommandUsage(ctx context.Context, usage CommandUsage) error {
	a := model.NewAnnouncement("Command Used")
	a.AddListedField("Details",
		model.KeyValue{Key: "Command", Value: usage.Command},
		model.KeyValue{Key: "Server", Value: usage.ServerID},
		model.KeyValue{Key: "Channel", Value: usage.ChannelID},
		model.KeyValue{Key: "Member", Value: usage.UserID},
	)
	if len(usage.Choices) > 0 {
		a.AddListedField("Choices", usage.Choices...)
	}
	return d.post(ctx, d.streamChannelID, a)
}

func (d *ChannelDiagnostics) post(ctx context.Context, channelID string, a *model.Announcement) error {
	if channelID == "" {
		return nil
	}
	ch, err := d.platform.FetchChannel(ctx, channelID)
	if err != nil {
		return fmt.Errorf("fetch diagnostics channel %s: %w", channelID, err)
	}
	if err := ch.Send(ctx, a); err != nil {
		return fmt.Errorf("send diagnostics to %s: %w", channelID, err)
	}
	return nil
}

func codeBlock(s string) string {
	return "```" + strings.ReplaceAll(s, "```", "'''") + "```"
}
