package gamealert

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/gamealert/model"
)

func TestTruncateTrace_KeepsTail(t *testing.T) {
	short := "panic: boom"
	assert.Equal(t, short, TruncateTrace(short))

	long := strings.Repeat("a", 2000) + "END"
	got := TruncateTrace(long)
	assert.Len(t, got, 1500)
	assert.True(t, strings.HasSuffix(got, "END"))
}

func TestTruncateTrace_CutsOnRuneBoundary(t *testing.T) {
	// A byte cut at len-1500 lands inside the second two-byte rune.
	long := "x" + strings.Repeat("é", 750) + "END"
	got := TruncateTrace(long)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), 1500)
	assert.True(t, strings.HasSuffix(got, "END"))
	assert.Equal(t, strings.Repeat("é", 748)+"END", got)
}

func TestChannelDiagnostics_RoutesStreams(t *testing.T) {
	platform := newFakePlatform()
	d := NewChannelDiagnostics(platform, "exceptions", "stream")
	ctx := context.Background()

	require.NoError(t, d.ReportDeliveryFailure(ctx, "c1", "g1", errors.New("missing access")))
	require.NoError(t, d.ReportJobFailure(ctx, "price-watch", "run-1", errors.New("panic: boom"), "trace"))
	require.NoError(t, d.ReportCommandUsage(ctx, CommandUsage{
		Command:  "alert add",
		ServerID: "1",
		Choices:  []model.KeyValue{{Key: "Type", Value: "Giveaway"}},
	}))

	exceptions := platform.sentTo("exceptions")
	require.Len(t, exceptions, 2)
	assert.Equal(t, "Delivery Failed", exceptions[0].Title)
	assert.Contains(t, exceptions[0].Content, "missing access")
	assert.Equal(t, "```trace```", exceptions[1].Content)

	stream := platform.sentTo("stream")
	require.Len(t, stream, 1)
	require.Len(t, stream[0].Fields, 2)
	assert.Equal(t, "__Choices__", stream[0].Fields[1].Name)
}

func TestChannelDiagnostics_EmptyChannelDisablesStream(t *testing.T) {
	platform := newFakePlatform()
	d := NewChannelDiagnostics(platform, "", "")

	require.NoError(t, d.ReportChannelPruned(context.Background(), "c1", 3))
	require.NoError(t, d.ReportCommandUsage(context.Background(), CommandUsage{Command: "alert list"}))
	assert.Equal(t, 0, platform.totalSent())
	assert.Equal(t, 0, platform.fetchCalls)
}

func TestChannelDiagnostics_PostFailureIsReturned(t *testing.T) {
	platform := newFakePlatform()
	platform.missing["exceptions"] = true
	d := NewChannelDiagnostics(platform, "exceptions", "")

	err := d.ReportDrawFailure(context.Background(), 7, ErrNoVoters)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChannelNotFound))
}
