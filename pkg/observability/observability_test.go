package observability

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerForwardsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewZap(zap.New(core))

	logger.Debug("request attempt", String("method", "GET"), Int("attempt", 2))
	logger.Error("request failed", Err(errors.New("boom")))

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "request attempt", entries[0].Message)
	require.Equal(t, "GET", entries[0].ContextMap()["method"])
	require.EqualValues(t, 2, entries[0].ContextMap()["attempt"])
	require.Equal(t, "boom", entries[1].ContextMap()["error"])
}

func TestSetLoggerNilRestoresNoop(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	SetLogger(NewZap(zap.New(core)))
	Log().Info("visible")
	SetLogger(nil)
	Log().Info("discarded")
	require.Equal(t, 1, logs.Len())
}

func TestAggregateErrors(t *testing.T) {
	require.NoError(t, AggregateErrors("ingest", []error{nil, nil}))

	first := errors.New("first")
	err := AggregateErrors("ingest", []error{first, nil, errors.New("second")})
	require.Error(t, err)
	require.ErrorIs(t, err, first)
	require.Contains(t, err.Error(), "ingest failed")
}

func TestParseLevel(t *testing.T) {
	_, _, err := NewZapProduction("verbose")
	require.Error(t, err)
	logger, inner, err := NewZapProduction("debug")
	require.NoError(t, err)
	require.NotNil(t, logger)
	require.NotNil(t, inner)
}
