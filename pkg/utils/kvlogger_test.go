package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestKVLogger_ConvertsPairs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := NewKVLogger(zap.New(core))

	logger.Info("Expense transitioned", "expense_id", "e-1", "from", "Draft", 42, "dropped")
	logger.Error("Payment rejected", "error", errors.New("duplicate"))

	entries := logs.All()
	require.Len(t, entries, 2)

	fields := entries[0].ContextMap()
	assert.Equal(t, "e-1", fields["expense_id"])
	assert.Equal(t, "Draft", fields["from"])
	assert.Len(t, fields, 2)

	assert.Equal(t, "duplicate", entries[1].ContextMap()["error"])
}
