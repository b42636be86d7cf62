package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCardStatusIsTerminal(t *testing.T) {
	assert.False(t, CardStatusProcessing.IsTerminal())
	assert.True(t, CardStatusPendingVerification.IsTerminal())
	assert.True(t, CardStatusCompleted.IsTerminal())
	assert.True(t, CardStatusFailed.IsTerminal())
}
