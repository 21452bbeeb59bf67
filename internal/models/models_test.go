package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDecision(t *testing.T) {
	d, ok := ParseDecision("alert")
	assert.True(t, ok)
	assert.Equal(t, DecisionAlert, d)

	d, ok = ParseDecision(" Clear ")
	assert.True(t, ok)
	assert.Equal(t, DecisionClear, d)

	_, ok = ParseDecision("maybe")
	assert.False(t, ok)
}

func TestParseEventKind(t *testing.T) {
	for _, k := range []string{"message", "verdict", "status", "trace", "error"} {
		got, ok := ParseEventKind(k)
		assert.True(t, ok, k)
		assert.Equal(t, EventKind(k), got)
	}
	_, ok := ParseEventKind("MESSAGE")
	assert.False(t, ok, "ParseEventKind is case-sensitive; the decoder lower-cases before calling it")
	_, ok = ParseEventKind("")
	assert.False(t, ok)
}

func TestParticipantInRotation(t *testing.T) {
	assert.True(t, Participant{Stance: StanceAdversarial}.InRotation())
	assert.True(t, Participant{Stance: StanceAdvocacy}.InRotation())
	assert.False(t, Participant{Stance: StanceAdjudicating}.InRotation())
	assert.False(t, Stance("jury").Valid())
}
