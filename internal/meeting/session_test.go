package meeting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/run-bigpig/tribunal/internal/models"
	"github.com/run-bigpig/tribunal/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, opts ...Option) (*Session, *fakeDialer) {
	t.Helper()
	d := &fakeDialer{}
	s, err := NewSession(defaultRoster(t), d, opts...)
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s, d
}

func TestNewSession_RequiresDependencies(t *testing.T) {
	_, err := NewSession(nil, &fakeDialer{})
	assert.ErrorIs(t, err, ErrNoRoster)
	_, err = NewSession(defaultRoster(t), nil)
	assert.ErrorIs(t, err, ErrNoDialer)
}

func TestSession_InitialSnapshotIsIdle(t *testing.T) {
	s, _ := newTestSession(t)

	snap := s.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.Transcript)
	assert.Nil(t, snap.Verdict)
	assert.Zero(t, snap.EventCount)
	assert.Len(t, snap.Roster, 3)

	select {
	case <-s.Done():
	default:
		t.Fatal("Done should be closed before Start")
	}
}

func TestSession_StartRejectsEmptySubject(t *testing.T) {
	s, d := newTestSession(t)

	err := s.Start(context.Background(), "  ")
	assert.ErrorIs(t, err, transport.ErrEmptySubject)
	assert.Zero(t, d.opened(), "no connection should be attempted")
	assert.Equal(t, StateIdle, s.State())
}

func TestSession_StartPropagatesDialError(t *testing.T) {
	s, d := newTestSession(t)
	d.err = errors.New("bad endpoint")

	err := s.Start(context.Background(), "ACME")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad endpoint")
	assert.Equal(t, StateIdle, s.State())
}

func TestSession_Lifecycle(t *testing.T) {
	clock := newClock()
	s, d := newTestSession(t, WithClock(clock.Now))

	require.NoError(t, s.Start(context.Background(), "ACME"))
	assert.Equal(t, StateInProgress, s.State())
	assert.Equal(t, "ACME", s.Subject())
	assert.NotEmpty(t, s.Snapshot().SessionID)
	ch := d.last()

	ch.send(transport.Event{Type: transport.EventOpened})
	ch.message("prosecutor", "Zero records found.")
	ch.frame(`{"type":"status","content":"keepalive"}`)
	ch.frame(`{"speaker":"judge"}`)
	ch.frame(`garbage`)
	ch.message("defender", "History is consistent.")
	ch.frame(`{"type":"trace","speaker":"system","content":"tool call"}`)
	waitEvents(t, s, 3)

	_, ok := s.Verdict()
	assert.False(t, ok)
	_, err := s.Export()
	assert.ErrorIs(t, err, ErrNotConcluded)

	ch.frame(`{"type":"verdict","speaker":"judge","content":"Verdict: WATCH\nReasoning: Mixed signals.\nRecommendation: Re-check in a week."}`)
	waitEvents(t, s, 4)

	snap := s.Snapshot()
	require.NotNil(t, snap.Verdict, "verdict is available before the channel closes")
	assert.Equal(t, models.DecisionWatch, snap.Verdict.Decision)
	assert.Equal(t, "Mixed signals.", snap.Verdict.Reasoning)
	assert.Equal(t, StateInProgress, snap.State, "conclusion waits for closure")
	assert.Len(t, snap.Transcript, 2)

	ch.finish(transport.Event{Type: transport.EventClosed})
	waitDone(t, s.Done())
	assert.Equal(t, StateConcluded, s.State())

	exp, err := s.Export()
	require.NoError(t, err)
	assert.Equal(t, "ACME", exp.Subject)
	assert.Equal(t, "ACME_20250102-030405.txt", exp.Filename)
	assert.Equal(t,
		"[Prosecutor]: Zero records found.\n\n"+
			"[Defender]: History is consistent.\n\n"+
			"[Judge]: Verdict: WATCH\nReasoning: Mixed signals.\nRecommendation: Re-check in a week.",
		string(exp.Content))
	assert.Equal(t, StateConcluded, s.State(), "export does not change state")
}

func TestSession_ExportSkipsOffRosterSpeakers(t *testing.T) {
	s, d := newTestSession(t)
	require.NoError(t, s.Start(context.Background(), "ACME"))

	ch := d.last()
	ch.message("prosecutor", "Zero records found.")
	ch.message("stranger", "I was never invited.")
	ch.frame(`{"type":"verdict","speaker":"judge","content":"Verdict: CLEAR"}`)
	waitEvents(t, s, 3)
	ch.finish(transport.Event{Type: transport.EventClosed})
	waitDone(t, s.Done())

	assert.Equal(t, 3, s.Snapshot().EventCount, "the event log keeps every message")

	exp, err := s.Export()
	require.NoError(t, err)
	assert.NotContains(t, string(exp.Content), "never invited")
	assert.Equal(t, "[Prosecutor]: Zero records found.\n\n[Judge]: Verdict: CLEAR", string(exp.Content))
}

func TestSession_CloseWithoutVerdictConcludes(t *testing.T) {
	s, d := newTestSession(t)
	require.NoError(t, s.Start(context.Background(), "ACME"))

	ch := d.last()
	ch.message("prosecutor", "Only one turn.")
	ch.finish(transport.Event{Type: transport.EventClosed})
	waitDone(t, s.Done())

	snap := s.Snapshot()
	assert.Equal(t, StateConcluded, snap.State)
	assert.Nil(t, snap.Verdict)
	assert.Equal(t, 1, snap.EventCount)
	assert.Empty(t, snap.Failure)
}

func TestSession_FailureConcludes(t *testing.T) {
	s, d := newTestSession(t)
	require.NoError(t, s.Start(context.Background(), "ACME"))

	d.last().finish(transport.Event{Type: transport.EventFailed, Err: errors.New("connection refused")})
	waitDone(t, s.Done())

	snap := s.Snapshot()
	assert.Equal(t, StateConcluded, snap.State)
	assert.Equal(t, "connection refused", snap.Failure)
}

func TestSession_ChannelEndsWithoutTerminalEvent(t *testing.T) {
	s, d := newTestSession(t)
	require.NoError(t, s.Start(context.Background(), "ACME"))

	ch := d.last()
	ch.message("prosecutor", "p1")
	waitEvents(t, s, 1)
	// 直接关闭底层 channel，会话按关闭处理
	require.NoError(t, ch.Close())
	waitDone(t, s.Done())
	assert.Equal(t, StateConcluded, s.State())
}

func TestSession_StopFromAnyState(t *testing.T) {
	t.Run("idle", func(t *testing.T) {
		s, _ := newTestSession(t)
		s.Stop()
		s.Stop()
		assert.Equal(t, StateIdle, s.State())
	})

	t.Run("in progress", func(t *testing.T) {
		s, d := newTestSession(t)
		require.NoError(t, s.Start(context.Background(), "ACME"))
		d.last().message("prosecutor", "p1")
		waitEvents(t, s, 1)
		done := s.Done()

		s.Stop()
		waitDone(t, done)
		snap := s.Snapshot()
		assert.Equal(t, StateIdle, snap.State)
		assert.Zero(t, snap.EventCount)
		assert.Empty(t, snap.Subject)
		assert.True(t, d.last().isClosed())
	})

	t.Run("concluded", func(t *testing.T) {
		s, d := newTestSession(t)
		require.NoError(t, s.Start(context.Background(), "ACME"))
		d.last().message("prosecutor", "p1")
		d.last().finish(transport.Event{Type: transport.EventClosed})
		waitDone(t, s.Done())

		s.Stop()
		assert.Equal(t, StateIdle, s.State())
		assert.Zero(t, s.Snapshot().EventCount)
		_, err := s.Export()
		assert.ErrorIs(t, err, ErrNotConcluded)
	})
}

func TestSession_FramesAfterStopAreDropped(t *testing.T) {
	s, d := newTestSession(t)
	require.NoError(t, s.Start(context.Background(), "ACME"))
	ch := d.last()

	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()

	s.Stop()
	assert.False(t, ch.message("prosecutor", "late"), "handle is closed")
	assert.False(t, s.handle(conn, transport.Event{Type: transport.EventFrame, Data: []byte(`{"type":"message","speaker":"prosecutor","content":"late"}`)}))
	assert.Zero(t, s.Snapshot().EventCount)
	assert.Equal(t, StateIdle, s.State())
}

func TestSession_RestartReplacesConnection(t *testing.T) {
	s, d := newTestSession(t)
	require.NoError(t, s.Start(context.Background(), "ACME"))
	first := d.last()
	first.message("prosecutor", "old subject")
	waitEvents(t, s, 1)

	s.mu.RLock()
	oldConn := s.conn
	s.mu.RUnlock()

	require.NoError(t, s.Start(context.Background(), "GLOBEX"))
	assert.Equal(t, 2, d.opened())
	assert.True(t, first.isClosed())
	assert.Equal(t, "GLOBEX", s.Subject())
	assert.Equal(t, StateInProgress, s.State())
	assert.Zero(t, s.Snapshot().EventCount)

	// 旧连接的事件被丢弃
	assert.False(t, s.handle(oldConn, transport.Event{Type: transport.EventClosed}))
	assert.Equal(t, StateInProgress, s.State())

	d.last().message("defender", "new subject")
	waitEvents(t, s, 1)
	assert.Equal(t, "new subject", s.Transcript()[0].Text)
}

func TestSession_ProcessesFramesInArrivalOrder(t *testing.T) {
	s, d := newTestSession(t)
	require.NoError(t, s.Start(context.Background(), "ACME"))
	ch := d.last()

	const n = 60
	want := make([]string, n)
	for i := 0; i < n; i++ {
		speaker := "prosecutor"
		if i%2 == 1 {
			speaker = "defender"
		}
		want[i] = fmt.Sprintf("%s turn %d", speaker, i)
		ch.message(speaker, want[i])
	}
	waitEvents(t, s, n)

	transcript := s.Transcript()
	require.Len(t, transcript, n)
	for i, e := range transcript {
		assert.Equal(t, want[i], e.Text)
		assert.Equal(t, i/2+1, e.Round)
	}
}

func TestSession_ConcludeOnVerdict(t *testing.T) {
	s, d := newTestSession(t, WithConcludeOnVerdict(true))
	require.NoError(t, s.Start(context.Background(), "ACME"))
	ch := d.last()

	ch.message("prosecutor", "p1")
	waitEvents(t, s, 1)
	assert.Equal(t, StateInProgress, s.State())

	ch.frame(`{"type":"verdict","speaker":"judge","content":"Verdict: ALERT"}`)
	waitEvents(t, s, 2)
	assert.Equal(t, StateConcluded, s.State())
	assert.False(t, ch.isClosed(), "connection stays open")

	_, err := s.Export()
	assert.NoError(t, err)
}

type fixedParser struct{ v models.Verdict }

func (p fixedParser) Parse(string) models.Verdict { return p.v }

func TestSession_CustomVerdictParser(t *testing.T) {
	want := models.Verdict{Decision: models.DecisionClear, Confidence: 1, Reasoning: "structured"}
	s, d := newTestSession(t, WithVerdictParser(fixedParser{v: want}))
	require.NoError(t, s.Start(context.Background(), "ACME"))

	d.last().frame(`{"type":"verdict","content":"anything"}`)
	waitEvents(t, s, 1)

	got, ok := s.Verdict()
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestSession_UpdateCallback(t *testing.T) {
	var mu sync.Mutex
	var states []State
	var counts []int
	cb := func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, snap.State)
		counts = append(counts, snap.EventCount)
	}

	s, d := newTestSession(t, WithUpdateCallback(cb))
	require.NoError(t, s.Start(context.Background(), "ACME"))
	ch := d.last()
	ch.frame(`{"type":"status"}`)
	ch.message("prosecutor", "p1")
	ch.finish(transport.Event{Type: transport.EventClosed})
	waitDone(t, s.Done())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateInProgress, StateInProgress, StateConcluded}, states)
	assert.Equal(t, []int{0, 1, 1}, counts)
}

func TestSession_CallbackPanicIsRecovered(t *testing.T) {
	s, d := newTestSession(t, WithUpdateCallback(func(Snapshot) { panic("renderer exploded") }))
	require.NoError(t, s.Start(context.Background(), "ACME"))

	ch := d.last()
	ch.message("prosecutor", "p1")
	ch.message("defender", "d1")
	waitEvents(t, s, 2)
	ch.finish(transport.Event{Type: transport.EventClosed})
	waitDone(t, s.Done())
	assert.Equal(t, StateConcluded, s.State())
}

func TestSession_LastActivityTracksFrames(t *testing.T) {
	clock := newClock()
	s, d := newTestSession(t, WithClock(clock.Now))
	require.NoError(t, s.Start(context.Background(), "ACME"))
	started := s.LastActivity()

	clock.Advance(time.Minute)
	d.last().frame(`{"type":"status"}`)
	require.Eventually(t, func() bool {
		return s.LastActivity().Equal(started.Add(time.Minute))
	}, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, s.Snapshot().EventCount, "status frames keep the session warm but are not logged")
}

func TestStateOf(t *testing.T) {
	tests := []struct {
		phase             phase
		verdict, conclude bool
		want              State
	}{
		{phaseNone, false, false, StateIdle},
		{phaseNone, true, true, StateIdle},
		{phaseActive, false, false, StateInProgress},
		{phaseActive, true, false, StateInProgress},
		{phaseActive, true, true, StateConcluded},
		{phaseClosed, false, false, StateConcluded},
		{phaseClosed, true, false, StateConcluded},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stateOf(tt.phase, tt.verdict, tt.conclude))
	}
}
