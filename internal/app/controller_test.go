package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"funfriday-client/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

type stubChannel struct {
	events chan domain.ServerEvent

	mu     sync.Mutex
	sent   []domain.Command
	phase  domain.ConnectionPhase
	closed bool
}

func newStubChannel() *stubChannel {
	return &stubChannel{
		events: make(chan domain.ServerEvent, 16),
		phase:  domain.ConnOpen,
	}
}

func (s *stubChannel) Events() <-chan domain.ServerEvent { return s.events }

func (s *stubChannel) Send(cmd domain.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, cmd)
	return nil
}

func (s *stubChannel) Phase() domain.ConnectionPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *stubChannel) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		if s.phase == domain.ConnOpen {
			s.phase = domain.ConnClosed
		}
	}
	return nil
}

func (s *stubChannel) sentCommands() []domain.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Command(nil), s.sent...)
}

func (s *stubChannel) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type stubResolver struct {
	meta domain.PartyMeta
	err  error
}

func (s stubResolver) PartyMeta(_ context.Context, _ string) (domain.PartyMeta, error) {
	return s.meta, s.err
}

type testSession struct {
	controller *Controller
	channel    *stubChannel
	clock      *clockwork.FakeClock
	done       chan error
	cancel     context.CancelFunc
}

func startSession(t *testing.T, sess domain.SessionContext, resolver CreatorResolver) *testSession {
	t.Helper()

	channel := newStubChannel()
	clock := clockwork.NewFakeClock()
	dial := func(_ context.Context, _, _ string) (Realtime, error) {
		return channel, nil
	}
	controller := NewControllerWithClock(sess, dial, resolver, zerolog.Nop(), clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- controller.Run(ctx)
	}()
	t.Cleanup(cancel)

	ts := &testSession{controller: controller, channel: channel, clock: clock, done: done, cancel: cancel}
	ts.waitFor(t, func(s Snapshot) bool { return s.Phase == domain.PhaseWaitingToStart })
	return ts
}

func (ts *testSession) waitFor(t *testing.T, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := ts.controller.Snapshot()
		if cond(snap) {
			return snap
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition never met; last snapshot: %+v", ts.controller.Snapshot())
	return Snapshot{}
}

func (ts *testSession) push(ev domain.ServerEvent) {
	ts.channel.events <- ev
}

func question(round, timeout int, choices ...string) domain.Question {
	return domain.Question{Round: round, Text: "what?", Choices: choices, TimeoutSeconds: timeout}
}

func TestRunFailsWithoutPartyID(t *testing.T) {
	controller := NewController(domain.SessionContext{UserID: "u1"}, nil, nil, zerolog.Nop())
	err := controller.Run(context.Background())
	if !errors.Is(err, domain.ErrMissingPartyID) {
		t.Fatalf("expected ErrMissingPartyID, got %v", err)
	}
	if controller.Snapshot().Phase != domain.PhaseFailed {
		t.Fatalf("expected Failed phase, got %s", controller.Snapshot().Phase)
	}
}

func TestNewQuestionResetsAnswerState(t *testing.T) {
	ts := startSession(t, domain.SessionContext{PartyID: "p1", UserID: "u1"}, nil)

	ts.push(domain.EventNewQuestion{Question: question(1, 30, "A", "B")})
	ts.waitFor(t, func(s Snapshot) bool { return s.Phase == domain.PhaseQuestionActive })

	if err := ts.controller.SelectChoice("A"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := ts.controller.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}

	ts.push(domain.EventNewQuestion{Question: question(2, 30, "C", "D")})
	snap := ts.waitFor(t, func(s Snapshot) bool { return s.Question != nil && s.Question.Round == 2 })

	if snap.Answer.Selected != "" || snap.Answer.Submitted {
		t.Fatalf("expected answer state reset on new question, got %+v", snap.Answer)
	}
	if snap.SecondsLeft != 30 {
		t.Fatalf("expected countdown reset to 30, got %d", snap.SecondsLeft)
	}
}

func TestExactlyOneAnswerPerQuestion(t *testing.T) {
	ts := startSession(t, domain.SessionContext{PartyID: "p1", UserID: "u1"}, nil)

	ts.push(domain.EventNewQuestion{Question: question(1, 30, "A", "B")})
	ts.waitFor(t, func(s Snapshot) bool { return s.Phase == domain.PhaseQuestionActive })

	if err := ts.controller.SelectChoice("A"); err != nil {
		t.Fatalf("select A: %v", err)
	}
	if err := ts.controller.SelectChoice("B"); err != nil {
		t.Fatalf("select B: %v", err)
	}
	if err := ts.controller.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Repeat submissions are no-ops; the selection is frozen.
	if err := ts.controller.Submit(); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
	if err := ts.controller.SelectChoice("A"); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected frozen selection, got %v", err)
	}

	sent := ts.channel.sentCommands()
	if len(sent) != 1 {
		t.Fatalf("expected exactly one outbound command, got %d", len(sent))
	}
	answer, ok := sent[0].(domain.AnswerCommand)
	if !ok {
		t.Fatalf("expected AnswerCommand, got %T", sent[0])
	}
	if answer.Answer != "B" || answer.UserID != "u1" || answer.PartyID != "p1" {
		t.Fatalf("unexpected answer frame: %+v", answer)
	}
}

func TestSubmitGuards(t *testing.T) {
	ts := startSession(t, domain.SessionContext{PartyID: "p1", UserID: "u1"}, nil)

	if err := ts.controller.Submit(); !errors.Is(err, domain.ErrNoActiveQuestion) {
		t.Fatalf("expected ErrNoActiveQuestion before first question, got %v", err)
	}

	ts.push(domain.EventNewQuestion{Question: question(1, 30, "A", "B")})
	ts.waitFor(t, func(s Snapshot) bool { return s.Phase == domain.PhaseQuestionActive })

	if err := ts.controller.Submit(); !errors.Is(err, domain.ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
	if err := ts.controller.SelectChoice("Z"); err == nil {
		t.Fatalf("expected error selecting unknown choice")
	}
}

func TestStartGameOnlyForResolvedCreator(t *testing.T) {
	resolver := stubResolver{meta: domain.PartyMeta{CreatorID: "u1"}}
	ts := startSession(t, domain.SessionContext{PartyID: "p1", UserID: "u1"}, resolver)

	ts.waitFor(t, func(s Snapshot) bool { return s.CanStart })

	if err := ts.controller.StartGame(); err != nil {
		t.Fatalf("start: %v", err)
	}
	sent := ts.channel.sentCommands()
	if len(sent) != 1 {
		t.Fatalf("expected one command, got %d", len(sent))
	}
	if _, ok := sent[0].(domain.StartGameCommand); !ok {
		t.Fatalf("expected StartGameCommand, got %T", sent[0])
	}
}

func TestStartGameDeniedForNonCreator(t *testing.T) {
	resolver := stubResolver{meta: domain.PartyMeta{CreatorID: "someone-else"}}
	ts := startSession(t, domain.SessionContext{PartyID: "p1", UserID: "u1"}, resolver)

	// Give the resolver goroutine a chance to land.
	time.Sleep(20 * time.Millisecond)

	if ts.controller.CanStartGame() {
		t.Fatalf("expected start control disabled for non-creator")
	}
	if err := ts.controller.StartGame(); !errors.Is(err, domain.ErrNotCreator) {
		t.Fatalf("expected ErrNotCreator, got %v", err)
	}
	if len(ts.channel.sentCommands()) != 0 {
		t.Fatalf("expected no outbound commands")
	}
}

func TestCreatorResolutionFailureIsNonFatal(t *testing.T) {
	resolver := stubResolver{err: errors.New("party metadata unavailable")}
	ts := startSession(t, domain.SessionContext{PartyID: "p1", UserID: "u1"}, resolver)

	if ts.controller.CanStartGame() {
		t.Fatalf("expected start control unavailable after resolution failure")
	}

	// Question flow is unaffected.
	ts.push(domain.EventNewQuestion{Question: question(1, 30, "A")})
	ts.waitFor(t, func(s Snapshot) bool { return s.Phase == domain.PhaseQuestionActive })
}

func TestGameOverRedirectsAfterFiveSeconds(t *testing.T) {
	ts := startSession(t, domain.SessionContext{PartyID: "p1", UserID: "u1"}, nil)

	redirected := make(chan struct{})
	ts.controller.OnLobbyRedirect(func() { close(redirected) })

	scores := domain.ScoreBoard{
		"u1": {TotalScore: 2, CategoryScores: map[string]int{"history": 2}},
		"u2": {TotalScore: 1, CategoryScores: map[string]int{"history": 1}},
	}
	ts.push(domain.EventGameOver{Scores: scores})
	snap := ts.waitFor(t, func(s Snapshot) bool { return s.Phase == domain.PhaseGameOver })

	if len(snap.Scores) != 2 || snap.Scores["u1"].TotalScore != 2 {
		t.Fatalf("unexpected scoreboard: %+v", snap.Scores)
	}

	// One second short of the redirect delay: still showing scores.
	ts.clock.BlockUntil(1)
	ts.clock.Advance(4 * time.Second)
	select {
	case err := <-ts.done:
		t.Fatalf("session ended early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	ts.clock.Advance(time.Second)
	select {
	case err := <-ts.done:
		if err != nil {
			t.Fatalf("expected clean end after redirect, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("session did not end after redirect delay")
	}

	select {
	case <-redirected:
	default:
		t.Fatalf("expected lobby redirect hook to fire")
	}
	if !ts.channel.isClosed() {
		t.Fatalf("expected channel released on session end")
	}
}

func TestChannelErrorFailsSession(t *testing.T) {
	ts := startSession(t, domain.SessionContext{PartyID: "p1", UserID: "u1"}, nil)

	ts.push(domain.EventNewQuestion{Question: question(1, 30, "A", "B")})
	ts.waitFor(t, func(s Snapshot) bool { return s.Phase == domain.PhaseQuestionActive })

	ts.push(domain.EventChannelError{Err: io.ErrUnexpectedEOF})

	select {
	case err := <-ts.done:
		if err == nil {
			t.Fatalf("expected error from failed session")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("session did not fail on channel error")
	}

	snap := ts.controller.Snapshot()
	if snap.Phase != domain.PhaseFailed || snap.Err == nil {
		t.Fatalf("expected Failed phase with error, got %+v", snap)
	}
	if !ts.channel.isClosed() {
		t.Fatalf("expected channel released on failure")
	}

	// No further outbound commands after failure.
	before := len(ts.channel.sentCommands())
	_ = ts.controller.Submit()
	_ = ts.controller.StartGame()
	if len(ts.channel.sentCommands()) != before {
		t.Fatalf("commands sent after session failure")
	}
}

func TestScoreUpdatesAccumulate(t *testing.T) {
	ts := startSession(t, domain.SessionContext{PartyID: "p1", UserID: "u1"}, nil)

	ts.push(domain.EventNewQuestion{Question: question(1, 30, "A")})
	ts.push(domain.EventScoreUpdate{UserID: "u2", Score: 1})
	ts.push(domain.EventScoreUpdate{UserID: "u2", Score: 2})

	snap := ts.waitFor(t, func(s Snapshot) bool { return s.LiveScores["u2"] == 2 })
	if snap.LiveScores["u2"] != 2 {
		t.Fatalf("expected live score 2, got %+v", snap.LiveScores)
	}
}

func TestSubscribeDeliversSnapshots(t *testing.T) {
	ts := startSession(t, domain.SessionContext{PartyID: "p1", UserID: "u1"}, nil)

	snapshots, cancel := ts.controller.Subscribe()
	defer cancel()

	initial := <-snapshots
	if initial.Phase != domain.PhaseWaitingToStart {
		t.Fatalf("expected initial snapshot in waiting phase, got %s", initial.Phase)
	}

	ts.push(domain.EventNewQuestion{Question: question(1, 30, "A")})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-snapshots:
			if snap.Phase == domain.PhaseQuestionActive {
				return
			}
		case <-deadline:
			t.Fatalf("never observed question-active snapshot")
		}
	}
}
