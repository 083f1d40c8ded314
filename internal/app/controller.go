package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"funfriday-client/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// lobbyRedirectDelay is how long final scores stay up before the session
// returns to the lobby.
const lobbyRedirectDelay = 5 * time.Second

// Realtime is the channel service the controller starts, feeds, and tears
// down with the session.
type Realtime interface {
	Events() <-chan domain.ServerEvent
	Send(cmd domain.Command) error
	Phase() domain.ConnectionPhase
	Close() error
}

// DialFunc opens the realtime channel for a party.
type DialFunc func(ctx context.Context, partyID, userID string) (Realtime, error)

// CreatorResolver fetches party metadata; the controller uses it once per
// session to learn who may start the game.
type CreatorResolver interface {
	PartyMeta(ctx context.Context, partyID string) (domain.PartyMeta, error)
}

// Snapshot is the read-only view of session state handed to renderers.
type Snapshot struct {
	Phase       domain.SessionPhase
	Question    *domain.Question
	Answer      domain.AnswerState
	SecondsLeft int
	Scores      domain.ScoreBoard
	LiveScores  map[string]int
	CanStart    bool
	Err         error
}

// Controller owns the lifecycle of one party's live play: it opens the
// realtime channel, consumes its events in arrival order, drives the
// countdown, gates a single answer submission per question, and walks the
// session through its phases to the final scoreboard.
//
// All state is guarded by one mutex; channel events and timer ticks are
// dispatched by the single Run loop, and user intents are synchronous guarded
// method calls.
type Controller struct {
	log      zerolog.Logger
	clock    clockwork.Clock
	dial     DialFunc
	resolver CreatorResolver
	onLobby  func()

	countdown *Countdown

	mu          sync.RWMutex
	sess        domain.SessionContext
	phase       domain.SessionPhase
	question    *domain.Question
	answer      domain.AnswerState
	scores      domain.ScoreBoard
	live        map[string]int
	err         error
	channel     Realtime
	subscribers map[chan Snapshot]struct{}
}

// NewController builds a controller for one session. The creator resolver may
// be nil, in which case the start-game control stays unavailable.
func NewController(sess domain.SessionContext, dial DialFunc, resolver CreatorResolver, log zerolog.Logger) *Controller {
	return NewControllerWithClock(sess, dial, resolver, log, clockwork.NewRealClock())
}

// NewControllerWithClock is for deterministic timing in tests.
func NewControllerWithClock(sess domain.SessionContext, dial DialFunc, resolver CreatorResolver, log zerolog.Logger, clock clockwork.Clock) *Controller {
	return &Controller{
		log:         log,
		clock:       clock,
		dial:        dial,
		resolver:    resolver,
		countdown:   NewCountdown(clock),
		sess:        sess,
		phase:       domain.PhaseAwaitingParty,
		live:        make(map[string]int),
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// OnLobbyRedirect registers the navigation hook invoked when the post-game
// redirect fires.
func (c *Controller) OnLobbyRedirect(fn func()) {
	c.mu.Lock()
	c.onLobby = fn
	c.mu.Unlock()
}

// Run connects and dispatches until the session ends: nil after the post-game
// lobby redirect, an error when the session fails. The countdown and the
// channel are released on every exit path.
func (c *Controller) Run(ctx context.Context) error {
	if c.sess.PartyID == "" {
		c.fail(domain.ErrMissingPartyID)
		return domain.ErrMissingPartyID
	}

	channel, err := c.dial(ctx, c.sess.PartyID, c.sess.UserID)
	if err != nil {
		err = fmt.Errorf("connect realtime channel: %w", err)
		c.fail(err)
		return err
	}

	defer func() {
		c.countdown.Cancel()
		if cerr := channel.Close(); cerr != nil {
			c.log.Debug().Err(cerr).Msg("closing realtime channel")
		}
	}()

	c.mu.Lock()
	c.channel = channel
	c.phase = domain.PhaseWaitingToStart
	c.broadcastLocked()
	c.mu.Unlock()

	if c.resolver != nil {
		go c.resolveCreator(ctx)
	}

	events := channel.Events()
	var redirect <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-events:
			if !ok {
				if c.Snapshot().Phase == domain.PhaseGameOver {
					// Server dropped the party after game_over; keep
					// waiting for the redirect.
					events = nil
					continue
				}
				c.fail(domain.ErrChannelClosed)
				return domain.ErrChannelClosed
			}
			rd, err := c.handleEvent(event)
			if err != nil {
				return err
			}
			if rd != nil {
				redirect = rd
			}

		case <-c.countdown.C():
			c.mu.Lock()
			c.broadcastLocked()
			c.mu.Unlock()

		case <-redirect:
			c.log.Info().Str("party_id", c.sess.PartyID).Msg("returning to lobby")
			c.mu.RLock()
			onLobby := c.onLobby
			c.mu.RUnlock()
			if onLobby != nil {
				onLobby()
			}
			return nil
		}
	}
}

func (c *Controller) handleEvent(event domain.ServerEvent) (<-chan time.Time, error) {
	switch ev := event.(type) {
	case domain.EventNewQuestion:
		c.mu.Lock()
		if c.phase != domain.PhaseWaitingToStart && c.phase != domain.PhaseQuestionActive {
			c.mu.Unlock()
			return nil, nil
		}
		question := ev.Question
		c.question = &question
		c.answer = domain.AnswerState{}
		c.mu.Unlock()

		c.countdown.Start(question.TimeoutSeconds)

		c.mu.Lock()
		c.phase = domain.PhaseQuestionActive
		c.broadcastLocked()
		c.mu.Unlock()

		c.log.Info().Int("round", question.Round).Int("timeout", question.TimeoutSeconds).Msg("new question")
		return nil, nil

	case domain.EventGameOver:
		// A zero-round party goes straight from waiting to game over.
		c.mu.Lock()
		if c.phase != domain.PhaseWaitingToStart && c.phase != domain.PhaseQuestionActive {
			c.mu.Unlock()
			return nil, nil
		}
		c.scores = ev.Scores
		c.question = nil
		c.mu.Unlock()

		// Arm the redirect before exposing the phase change, so an observer
		// that sees GameOver knows the countdown is dead and the timer live.
		c.countdown.Cancel()
		redirect := c.clock.After(lobbyRedirectDelay)

		c.mu.Lock()
		c.phase = domain.PhaseGameOver
		c.broadcastLocked()
		c.mu.Unlock()

		c.log.Info().Int("players", len(ev.Scores)).Msg("game over")
		return redirect, nil

	case domain.EventScoreUpdate:
		c.mu.Lock()
		c.live[ev.UserID] = ev.Score
		c.broadcastLocked()
		c.mu.Unlock()
		return nil, nil

	case domain.EventQuestionTimeout:
		// Answer window closed server-side. Clamp the display; the next
		// question arrives as its own event.
		c.countdown.Cancel()
		c.mu.Lock()
		c.broadcastLocked()
		c.mu.Unlock()
		return nil, nil

	case domain.EventChannelError:
		err := fmt.Errorf("realtime channel: %w", ev.Err)
		c.fail(err)
		return nil, err

	default:
		c.log.Debug().Type("event", event).Msg("ignoring event")
		return nil, nil
	}
}

// SelectChoice records the user's current pick. Selection is frozen once the
// answer is submitted.
func (c *Controller) SelectChoice(choice string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != domain.PhaseQuestionActive || c.question == nil {
		return domain.ErrNoActiveQuestion
	}
	if c.answer.Submitted {
		return domain.ErrAlreadySubmitted
	}
	if !c.question.HasChoice(choice) {
		return fmt.Errorf("unknown choice %q", choice)
	}
	c.answer.Selected = choice
	c.broadcastLocked()
	return nil
}

// Submit sends the selected choice. Exactly one answer command goes out per
// question; repeat calls are rejected.
func (c *Controller) Submit() error {
	c.mu.Lock()
	if c.phase != domain.PhaseQuestionActive {
		c.mu.Unlock()
		return domain.ErrNoActiveQuestion
	}
	if c.answer.Submitted {
		c.mu.Unlock()
		return domain.ErrAlreadySubmitted
	}
	if c.answer.Selected == "" {
		c.mu.Unlock()
		return domain.ErrNoSelection
	}
	channel := c.channel
	if channel == nil || channel.Phase() != domain.ConnOpen {
		c.mu.Unlock()
		return domain.ErrNotConnected
	}
	cmd := domain.AnswerCommand{
		Answer:  c.answer.Selected,
		UserID:  c.sess.UserID,
		PartyID: c.sess.PartyID,
	}
	c.answer.Submitted = true
	c.broadcastLocked()
	c.mu.Unlock()

	if err := channel.Send(cmd); err != nil {
		return fmt.Errorf("submit answer: %w", err)
	}
	return nil
}

// StartGame issues the start command. Inert unless the local user is the
// resolved party creator and the session is still waiting.
func (c *Controller) StartGame() error {
	c.mu.RLock()
	if c.phase != domain.PhaseWaitingToStart {
		c.mu.RUnlock()
		return fmt.Errorf("cannot start in phase %q", c.phase)
	}
	if !c.sess.CanStart() {
		c.mu.RUnlock()
		return domain.ErrNotCreator
	}
	channel := c.channel
	sess := c.sess
	c.mu.RUnlock()

	if channel == nil || channel.Phase() != domain.ConnOpen {
		return domain.ErrNotConnected
	}
	if err := channel.Send(domain.StartGameCommand{UserID: sess.UserID, PartyID: sess.PartyID}); err != nil {
		return fmt.Errorf("start game: %w", err)
	}
	return nil
}

// CanStartGame mirrors the enablement rule for the start control.
func (c *Controller) CanStartGame() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase == domain.PhaseWaitingToStart && c.sess.CanStart()
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel receiving state snapshots after every change.
// The caller must invoke the returned cancel function to avoid leaks.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	initial := c.snapshotLocked()
	c.mu.Unlock()

	ch <- initial

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

func (c *Controller) resolveCreator(ctx context.Context) {
	meta, err := c.resolver.PartyMeta(ctx, c.sess.PartyID)
	if err != nil {
		// Non-fatal: the start control simply stays unavailable.
		c.log.Warn().Err(err).Msg("creator resolution failed")
		return
	}

	c.mu.Lock()
	c.sess.CreatorID = meta.CreatorID
	c.broadcastLocked()
	c.mu.Unlock()
	c.log.Debug().Str("creator_id", meta.CreatorID).Msg("creator resolved")
}

func (c *Controller) fail(err error) {
	c.mu.Lock()
	c.phase = domain.PhaseFailed
	c.err = err
	c.broadcastLocked()
	c.mu.Unlock()

	c.countdown.Cancel()
	c.log.Error().Err(err).Msg("session failed")
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase:       c.phase,
		Answer:      c.answer,
		SecondsLeft: c.countdown.Remaining(),
		Scores:      c.scores,
		CanStart:    c.phase == domain.PhaseWaitingToStart && c.sess.CanStart(),
		Err:         c.err,
	}
	if c.question != nil {
		q := *c.question
		snap.Question = &q
	}
	if len(c.live) > 0 {
		live := make(map[string]int, len(c.live))
		for id, score := range c.live {
			live[id] = score
		}
		snap.LiveScores = live
	}
	return snap
}

func (c *Controller) broadcastLocked() {
	snap := c.snapshotLocked()
	for ch := range c.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so a slow renderer never blocks dispatch.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
