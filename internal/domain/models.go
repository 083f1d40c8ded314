package domain

// SessionContext carries the identifiers for one play session. PartyID and
// UserID are fixed at construction; CreatorID is filled in by a single
// asynchronous lookup after the session starts.
type SessionContext struct {
	PartyID   string
	UserID    string
	CreatorID string
}

// CanStart reports whether the local user may issue the start-game command.
// It requires the creator lookup to have completed.
func (s SessionContext) CanStart() bool {
	return s.CreatorID != "" && s.UserID == s.CreatorID
}

// Question is one round's prompt. It is superseded wholesale by the next
// new_question event or terminated by game_over.
type Question struct {
	Round          int      `json:"round"`
	Text           string   `json:"question"`
	Choices        []string `json:"choices"`
	TimeoutSeconds int      `json:"timeout"`
}

// HasChoice reports whether label is one of the question's choices.
func (q Question) HasChoice(label string) bool {
	for _, c := range q.Choices {
		if c == label {
			return true
		}
	}
	return false
}

// AnswerState tracks the local user's answer for the current question.
// Submitted flips false to true at most once per question; a new question
// resets both fields.
type AnswerState struct {
	Selected  string
	Submitted bool
}

// PlayerScore is one player's final tally.
type PlayerScore struct {
	TotalScore     int            `json:"total_score"`
	CategoryScores map[string]int `json:"category_scores"`
}

// ScoreBoard maps user IDs to final scores. It is created once, on game_over,
// and never mutated afterwards.
type ScoreBoard map[string]PlayerScore

// SessionPhase is the coarse lifecycle state of a play session.
type SessionPhase string

const (
	PhaseAwaitingParty  SessionPhase = "awaiting_party"
	PhaseWaitingToStart SessionPhase = "waiting_to_start"
	PhaseQuestionActive SessionPhase = "question_active"
	PhaseGameOver       SessionPhase = "game_over"
	PhaseFailed         SessionPhase = "failed"
)

// ConnectionPhase is the realtime channel's lifecycle state.
type ConnectionPhase string

const (
	ConnConnecting ConnectionPhase = "connecting"
	ConnOpen       ConnectionPhase = "open"
	ConnErrored    ConnectionPhase = "errored"
	ConnClosed     ConnectionPhase = "closed"
)

// PartySummary is one entry of the lobby's party listing.
type PartySummary struct {
	PartyID      string   `json:"party_id"`
	Creator      string   `json:"creator"`
	State        string   `json:"state"`
	Rounds       int      `json:"rounds"`
	Participants []string `json:"participants"`
}

// PartyMeta is the party metadata document, queried once per session to
// resolve the creator.
type PartyMeta struct {
	CreatorID string `json:"creator_id"`
	Category  string `json:"category"`
	Rounds    int    `json:"rounds"`
	Timeout   int    `json:"timeout"`
	State     string `json:"state"`
}

// PartySettings are the knobs for creating a new party.
type PartySettings struct {
	Category string `json:"category"`
	Rounds   int    `json:"rounds"`
	Timeout  int    `json:"timeout"`
}
