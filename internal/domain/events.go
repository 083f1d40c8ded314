package domain

// ServerEvent is a tagged variant decoded from one inbound channel frame.
// Events are consumed one at a time, in arrival order, by the session
// controller's dispatch loop.
type ServerEvent interface {
	serverEvent()
}

// EventNewQuestion installs the next question, superseding any prior one.
type EventNewQuestion struct {
	Question Question
}

// EventGameOver carries the final scoreboard and ends the game.
type EventGameOver struct {
	Scores ScoreBoard
}

// EventScoreUpdate is a mid-game score change for a single player.
type EventScoreUpdate struct {
	UserID string
	Score  int
}

// EventQuestionTimeout signals that the server closed the current answer
// window. The next question still arrives as its own event.
type EventQuestionTimeout struct{}

// EventChannelError is the terminal error signal from the realtime channel.
// No further events follow it.
type EventChannelError struct {
	Err error
}

func (EventNewQuestion) serverEvent() {}

func (EventGameOver) serverEvent() {}

func (EventScoreUpdate) serverEvent() {}

func (EventQuestionTimeout) serverEvent() {}

func (EventChannelError) serverEvent() {}

// Command is an outbound frame for the realtime channel.
type Command interface {
	command()
}

// AnswerCommand submits the selected choice for the current question.
type AnswerCommand struct {
	Answer  string
	UserID  string
	PartyID string
}

// StartGameCommand asks the server to start the first round. Only honored
// for the party creator.
type StartGameCommand struct {
	UserID  string
	PartyID string
}

func (AnswerCommand) command() {}

func (StartGameCommand) command() {}
