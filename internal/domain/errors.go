package domain

import "errors"

var (
	// ErrMissingPartyID is returned when a session is started without a party ID.
	ErrMissingPartyID = errors.New("party id is missing")
	// ErrNotConnected is returned when a command is issued before the channel is open.
	ErrNotConnected = errors.New("realtime channel is not open")
	// ErrNotCreator is returned when a non-creator tries to start the game.
	ErrNotCreator = errors.New("only the party creator can start the game")
	// ErrNoSelection is returned when submitting without a selected choice.
	ErrNoSelection = errors.New("no choice selected")
	// ErrAlreadySubmitted is returned on repeat submissions for the same question.
	ErrAlreadySubmitted = errors.New("answer already submitted for this question")
	// ErrNoActiveQuestion is returned when answering outside an active question.
	ErrNoActiveQuestion = errors.New("no question is active")
	// ErrChannelClosed is returned when sending on a closed or errored channel.
	ErrChannelClosed = errors.New("realtime channel is closed")
)
