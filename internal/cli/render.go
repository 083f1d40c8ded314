package cli

import (
	"fmt"
	"io"
	"sort"

	"funfriday-client/internal/app"
	"funfriday-client/internal/domain"
)

// renderer turns controller snapshots into terminal output. It only reads
// state and emits intents via the input loop; the controller stays the single
// source of truth.
type renderer struct {
	out io.Writer

	lastPhase     domain.SessionPhase
	lastRound     int
	lastSeconds   int
	lastSelected  string
	lastSubmitted bool
	startShown    bool
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out, lastRound: -1, lastSeconds: -1}
}

func (r *renderer) render(snap app.Snapshot) {
	if snap.Phase != r.lastPhase {
		r.enterPhase(snap)
		r.lastPhase = snap.Phase
	}

	switch snap.Phase {
	case domain.PhaseWaitingToStart:
		if snap.CanStart && !r.startShown {
			fmt.Fprintln(r.out, "You created this party. Type 'start' to begin.")
			r.startShown = true
		}

	case domain.PhaseQuestionActive:
		question := snap.Question
		if question == nil {
			return
		}
		if question.Round != r.lastRound {
			r.lastRound = question.Round
			r.lastSelected = ""
			r.lastSubmitted = false
			fmt.Fprintf(r.out, "\nRound %d: %s\n", question.Round, question.Text)
			for i, choice := range question.Choices {
				fmt.Fprintf(r.out, "  %d) %s\n", i+1, choice)
			}
		}
		if snap.SecondsLeft != r.lastSeconds {
			r.lastSeconds = snap.SecondsLeft
			fmt.Fprintf(r.out, "  time left: %ds\n", snap.SecondsLeft)
		}
		if snap.Answer.Submitted && !r.lastSubmitted {
			r.lastSubmitted = true
			fmt.Fprintf(r.out, "You answered: %s\n", snap.Answer.Selected)
		} else if snap.Answer.Selected != r.lastSelected && !snap.Answer.Submitted {
			r.lastSelected = snap.Answer.Selected
			fmt.Fprintf(r.out, "selected: %s (type 'submit' to lock it in)\n", snap.Answer.Selected)
		}

	case domain.PhaseGameOver:
		// Banner printed once by enterPhase.

	case domain.PhaseFailed:
		if snap.Err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", snap.Err)
		}
	}
}

func (r *renderer) enterPhase(snap app.Snapshot) {
	switch snap.Phase {
	case domain.PhaseWaitingToStart:
		fmt.Fprintln(r.out, "Waiting for the game to start!")
	case domain.PhaseGameOver:
		fmt.Fprintln(r.out, "\nGame over! Scores:")
		r.printScores(snap.Scores)
		fmt.Fprintln(r.out, "Redirecting to the lobby in 5 seconds...")
	case domain.PhaseFailed:
		fmt.Fprintln(r.out, "\nThe session has ended unexpectedly.")
	}
}

func (r *renderer) printScores(scores domain.ScoreBoard) {
	userIDs := make([]string, 0, len(scores))
	for id := range scores {
		userIDs = append(userIDs, id)
	}
	sort.Slice(userIDs, func(i, j int) bool {
		si, sj := scores[userIDs[i]], scores[userIDs[j]]
		if si.TotalScore != sj.TotalScore {
			return si.TotalScore > sj.TotalScore
		}
		return userIDs[i] < userIDs[j]
	})

	for _, id := range userIDs {
		score := scores[id]
		fmt.Fprintf(r.out, "  %s: %d\n", id, score.TotalScore)
		categories := make([]string, 0, len(score.CategoryScores))
		for category := range score.CategoryScores {
			categories = append(categories, category)
		}
		sort.Strings(categories)
		for _, category := range categories {
			fmt.Fprintf(r.out, "    %s: %d\n", category, score.CategoryScores[category])
		}
	}
}
