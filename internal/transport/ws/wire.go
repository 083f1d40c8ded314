package ws

import (
	"encoding/json"
	"fmt"

	"funfriday-client/internal/domain"
)

// Inbound frames carry an "event" tag plus event-specific fields; outbound
// command frames use the same shape. Field names follow the server's wire
// schema, not Go conventions.

type newQuestionFrame struct {
	Round    int      `json:"round"`
	Question string   `json:"question"`
	Choices  []string `json:"choices"`
	Timeout  int      `json:"timeout"`
}

type gameOverFrame struct {
	Scores map[string]scoreEntry `json:"scores"`
}

// scoreEntry tolerates both spellings of the total: newer servers send
// total_score, older ones send score.
type scoreEntry struct {
	TotalScore     *int           `json:"total_score"`
	Score          *int           `json:"score"`
	CategoryScores map[string]int `json:"category_scores"`
}

type scoreUpdateFrame struct {
	UserID string `json:"user_id"`
	Score  int    `json:"score"`
}

type commandFrame struct {
	Event   string `json:"event"`
	Answer  string `json:"answer,omitempty"`
	UserID  string `json:"user_id"`
	PartyID string `json:"party_id"`
}

func decodeEvent(data []byte) (domain.ServerEvent, error) {
	var tag struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	switch tag.Event {
	case "new_question":
		var f newQuestionFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode new_question: %w", err)
		}
		if len(f.Choices) == 0 {
			return nil, fmt.Errorf("new_question without choices")
		}
		return domain.EventNewQuestion{Question: domain.Question{
			Round:          f.Round,
			Text:           f.Question,
			Choices:        f.Choices,
			TimeoutSeconds: f.Timeout,
		}}, nil

	case "game_over":
		var f gameOverFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode game_over: %w", err)
		}
		scores := make(domain.ScoreBoard, len(f.Scores))
		for userID, entry := range f.Scores {
			total := 0
			switch {
			case entry.TotalScore != nil:
				total = *entry.TotalScore
			case entry.Score != nil:
				total = *entry.Score
			}
			scores[userID] = domain.PlayerScore{
				TotalScore:     total,
				CategoryScores: entry.CategoryScores,
			}
		}
		return domain.EventGameOver{Scores: scores}, nil

	case "score_update":
		var f scoreUpdateFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode score_update: %w", err)
		}
		return domain.EventScoreUpdate{UserID: f.UserID, Score: f.Score}, nil

	case "question_timeout":
		return domain.EventQuestionTimeout{}, nil

	default:
		return nil, fmt.Errorf("unknown event %q", tag.Event)
	}
}

func encodeCommand(cmd domain.Command) (commandFrame, error) {
	switch c := cmd.(type) {
	case domain.AnswerCommand:
		return commandFrame{Event: "answer", Answer: c.Answer, UserID: c.UserID, PartyID: c.PartyID}, nil
	case domain.StartGameCommand:
		return commandFrame{Event: "start_game", UserID: c.UserID, PartyID: c.PartyID}, nil
	default:
		return commandFrame{}, fmt.Errorf("unsupported command type %T", cmd)
	}
}
