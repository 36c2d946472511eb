package trivia

import (
	"html"
	"math/rand"

	"github.com/triviaduel/backend/internal/models"
)

// FormattedQuestion is the client-facing question shape. The correct answer
// is never included; it is kept server-side in the lobby record.
type FormattedQuestion struct {
	Category   string   `json:"category"`
	Question   string   `json:"question"`
	Answers    []string `json:"answers"`
	Difficulty string   `json:"difficulty"`
	Duration   int      `json:"duration"`
	Type       string   `json:"type"`
}

// Format decodes a raw provider batch into wire questions and the matching
// ordered correct-answer records.
//
// Boolean questions always present ["True", "False"] in that order; multiple
// choice questions present all four answers in random order. Duration is
// looked up from the per-difficulty map.
func Format(questions []Question, durations map[string]int) ([]FormattedQuestion, []models.CorrectAnswer) {
	formatted := make([]FormattedQuestion, 0, len(questions))
	correct := make([]models.CorrectAnswer, 0, len(questions))

	for _, q := range questions {
		correctAnswer := html.UnescapeString(q.CorrectAnswer)

		var answers []string
		if q.Type == "boolean" {
			answers = []string{"True", "False"}
		} else {
			answers = make([]string, 0, len(q.IncorrectAnswers)+1)
			answers = append(answers, correctAnswer)
			for _, a := range q.IncorrectAnswers {
				answers = append(answers, html.UnescapeString(a))
			}
			rand.Shuffle(len(answers), func(i, j int) {
				answers[i], answers[j] = answers[j], answers[i]
			})
		}

		formatted = append(formatted, FormattedQuestion{
			Category:   html.UnescapeString(q.Category),
			Question:   html.UnescapeString(q.Question),
			Answers:    answers,
			Difficulty: q.Difficulty,
			Duration:   durations[q.Difficulty],
			Type:       q.Type,
		})

		correct = append(correct, models.CorrectAnswer{
			Answer:     correctAnswer,
			Difficulty: q.Difficulty,
			Type:       q.Type,
		})
	}

	return formatted, correct
}
