package cms

import (
	"context"
	"strings"

	"induction-portal/models"
	"induction-portal/utils"
)

// NewQuestion builds a question from form input. Blank answers are dropped
// before validation, so correct indexes the remaining answers.
func NewQuestion(q string, answers []string, correct int) (models.QuizQuestion, error) {
	var kept []string
	for _, a := range answers {
		if a = strings.TrimSpace(a); a != "" {
			kept = append(kept, a)
		}
	}
	question := models.QuizQuestion{Q: strings.TrimSpace(q), Answers: kept, Correct: correct}
	return question, ValidateQuestion(question)
}

// ValidateQuestion checks text, answer count (2-4) and the correct index.
func ValidateQuestion(q models.QuizQuestion) error {
	if utils.IsBlank(q.Q) || len(q.Answers) < 2 || len(q.Answers) > 4 {
		return ErrInvalidQuiz
	}
	if q.Correct < 0 || q.Correct >= len(q.Answers) {
		return ErrInvalidQuiz
	}
	return nil
}

// AddQuestion appends a validated question to the category quiz.
func (s *Service) AddQuestion(ctx context.Context, key string, q models.QuizQuestion, author string) error {
	if err := ValidateQuestion(q); err != nil {
		return err
	}
	return s.editCategory(ctx, key, author, "Quiz question added", func(c *models.CategoryContent) error {
		c.Quiz = append(c.Quiz, q)
		return nil
	})
}

// DeleteQuestion removes the question at index.
func (s *Service) DeleteQuestion(ctx context.Context, key string, index int, author string) error {
	return s.editCategory(ctx, key, author, "Quiz question deleted", func(c *models.CategoryContent) error {
		if index < 0 || index >= len(c.Quiz) {
			return ErrQuestionNotFound
		}
		c.Quiz = append(c.Quiz[:index], c.Quiz[index+1:]...)
		if len(c.Quiz) == 0 {
			c.Quiz = nil
		}
		return nil
	})
}

// Quiz returns the category's questions.
func (s *Service) Quiz(ctx context.Context, key string) ([]models.QuizQuestion, error) {
	doc, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	if c := doc.Category(key); c != nil {
		return c.Quiz, nil
	}
	return nil, nil
}
