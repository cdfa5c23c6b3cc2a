package cms

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"induction-portal/auth"
	"induction-portal/models"
	"induction-portal/utils"
)

// AddAdmin stores a bcrypt hash for username, replacing any previous one.
func (s *Service) AddAdmin(ctx context.Context, username, password, author string) error {
	username = strings.TrimSpace(username)
	if username == "" || utils.IsBlank(password) {
		return ErrInvalidAdmin
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.mutate(ctx, fmt.Sprintf("Admin added: %s (%s)", username, author), func(doc *models.Document) error {
		doc.Admins[username] = hash
		return nil
	})
}

// RemoveAdmin deletes an admin account.
func (s *Service) RemoveAdmin(ctx context.Context, username, author string) error {
	return s.mutate(ctx, fmt.Sprintf("Admin removed: %s (%s)", username, author), func(doc *models.Document) error {
		if _, ok := doc.Admins[username]; !ok {
			return ErrAdminNotFound
		}
		delete(doc.Admins, username)
		return nil
	})
}

// Admins lists admin usernames alphabetically.
func (s *Service) Admins(ctx context.Context) ([]string, error) {
	doc, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(doc.Admins))
	for u := range doc.Admins {
		names = append(names, u)
	}
	sort.Strings(names)
	return names, nil
}

// Logs returns the system log, newest first.
func (s *Service) Logs(ctx context.Context) ([]models.LogEntry, error) {
	doc, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.SystemLogs, nil
}

// LogEvent appends an entry to the system log.
func (s *Service) LogEvent(ctx context.Context, level, message string) error {
	return s.repo.Mutate(ctx, func(doc *models.Document) error {
		doc.AppendLog(s.clock(), level, message)
		return nil
	})
}

// ClearLogs empties the system log.
func (s *Service) ClearLogs(ctx context.Context) error {
	return s.repo.Mutate(ctx, func(doc *models.Document) error {
		doc.SystemLogs = []models.LogEntry{}
		return nil
	})
}
