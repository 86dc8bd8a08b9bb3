// Package activity keeps the append-only audit trail of back-office actions.
package activity

import (
	"context"
	"fmt"
)

// Recorder is the write side used by the admin-facing services.
type Recorder interface {
	Record(ctx context.Context, actorID int64, action, kind string, targetID int64, format string, args ...any) (*Entry, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

// Record appends one entry. Called inside the caller's transaction so the audit
// row commits or rolls back together with the change it describes.
func (s *Service) Record(ctx context.Context, actorID int64, action, kind string, targetID int64, format string, args ...any) (*Entry, error) {
	e := &Entry{
		Action:     action,
		TargetKind: kind,
		Message:    fmt.Sprintf(format, args...),
	}
	if actorID > 0 {
		e.ActorID = &actorID
	}
	if targetID > 0 {
		e.TargetID = &targetID
	}
	if err := s.repo.Append(ctx, e); err != nil {
		return nil, fmt.Errorf("append activity: %w", err)
	}
	return e, nil
}

// Recent returns the newest entries first.
func (s *Service) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.repo.Recent(ctx, limit)
}
