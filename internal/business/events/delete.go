package events

import (
	"context"
	"fmt"
)

func (s *Service) DeleteEvent(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.overrides.DeleteOverrides(ctx, tx, id); err != nil {
		return fmt.Errorf("overridesRepository.DeleteOverrides: %w", err)
	}

	if err := s.events.DeleteEvent(ctx, tx, id); err != nil {
		return fmt.Errorf("eventsRepository.DeleteEvent: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}
