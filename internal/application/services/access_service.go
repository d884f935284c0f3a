package services

import (
	"context"

	"github.com/politifan/school-peaky-minds/internal/domain/user"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/performance"
)

// AccessService manages the Telegram whitelist.
type AccessService struct {
	repo        user.WhitelistRepository
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewAccessService creates a new access service
func NewAccessService(repo user.WhitelistRepository, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AccessService {
	return &AccessService{repo: repo, logger: logger, perfTracker: perfTracker}
}

// Whitelist returns the current list.
func (s *AccessService) Whitelist(ctx context.Context) (user.Whitelist, error) {
	return s.repo.Load(ctx)
}

// Allowed reports whether id may talk to the bot.
func (s *AccessService) Allowed(ctx context.Context, id int64) bool {
	list, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.Bot().Warn("Failed to load whitelist", "error", err.Error())
		return false
	}
	return list.Contains(id)
}

// IsAdmin reports whether id may open the admin panel.
func (s *AccessService) IsAdmin(ctx context.Context, id int64) bool {
	list, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.Auth().Warn("Failed to load whitelist", "error", err.Error())
		return false
	}
	return list.IsAdmin(id)
}

// Replace sets the list from free text. Text with no ids leaves it unchanged.
func (s *AccessService) Replace(ctx context.Context, blob string) (user.Whitelist, error) {
	marker := s.perfTracker.StartOperation("replace_whitelist", "whitelist")
	defer marker.Complete()

	ids := user.ParseIDs(blob)
	if len(ids) == 0 {
		marker.SetSuccess(false)
		return s.repo.Load(ctx)
	}
	list, err := s.repo.Save(ctx, ids)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}
	s.logger.Auth().Info("Whitelist replaced", "count", len(list))
	return list, nil
}

// Remove drops id from the list unless that would leave it empty.
func (s *AccessService) Remove(ctx context.Context, id int64) (user.Whitelist, error) {
	marker := s.perfTracker.StartOperation("remove_whitelist", "whitelist")
	defer marker.Complete()

	current, err := s.repo.Load(ctx)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}
	remaining := current.Without(id)
	if len(remaining) == 0 {
		marker.SetSuccess(false)
		return current, nil
	}
	list, err := s.repo.Save(ctx, remaining)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}
	s.logger.Auth().Info("Whitelist entry removed", "id", id, "count", len(list))
	return list, nil
}
