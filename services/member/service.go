package member

import (
	"context"

	"designhub-points/pkg/db/option"
	"designhub-points/pkg/errutil"
	"designhub-points/pkg/repository"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("member",
	fx.Provide(repository.ProvideStore[User]),
	fx.Provide(NewService),
)

type ServiceParams struct {
	fx.In
	Users repository.Repository[User]
}

// Service is the VIP status provider and identity lookup the rest of the
// engine depends on.
type Service struct {
	users repository.Repository[User]
}

func NewService(p ServiceParams) *Service {
	return &Service{users: p.Users}
}

func (s *Service) WithTrx(tx *gorm.DB) *Service {
	return &Service{users: s.users.WithTrx(tx)}
}

// GetActiveUser returns the user or a NOT_FOUND error when the account is
// missing, disabled, or soft-deleted.
func (s *Service) GetActiveUser(ctx context.Context, userID string) (*User, error) {
	u, err := s.users.FindOne(ctx, User{ID: userID})
	if err != nil {
		return nil, errutil.Internal("failed to load user", err)
	}
	if u == nil || !u.IsActive() {
		return nil, errutil.NotFound("USER_NOT_FOUND", "user does not exist")
	}
	return u, nil
}

func (s *Service) FindByIDs(ctx context.Context, ids []string) ([]User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	users, err := s.users.Find(ctx, User{}, option.ApplyOperator{
		Field:    "id",
		Operator: "IN",
		Value:    ids,
	})
	if err != nil {
		return nil, errutil.Internal("failed to load users", err)
	}
	return users, nil
}
