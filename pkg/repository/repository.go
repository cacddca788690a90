package repository

import (
	"context"

	"designhub-points/pkg/db/option"

	"gorm.io/gorm"
)

// Repository is the generic persistence surface services talk to. WithTrx
// returns a copy bound to a transaction handle so a service can run several
// repository calls inside one db.Transaction closure.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, filter T, opts ...option.QueryOption) ([]T, error)
	FindOne(ctx context.Context, filter T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, entity *T) error
	Update(ctx context.Context, entity *T) error
	BatchCreate(ctx context.Context, entities []T) error
	Count(ctx context.Context, filter T, opts ...option.QueryOption) (int64, error)
}

type store[T any] struct {
	db *gorm.DB
}

// ProvideStore builds the gorm-backed Repository for T. Services receive it
// through fx and never touch *gorm.DB directly outside transactions.
func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (s *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	if tx == nil {
		return s
	}
	return &store[T]{db: tx}
}

func (s *store[T]) apply(tx *gorm.DB, opts []option.QueryOption) *gorm.DB {
	for _, o := range opts {
		tx = o.Apply(tx)
	}
	return tx
}

func (s *store[T]) Find(ctx context.Context, filter T, opts ...option.QueryOption) ([]T, error) {
	var out []T
	tx := s.apply(s.db.WithContext(ctx).Where(&filter), opts)
	if err := tx.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *store[T]) FindOne(ctx context.Context, filter T, opts ...option.QueryOption) (*T, error) {
	var out T
	tx := s.apply(s.db.WithContext(ctx).Where(&filter), opts)
	if err := tx.First(&out).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (s *store[T]) Create(ctx context.Context, entity *T) error {
	return s.db.WithContext(ctx).Create(entity).Error
}

func (s *store[T]) Update(ctx context.Context, entity *T) error {
	return s.db.WithContext(ctx).Save(entity).Error
}

func (s *store[T]) BatchCreate(ctx context.Context, entities []T) error {
	if len(entities) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&entities).Error
}

func (s *store[T]) Count(ctx context.Context, filter T, opts ...option.QueryOption) (int64, error) {
	var n int64
	var model T
	tx := s.apply(s.db.WithContext(ctx).Model(&model).Where(&filter), opts)
	if err := tx.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
