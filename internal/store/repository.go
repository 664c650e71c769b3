package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Scope narrows a query, e.g. a WHERE clause from a route parameter.
type Scope = func(*gorm.DB) *gorm.DB

// Repository is the single-table CRUD used by the plain REST resources.
// Associations named in preloads are loaded on reads and never written.
type Repository[T any] struct {
	db       *gorm.DB
	preloads []string
}

// NewRepository returns a repository for T.
func NewRepository[T any](db *gorm.DB, preloads ...string) *Repository[T] {
	return &Repository[T]{db: db, preloads: preloads}
}

func (r *Repository[T]) read(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx)
	for _, p := range r.preloads {
		q = q.Preload(p)
	}
	return q
}

// List returns every row matching scopes, oldest first.
func (r *Repository[T]) List(ctx context.Context, scopes ...Scope) ([]T, error) {
	var rows []T
	if err := r.read(ctx).Scopes(scopes...).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Get returns the row with the given id, or ErrNotFound.
func (r *Repository[T]) Get(ctx context.Context, id uint) (*T, error) {
	var row T
	if err := r.read(ctx).First(&row, id).Error; err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

// Exists reports whether any row matches the condition.
func (r *Repository[T]) Exists(ctx context.Context, query any, args ...any) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(T)).Where(query, args...).Limit(1).Count(&count).Error
	return count > 0, err
}

// Create inserts v. A uniqueness violation yields ErrConflict.
func (r *Repository[T]) Create(ctx context.Context, v *T) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(v).Error)
}

// Update overwrites every column of row id with v and returns the stored row.
func (r *Repository[T]) Update(ctx context.Context, id uint, v *T) (*T, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	err = r.db.WithContext(ctx).Model(current).
		Select("*").Omit("ID", "CreatedAt", "DeletedAt", clause.Associations).
		Updates(v).Error
	if err != nil {
		return nil, translate(err)
	}
	return r.Get(ctx, id)
}

// Delete removes row id for good, or returns ErrNotFound. Unique indexes
// cover every stored row, so a soft-deleted row would still block a
// resubmitted feedback or a reused name.
func (r *Repository[T]) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Unscoped().Delete(new(T), id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
