package board

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/sirwalterjones/threads-backend/internal/domain"
	"github.com/sirwalterjones/threads-backend/internal/platform/dbctx"
	"github.com/sirwalterjones/threads-backend/internal/platform/logger"
)

type PostRepo interface {
	Create(dbc dbctx.Context, rows []*types.Post) ([]*types.Post, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Post, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Post, error)
	List(dbc dbctx.Context, limit, offset int) ([]*types.Post, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Post, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error
	FullDeleteByID(dbc dbctx.Context, id uuid.UUID) error
	CountAll(dbc dbctx.Context) (int64, error)
}

type postRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostRepo(db *gorm.DB, baseLog *logger.Logger) PostRepo {
	return &postRepo{db: db, log: baseLog.With("repo", "PostRepo")}
}

func (r *postRepo) Create(dbc dbctx.Context, rows []*types.Post) ([]*types.Post, error) {
	if len(rows) == 0 {
		return []*types.Post{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	if err := txx.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *postRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Post, error) {
	if len(ids) == 0 {
		return []*types.Post{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.Post
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.Post{}).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Post, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *postRepo) List(dbc dbctx.Context, limit, offset int) ([]*types.Post, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.Post
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.Post{}).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Post, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByID requires dbc.Tx")
	}
	var out types.Post
	if err := dbc.Tx.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *postRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).
		Model(&types.Post{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *postRepo) SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).Where("id = ?", id).Delete(&types.Post{}).Error
}

func (r *postRepo) FullDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).Unscoped().Where("id = ?", id).Delete(&types.Post{}).Error
}

func (r *postRepo) CountAll(dbc dbctx.Context) (int64, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var n int64
	if err := txx.WithContext(dbc.Ctx).Model(&types.Post{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
