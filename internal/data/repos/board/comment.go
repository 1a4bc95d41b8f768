package board

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/sirwalterjones/threads-backend/internal/domain"
	"github.com/sirwalterjones/threads-backend/internal/platform/dbctx"
	"github.com/sirwalterjones/threads-backend/internal/platform/logger"
)

type CommentRepo interface {
	Create(dbc dbctx.Context, rows []*types.Comment) ([]*types.Comment, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Comment, error)
	ListByPostID(dbc dbctx.Context, postID uuid.UUID, limit, offset int) ([]*types.Comment, error)
	ListBodiesByPostID(dbc dbctx.Context, postID uuid.UUID, exclude *uuid.UUID) ([]string, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error
	SoftDeleteByPostID(dbc dbctx.Context, postID uuid.UUID) error
	FullDeleteByID(dbc dbctx.Context, id uuid.UUID) error
	CountByPostID(dbc dbctx.Context, postID uuid.UUID) (int64, error)
}

type commentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCommentRepo(db *gorm.DB, baseLog *logger.Logger) CommentRepo {
	return &commentRepo{db: db, log: baseLog.With("repo", "CommentRepo")}
}

func (r *commentRepo) Create(dbc dbctx.Context, rows []*types.Comment) ([]*types.Comment, error) {
	if len(rows) == 0 {
		return []*types.Comment{}, nil
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

func (r *commentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Comment, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.Comment
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.Comment{}).
		Where("id = ?", id).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *commentRepo) ListByPostID(dbc dbctx.Context, postID uuid.UUID, limit, offset int) ([]*types.Comment, error) {
	if postID == uuid.Nil {
		return nil, fmt.Errorf("missing post_id")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.Comment
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.Comment{}).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListBodiesByPostID returns the bodies of the post's live comments in creation
// order. The soft-delete scope keeps removed comments out; exclude skips one
// comment id for flows where a removal has not committed yet.
func (r *commentRepo) ListBodiesByPostID(dbc dbctx.Context, postID uuid.UUID, exclude *uuid.UUID) ([]string, error) {
	if postID == uuid.Nil {
		return nil, fmt.Errorf("missing post_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	q := txx.WithContext(dbc.Ctx).
		Model(&types.Comment{}).
		Where("post_id = ?", postID)
	if exclude != nil && *exclude != uuid.Nil {
		q = q.Where("id <> ?", *exclude)
	}
	var out []string
	if err := q.Order("created_at ASC").Pluck("body", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *commentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Comment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *commentRepo) SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).Where("id = ?", id).Delete(&types.Comment{}).Error
}

func (r *commentRepo) SoftDeleteByPostID(dbc dbctx.Context, postID uuid.UUID) error {
	if postID == uuid.Nil {
		return nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).Where("post_id = ?", postID).Delete(&types.Comment{}).Error
}

func (r *commentRepo) FullDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).Unscoped().Where("id = ?", id).Delete(&types.Comment{}).Error
}

func (r *commentRepo) CountByPostID(dbc dbctx.Context, postID uuid.UUID) (int64, error) {
	if postID == uuid.Nil {
		return 0, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var n int64
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.Comment{}).
		Where("post_id = ?", postID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
