package board

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/sirwalterjones/threads-backend/internal/domain"
	"github.com/sirwalterjones/threads-backend/internal/platform/dbctx"
	"github.com/sirwalterjones/threads-backend/internal/platform/logger"
)

type PostTagRepo interface {
	CreateIgnoreDuplicates(dbc dbctx.Context, rows []*types.PostTag) (int, error)
	ListByPostID(dbc dbctx.Context, postID uuid.UUID) ([]*types.PostTag, error)
	ListTagIDsByPostID(dbc dbctx.Context, postID uuid.UUID) ([]uuid.UUID, error)
	ListPostIDsByTagID(dbc dbctx.Context, tagID uuid.UUID, limit, offset int) ([]uuid.UUID, error)
	CountByTagIDs(dbc dbctx.Context, tagIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	DeleteByPostIDExceptTagIDs(dbc dbctx.Context, postID uuid.UUID, keep []uuid.UUID) (int64, error)
	DeleteByPostID(dbc dbctx.Context, postID uuid.UUID) (int64, error)
}

type postTagRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostTagRepo(db *gorm.DB, baseLog *logger.Logger) PostTagRepo {
	return &postTagRepo{db: db, log: baseLog.With("repo", "PostTagRepo")}
}

// CreateIgnoreDuplicates links post and tags, skipping pairs that already
// exist. Re-applying the same association set is therefore a no-op.
func (r *postTagRepo) CreateIgnoreDuplicates(dbc dbctx.Context, rows []*types.PostTag) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	res := txx.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "tag_id"}},
			DoNothing: true,
		}).
		Create(&rows)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

func (r *postTagRepo) ListByPostID(dbc dbctx.Context, postID uuid.UUID) ([]*types.PostTag, error) {
	if postID == uuid.Nil {
		return nil, fmt.Errorf("missing post_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.PostTag
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.PostTag{}).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postTagRepo) ListTagIDsByPostID(dbc dbctx.Context, postID uuid.UUID) ([]uuid.UUID, error) {
	if postID == uuid.Nil {
		return nil, fmt.Errorf("missing post_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []uuid.UUID
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.PostTag{}).
		Where("post_id = ?", postID).
		Pluck("tag_id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postTagRepo) ListPostIDsByTagID(dbc dbctx.Context, tagID uuid.UUID, limit, offset int) ([]uuid.UUID, error) {
	if tagID == uuid.Nil {
		return nil, fmt.Errorf("missing tag_id")
	}
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
	var out []uuid.UUID
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.PostTag{}).
		Where("tag_id = ?", tagID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Pluck("post_id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postTagRepo) CountByTagIDs(dbc dbctx.Context, tagIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := map[uuid.UUID]int64{}
	if len(tagIDs) == 0 {
		return out, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var rows []struct {
		TagID uuid.UUID
		N     int64
	}
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.PostTag{}).
		Select("tag_id AS tag_id, COUNT(*) AS n").
		Where("tag_id IN ?", tagIDs).
		Group("tag_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.TagID] = row.N
	}
	return out, nil
}

// DeleteByPostIDExceptTagIDs hard-deletes the post's associations outside the
// kept set. An empty keep list removes every association of the post.
func (r *postTagRepo) DeleteByPostIDExceptTagIDs(dbc dbctx.Context, postID uuid.UUID, keep []uuid.UUID) (int64, error) {
	if postID == uuid.Nil {
		return 0, fmt.Errorf("missing post_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	q := txx.WithContext(dbc.Ctx).Where("post_id = ?", postID)
	if len(keep) > 0 {
		q = q.Where("tag_id NOT IN ?", keep)
	}
	res := q.Delete(&types.PostTag{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *postTagRepo) DeleteByPostID(dbc dbctx.Context, postID uuid.UUID) (int64, error) {
	return r.DeleteByPostIDExceptTagIDs(dbc, postID, nil)
}
