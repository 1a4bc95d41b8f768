package board

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/sirwalterjones/threads-backend/internal/domain"
	"github.com/sirwalterjones/threads-backend/internal/platform/dbctx"
	"github.com/sirwalterjones/threads-backend/internal/platform/logger"
)

type TagRepo interface {
	Create(dbc dbctx.Context, rows []*types.Tag) ([]*types.Tag, error)
	CreateIgnoreDuplicates(dbc dbctx.Context, rows []*types.Tag) (int, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Tag, error)
	GetByLabels(dbc dbctx.Context, labels []string) ([]*types.Tag, error)
	GetByLabel(dbc dbctx.Context, label string) (*types.Tag, error)
	ListAll(dbc dbctx.Context) ([]*types.Tag, error)
}

type tagRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTagRepo(db *gorm.DB, baseLog *logger.Logger) TagRepo {
	return &tagRepo{db: db, log: baseLog.With("repo", "TagRepo")}
}

func (r *tagRepo) Create(dbc dbctx.Context, rows []*types.Tag) ([]*types.Tag, error) {
	if len(rows) == 0 {
		return []*types.Tag{}, nil
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

// CreateIgnoreDuplicates inserts labels that do not exist yet and leaves
// existing ones untouched. Concurrent inserts of the same label race benignly:
// the loser inserts zero rows and a follow-up fetch resolves the winner's row.
func (r *tagRepo) CreateIgnoreDuplicates(dbc dbctx.Context, rows []*types.Tag) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	res := txx.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "label"}},
			DoNothing: true,
		}).
		Create(&rows)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

func (r *tagRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Tag, error) {
	if len(ids) == 0 {
		return []*types.Tag{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.Tag
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.Tag{}).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *tagRepo) GetByLabels(dbc dbctx.Context, labels []string) ([]*types.Tag, error) {
	if len(labels) == 0 {
		return []*types.Tag{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.Tag
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.Tag{}).
		Where("label IN ?", labels).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *tagRepo) GetByLabel(dbc dbctx.Context, label string) (*types.Tag, error) {
	if label == "" {
		return nil, nil
	}
	rows, err := r.GetByLabels(dbc, []string{label})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *tagRepo) ListAll(dbc dbctx.Context) ([]*types.Tag, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.Tag
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.Tag{}).
		Order("label ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
