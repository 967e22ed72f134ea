package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"fitcoach/backend/internal/model"
)

// LookupRepository 肌群与有氧类型字典数据访问接口
type LookupRepository interface {
	ListMuscleGroups(ctx context.Context) ([]model.MuscleGroup, error)
	ListMuscleGroupsByIDs(ctx context.Context, ids []string) ([]model.MuscleGroup, error)
	MuscleGroupNameExists(ctx context.Context, name string) (bool, error)
	CreateMuscleGroup(ctx context.Context, group *model.MuscleGroup) error
	ListCardioTypes(ctx context.Context) ([]model.CardioType, error)
	GetCardioType(ctx context.Context, id string) (*model.CardioType, error)
}

type lookupRepo struct {
	db *gorm.DB
}

// NewLookupRepo 创建 LookupRepository 实例
func NewLookupRepo(db *gorm.DB) LookupRepository {
	return &lookupRepo{db: db}
}

func (r *lookupRepo) ListMuscleGroups(ctx context.Context) ([]model.MuscleGroup, error) {
	var groups []model.MuscleGroup
	err := r.db.WithContext(ctx).Order("name ASC").Find(&groups).Error
	return groups, err
}

func (r *lookupRepo) ListMuscleGroupsByIDs(ctx context.Context, ids []string) ([]model.MuscleGroup, error) {
	var groups []model.MuscleGroup
	if len(ids) == 0 {
		return groups, nil
	}
	err := r.db.WithContext(ctx).
		Where("muscle_group_id IN ?", ids).
		Find(&groups).Error
	return groups, err
}

func (r *lookupRepo) MuscleGroupNameExists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.MuscleGroup{}).
		Where("lower(name) = ?", strings.ToLower(name)).
		Count(&count).Error
	return count > 0, err
}

func (r *lookupRepo) CreateMuscleGroup(ctx context.Context, group *model.MuscleGroup) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *lookupRepo) ListCardioTypes(ctx context.Context) ([]model.CardioType, error) {
	var types []model.CardioType
	err := r.db.WithContext(ctx).Order("name ASC").Find(&types).Error
	return types, err
}

func (r *lookupRepo) GetCardioType(ctx context.Context, id string) (*model.CardioType, error) {
	var cardioType model.CardioType
	err := r.db.WithContext(ctx).
		Where("cardio_type_id = ?", id).
		First(&cardioType).Error
	if err != nil {
		return nil, err
	}
	return &cardioType, nil
}
