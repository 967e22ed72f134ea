package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"fitcoach/backend/internal/dto"
	"fitcoach/backend/internal/model"
	"fitcoach/backend/internal/repository"
	"fitcoach/backend/pkg/clock"
	pkgerrors "fitcoach/backend/pkg/errors"
)

// ── 动作库业务错误 ──

var (
	ErrWorkoutNameRequired  = pkgerrors.InvalidState("Workout name is required.")
	ErrWorkoutNameTaken     = pkgerrors.Conflict("A workout with this name already exists.")
	ErrWorkoutNoChanges     = pkgerrors.InvalidState("At least one field must be provided for update.")
	ErrStrengthTargets      = pkgerrors.InvalidState("Strength workouts require target sets and target reps.")
	ErrStrengthCardioFields = pkgerrors.InvalidState("Cardio-only fields are not allowed for strength workouts.")
	ErrCardioTargets        = pkgerrors.InvalidState("Cardio workouts require cardio type, target duration, and difficulty level.")
	ErrCardioStrengthFields = pkgerrors.InvalidState("Strength-only fields are not allowed for cardio workouts.")
	ErrCardioTypeNotFound   = pkgerrors.NotFound("Cardio type not found.")
	ErrMuscleGroupRequired  = pkgerrors.InvalidState("At least one muscle group is required.")
	ErrMuscleGroupNotFound  = pkgerrors.NotFound("One or more selected muscle groups were not found.")
	ErrMuscleGroupNameTaken = pkgerrors.Conflict("A muscle group with this name already exists.")
)

// errWorkoutInUse 归档被活跃计划阻塞，消息带计划数
func errWorkoutInUse(count int64) *pkgerrors.AppError {
	return pkgerrors.Conflict(fmt.Sprintf("Cannot archive workout because it is used by %d active plans.", count))
}

// WorkoutService 动作库与肌群/有氧类型字典
type WorkoutService interface {
	List(ctx context.Context, req *dto.WorkoutListRequest) ([]dto.WorkoutResponse, int64, error)
	Get(ctx context.Context, workoutID string) (*dto.WorkoutResponse, error)
	Create(ctx context.Context, actorID string, req *dto.CreateWorkoutRequest) (*dto.WorkoutResponse, error)
	// Update 切换类型时清空另一类型的字段
	Update(ctx context.Context, actorID, workoutID string, req *dto.UpdateWorkoutRequest) (*dto.WorkoutResponse, error)
	// Archive 被未归档且有 active 分配的计划引用时拒绝
	Archive(ctx context.Context, actorID, workoutID string) (*dto.WorkoutArchiveResponse, error)
	Unarchive(ctx context.Context, actorID, workoutID string) (*dto.WorkoutResponse, error)
	// ListAlternatives 共享肌群越多越靠前，同数按名称
	ListAlternatives(ctx context.Context, workoutID string, req *dto.AlternativesRequest) ([]dto.WorkoutResponse, error)
	ListMuscleGroups(ctx context.Context) ([]dto.MuscleGroupDetailResponse, error)
	CreateMuscleGroup(ctx context.Context, req *dto.CreateMuscleGroupRequest) (*dto.MuscleGroupDetailResponse, error)
	ListCardioTypes(ctx context.Context) ([]dto.CardioTypeResponse, error)
}

type workoutService struct {
	repo   *repository.Repository
	now    clock.Clock
	logger *zap.Logger
}

// NewWorkoutService 创建 WorkoutService 实例
func NewWorkoutService(repo *repository.Repository, now clock.Clock, logger *zap.Logger) WorkoutService {
	return &workoutService{repo: repo, now: now, logger: logger}
}

// workoutFields 类型相关字段，用于统一校验
type workoutFields struct {
	Type            string
	CardioTypeID    *string
	TargetSets      *int
	TargetReps      *int
	SuggestedWeight *float64
	TargetDuration  *int
	DifficultyLevel *string
}

func (f *workoutFields) validate() error {
	if f.Type == model.WorkoutStrength {
		if f.TargetSets == nil || f.TargetReps == nil {
			return ErrStrengthTargets
		}
		if f.CardioTypeID != nil || f.TargetDuration != nil || f.DifficultyLevel != nil {
			return ErrStrengthCardioFields
		}
		return nil
	}
	if f.CardioTypeID == nil || f.TargetDuration == nil || f.DifficultyLevel == nil {
		return ErrCardioTargets
	}
	if f.TargetSets != nil || f.TargetReps != nil || f.SuggestedWeight != nil {
		return ErrCardioStrengthFields
	}
	return nil
}

// clearOtherType 只保留当前类型的字段
func (f *workoutFields) clearOtherType() {
	if f.Type == model.WorkoutStrength {
		f.CardioTypeID, f.TargetDuration, f.DifficultyLevel = nil, nil, nil
		return
	}
	f.TargetSets, f.TargetReps, f.SuggestedWeight = nil, nil, nil
}

// ────────────────────── List / Get ──────────────────────

func (s *workoutService) List(ctx context.Context, req *dto.WorkoutListRequest) ([]dto.WorkoutResponse, int64, error) {
	filter := repository.WorkoutFilter{
		Type:          req.Type,
		MuscleGroupID: req.MuscleGroupID,
		IsArchived:    req.IsArchived,
		Search:        strings.TrimSpace(req.Search),
	}
	workouts, total, err := s.repo.Workout.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		return nil, 0, storeError(s.logger, "列出动作失败", err, nil)
	}

	result := make([]dto.WorkoutResponse, 0, len(workouts))
	for i := range workouts {
		result = append(result, toWorkoutResponse(&workouts[i]))
	}
	return result, total, nil
}

func (s *workoutService) Get(ctx context.Context, workoutID string) (*dto.WorkoutResponse, error) {
	workout, err := s.getWorkout(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	resp := toWorkoutResponse(workout)
	return &resp, nil
}

// ────────────────────── Create ──────────────────────

func (s *workoutService) Create(ctx context.Context, actorID string, req *dto.CreateWorkoutRequest) (*dto.WorkoutResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrWorkoutNameRequired
	}
	if err := s.ensureNameFree(ctx, name, ""); err != nil {
		return nil, err
	}

	fields := workoutFields{
		Type:            req.Type,
		CardioTypeID:    req.CardioTypeID,
		TargetSets:      req.TargetSets,
		TargetReps:      req.TargetReps,
		SuggestedWeight: req.SuggestedWeight,
		TargetDuration:  req.TargetDuration,
		DifficultyLevel: req.DifficultyLevel,
	}
	if err := fields.validate(); err != nil {
		return nil, err
	}
	if err := s.ensureCardioType(ctx, fields.CardioTypeID); err != nil {
		return nil, err
	}
	groups, err := s.resolveMuscleGroups(ctx, req.MuscleGroupIDs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	workout := &model.Workout{
		WorkoutID:    uuid.NewString(),
		Name:         name,
		Description:  strings.TrimSpace(req.Description),
		Instructions: strings.TrimSpace(req.Instructions),
		MuscleGroups: groups,
	}
	applyWorkoutFields(workout, &fields)
	workout.CreatedAt, workout.UpdatedAt = now, now
	workout.CreatedBy, workout.UpdatedBy = &actorID, &actorID

	if err := s.repo.Workout.Create(ctx, workout); err != nil {
		return nil, storeError(s.logger, "创建动作失败", err, ErrWorkoutNameTaken, zap.String("name", name))
	}

	s.logger.Info("动作已创建", zap.String("workout_id", workout.WorkoutID), zap.String("type", workout.Type))
	return s.Get(ctx, workout.WorkoutID)
}

// ────────────────────── Update ──────────────────────

func (s *workoutService) Update(ctx context.Context, actorID, workoutID string, req *dto.UpdateWorkoutRequest) (*dto.WorkoutResponse, error) {
	if req.Empty() {
		return nil, ErrWorkoutNoChanges
	}
	workout, err := s.getWorkout(ctx, workoutID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrWorkoutNameRequired
		}
		if err := s.ensureNameFree(ctx, name, workoutID); err != nil {
			return nil, err
		}
		workout.Name = name
	}
	if req.Description != nil {
		workout.Description = strings.TrimSpace(*req.Description)
	}
	if req.Instructions != nil {
		workout.Instructions = strings.TrimSpace(*req.Instructions)
	}

	fields := workoutFields{
		Type:            workout.Type,
		CardioTypeID:    workout.CardioTypeID,
		TargetSets:      workout.TargetSets,
		TargetReps:      workout.TargetReps,
		SuggestedWeight: workout.SuggestedWeight,
		TargetDuration:  workout.TargetDuration,
		DifficultyLevel: workout.DifficultyLevel,
	}
	if req.Type != nil {
		fields.Type = *req.Type
	}
	if req.CardioTypeID != nil {
		fields.CardioTypeID = req.CardioTypeID
	}
	if req.TargetSets != nil {
		fields.TargetSets = req.TargetSets
	}
	if req.TargetReps != nil {
		fields.TargetReps = req.TargetReps
	}
	if req.SuggestedWeight != nil {
		fields.SuggestedWeight = req.SuggestedWeight
	}
	if req.TargetDuration != nil {
		fields.TargetDuration = req.TargetDuration
	}
	if req.DifficultyLevel != nil {
		fields.DifficultyLevel = req.DifficultyLevel
	}
	fields.clearOtherType()
	if err := fields.validate(); err != nil {
		return nil, err
	}
	if err := s.ensureCardioType(ctx, fields.CardioTypeID); err != nil {
		return nil, err
	}

	var groups []model.MuscleGroup
	if req.MuscleGroupIDs != nil {
		if len(*req.MuscleGroupIDs) == 0 {
			return nil, ErrMuscleGroupRequired
		}
		if groups, err = s.resolveMuscleGroups(ctx, *req.MuscleGroupIDs); err != nil {
			return nil, err
		}
	}

	applyWorkoutFields(workout, &fields)
	workout.UpdatedAt = s.now()
	workout.UpdatedBy = &actorID

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		return tx.Workout.Save(ctx, workout, groups)
	})
	if err != nil {
		return nil, storeError(s.logger, "更新动作失败", err, ErrWorkoutNameTaken, zap.String("workout_id", workoutID))
	}

	return s.Get(ctx, workoutID)
}

// ────────────────────── Archive / Unarchive ──────────────────────

func (s *workoutService) Archive(ctx context.Context, actorID, workoutID string) (*dto.WorkoutArchiveResponse, error) {
	workout, err := s.getWorkout(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	if workout.IsArchived {
		return &dto.WorkoutArchiveResponse{Workout: toWorkoutResponse(workout)}, nil
	}

	count, err := s.repo.Workout.CountActivePlanDependencies(ctx, workoutID)
	if err != nil {
		return nil, storeError(s.logger, "统计动作依赖失败", err, nil, zap.String("workout_id", workoutID))
	}
	if count > 0 {
		return nil, errWorkoutInUse(count)
	}

	if err := s.repo.Workout.SetArchived(ctx, workoutID, true, actorID, s.now()); err != nil {
		return nil, storeError(s.logger, "归档动作失败", err, nil, zap.String("workout_id", workoutID))
	}
	s.logger.Info("动作已归档", zap.String("workout_id", workoutID))

	resp, err := s.Get(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	return &dto.WorkoutArchiveResponse{Workout: *resp}, nil
}

func (s *workoutService) Unarchive(ctx context.Context, actorID, workoutID string) (*dto.WorkoutResponse, error) {
	workout, err := s.getWorkout(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	if !workout.IsArchived {
		resp := toWorkoutResponse(workout)
		return &resp, nil
	}

	if err := s.repo.Workout.SetArchived(ctx, workoutID, false, actorID, s.now()); err != nil {
		return nil, storeError(s.logger, "恢复动作失败", err, nil, zap.String("workout_id", workoutID))
	}
	s.logger.Info("动作已恢复", zap.String("workout_id", workoutID))
	return s.Get(ctx, workoutID)
}

// ────────────────────── Alternatives ──────────────────────

func (s *workoutService) ListAlternatives(ctx context.Context, workoutID string, req *dto.AlternativesRequest) ([]dto.WorkoutResponse, error) {
	source, err := s.getWorkout(ctx, workoutID)
	if err != nil {
		return nil, err
	}

	sourceGroups := make(map[string]bool, len(source.MuscleGroups))
	groupIDs := make([]string, 0, len(source.MuscleGroups))
	for _, g := range source.MuscleGroups {
		sourceGroups[g.MuscleGroupID] = true
		groupIDs = append(groupIDs, g.MuscleGroupID)
	}
	if len(groupIDs) == 0 {
		return []dto.WorkoutResponse{}, nil
	}

	candidates, err := s.repo.Workout.ListSharingMuscleGroups(ctx, workoutID, groupIDs)
	if err != nil {
		return nil, storeError(s.logger, "查询替代动作失败", err, nil, zap.String("workout_id", workoutID))
	}

	shared := make(map[string]int, len(candidates))
	for _, w := range candidates {
		for _, g := range w.MuscleGroups {
			if sourceGroups[g.MuscleGroupID] {
				shared[w.WorkoutID]++
			}
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if shared[a.WorkoutID] != shared[b.WorkoutID] {
			return shared[a.WorkoutID] > shared[b.WorkoutID]
		}
		return lowerLess(a.Name, b.Name)
	})

	if limit := req.GetLimit(); len(candidates) > limit {
		candidates = candidates[:limit]
	}
	result := make([]dto.WorkoutResponse, 0, len(candidates))
	for i := range candidates {
		result = append(result, toWorkoutResponse(&candidates[i]))
	}
	return result, nil
}

// ────────────────────── 字典 ──────────────────────

func (s *workoutService) ListMuscleGroups(ctx context.Context) ([]dto.MuscleGroupDetailResponse, error) {
	groups, err := s.repo.Lookup.ListMuscleGroups(ctx)
	if err != nil {
		return nil, storeError(s.logger, "列出肌群失败", err, nil)
	}
	result := make([]dto.MuscleGroupDetailResponse, 0, len(groups))
	for i := range groups {
		result = append(result, toMuscleGroupDetail(&groups[i]))
	}
	return result, nil
}

func (s *workoutService) CreateMuscleGroup(ctx context.Context, req *dto.CreateMuscleGroupRequest) (*dto.MuscleGroupDetailResponse, error) {
	name := strings.TrimSpace(req.Name)
	exists, err := s.repo.Lookup.MuscleGroupNameExists(ctx, name)
	if err != nil {
		return nil, storeError(s.logger, "查询肌群失败", err, nil)
	}
	if exists {
		return nil, ErrMuscleGroupNameTaken
	}

	group := &model.MuscleGroup{
		MuscleGroupID: uuid.NewString(),
		Name:          name,
		Icon:          strings.TrimSpace(req.Icon),
		IsDefault:     false,
		CreatedAt:     s.now(),
	}
	if err := s.repo.Lookup.CreateMuscleGroup(ctx, group); err != nil {
		return nil, storeError(s.logger, "创建肌群失败", err, ErrMuscleGroupNameTaken, zap.String("name", name))
	}

	s.logger.Info("肌群已创建", zap.String("muscle_group_id", group.MuscleGroupID))
	resp := toMuscleGroupDetail(group)
	return &resp, nil
}

func (s *workoutService) ListCardioTypes(ctx context.Context) ([]dto.CardioTypeResponse, error) {
	types, err := s.repo.Lookup.ListCardioTypes(ctx)
	if err != nil {
		return nil, storeError(s.logger, "列出有氧类型失败", err, nil)
	}
	result := make([]dto.CardioTypeResponse, 0, len(types))
	for i := range types {
		result = append(result, *toCardioTypeResponse(&types[i]))
	}
	return result, nil
}

// ────────────────────── 内部辅助 ──────────────────────

func (s *workoutService) getWorkout(ctx context.Context, workoutID string) (*model.Workout, error) {
	workout, err := s.repo.Workout.GetByID(ctx, workoutID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, storeError(s.logger, "查询动作失败", err, nil, zap.String("workout_id", workoutID))
	}
	return workout, nil
}

func (s *workoutService) ensureNameFree(ctx context.Context, name, excludeID string) error {
	exists, err := s.repo.Workout.NameExists(ctx, name, excludeID)
	if err != nil {
		return storeError(s.logger, "查询动作名称失败", err, nil)
	}
	if exists {
		return ErrWorkoutNameTaken
	}
	return nil
}

func (s *workoutService) ensureCardioType(ctx context.Context, id *string) error {
	if id == nil {
		return nil
	}
	if _, err := s.repo.Lookup.GetCardioType(ctx, *id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCardioTypeNotFound
		}
		return storeError(s.logger, "查询有氧类型失败", err, nil)
	}
	return nil
}

// resolveMuscleGroups 去重后逐个确认存在，结果按名称排序
func (s *workoutService) resolveMuscleGroups(ctx context.Context, ids []string) ([]model.MuscleGroup, error) {
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return nil, ErrMuscleGroupRequired
	}
	groups, err := s.repo.Lookup.ListMuscleGroupsByIDs(ctx, ids)
	if err != nil {
		return nil, storeError(s.logger, "查询肌群失败", err, nil)
	}
	if len(groups) != len(ids) {
		return nil, ErrMuscleGroupNotFound
	}
	sort.SliceStable(groups, func(i, j int) bool { return lowerLess(groups[i].Name, groups[j].Name) })
	return groups, nil
}

func applyWorkoutFields(w *model.Workout, f *workoutFields) {
	w.Type = f.Type
	w.CardioTypeID = f.CardioTypeID
	w.TargetSets = f.TargetSets
	w.TargetReps = f.TargetReps
	w.SuggestedWeight = f.SuggestedWeight
	w.TargetDuration = f.TargetDuration
	w.DifficultyLevel = f.DifficultyLevel
	w.CardioType = nil
}

func toCardioTypeResponse(c *model.CardioType) *dto.CardioTypeResponse {
	if c == nil {
		return nil
	}
	return &dto.CardioTypeResponse{ID: c.CardioTypeID, Name: c.Name, Description: c.Description}
}

func toMuscleGroupDetail(g *model.MuscleGroup) dto.MuscleGroupDetailResponse {
	return dto.MuscleGroupDetailResponse{
		MuscleGroupResponse: dto.MuscleGroupResponse{ID: g.MuscleGroupID, Name: g.Name, Icon: g.Icon},
		IsDefault:           g.IsDefault,
		CreatedAt:           formatTime(g.CreatedAt),
	}
}

func toWorkoutResponse(w *model.Workout) dto.WorkoutResponse {
	return dto.WorkoutResponse{
		ID:              w.WorkoutID,
		Name:            w.Name,
		Description:     w.Description,
		Instructions:    w.Instructions,
		Type:            w.Type,
		CardioType:      toCardioTypeResponse(w.CardioType),
		TargetSets:      w.TargetSets,
		TargetReps:      w.TargetReps,
		SuggestedWeight: w.SuggestedWeight,
		TargetDuration:  w.TargetDuration,
		DifficultyLevel: w.DifficultyLevel,
		IsArchived:      w.IsArchived,
		MuscleGroups:    toMuscleGroupResponses(w.MuscleGroups),
		CreatedAt:       formatTime(w.CreatedAt),
		UpdatedAt:       formatTime(w.UpdatedAt),
	}
}
