package service

import (
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"fitcoach/backend/internal/dto"
	"fitcoach/backend/internal/model"
	"fitcoach/backend/pkg/clock"
	pkgerrors "fitcoach/backend/pkg/errors"
)

const timeLayout = "2006-01-02T15:04:05Z"

// ErrStore 数据库操作失败，对外不暴露底层细节
var ErrStore = pkgerrors.Upstream("A database error occurred.")

// storeError 记录日志并包装为 ErrStore；唯一约束冲突映射为 conflict
func storeError(logger *zap.Logger, msg string, err error, conflict *pkgerrors.AppError, fields ...zap.Field) error {
	if conflict != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		logger.Warn(msg, append(fields, zap.Error(err))...)
		return conflict.Wrap(err)
	}
	logger.Error(msg, append(fields, zap.Error(err))...)
	return ErrStore.Wrap(err)
}

// passThrough 事务回调中已是业务错误的直接返回，其余视为存储失败
func passThrough(logger *zap.Logger, msg string, err error, conflict *pkgerrors.AppError, fields ...zap.Field) error {
	if _, ok := pkgerrors.As(err); ok {
		return err
	}
	return storeError(logger, msg, err, conflict, fields...)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func formatDate(d time.Time) string {
	return d.UTC().Format(clock.DateLayout)
}

func formatPlanDate(d datatypes.Date) string {
	return formatDate(time.Time(d))
}

// parseDate 解析 YYYY-MM-DD；空串返回 nil
func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	d, err := time.Parse(clock.DateLayout, value)
	if err != nil {
		return nil, ErrInvalidDate
	}
	return &d, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func lowerLess(a, b string) bool {
	return strings.ToLower(a) < strings.ToLower(b)
}

// ErrInvalidDate 日期格式错误
var ErrInvalidDate = pkgerrors.InvalidState("Dates must use the YYYY-MM-DD format.")

// ── 通用嵌套结构转换 ──

func toMuscleGroupResponses(groups []model.MuscleGroup) []dto.MuscleGroupResponse {
	result := make([]dto.MuscleGroupResponse, 0, len(groups))
	for _, g := range groups {
		result = append(result, dto.MuscleGroupResponse{ID: g.MuscleGroupID, Name: g.Name, Icon: g.Icon})
	}
	sort.SliceStable(result, func(i, j int) bool { return lowerLess(result[i].Name, result[j].Name) })
	return result
}

func toWorkoutSummary(w *model.Workout) dto.WorkoutSummaryResponse {
	if w == nil {
		return dto.WorkoutSummaryResponse{MuscleGroups: []dto.MuscleGroupResponse{}}
	}
	return dto.WorkoutSummaryResponse{
		ID:           w.WorkoutID,
		Name:         w.Name,
		Type:         w.Type,
		MuscleGroups: toMuscleGroupResponses(w.MuscleGroups),
	}
}

// toWorkoutSummaries 按名称排序
func toWorkoutSummaries(workouts []model.Workout) []dto.WorkoutSummaryResponse {
	result := make([]dto.WorkoutSummaryResponse, 0, len(workouts))
	for i := range workouts {
		result = append(result, toWorkoutSummary(&workouts[i]))
	}
	sort.SliceStable(result, func(i, j int) bool { return lowerLess(result[i].Name, result[j].Name) })
	return result
}
