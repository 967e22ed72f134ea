package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"fitcoach/backend/internal/dto"
	"fitcoach/backend/internal/model"
	"fitcoach/backend/internal/repository"
	"fitcoach/backend/pkg/clock"
	pkgerrors "fitcoach/backend/pkg/errors"
)

// ── 进度模块业务错误 ──

var (
	ErrDateRange     = pkgerrors.InvalidState("start_date must be on or before end_date.")
	ErrInvalidPeriod = pkgerrors.InvalidState("period must be weekly or monthly.")
)

// 频次统计周期
const (
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

const (
	muscleGroupDefaultDays = 30
	weeklyDefaultDays      = 56
	monthlyDefaultMonths   = 6
)

// ProgressService 训练历史与进度统计，只读
type ProgressService interface {
	ListSessions(ctx context.Context, userID string, req *dto.SessionHistoryRequest) ([]dto.SessionHistoryItem, int64, error)
	MuscleGroupProgress(ctx context.Context, userID string, req *dto.DateRangeRequest) (*dto.MuscleGroupProgressResponse, error)
	FrequencyProgress(ctx context.Context, userID string, req *dto.FrequencyRequest) (*dto.FrequencyProgressResponse, error)
}

type progressService struct {
	repo   *repository.Repository
	now    clock.Clock
	logger *zap.Logger
}

// NewProgressService 创建 ProgressService 实例
func NewProgressService(repo *repository.Repository, now clock.Clock, logger *zap.Logger) ProgressService {
	return &progressService{repo: repo, now: now, logger: logger}
}

// ────────────────────── ListSessions ──────────────────────

func (s *progressService) ListSessions(ctx context.Context, userID string, req *dto.SessionHistoryRequest) ([]dto.SessionHistoryItem, int64, error) {
	start, err := parseDate(req.StartDate)
	if err != nil {
		return nil, 0, err
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return nil, 0, err
	}
	if start != nil && end != nil && start.After(*end) {
		return nil, 0, ErrDateRange
	}

	filter := repository.SessionHistoryFilter{
		UserID:        userID,
		WorkoutType:   req.WorkoutType,
		MuscleGroupID: req.MuscleGroupID,
	}
	filter.Start = start
	if end != nil {
		endExclusive := clock.AddDays(*end, 1)
		filter.End = &endExclusive
	}

	sessions, total, err := s.repo.Session.ListHistory(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		return nil, 0, storeError(s.logger, "查询训练历史失败", err, nil, zap.String("user_id", userID))
	}

	items := make([]dto.SessionHistoryItem, 0, len(sessions))
	for i := range sessions {
		items = append(items, toHistoryItem(&sessions[i]))
	}
	return items, total, nil
}

// ────────────────────── MuscleGroupProgress ──────────────────────

func (s *progressService) MuscleGroupProgress(ctx context.Context, userID string, req *dto.DateRangeRequest) (*dto.MuscleGroupProgressResponse, error) {
	today := clock.DateOf(s.now())
	// 缺 start 时固定从今天回推，与 end 无关
	start, end, err := resolveRange(req, today, func(time.Time) time.Time {
		return clock.AddDays(today, -(muscleGroupDefaultDays - 1))
	})
	if err != nil {
		return nil, err
	}

	window := clock.DateRangeWindow(start, end)
	sessions, err := s.repo.Session.ListCompleted(ctx, userID, window.Start, window.End)
	if err != nil {
		return nil, storeError(s.logger, "查询已完成训练失败", err, nil, zap.String("user_id", userID))
	}

	return &dto.MuscleGroupProgressResponse{
		StartDate:    formatDate(start),
		EndDate:      formatDate(end),
		MuscleGroups: aggregateMuscleGroups(sessions),
	}, nil
}

// ────────────────────── FrequencyProgress ──────────────────────

func (s *progressService) FrequencyProgress(ctx context.Context, userID string, req *dto.FrequencyRequest) (*dto.FrequencyProgressResponse, error) {
	period := strings.ToLower(strings.TrimSpace(req.Period))
	if period == "" {
		period = PeriodWeekly
	}
	if period != PeriodWeekly && period != PeriodMonthly {
		return nil, ErrInvalidPeriod
	}

	today := clock.DateOf(s.now())
	start, end, err := resolveRange(&req.DateRangeRequest, today, func(end time.Time) time.Time {
		if period == PeriodMonthly {
			return clock.ShiftMonth(end, -(monthlyDefaultMonths - 1))
		}
		return clock.AddDays(end, -(weeklyDefaultDays - 1))
	})
	if err != nil {
		return nil, err
	}

	window := clock.DateRangeWindow(start, end)
	completed, err := s.repo.Session.ListCompletedTimes(ctx, userID, &window.Start, &window.End)
	if err != nil {
		return nil, storeError(s.logger, "查询已完成训练失败", err, nil, zap.String("user_id", userID))
	}

	var buckets []dto.FrequencyBucket
	if period == PeriodMonthly {
		buckets = monthlyBuckets(start, end)
	} else {
		buckets = weeklyBuckets(start, end)
	}
	total := countIntoBuckets(buckets, completed)

	return &dto.FrequencyProgressResponse{
		Period:        period,
		StartDate:     formatDate(start),
		EndDate:       formatDate(end),
		TotalSessions: total,
		Buckets:       buckets,
	}, nil
}

// ────────────────────── 聚合算法 ──────────────────────

// resolveRange 两端都给按原样；只给 start 时 end=今天；缺 start 时由 defaultStart(end) 推算
// 只有两端都显式给出时才校验先后，推算出的倒置区间返回空结果
func resolveRange(req *dto.DateRangeRequest, today time.Time, defaultStart func(end time.Time) time.Time) (time.Time, time.Time, error) {
	startPtr, err := parseDate(req.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endPtr, err := parseDate(req.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	end := today
	if endPtr != nil {
		end = *endPtr
	}
	var start time.Time
	if startPtr != nil {
		start = *startPtr
	} else {
		start = defaultStart(end)
	}
	if startPtr != nil && endPtr != nil && start.After(end) {
		return time.Time{}, time.Time{}, ErrDateRange
	}
	return start, end, nil
}

// logVolume 有重量：weight × (sets 或 1) × (reps 或 1)；否则以时长计
func logVolume(l *model.ExerciseLog) (volume float64, duration int) {
	if l.Weight != nil {
		return *l.Weight * float64(orOne(l.Sets)) * float64(orOne(l.Reps)), 0
	}
	if l.Duration != nil {
		return float64(*l.Duration), *l.Duration
	}
	return 0, 0
}

// sessionTotals 单次训练的训练量与有氧时长
func sessionTotals(logs []model.ExerciseLog) (volume float64, duration int) {
	for i := range logs {
		v, d := logVolume(&logs[i])
		volume += v
		duration += d
	}
	return volume, duration
}

// orOne 空值或 0 视为 1
func orOne(v *int) int {
	if v == nil || *v == 0 {
		return 1
	}
	return *v
}

// aggregateMuscleGroups 一次训练对其涉及的每个肌群各计一次；无肌群的训练不计入
func aggregateMuscleGroups(sessions []model.WorkoutSession) []dto.MuscleGroupProgressItem {
	byGroup := make(map[string]*dto.MuscleGroupProgressItem)
	for i := range sessions {
		session := &sessions[i]
		if session.Workout == nil || len(session.Workout.MuscleGroups) == 0 {
			continue
		}
		volume, duration := sessionTotals(session.Logs)
		for _, g := range session.Workout.MuscleGroups {
			item, ok := byGroup[g.MuscleGroupID]
			if !ok {
				item = &dto.MuscleGroupProgressItem{MuscleGroupID: g.MuscleGroupID, Name: g.Name, Icon: g.Icon}
				byGroup[g.MuscleGroupID] = item
			}
			item.SessionCount++
			item.TotalVolume = round2(item.TotalVolume + volume)
			item.TotalDuration += duration
		}
	}

	result := make([]dto.MuscleGroupProgressItem, 0, len(byGroup))
	for _, item := range byGroup {
		result = append(result, *item)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].TotalVolume != result[j].TotalVolume {
			return result[i].TotalVolume > result[j].TotalVolume
		}
		ni, nj := strings.ToLower(result[i].Name), strings.ToLower(result[j].Name)
		if ni != nj {
			return ni < nj
		}
		return result[i].MuscleGroupID < result[j].MuscleGroupID
	})
	return result
}

// weeklyBuckets 从不晚于 start 的周一开始，每 7 天一桶，末桶截断到 end
func weeklyBuckets(start, end time.Time) []dto.FrequencyBucket {
	buckets := []dto.FrequencyBucket{}
	for cur := clock.WeekStart(start); !cur.After(end); cur = clock.AddDays(cur, 7) {
		bucketEnd := clock.MinDate(clock.AddDays(cur, 6), end)
		buckets = append(buckets, dto.FrequencyBucket{
			Label:     "Week of " + cur.Format("Jan 02"),
			StartDate: formatDate(cur),
			EndDate:   formatDate(bucketEnd),
		})
	}
	return buckets
}

// monthlyBuckets 从 start 所在月 1 日开始按自然月分桶，末桶截断到 end
func monthlyBuckets(start, end time.Time) []dto.FrequencyBucket {
	buckets := []dto.FrequencyBucket{}
	for cur := clock.MonthStart(start); !cur.After(end); cur = clock.NextMonthStart(cur) {
		bucketEnd := clock.MinDate(clock.AddDays(clock.NextMonthStart(cur), -1), end)
		buckets = append(buckets, dto.FrequencyBucket{
			Label:     cur.Format("Jan 2006"),
			StartDate: formatDate(cur),
			EndDate:   formatDate(bucketEnd),
		})
	}
	return buckets
}

// countIntoBuckets 按完成日期（而非时刻）落桶，返回总数
func countIntoBuckets(buckets []dto.FrequencyBucket, completed []time.Time) int {
	total := 0
	for _, t := range completed {
		day := formatDate(clock.DateOf(t))
		for i := range buckets {
			// YYYY-MM-DD 字符串序与日期序一致
			if buckets[i].StartDate <= day && day <= buckets[i].EndDate {
				buckets[i].SessionCount++
				total++
				break
			}
		}
	}
	return total
}

func toHistoryItem(session *model.WorkoutSession) dto.SessionHistoryItem {
	item := dto.SessionHistoryItem{
		ID:          session.SessionID,
		SessionType: session.SessionType,
		PlanID:      session.PlanID,
		Workout:     toWorkoutSummary(session.Workout),
		TotalLogs:   len(session.Logs),
	}
	if session.CompletedAt != nil {
		item.CompletedAt = formatTime(*session.CompletedAt)
	}

	volume := 0.0
	for i := range session.Logs {
		l := &session.Logs[i]
		if l.Sets != nil {
			item.TotalSets += *l.Sets
		}
		if l.Reps != nil {
			item.TotalReps += *l.Reps
		}
		if l.Duration != nil {
			item.TotalDuration += *l.Duration
		}
		if l.Weight != nil && (item.MaxWeight == nil || *l.Weight > *item.MaxWeight) {
			w := *l.Weight
			item.MaxWeight = &w
		}
		v, _ := logVolume(l)
		volume += v
	}
	item.TotalVolume = round2(volume)
	return item
}
