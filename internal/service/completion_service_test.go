package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"fitcoach/backend/internal/model"
	"fitcoach/backend/pkg/clock"
)

func setupTestCompletionService() (CompletionService, *mockStore) {
	m := seedCoaching()
	svc := NewCompletionService(m.repository(), clock.Fixed(testNow), zap.NewNop())
	return svc, m
}

func TestCompletionPercent(t *testing.T) {
	tests := []struct {
		name      string
		completed int64
		scheduled int
		want      float64
	}{
		{"无排定训练", 3, 0, 0},
		{"完成一半", 1, 2, 50},
		{"保留两位小数", 1, 3, 33.33},
		{"超出封顶", 5, 2, 100},
		{"未完成", 0, 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := completionPercent(tt.completed, tt.scheduled); got != tt.want {
				t.Errorf("期望 %v，实际 %v", tt.want, got)
			}
		})
	}
}

func TestCompletionService_WeeklyCompletionPercent_HalfDone(t *testing.T) {
	svc, m := setupTestCompletionService()
	planID := testPlanID

	// 本周一按计划完成一次
	m.addCompletedSession("s-1", "w-bench", model.SessionAssigned, &planID, time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC))
	// 以下均不计入：swap、adhoc、上周
	m.addCompletedSession("s-2", "w-run", model.SessionSwap, &planID, time.Date(2024, 6, 11, 9, 0, 0, 0, time.UTC))
	m.addCompletedSession("s-3", "w-run", model.SessionAdhoc, nil, time.Date(2024, 6, 11, 18, 0, 0, 0, time.UTC))
	m.addCompletedSession("s-4", "w-bench", model.SessionAssigned, &planID, time.Date(2024, 6, 9, 23, 59, 0, 0, time.UTC))

	plan, _ := m.plans.GetByID(context.Background(), testPlanID)
	percent, err := svc.WeeklyCompletionPercent(context.Background(), testUserID, plan)
	if err != nil {
		t.Fatalf("WeeklyCompletionPercent 应成功: %v", err)
	}
	if percent != 50 {
		t.Errorf("期望 50，实际 %v", percent)
	}
}

func TestCompletionService_WeeklyCompletionPercent_EmptyPlan(t *testing.T) {
	svc, m := setupTestCompletionService()
	m.addPlan("plan-empty", "Rest Week", false)

	plan, _ := m.plans.GetByID(context.Background(), "plan-empty")
	percent, err := svc.WeeklyCompletionPercent(context.Background(), testUserID, plan)
	if err != nil {
		t.Fatalf("WeeklyCompletionPercent 应成功: %v", err)
	}
	if percent != 0 {
		t.Errorf("无排定训练时期望 0，实际 %v", percent)
	}
}

func TestCompletionService_WeeklyCompletionPercent_Capped(t *testing.T) {
	svc, m := setupTestCompletionService()
	planID := testPlanID
	for i, day := range []int{10, 11, 12} {
		id := []string{"s-a", "s-b", "s-c"}[i]
		m.addCompletedSession(id, "w-bench", model.SessionAssigned, &planID, time.Date(2024, 6, day, 7, 0, 0, 0, time.UTC))
	}

	plan, _ := m.plans.GetByID(context.Background(), testPlanID)
	percent, err := svc.WeeklyCompletionPercent(context.Background(), testUserID, plan)
	if err != nil {
		t.Fatalf("WeeklyCompletionPercent 应成功: %v", err)
	}
	if percent != 100 {
		t.Errorf("期望封顶 100，实际 %v", percent)
	}
}
