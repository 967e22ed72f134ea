package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"fitcoach/backend/internal/dto"
	"fitcoach/backend/internal/model"
	"fitcoach/backend/pkg/clock"
	pkgerrors "fitcoach/backend/pkg/errors"
)

func setupTestWorkoutService() (WorkoutService, *mockStore) {
	m := seedCoaching()
	svc := NewWorkoutService(m.repository(), clock.Fixed(testNow), zap.NewNop())
	return svc, m
}

func newStrengthRequest() *dto.CreateWorkoutRequest {
	return &dto.CreateWorkoutRequest{
		Name:           "  Incline Press ",
		Description:    "Upper chest",
		Type:           model.WorkoutStrength,
		TargetSets:     intPtr(4),
		TargetReps:     intPtr(8),
		MuscleGroupIDs: []string{"mg-chest", "mg-arms", "mg-chest"},
	}
}

func newCardioRequest() *dto.CreateWorkoutRequest {
	return &dto.CreateWorkoutRequest{
		Name:            "Rower Sprints",
		Type:            model.WorkoutCardio,
		CardioTypeID:    strPtr("ct-hiit"),
		TargetDuration:  intPtr(15),
		DifficultyLevel: strPtr(model.DifficultyHard),
		MuscleGroupIDs:  []string{"mg-legs"},
	}
}

// ── Create 测试 ──

func TestWorkoutService_Create_Strength(t *testing.T) {
	svc, m := setupTestWorkoutService()

	w, err := svc.Create(context.Background(), testAdminID, newStrengthRequest())
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if w.Name != "Incline Press" {
		t.Errorf("名称应去除首尾空白，实际 %q", w.Name)
	}
	if len(w.MuscleGroups) != 2 || w.MuscleGroups[0].Name != "Arms" {
		t.Errorf("肌群应去重并按名称排序，实际 %+v", w.MuscleGroups)
	}
	if len(m.workouts.workouts) != 4 {
		t.Errorf("应写入 1 个新动作，实际共 %d", len(m.workouts.workouts))
	}
}

func TestWorkoutService_Create_Cardio(t *testing.T) {
	svc, _ := setupTestWorkoutService()

	w, err := svc.Create(context.Background(), testAdminID, newCardioRequest())
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if w.TargetSets != nil || w.TargetDuration == nil || *w.TargetDuration != 15 {
		t.Errorf("有氧动作字段不符: %+v", w)
	}
}

func TestWorkoutService_Create_DuplicateName(t *testing.T) {
	svc, m := setupTestWorkoutService()
	req := newStrengthRequest()
	req.Name = "bench PRESS"

	_, err := svc.Create(context.Background(), testAdminID, req)
	if !errors.Is(err, ErrWorkoutNameTaken) {
		t.Fatalf("期望 ErrWorkoutNameTaken，实际: %v", err)
	}
	if pkgerrors.KindOf(err) != pkgerrors.KindConflict {
		t.Errorf("重名应映射为 409，实际 %v", pkgerrors.KindOf(err))
	}
	if len(m.workouts.workouts) != 3 {
		t.Error("重名时不应写入")
	}
}

func TestWorkoutService_Create_FieldRules(t *testing.T) {
	tests := []struct {
		name   string
		build  func() *dto.CreateWorkoutRequest
		modify func(req *dto.CreateWorkoutRequest)
		want   error
	}{
		{"力量缺次数", newStrengthRequest, func(req *dto.CreateWorkoutRequest) { req.TargetReps = nil }, ErrStrengthTargets},
		{"力量带时长", newStrengthRequest, func(req *dto.CreateWorkoutRequest) { req.TargetDuration = intPtr(10) }, ErrStrengthCardioFields},
		{"力量带难度", newStrengthRequest, func(req *dto.CreateWorkoutRequest) { req.DifficultyLevel = strPtr(model.DifficultyEasy) }, ErrStrengthCardioFields},
		{"有氧缺难度", newCardioRequest, func(req *dto.CreateWorkoutRequest) { req.DifficultyLevel = nil }, ErrCardioTargets},
		{"有氧缺类型", newCardioRequest, func(req *dto.CreateWorkoutRequest) { req.CardioTypeID = nil }, ErrCardioTargets},
		{"有氧带建议重量", newCardioRequest, func(req *dto.CreateWorkoutRequest) { req.SuggestedWeight = floatPtr(20) }, ErrCardioStrengthFields},
		{"有氧类型不存在", newCardioRequest, func(req *dto.CreateWorkoutRequest) { req.CardioTypeID = strPtr("ct-missing") }, ErrCardioTypeNotFound},
		{"肌群不存在", newStrengthRequest, func(req *dto.CreateWorkoutRequest) { req.MuscleGroupIDs = []string{"mg-chest", "mg-missing"} }, ErrMuscleGroupNotFound},
		{"空白名称", newStrengthRequest, func(req *dto.CreateWorkoutRequest) { req.Name = "   " }, ErrWorkoutNameRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := setupTestWorkoutService()
			req := tt.build()
			tt.modify(req)

			_, err := svc.Create(context.Background(), testAdminID, req)
			if !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际: %v", tt.want, err)
			}
			if len(m.workouts.workouts) != 3 {
				t.Error("校验失败时不应写入动作")
			}
		})
	}
}

// ── Update 测试 ──

func TestWorkoutService_Update_SwitchToCardioClearsStrengthFields(t *testing.T) {
	svc, m := setupTestWorkoutService()

	w, err := svc.Update(context.Background(), testAdminID, "w-bench", &dto.UpdateWorkoutRequest{
		Type:            strPtr(model.WorkoutCardio),
		CardioTypeID:    strPtr("ct-hiit"),
		TargetDuration:  intPtr(12),
		DifficultyLevel: strPtr(model.DifficultyMedium),
	})
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if w.Type != model.WorkoutCardio || w.TargetSets != nil || w.TargetReps != nil {
		t.Errorf("切换为有氧后力量字段应清空: %+v", w)
	}
	stored := m.workouts.workouts["w-bench"]
	if stored.TargetSets != nil || stored.UpdatedBy == nil || *stored.UpdatedBy != testAdminID {
		t.Errorf("持久化字段不符: %+v", stored)
	}
	if len(stored.MuscleGroups) != 1 {
		t.Error("未提供 muscle_group_ids 时应保留原肌群")
	}
}

func TestWorkoutService_Update_SwitchWithoutCardioFields(t *testing.T) {
	svc, m := setupTestWorkoutService()

	_, err := svc.Update(context.Background(), testAdminID, "w-bench", &dto.UpdateWorkoutRequest{
		Type: strPtr(model.WorkoutCardio),
	})
	if !errors.Is(err, ErrCardioTargets) {
		t.Fatalf("期望 ErrCardioTargets，实际: %v", err)
	}
	if m.workouts.saved != 0 {
		t.Error("校验失败时不应保存")
	}
}

func TestWorkoutService_Update_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  *dto.UpdateWorkoutRequest
		want error
	}{
		{"无字段", &dto.UpdateWorkoutRequest{}, ErrWorkoutNoChanges},
		{"重名", &dto.UpdateWorkoutRequest{Name: strPtr("TREADMILL RUN")}, ErrWorkoutNameTaken},
		{"空肌群", &dto.UpdateWorkoutRequest{MuscleGroupIDs: &[]string{}}, ErrMuscleGroupRequired},
		{"肌群不存在", &dto.UpdateWorkoutRequest{MuscleGroupIDs: &[]string{"mg-missing"}}, ErrMuscleGroupNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := setupTestWorkoutService()

			_, err := svc.Update(context.Background(), testAdminID, "w-bench", tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际: %v", tt.want, err)
			}
			if m.workouts.saved != 0 {
				t.Error("校验失败时不应保存")
			}
		})
	}
}

func TestWorkoutService_Update_RenameKeepsOwnName(t *testing.T) {
	svc, _ := setupTestWorkoutService()

	w, err := svc.Update(context.Background(), testAdminID, "w-bench", &dto.UpdateWorkoutRequest{
		Name:           strPtr("BENCH PRESS"),
		MuscleGroupIDs: &[]string{"mg-arms", "mg-chest"},
	})
	if err != nil {
		t.Fatalf("仅改大小写应允许: %v", err)
	}
	if w.Name != "BENCH PRESS" || len(w.MuscleGroups) != 2 {
		t.Errorf("更新结果不符: %+v", w)
	}
}

func TestWorkoutService_Update_NotFound(t *testing.T) {
	svc, _ := setupTestWorkoutService()

	_, err := svc.Update(context.Background(), testAdminID, "w-missing", &dto.UpdateWorkoutRequest{Name: strPtr("X")})
	if !errors.Is(err, ErrWorkoutNotFound) {
		t.Errorf("期望 ErrWorkoutNotFound，实际: %v", err)
	}
}

// ── Archive 测试 ──

func TestWorkoutService_Archive_BlockedByActivePlan(t *testing.T) {
	svc, m := setupTestWorkoutService()
	m.addAssignment("as-active", testPlanID, testUserID, model.AssignmentActive, testNow)

	_, err := svc.Archive(context.Background(), testAdminID, "w-bench")
	if !errors.Is(err, errWorkoutInUse(1)) {
		t.Fatalf("期望被 1 个活跃计划阻塞，实际: %v", err)
	}
	if pkgerrors.KindOf(err) != pkgerrors.KindConflict {
		t.Errorf("期望 409，实际 %v", pkgerrors.KindOf(err))
	}
	if !strings.Contains(err.Error(), "used by 1 active plans") {
		t.Errorf("消息应包含计划数: %v", err)
	}
	if m.workouts.workouts["w-bench"].IsArchived {
		t.Error("被阻塞时不应归档")
	}
}

func TestWorkoutService_Archive_IgnoresPendingAndArchivedPlans(t *testing.T) {
	svc, m := setupTestWorkoutService()
	m.addAssignment("as-pending", testPlanID, testUserID, model.AssignmentPending, testNow)
	m.plans.add(model.WorkoutPlan{
		PlanID:     "plan-old",
		CoachID:    testCoachID,
		IsArchived: true,
		Days:       []model.PlanDay{{PlanDayID: "pd-old", PlanID: "plan-old", Workouts: []model.Workout{{WorkoutID: "w-bench"}}}},
	})
	m.addAssignment("as-old", "plan-old", testUserID, model.AssignmentActive, testNow)

	result, err := svc.Archive(context.Background(), testAdminID, "w-bench")
	if err != nil {
		t.Fatalf("pending 分配与已归档计划不应阻塞归档: %v", err)
	}
	if !result.Workout.IsArchived || result.ActivePlanCount != 0 {
		t.Errorf("归档结果不符: %+v", result)
	}

	again, err := svc.Archive(context.Background(), testAdminID, "w-bench")
	if err != nil || !again.Workout.IsArchived {
		t.Errorf("重复归档应幂等: %+v, %v", again, err)
	}
}

func TestWorkoutService_Unarchive(t *testing.T) {
	svc, m := setupTestWorkoutService()

	w, err := svc.Unarchive(context.Background(), testAdminID, "w-old")
	if err != nil {
		t.Fatalf("Unarchive 应成功: %v", err)
	}
	if w.IsArchived || m.workouts.workouts["w-old"].IsArchived {
		t.Error("动作应恢复为未归档")
	}

	if _, err := svc.Unarchive(context.Background(), testAdminID, "w-bench"); err != nil {
		t.Errorf("未归档动作恢复应幂等: %v", err)
	}
}

// ── Alternatives 测试 ──

func TestWorkoutService_ListAlternatives_OrderedBySharedGroups(t *testing.T) {
	svc, m := setupTestWorkoutService()
	chest, arms := *m.lookups.groups["mg-chest"], *m.lookups.groups["mg-arms"]
	m.workouts.add(model.Workout{WorkoutID: "w-src", Name: "Source", Type: model.WorkoutStrength, MuscleGroups: []model.MuscleGroup{chest, arms}})
	m.workouts.add(model.Workout{WorkoutID: "w-zeta", Name: "Zeta Press", Type: model.WorkoutStrength, MuscleGroups: []model.MuscleGroup{arms, chest}})
	m.workouts.add(model.Workout{WorkoutID: "w-curl", Name: "Alpha Curl", Type: model.WorkoutStrength, MuscleGroups: []model.MuscleGroup{arms}})
	m.workouts.add(model.Workout{WorkoutID: "w-fly", Name: "beta fly", Type: model.WorkoutStrength, MuscleGroups: []model.MuscleGroup{chest}})
	m.workouts.add(model.Workout{WorkoutID: "w-gone", Name: "Archived Chest", Type: model.WorkoutStrength, IsArchived: true, MuscleGroups: []model.MuscleGroup{chest}})

	list, err := svc.ListAlternatives(context.Background(), "w-src", &dto.AlternativesRequest{})
	if err != nil {
		t.Fatalf("ListAlternatives 应成功: %v", err)
	}
	var names []string
	for _, w := range list {
		names = append(names, w.Name)
	}
	want := []string{"Zeta Press", "Alpha Curl", "Bench Press", "beta fly"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("排序不符，期望 %v，实际 %v", want, names)
	}

	limited, _ := svc.ListAlternatives(context.Background(), "w-src", &dto.AlternativesRequest{Limit: 2})
	if len(limited) != 2 || limited[1].Name != "Alpha Curl" {
		t.Errorf("limit 应在排序后截断，实际 %+v", limited)
	}
}

func TestWorkoutService_ListAlternatives_NoMuscleGroups(t *testing.T) {
	svc, _ := setupTestWorkoutService()

	list, err := svc.ListAlternatives(context.Background(), "w-old", &dto.AlternativesRequest{})
	if err != nil || list == nil || len(list) != 0 {
		t.Errorf("无肌群时应返回空列表，实际 %v, %v", list, err)
	}
}

// ── 字典测试 ──

func TestWorkoutService_CreateMuscleGroup(t *testing.T) {
	svc, m := setupTestWorkoutService()

	g, err := svc.CreateMuscleGroup(context.Background(), &dto.CreateMuscleGroupRequest{Name: " Glutes ", Icon: "glutes"})
	if err != nil {
		t.Fatalf("CreateMuscleGroup 应成功: %v", err)
	}
	if g.Name != "Glutes" || g.IsDefault {
		t.Errorf("自定义肌群字段不符: %+v", g)
	}

	_, err = svc.CreateMuscleGroup(context.Background(), &dto.CreateMuscleGroupRequest{Name: "CHEST", Icon: "x"})
	if !errors.Is(err, ErrMuscleGroupNameTaken) {
		t.Errorf("期望 ErrMuscleGroupNameTaken，实际: %v", err)
	}
	if len(m.lookups.groups) != 4 {
		t.Errorf("重名肌群不应写入，实际 %d", len(m.lookups.groups))
	}
}

func TestWorkoutService_ListLookups(t *testing.T) {
	svc, _ := setupTestWorkoutService()

	groups, err := svc.ListMuscleGroups(context.Background())
	if err != nil || len(groups) != 3 || groups[0].Name != "Arms" {
		t.Errorf("肌群列表不符: %+v, %v", groups, err)
	}
	types, err := svc.ListCardioTypes(context.Background())
	if err != nil || len(types) != 1 || types[0].ID != "ct-hiit" {
		t.Errorf("有氧类型列表不符: %+v, %v", types, err)
	}
}

func TestWorkoutService_List_Filters(t *testing.T) {
	svc, _ := setupTestWorkoutService()
	archived := false

	list, total, err := svc.List(context.Background(), &dto.WorkoutListRequest{
		Type:       model.WorkoutStrength,
		IsArchived: &archived,
		Search:     " bench ",
	})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].ID != "w-bench" {
		t.Errorf("筛选结果不符: total=%d %+v", total, list)
	}
}
