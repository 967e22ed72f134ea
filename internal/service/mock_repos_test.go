package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"fitcoach/backend/internal/model"
	"fitcoach/backend/internal/repository"
	"fitcoach/backend/pkg/clock"
	"fitcoach/backend/pkg/events"
)

// ── 测试辅助 ──

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func strPtr(v string) *string { return &v }

// mockStore 内存版数据集，各 mock 仓储共享
type mockStore struct {
	users       *mockUserRepo
	roster      *mockCoachRosterRepo
	workouts    *mockWorkoutRepo
	lookups     *mockLookupRepo
	plans       *mockPlanRepo
	assignments *mockPlanAssignmentRepo
	sessions    *mockSessionRepo
}

func newMockStore() *mockStore {
	users := newMockUserRepo()
	workouts := newMockWorkoutRepo()
	plans := newMockPlanRepo(users)
	assignments := newMockPlanAssignmentRepo(plans, users)
	workouts.plans, workouts.assignments = plans, assignments
	return &mockStore{
		users:       users,
		roster:      newMockCoachRosterRepo(users),
		workouts:    workouts,
		lookups:     newMockLookupRepo(),
		plans:       plans,
		assignments: assignments,
		sessions:    newMockSessionRepo(workouts),
	}
}

// repository 以 mock 组装的聚合，Transaction 直接执行回调
func (m *mockStore) repository() *repository.Repository {
	return &repository.Repository{
		User:        m.users,
		CoachRoster: m.roster,
		Workout:     m.workouts,
		Lookup:      m.lookups,
		Plan:        m.plans,
		Assignment:  m.assignments,
		Session:     m.sessions,
	}
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	users     map[string]*model.User
	locked    []string
	createErr error
	updateErr error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) add(u model.User) {
	m.users[u.UserID] = &u
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	m.add(*user)
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) LockByID(ctx context.Context, id string) (*model.User, error) {
	m.locked = append(m.locked, id)
	return m.GetByID(ctx, id)
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	var result []model.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.add(*user)
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filter repository.UserFilter, offset, limit int) ([]model.User, int64, error) {
	var matched []model.User
	for _, u := range m.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		if filter.Search != "" {
			q := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(u.Name), q) && !strings.Contains(strings.ToLower(u.Email), q) {
				continue
			}
		}
		matched = append(matched, *u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].UserID < matched[j].UserID })
	return paginate(matched, offset, limit), int64(len(matched)), nil
}

func (m *mockUserRepo) CountOverview(_ context.Context) (repository.UserOverview, error) {
	var o repository.UserOverview
	for _, u := range m.users {
		switch u.Role {
		case model.RoleCoach:
			o.Coaches++
		case model.RoleUser:
			o.Users++
			if u.IsActive {
				o.Active++
			} else {
				o.Inactive++
			}
		}
	}
	return o, nil
}

func paginate[T any](list []T, offset, limit int) []T {
	if offset >= len(list) {
		return []T{}
	}
	list = list[offset:]
	if limit >= 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

// ── Mock CoachRosterRepository ──

type mockCoachRosterRepo struct {
	users *mockUserRepo
	links []model.CoachUserAssignment
}

func newMockCoachRosterRepo(users *mockUserRepo) *mockCoachRosterRepo {
	return &mockCoachRosterRepo{users: users}
}

func (m *mockCoachRosterRepo) link(coachID, userID string) {
	m.links = append(m.links, model.CoachUserAssignment{ID: coachID + ":" + userID, CoachID: coachID, UserID: userID})
}

func (m *mockCoachRosterRepo) Create(_ context.Context, link *model.CoachUserAssignment) error {
	for _, l := range m.links {
		if l.CoachID == link.CoachID && l.UserID == link.UserID {
			return gorm.ErrDuplicatedKey
		}
	}
	m.links = append(m.links, *link)
	return nil
}

func (m *mockCoachRosterRepo) Delete(_ context.Context, coachID, userID string) (int64, error) {
	var kept []model.CoachUserAssignment
	var removed int64
	for _, l := range m.links {
		if l.CoachID == coachID && l.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	m.links = kept
	return removed, nil
}

func (m *mockCoachRosterRepo) FilterRosterUserIDs(_ context.Context, coachID string, userIDs []string) ([]string, error) {
	var result []string
	for _, id := range userIDs {
		for _, l := range m.links {
			if l.CoachID == coachID && l.UserID == id {
				result = append(result, id)
				break
			}
		}
	}
	return result, nil
}

func (m *mockCoachRosterRepo) usersByName(ids []string) []model.User {
	var result []model.User
	for _, id := range ids {
		if u, ok := m.users.users[id]; ok {
			result = append(result, *u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func (m *mockCoachRosterRepo) ListRosterUsers(_ context.Context, coachID string) ([]model.User, error) {
	var ids []string
	for _, l := range m.links {
		if l.CoachID == coachID {
			ids = append(ids, l.UserID)
		}
	}
	return m.usersByName(ids), nil
}

func (m *mockCoachRosterRepo) ListCoachesOfUser(_ context.Context, userID string) ([]model.User, error) {
	var ids []string
	for _, l := range m.links {
		if l.UserID == userID {
			ids = append(ids, l.CoachID)
		}
	}
	return m.usersByName(ids), nil
}

func (m *mockCoachRosterRepo) CountByCoach(_ context.Context, coachID string) (int64, error) {
	var n int64
	for _, l := range m.links {
		if l.CoachID == coachID {
			n++
		}
	}
	return n, nil
}

func (m *mockCoachRosterRepo) CountByUser(_ context.Context, userID string) (int64, error) {
	var n int64
	for _, l := range m.links {
		if l.UserID == userID {
			n++
		}
	}
	return n, nil
}

// ── Mock WorkoutRepository ──

type mockWorkoutRepo struct {
	workouts    map[string]*model.Workout
	plans       *mockPlanRepo
	assignments *mockPlanAssignmentRepo
	saved       int
}

func newMockWorkoutRepo() *mockWorkoutRepo {
	return &mockWorkoutRepo{workouts: make(map[string]*model.Workout)}
}

func (m *mockWorkoutRepo) add(w model.Workout) model.Workout {
	m.workouts[w.WorkoutID] = &w
	return w
}

func (m *mockWorkoutRepo) Create(_ context.Context, workout *model.Workout) error {
	m.add(*workout)
	return nil
}

func (m *mockWorkoutRepo) GetByID(_ context.Context, id string) (*model.Workout, error) {
	if w, ok := m.workouts[id]; ok {
		cp := *w
		cp.MuscleGroups = append([]model.MuscleGroup(nil), w.MuscleGroups...)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockWorkoutRepo) ListByIDs(_ context.Context, ids []string) ([]model.Workout, error) {
	var result []model.Workout
	for _, id := range ids {
		if w, ok := m.workouts[id]; ok {
			result = append(result, *w)
		}
	}
	return result, nil
}

func (m *mockWorkoutRepo) List(_ context.Context, filter repository.WorkoutFilter, offset, limit int) ([]model.Workout, int64, error) {
	var matched []model.Workout
	for _, w := range m.workouts {
		if filter.Type != "" && w.Type != filter.Type {
			continue
		}
		if filter.IsArchived != nil && w.IsArchived != *filter.IsArchived {
			continue
		}
		if filter.MuscleGroupID != "" && !hasMuscleGroup(w, filter.MuscleGroupID) {
			continue
		}
		if filter.Search != "" {
			q := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(w.Name), q) && !strings.Contains(strings.ToLower(w.Description), q) {
				continue
			}
		}
		matched = append(matched, *w)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].WorkoutID < matched[j].WorkoutID })
	return paginate(matched, offset, limit), int64(len(matched)), nil
}

func (m *mockWorkoutRepo) NameExists(_ context.Context, name, excludeID string) (bool, error) {
	for _, w := range m.workouts {
		if w.WorkoutID != excludeID && strings.EqualFold(w.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockWorkoutRepo) Save(_ context.Context, workout *model.Workout, groups []model.MuscleGroup) error {
	cp := *workout
	if groups != nil {
		cp.MuscleGroups = groups
	} else if existing, ok := m.workouts[workout.WorkoutID]; ok {
		cp.MuscleGroups = existing.MuscleGroups
	}
	m.workouts[workout.WorkoutID] = &cp
	m.saved++
	return nil
}

func (m *mockWorkoutRepo) SetArchived(_ context.Context, id string, archived bool, actorID string, at time.Time) error {
	if w, ok := m.workouts[id]; ok {
		w.IsArchived = archived
		w.UpdatedAt = at
		w.UpdatedBy = &actorID
	}
	return nil
}

func (m *mockWorkoutRepo) CountActivePlanDependencies(_ context.Context, id string) (int64, error) {
	var n int64
	for _, p := range m.plans.plans {
		if p.IsArchived || !planUsesWorkout(p, id) {
			continue
		}
		for _, a := range m.assignments.items {
			if a.PlanID == p.PlanID && a.Status == model.AssignmentActive {
				n++
				break
			}
		}
	}
	return n, nil
}

func (m *mockWorkoutRepo) ListSharingMuscleGroups(_ context.Context, excludeID string, groupIDs []string) ([]model.Workout, error) {
	var result []model.Workout
	for _, w := range m.workouts {
		if w.WorkoutID == excludeID || w.IsArchived {
			continue
		}
		for _, g := range groupIDs {
			if hasMuscleGroup(w, g) {
				result = append(result, *w)
				break
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].WorkoutID < result[j].WorkoutID })
	return result, nil
}

func (m *mockWorkoutRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.workouts)), nil
}

func hasMuscleGroup(w *model.Workout, groupID string) bool {
	for _, g := range w.MuscleGroups {
		if g.MuscleGroupID == groupID {
			return true
		}
	}
	return false
}

func planUsesWorkout(p *model.WorkoutPlan, workoutID string) bool {
	for _, d := range p.Days {
		for _, w := range d.Workouts {
			if w.WorkoutID == workoutID {
				return true
			}
		}
	}
	return false
}

// ── Mock LookupRepository ──

type mockLookupRepo struct {
	groups      map[string]*model.MuscleGroup
	cardioTypes map[string]*model.CardioType
}

func newMockLookupRepo() *mockLookupRepo {
	return &mockLookupRepo{
		groups:      make(map[string]*model.MuscleGroup),
		cardioTypes: make(map[string]*model.CardioType),
	}
}

func (m *mockLookupRepo) addGroup(g model.MuscleGroup) model.MuscleGroup {
	m.groups[g.MuscleGroupID] = &g
	return g
}

func (m *mockLookupRepo) ListMuscleGroups(_ context.Context) ([]model.MuscleGroup, error) {
	var result []model.MuscleGroup
	for _, g := range m.groups {
		result = append(result, *g)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockLookupRepo) ListMuscleGroupsByIDs(_ context.Context, ids []string) ([]model.MuscleGroup, error) {
	var result []model.MuscleGroup
	for _, id := range ids {
		if g, ok := m.groups[id]; ok {
			result = append(result, *g)
		}
	}
	return result, nil
}

func (m *mockLookupRepo) MuscleGroupNameExists(_ context.Context, name string) (bool, error) {
	for _, g := range m.groups {
		if strings.EqualFold(g.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockLookupRepo) CreateMuscleGroup(_ context.Context, group *model.MuscleGroup) error {
	m.addGroup(*group)
	return nil
}

func (m *mockLookupRepo) ListCardioTypes(_ context.Context) ([]model.CardioType, error) {
	var result []model.CardioType
	for _, c := range m.cardioTypes {
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockLookupRepo) GetCardioType(_ context.Context, id string) (*model.CardioType, error) {
	if c, ok := m.cardioTypes[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock PlanRepository ──

type mockPlanRepo struct {
	users     *mockUserRepo
	plans     map[string]*model.WorkoutPlan
	updateErr error
}

func newMockPlanRepo(users *mockUserRepo) *mockPlanRepo {
	return &mockPlanRepo{users: users, plans: make(map[string]*model.WorkoutPlan)}
}

func (m *mockPlanRepo) add(p model.WorkoutPlan) {
	m.plans[p.PlanID] = &p
}

// get 返回带 Coach 与 Days 的副本
func (m *mockPlanRepo) get(id string) (*model.WorkoutPlan, bool) {
	p, ok := m.plans[id]
	if !ok {
		return nil, false
	}
	cp := *p
	cp.Days = append([]model.PlanDay(nil), p.Days...)
	sort.Slice(cp.Days, func(i, j int) bool { return cp.Days[i].DayOfWeek < cp.Days[j].DayOfWeek })
	if coach, ok := m.users.users[p.CoachID]; ok {
		c := *coach
		cp.Coach = &c
	}
	return &cp, true
}

func (m *mockPlanRepo) Create(_ context.Context, plan *model.WorkoutPlan) error {
	cp := *plan
	cp.Days = nil
	cp.Coach = nil
	m.add(cp)
	return nil
}

func (m *mockPlanRepo) GetByID(_ context.Context, id string) (*model.WorkoutPlan, error) {
	if p, ok := m.get(id); ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPlanRepo) GetByIDForCoach(_ context.Context, id, coachID string) (*model.WorkoutPlan, error) {
	if p, ok := m.get(id); ok && p.CoachID == coachID {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPlanRepo) ListByIDs(_ context.Context, ids []string) ([]model.WorkoutPlan, error) {
	var result []model.WorkoutPlan
	for _, id := range ids {
		if p, ok := m.get(id); ok {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (m *mockPlanRepo) List(_ context.Context, filter repository.PlanFilter, offset, limit int) ([]model.WorkoutPlan, int64, error) {
	var matched []model.WorkoutPlan
	for id := range m.plans {
		p, _ := m.get(id)
		if p.CoachID != filter.CoachID {
			continue
		}
		if filter.IsArchived != nil && p.IsArchived != *filter.IsArchived {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		matched = append(matched, *p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return paginate(matched, offset, limit), int64(len(matched)), nil
}

func (m *mockPlanRepo) UpdateFields(_ context.Context, id string, updates map[string]interface{}) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	p, ok := m.plans[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range updates {
		switch k {
		case "name":
			p.Name = v.(string)
		case "start_date":
			p.StartDate = v.(datatypes.Date)
		case "end_date":
			p.EndDate = v.(datatypes.Date)
		case "is_archived":
			p.IsArchived = v.(bool)
		case "archived_at":
			if v == nil {
				p.ArchivedAt = nil
			} else {
				t := v.(time.Time)
				p.ArchivedAt = &t
			}
		case "updated_at":
			p.UpdatedAt = v.(time.Time)
		}
	}
	return nil
}

func (m *mockPlanRepo) ReplaceDays(_ context.Context, planID string, days []model.PlanDay) error {
	p, ok := m.plans[planID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Days = nil
	for _, d := range days {
		d.PlanID = planID
		p.Days = append(p.Days, d)
	}
	return nil
}

func (m *mockPlanRepo) ContainsWorkout(_ context.Context, planID, workoutID string) (bool, error) {
	p, ok := m.plans[planID]
	if !ok {
		return false, nil
	}
	for _, d := range p.Days {
		for _, w := range d.Workouts {
			if w.WorkoutID == workoutID {
				return true, nil
			}
		}
	}
	return false, nil
}

// ── Mock PlanAssignmentRepository ──

type mockPlanAssignmentRepo struct {
	plans       *mockPlanRepo
	users       *mockUserRepo
	items       []*model.PlanAssignment
	activateErr error
	// afterGet 在 GetByIDForUser 读取之后执行，用于模拟读写之间的并发提交
	afterGet func(a *model.PlanAssignment)
}

func newMockPlanAssignmentRepo(plans *mockPlanRepo, users *mockUserRepo) *mockPlanAssignmentRepo {
	return &mockPlanAssignmentRepo{plans: plans, users: users}
}

func (m *mockPlanAssignmentRepo) add(a model.PlanAssignment) {
	m.items = append(m.items, &a)
}

func (m *mockPlanAssignmentRepo) find(id string) *model.PlanAssignment {
	for _, a := range m.items {
		if a.AssignmentID == id {
			return a
		}
	}
	return nil
}

// withRelations 附带 Plan（含 Coach/Days）与 User 的副本
func (m *mockPlanAssignmentRepo) withRelations(a *model.PlanAssignment) model.PlanAssignment {
	cp := *a
	if p, ok := m.plans.get(a.PlanID); ok {
		cp.Plan = p
	}
	if u, ok := m.users.users[a.UserID]; ok {
		uc := *u
		cp.User = &uc
	}
	return cp
}

func (m *mockPlanAssignmentRepo) filter(keep func(a *model.PlanAssignment) bool) []model.PlanAssignment {
	var result []model.PlanAssignment
	for _, a := range m.items {
		if keep(a) {
			result = append(result, m.withRelations(a))
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].AssignedAt.After(result[j].AssignedAt) })
	return result
}

func (m *mockPlanAssignmentRepo) activeCount(userID, exceptID string) int {
	n := 0
	for _, a := range m.items {
		if a.UserID == userID && a.Status == model.AssignmentActive && a.AssignmentID != exceptID {
			n++
		}
	}
	return n
}

// statusOf 当前状态，测试断言用
func (m *mockPlanAssignmentRepo) statusOf(id string) string {
	if a := m.find(id); a != nil {
		return a.Status
	}
	return ""
}

func (m *mockPlanAssignmentRepo) Create(_ context.Context, assignment *model.PlanAssignment) error {
	// 模拟部分唯一索引
	if assignment.Status == model.AssignmentActive && m.activeCount(assignment.UserID, "") > 0 {
		return gorm.ErrDuplicatedKey
	}
	cp := *assignment
	cp.Plan, cp.User = nil, nil
	m.items = append(m.items, &cp)
	return nil
}

func (m *mockPlanAssignmentRepo) GetByIDForUser(_ context.Context, id, userID string) (*model.PlanAssignment, error) {
	if a := m.find(id); a != nil && a.UserID == userID {
		cp := m.withRelations(a)
		if m.afterGet != nil {
			m.afterGet(a)
		}
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPlanAssignmentRepo) FindOpen(_ context.Context, planID, userID string) (*model.PlanAssignment, error) {
	list := m.filter(func(a *model.PlanAssignment) bool {
		return a.PlanID == planID && a.UserID == userID && a.IsOpen()
	})
	if len(list) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &list[0], nil
}

func (m *mockPlanAssignmentRepo) CountActiveByUser(_ context.Context, userID string) (int64, error) {
	return int64(m.activeCount(userID, "")), nil
}

func (m *mockPlanAssignmentRepo) HasActive(_ context.Context, planID, userID string) (bool, error) {
	for _, a := range m.items {
		if a.PlanID == planID && a.UserID == userID && a.Status == model.AssignmentActive {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockPlanAssignmentRepo) ListActiveByUser(_ context.Context, userID string) ([]model.PlanAssignment, error) {
	return m.filter(func(a *model.PlanAssignment) bool {
		return a.UserID == userID && a.Status == model.AssignmentActive
	}), nil
}

func (m *mockPlanAssignmentRepo) Activate(_ context.Context, id string, at time.Time) error {
	if m.activateErr != nil {
		return m.activateErr
	}
	a := m.find(id)
	if a == nil {
		return gorm.ErrRecordNotFound
	}
	if m.activeCount(a.UserID, id) > 0 {
		return gorm.ErrDuplicatedKey
	}
	a.Status = model.AssignmentActive
	a.ActivatedAt = &at
	a.DeactivatedAt = nil
	a.UpdatedAt = at
	return nil
}

func (m *mockPlanAssignmentRepo) Deactivate(_ context.Context, ids []string, at time.Time) error {
	for _, id := range ids {
		if a := m.find(id); a != nil {
			a.Status = model.AssignmentInactive
			a.DeactivatedAt = &at
			a.UpdatedAt = at
		}
	}
	return nil
}

func (m *mockPlanAssignmentRepo) DeclinePending(_ context.Context, id string, at time.Time) (int64, error) {
	a := m.find(id)
	if a == nil || a.Status != model.AssignmentPending {
		return 0, nil
	}
	a.Status = model.AssignmentInactive
	a.DeactivatedAt = &at
	a.UpdatedAt = at
	return 1, nil
}

func (m *mockPlanAssignmentRepo) GetCurrentActive(_ context.Context, userID string) (*model.PlanAssignment, error) {
	list := m.filter(func(a *model.PlanAssignment) bool {
		if a.UserID != userID || a.Status != model.AssignmentActive {
			return false
		}
		p, ok := m.plans.plans[a.PlanID]
		return ok && !p.IsArchived
	})
	sort.SliceStable(list, func(i, j int) bool {
		ai, aj := list[i].ActivatedAt, list[j].ActivatedAt
		switch {
		case ai == nil && aj == nil:
			return false
		case ai == nil:
			return false
		case aj == nil:
			return true
		}
		return ai.After(*aj)
	})
	if len(list) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &list[0], nil
}

func (m *mockPlanAssignmentRepo) ListPendingByUser(_ context.Context, userID string) ([]model.PlanAssignment, error) {
	return m.filter(func(a *model.PlanAssignment) bool {
		return a.UserID == userID && a.Status == model.AssignmentPending
	}), nil
}

func (m *mockPlanAssignmentRepo) ListByPlan(_ context.Context, planID string) ([]model.PlanAssignment, error) {
	return m.filter(func(a *model.PlanAssignment) bool { return a.PlanID == planID }), nil
}

func (m *mockPlanAssignmentRepo) ListActiveByUsers(_ context.Context, userIDs []string) ([]model.PlanAssignment, error) {
	set := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		set[id] = true
	}
	return m.filter(func(a *model.PlanAssignment) bool {
		return set[a.UserID] && a.Status == model.AssignmentActive
	}), nil
}

func (m *mockPlanAssignmentRepo) CountPendingByUsers(_ context.Context, userIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, id := range userIDs {
		for _, a := range m.items {
			if a.UserID == id && a.Status == model.AssignmentPending {
				counts[id]++
			}
		}
	}
	return counts, nil
}

// ── Mock SessionRepository ──

type mockSessionRepo struct {
	workouts  *mockWorkoutRepo
	sessions  map[string]*model.WorkoutSession
	createErr error
}

func newMockSessionRepo(workouts *mockWorkoutRepo) *mockSessionRepo {
	return &mockSessionRepo{workouts: workouts, sessions: make(map[string]*model.WorkoutSession)}
}

func (m *mockSessionRepo) add(s model.WorkoutSession) {
	m.sessions[s.SessionID] = &s
}

func (m *mockSessionRepo) withRelations(s *model.WorkoutSession) model.WorkoutSession {
	cp := *s
	cp.Logs = append([]model.ExerciseLog(nil), s.Logs...)
	if w, ok := m.workouts.workouts[s.WorkoutID]; ok {
		wc := *w
		cp.Workout = &wc
	}
	return cp
}

func inWindow(t *time.Time, start, end *time.Time) bool {
	if t == nil {
		return false
	}
	if start != nil && t.Before(*start) {
		return false
	}
	if end != nil && !t.Before(*end) {
		return false
	}
	return true
}

func (m *mockSessionRepo) completed(userID string, start, end *time.Time) []model.WorkoutSession {
	var result []model.WorkoutSession
	for _, s := range m.sessions {
		if s.UserID == userID && inWindow(s.CompletedAt, start, end) {
			result = append(result, m.withRelations(s))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CompletedAt.Equal(*result[j].CompletedAt) {
			return result[i].CompletedAt.After(*result[j].CompletedAt)
		}
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result
}

func (m *mockSessionRepo) Create(_ context.Context, session *model.WorkoutSession) error {
	if m.createErr != nil {
		return m.createErr
	}
	cp := *session
	cp.Workout, cp.Logs = nil, nil
	m.add(cp)
	return nil
}

func (m *mockSessionRepo) GetByIDForUser(_ context.Context, id, userID string) (*model.WorkoutSession, error) {
	if s, ok := m.sessions[id]; ok && s.UserID == userID {
		cp := m.withRelations(s)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) MarkCompleted(_ context.Context, id string, at time.Time) error {
	if s, ok := m.sessions[id]; ok && s.CompletedAt == nil {
		s.CompletedAt = &at
		s.UpdatedAt = at
	}
	return nil
}

func (m *mockSessionRepo) Touch(_ context.Context, id string, at time.Time) error {
	if s, ok := m.sessions[id]; ok {
		s.UpdatedAt = at
	}
	return nil
}

func (m *mockSessionRepo) CreateLog(_ context.Context, log *model.ExerciseLog) error {
	s, ok := m.sessions[log.SessionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.Logs = append(s.Logs, *log)
	return nil
}

func (m *mockSessionRepo) UpdateLog(_ context.Context, log *model.ExerciseLog) error {
	s, ok := m.sessions[log.SessionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range s.Logs {
		if s.Logs[i].LogID == log.LogID {
			loggedAt := s.Logs[i].LoggedAt
			s.Logs[i] = *log
			s.Logs[i].LoggedAt = loggedAt
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) CountCompletedForPlan(_ context.Context, userID, planID, sessionType string, start, end time.Time) (int64, error) {
	var n int64
	for _, s := range m.completed(userID, &start, &end) {
		if s.PlanID != nil && *s.PlanID == planID && s.SessionType == sessionType {
			n++
		}
	}
	return n, nil
}

func (m *mockSessionRepo) CountCompleted(_ context.Context, userID string, start, end *time.Time) (int64, error) {
	return int64(len(m.completed(userID, start, end))), nil
}

func (m *mockSessionRepo) ListCompleted(_ context.Context, userID string, start, end time.Time) ([]model.WorkoutSession, error) {
	return m.completed(userID, &start, &end), nil
}

func (m *mockSessionRepo) ListCompletedTimes(_ context.Context, userID string, start, end *time.Time) ([]time.Time, error) {
	var times []time.Time
	for _, s := range m.completed(userID, start, end) {
		times = append(times, *s.CompletedAt)
	}
	return times, nil
}

func (m *mockSessionRepo) ListHistory(_ context.Context, filter repository.SessionHistoryFilter, offset, limit int) ([]model.WorkoutSession, int64, error) {
	var matched []model.WorkoutSession
	for _, s := range m.completed(filter.UserID, filter.Start, filter.End) {
		if filter.WorkoutType != "" && (s.Workout == nil || s.Workout.Type != filter.WorkoutType) {
			continue
		}
		if filter.MuscleGroupID != "" {
			found := false
			if s.Workout != nil {
				for _, g := range s.Workout.MuscleGroups {
					if g.MuscleGroupID == filter.MuscleGroupID {
						found = true
					}
				}
			}
			if !found {
				continue
			}
		}
		matched = append(matched, s)
	}
	return paginate(matched, offset, limit), int64(len(matched)), nil
}

// ── Mock Publisher ──

type recordingPublisher struct {
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

// ── 测试数据 ──

// testNow 2024-06-12 周三
var testNow = time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)

const (
	testAdminID = "admin-001"
	testCoachID = "coach-001"
	testUserID  = "user-001"
	testPlanID  = "plan-001"
)

// seedCoaching 一名管理员、一名教练及其名下学员、三个动作，以及每周两个训练的计划
func seedCoaching() *mockStore {
	m := newMockStore()
	m.users.add(model.User{UserID: testAdminID, Name: "Admin", Email: "admin@example.com", Role: model.RoleAdmin, IsActive: true})
	m.users.add(model.User{UserID: testCoachID, Name: "Coach Kim", Email: "kim@example.com", Role: model.RoleCoach, IsActive: true})
	m.users.add(model.User{UserID: testUserID, Name: "Alex", Email: "alex@example.com", Role: model.RoleUser, IsActive: true})
	m.roster.link(testCoachID, testUserID)

	chest := m.lookups.addGroup(model.MuscleGroup{MuscleGroupID: "mg-chest", Name: "Chest", Icon: "chest", IsDefault: true})
	legs := m.lookups.addGroup(model.MuscleGroup{MuscleGroupID: "mg-legs", Name: "Legs", Icon: "legs", IsDefault: true})
	m.lookups.addGroup(model.MuscleGroup{MuscleGroupID: "mg-arms", Name: "Arms", Icon: "arms", IsDefault: true})
	m.lookups.cardioTypes["ct-hiit"] = &model.CardioType{CardioTypeID: "ct-hiit", Name: "HIIT", Description: "High intensity intervals"}
	bench := m.workouts.add(model.Workout{
		WorkoutID:    "w-bench",
		Name:         "Bench Press",
		Type:         model.WorkoutStrength,
		TargetSets:   intPtr(3),
		TargetReps:   intPtr(10),
		MuscleGroups: []model.MuscleGroup{chest},
	})
	run := m.workouts.add(model.Workout{
		WorkoutID:      "w-run",
		Name:           "Treadmill Run",
		Type:           model.WorkoutCardio,
		TargetDuration: intPtr(20),
		MuscleGroups:   []model.MuscleGroup{legs},
	})
	m.workouts.add(model.Workout{WorkoutID: "w-old", Name: "Retired Move", Type: model.WorkoutStrength, IsArchived: true})

	m.plans.add(model.WorkoutPlan{
		PlanID:    testPlanID,
		Name:      "Strength Block",
		CoachID:   testCoachID,
		StartDate: datatypes.Date(clock.Date(2024, 6, 1)),
		EndDate:   datatypes.Date(clock.Date(2024, 8, 31)),
		Days: []model.PlanDay{
			{PlanDayID: "pd-mon", PlanID: testPlanID, DayOfWeek: 0, Workouts: []model.Workout{bench}},
			{PlanDayID: "pd-wed", PlanID: testPlanID, DayOfWeek: 2, Workouts: []model.Workout{run}},
		},
	})
	return m
}

// addPlan 追加一个归属测试教练的空计划
func (m *mockStore) addPlan(id, name string, archived bool) {
	m.plans.add(model.WorkoutPlan{
		PlanID:     id,
		Name:       name,
		CoachID:    testCoachID,
		StartDate:  datatypes.Date(clock.Date(2024, 6, 1)),
		EndDate:    datatypes.Date(clock.Date(2024, 8, 31)),
		IsArchived: archived,
	})
}

// addAssignment 追加一条分配记录
func (m *mockStore) addAssignment(id, planID, userID, status string, assignedAt time.Time) {
	a := model.PlanAssignment{AssignmentID: id, PlanID: planID, UserID: userID, Status: status, AssignedAt: assignedAt}
	if status == model.AssignmentActive {
		a.ActivatedAt = &assignedAt
	}
	m.assignments.add(a)
}

// addCompletedSession 追加一次已完成训练课
func (m *mockStore) addCompletedSession(id, workoutID, sessionType string, planID *string, completedAt time.Time, logs ...model.ExerciseLog) {
	for i := range logs {
		logs[i].SessionID = id
		if logs[i].LogID == "" {
			logs[i].LogID = id + "-log-" + string(rune('a'+i))
		}
		logs[i].LoggedAt = completedAt
		logs[i].UpdatedAt = completedAt
	}
	m.sessions.add(model.WorkoutSession{
		SessionID:   id,
		UserID:      testUserID,
		WorkoutID:   workoutID,
		PlanID:      planID,
		SessionType: sessionType,
		CompletedAt: &completedAt,
		CreatedAt:   completedAt.Add(-time.Hour),
		UpdatedAt:   completedAt,
		Logs:        logs,
	})
}
