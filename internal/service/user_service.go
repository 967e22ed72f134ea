package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"fitcoach/backend/internal/dto"
	"fitcoach/backend/internal/model"
	"fitcoach/backend/internal/repository"
	"fitcoach/backend/pkg/clock"
	pkgerrors "fitcoach/backend/pkg/errors"
	"fitcoach/backend/pkg/identity"
	"fitcoach/backend/pkg/metrics"
)

// ── 用户模块业务错误 ──

var (
	ErrEmailTaken          = pkgerrors.Conflict("A user with this email already exists.")
	ErrProviderRejected    = pkgerrors.InvalidState("The identity provider rejected the account.")
	ErrProviderUnavailable = pkgerrors.Gateway("The identity provider is unavailable.")
	ErrLocalProfileFailed  = pkgerrors.Upstream("Unable to create local user profile.")
	ErrUserReconcile       = pkgerrors.Reconcile("User account needs manual reconciliation.")
	ErrSelfDeactivate      = pkgerrors.InvalidState("You cannot deactivate your own account.")
	ErrCoachHasUsers       = pkgerrors.Conflict("Reassign this coach's users before changing the role.")
	ErrUserHasCoaches      = pkgerrors.Conflict("Remove this user's coaches before changing the role.")
	ErrCoachTargetInvalid  = pkgerrors.InvalidState("Coaches can only be assigned to active users.")
	ErrNotActiveCoach      = pkgerrors.InvalidState("Only active coaches can be assigned.")
	ErrCoachAtCapacity     = pkgerrors.InvalidState("Coach has reached the maximum number of users.")
	ErrCoachLinkNotFound   = pkgerrors.NotFound("Coach is not assigned to this user.")
	errCoachLinkConflict   = pkgerrors.Conflict("Coach assignment changed concurrently. Please retry.")
)

// IdentityProvider 外部身份提供方管理接口
type IdentityProvider interface {
	CreateUser(ctx context.Context, params identity.CreateUserParams) (string, error)
	UpdateUser(ctx context.Context, userID string, params identity.UpdateUserParams) error
	DeleteUser(ctx context.Context, userID string) error
}

// UserService 用户管理（管理员）
type UserService interface {
	// Create 先在身份提供方建号再写本地资料，本地失败时删除提供方账号补偿
	Create(ctx context.Context, actorID string, req *dto.CreateUserRequest) (*dto.UserResponse, error)
	GetByID(ctx context.Context, id string) (*dto.UserResponse, error)
	List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error)
	Update(ctx context.Context, actorID, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error)
	UpdateRole(ctx context.Context, actorID, id string, req *dto.UpdateRoleRequest) (*dto.UserResponse, error)
	Deactivate(ctx context.Context, actorID, id string) (*dto.UserResponse, error)
	AssignCoaches(ctx context.Context, actorID, userID string, req *dto.AssignCoachesRequest) (*dto.AssignCoachesResponse, error)
	RemoveCoach(ctx context.Context, userID, coachID string) error
	// Overview 管理端总览：学员/教练/动作数与学员启停用分布
	Overview(ctx context.Context) (*dto.AdminOverviewResponse, error)
}

type userService struct {
	repo             *repository.Repository
	provider         IdentityProvider
	maxUsersPerCoach int
	now              clock.Clock
	logger           *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(
	repo *repository.Repository,
	provider IdentityProvider,
	maxUsersPerCoach int,
	now clock.Clock,
	logger *zap.Logger,
) UserService {
	return &userService{
		repo:             repo,
		provider:         provider,
		maxUsersPerCoach: maxUsersPerCoach,
		now:              now,
		logger:           logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *userService) Create(ctx context.Context, actorID string, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// 1. 本地邮箱查重
	if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeError(s.logger, "查询邮箱失败", err, nil)
	}

	// 2. 身份提供方建号
	providerID, err := s.provider.CreateUser(ctx, identity.CreateUserParams{
		Email:    email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	})
	if err != nil {
		return nil, s.providerError("身份提供方创建账号失败", err, zap.String("email", email))
	}

	// 3. 写入本地资料
	now := s.now()
	user := &model.User{
		UserID:   providerID,
		Name:     req.Name,
		Email:    email,
		Role:     req.Role,
		IsActive: true,
	}
	user.CreatedAt, user.UpdatedAt = now, now
	user.CreatedBy, user.UpdatedBy = &actorID, &actorID

	if err := s.repo.User.Create(ctx, user); err != nil {
		s.logger.Error("本地用户写入失败", zap.String("user_id", providerID), zap.Error(err))

		// 4. 补偿：删除已创建的提供方账号，只尝试一次
		if cerr := s.provider.DeleteUser(ctx, providerID); cerr != nil {
			metrics.RecordCompensationFailure()
			s.logger.Error("补偿删除身份提供方账号失败，需人工对账",
				zap.String("user_id", providerID),
				zap.String("email", email),
				zap.NamedError("primary_error", err),
				zap.Error(cerr),
			)
			return nil, ErrUserReconcile.Wrap(errors.Join(err, cerr))
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken.Wrap(err)
		}
		return nil, ErrLocalProfileFailed.Wrap(err)
	}

	s.logger.Info("用户已创建", zap.String("user_id", user.UserID), zap.String("role", user.Role))
	return toUserResponse(user), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *userService) GetByID(ctx context.Context, id string) (*dto.UserResponse, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

// ────────────────────── List ──────────────────────

func (s *userService) List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	filter := repository.UserFilter{Role: req.Role, IsActive: req.IsActive, Search: req.Search}
	users, total, err := s.repo.User.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		return nil, 0, storeError(s.logger, "列出用户失败", err, nil)
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, *toUserResponse(&users[i]))
	}
	return result, total, nil
}

// ────────────────────── Overview ──────────────────────

func (s *userService) Overview(ctx context.Context) (*dto.AdminOverviewResponse, error) {
	counts, err := s.repo.User.CountOverview(ctx)
	if err != nil {
		return nil, storeError(s.logger, "统计用户失败", err, nil)
	}
	workouts, err := s.repo.Workout.Count(ctx)
	if err != nil {
		return nil, storeError(s.logger, "统计动作失败", err, nil)
	}
	return &dto.AdminOverviewResponse{
		TotalUsers:    counts.Users,
		TotalCoaches:  counts.Coaches,
		TotalWorkouts: workouts,
		ActiveUsers:   counts.Active,
		InactiveUsers: counts.Inactive,
	}, nil
}

// ────────────────────── Update ──────────────────────

func (s *userService) Update(ctx context.Context, actorID, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	var params identity.UpdateUserParams
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != user.Email {
			if other, err := s.repo.User.GetByEmail(ctx, email); err == nil && other.UserID != id {
				return nil, ErrEmailTaken
			} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, storeError(s.logger, "查询邮箱失败", err, nil)
			}
			user.Email = email
			params.Email = &email
		}
	}
	if req.Name != nil && *req.Name != user.Name {
		user.Name = *req.Name
		params.Name = req.Name
	}

	if err := s.provider.UpdateUser(ctx, id, params); err != nil {
		return nil, s.providerError("身份提供方更新账号失败", err, zap.String("user_id", id))
	}

	return s.save(ctx, actorID, user)
}

// ────────────────────── UpdateRole ──────────────────────

func (s *userService) UpdateRole(ctx context.Context, actorID, id string, req *dto.UpdateRoleRequest) (*dto.UserResponse, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == req.Role {
		return toUserResponse(user), nil
	}

	// 仍有学员的教练、仍有教练的学员不能改角色
	if user.Role == model.RoleCoach {
		count, err := s.repo.CoachRoster.CountByCoach(ctx, id)
		if err != nil {
			return nil, storeError(s.logger, "统计教练学员失败", err, nil, zap.String("user_id", id))
		}
		if count > 0 {
			return nil, ErrCoachHasUsers
		}
	}
	if user.Role == model.RoleUser {
		count, err := s.repo.CoachRoster.CountByUser(ctx, id)
		if err != nil {
			return nil, storeError(s.logger, "统计学员教练失败", err, nil, zap.String("user_id", id))
		}
		if count > 0 {
			return nil, ErrUserHasCoaches
		}
	}

	role := req.Role
	if err := s.provider.UpdateUser(ctx, id, identity.UpdateUserParams{Role: &role}); err != nil {
		return nil, s.providerError("身份提供方更新角色失败", err, zap.String("user_id", id))
	}

	user.Role = role
	return s.save(ctx, actorID, user)
}

// ────────────────────── Deactivate ──────────────────────

func (s *userService) Deactivate(ctx context.Context, actorID, id string) (*dto.UserResponse, error) {
	if actorID == id {
		return nil, ErrSelfDeactivate
	}
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return toUserResponse(user), nil
	}

	now := s.now()
	user.IsActive = false
	user.DeactivatedAt = &now
	return s.save(ctx, actorID, user)
}

// ────────────────────── AssignCoaches ──────────────────────

func (s *userService) AssignCoaches(ctx context.Context, actorID, userID string, req *dto.AssignCoachesRequest) (*dto.AssignCoachesResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != model.RoleUser || !user.IsActive {
		return nil, ErrCoachTargetInvalid
	}

	coachIDs := uniqueStrings(req.CoachIDs)
	coaches, err := s.repo.User.ListByIDs(ctx, coachIDs)
	if err != nil {
		return nil, storeError(s.logger, "查询教练失败", err, nil)
	}
	byID := make(map[string]model.User, len(coaches))
	for _, c := range coaches {
		byID[c.UserID] = c
	}
	for _, id := range coachIDs {
		c, ok := byID[id]
		if !ok {
			return nil, ErrCoachNotFound
		}
		if c.Role != model.RoleCoach || !c.IsActive {
			return nil, ErrNotActiveCoach
		}
	}

	existing, err := s.repo.CoachRoster.ListCoachesOfUser(ctx, userID)
	if err != nil {
		return nil, storeError(s.logger, "查询学员教练失败", err, nil, zap.String("user_id", userID))
	}
	linked := make(map[string]bool, len(existing))
	for _, c := range existing {
		linked[c.UserID] = true
	}

	added := []string{}
	now := s.now()
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		added = added[:0]
		for _, coachID := range coachIDs {
			if linked[coachID] {
				continue
			}
			count, err := tx.CoachRoster.CountByCoach(ctx, coachID)
			if err != nil {
				return err
			}
			if count >= int64(s.maxUsersPerCoach) {
				return ErrCoachAtCapacity
			}
			link := &model.CoachUserAssignment{
				ID:         uuid.NewString(),
				CoachID:    coachID,
				UserID:     userID,
				AssignedBy: &actorID,
				CreatedAt:  now,
			}
			if err := tx.CoachRoster.Create(ctx, link); err != nil {
				return err
			}
			added = append(added, coachID)
		}
		return nil
	})
	if err != nil {
		return nil, passThrough(s.logger, "分配教练失败", err, errCoachLinkConflict, zap.String("user_id", userID))
	}

	current, err := s.repo.CoachRoster.ListCoachesOfUser(ctx, userID)
	if err != nil {
		return nil, storeError(s.logger, "查询学员教练失败", err, nil, zap.String("user_id", userID))
	}
	summaries := make([]dto.CoachSummaryResponse, 0, len(current))
	for _, c := range current {
		summaries = append(summaries, dto.CoachSummaryResponse{ID: c.UserID, Name: c.Name, Email: c.Email})
	}

	return &dto.AssignCoachesResponse{UserID: userID, Coaches: summaries, AddedIDs: added}, nil
}

// ────────────────────── RemoveCoach ──────────────────────

func (s *userService) RemoveCoach(ctx context.Context, userID, coachID string) error {
	rows, err := s.repo.CoachRoster.Delete(ctx, coachID, userID)
	if err != nil {
		return storeError(s.logger, "移除教练失败", err, nil, zap.String("user_id", userID), zap.String("coach_id", coachID))
	}
	if rows == 0 {
		return ErrCoachLinkNotFound
	}
	return nil
}

// ────────────────────── 内部辅助 ──────────────────────

func (s *userService) getUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeError(s.logger, "查询用户失败", err, nil, zap.String("user_id", id))
	}
	return user, nil
}

func (s *userService) save(ctx context.Context, actorID string, user *model.User) (*dto.UserResponse, error) {
	user.UpdatedAt = s.now()
	user.UpdatedBy = &actorID
	if err := s.repo.User.Update(ctx, user); err != nil {
		return nil, storeError(s.logger, "更新用户失败", err, ErrEmailTaken, zap.String("user_id", user.UserID))
	}
	return toUserResponse(user), nil
}

// providerError 4xx 视为请求被拒绝，其余视为提供方不可用
func (s *userService) providerError(msg string, err error, fields ...zap.Field) error {
	s.logger.Warn(msg, append(fields, zap.Error(err))...)
	if errors.Is(err, identity.ErrProviderRejected) {
		return ErrProviderRejected.Wrap(err)
	}
	return ErrProviderUnavailable.Wrap(err)
}

func toUserResponse(u *model.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:            u.UserID,
		Name:          u.Name,
		Email:         u.Email,
		Role:          u.Role,
		IsActive:      u.IsActive,
		DeactivatedAt: formatTimePtr(u.DeactivatedAt),
		CreatedAt:     formatTime(u.CreatedAt),
		UpdatedAt:     formatTime(u.UpdatedAt),
	}
}
