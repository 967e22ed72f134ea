package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"fitcoach/backend/internal/dto"
	"fitcoach/backend/internal/model"
	"fitcoach/backend/internal/repository"
	pkgerrors "fitcoach/backend/pkg/errors"
	"fitcoach/backend/pkg/identity"
)

// ── 认证模块业务错误 ──

var (
	ErrInvalidToken    = pkgerrors.Unauthorized("Invalid or expired token.")
	ErrProfileMissing  = pkgerrors.Unauthorized("User profile not found.")
	ErrUserDeactivated = pkgerrors.Forbidden("User account is deactivated.")
)

// TokenVerifier 校验身份提供方签发的访问令牌
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*identity.Identity, error)
}

// AuthService 认证边界：令牌 → 本地用户资料 → 调用方身份
type AuthService interface {
	Authenticate(ctx context.Context, token string) (*dto.Principal, error)
	Me(ctx context.Context, userID string) (*dto.MeResponse, error)
}

type authService struct {
	repo     *repository.Repository
	verifier TokenVerifier
	logger   *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(repo *repository.Repository, verifier TokenVerifier, logger *zap.Logger) AuthService {
	return &authService{repo: repo, verifier: verifier, logger: logger}
}

// ────────────────────── Authenticate ──────────────────────

func (s *authService) Authenticate(ctx context.Context, token string) (*dto.Principal, error) {
	id, err := s.verifier.Verify(ctx, token)
	if err != nil {
		s.logger.Debug("令牌校验失败", zap.Error(err))
		return nil, ErrInvalidToken.Wrap(err)
	}

	user, err := s.repo.User.GetByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileMissing
		}
		return nil, storeError(s.logger, "查询用户资料失败", err, nil, zap.String("user_id", id.UserID))
	}
	if !user.IsActive {
		return nil, ErrUserDeactivated
	}

	return &dto.Principal{UserID: user.UserID, Email: user.Email, Role: user.Role}, nil
}

// ────────────────────── Me ──────────────────────

func (s *authService) Me(ctx context.Context, userID string) (*dto.MeResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileMissing
		}
		return nil, storeError(s.logger, "查询用户资料失败", err, nil, zap.String("user_id", userID))
	}

	resp := &dto.MeResponse{UserResponse: *toUserResponse(user)}
	if user.Role == model.RoleUser {
		if resp.CoachCount, err = s.repo.CoachRoster.CountByUser(ctx, userID); err != nil {
			return nil, storeError(s.logger, "统计学员教练失败", err, nil, zap.String("user_id", userID))
		}
	}
	return resp, nil
}
