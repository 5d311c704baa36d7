package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/gabrielsqw/badminton-club/config"
	"github.com/gabrielsqw/badminton-club/internal/dto"
	"github.com/gabrielsqw/badminton-club/internal/model"
	"github.com/gabrielsqw/badminton-club/pkg/jwt"
)

// ── Mock TokenBlacklist ──

type mockBlacklist struct {
	revoked map[string]time.Duration
	err     error
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{revoked: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.revoked[jti] = ttl
	return nil
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.revoked[jti]
	return ok, nil
}

// ── 测试辅助 ──

func testAuthConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret-key-for-unit-testing-2026",
			AccessTokenTTL:          15 * time.Minute,
			RefreshTokenTTLDefault:  24 * time.Hour,
			RefreshTokenTTLRemember: 30 * 24 * time.Hour,
		},
	}
}

func setupTestAuthService() (AuthService, *mockRepos, *mockBlacklist, *jwt.Manager) {
	cfg := testAuthConfig()
	repo, mocks := newMockRepository()
	jwtMgr := jwt.NewManager(&cfg.Auth)
	blacklist := newMockBlacklist()

	svc := NewAuthService(cfg, repo, jwtMgr, blacklist, zap.NewNop())
	return svc, mocks, blacklist, jwtMgr
}

func seedUser(mocks *mockRepos, username, password string, active bool) *model.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	u := &model.User{
		UserID:       "user-" + username,
		Username:     username,
		PasswordHash: string(hash),
		Role:         model.RoleMember,
		IsActive:     active,
	}
	mocks.users.users[u.UserID] = u
	return u
}

// ── Register 测试 ──

func TestRegister_Success(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()

	resp, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Username:        "  alice ",
		Email:           "alice@example.com",
		Password:        "secret1",
		PasswordConfirm: "secret1",
	})
	if err != nil {
		t.Fatalf("Register 应成功: %v", err)
	}
	if resp.Username != "alice" || resp.Email != "alice@example.com" {
		t.Errorf("注册响应不符，实际=%+v", resp)
	}

	user := mocks.users.users[resp.ID]
	if user == nil {
		t.Fatal("用户应已写入存储")
	}
	if user.Role != model.RoleMember || !user.IsActive {
		t.Errorf("新用户应为启用的普通成员，实际 role=%s active=%v", user.Role, user.IsActive)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret1")) != nil {
		t.Error("密码应以 bcrypt 哈希存储")
	}
}

func TestRegister_ValidationErrors(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	seedUser(mocks, "taken", "secret1", true)
	mocks.users.users["user-taken"].Email = strPtr("taken@example.com")

	cases := []struct {
		name string
		req  dto.RegisterRequest
		want error
	}{
		{"用户名过短", dto.RegisterRequest{Username: "ab", Password: "secret1", PasswordConfirm: "secret1"}, ErrUsernameTooShort},
		{"密码过短", dto.RegisterRequest{Username: "carol", Password: "12345", PasswordConfirm: "12345"}, ErrPasswordTooShort},
		{"两次密码不一致", dto.RegisterRequest{Username: "carol", Password: "secret1", PasswordConfirm: "secret2"}, ErrPasswordMismatch},
		{"用户名已占用", dto.RegisterRequest{Username: "taken", Password: "secret1", PasswordConfirm: "secret1"}, ErrUsernameTaken},
		{"邮箱已注册", dto.RegisterRequest{Username: "carol", Email: "taken@example.com", Password: "secret1", PasswordConfirm: "secret1"}, ErrEmailTaken},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), &tc.req)
			if !errors.Is(err, tc.want) {
				t.Errorf("期望 %v，实际: %v", tc.want, err)
			}
		})
	}
}

// ── Login 测试 ──

func TestLogin_Success(t *testing.T) {
	svc, mocks, _, jwtMgr := setupTestAuthService()
	seedUser(mocks, "alice", "secret1", true)

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "alice", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("应返回 access 与 refresh token")
	}
	if resp.ExpiresIn != 900 {
		t.Errorf("期望 ExpiresIn=900，实际=%d", resp.ExpiresIn)
	}

	claims, err := jwtMgr.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("解析 AccessToken 失败: %v", err)
	}
	if claims.UserID != "user-alice" || claims.Username != "alice" || claims.TokenType != jwt.TokenTypeAccess {
		t.Errorf("AccessToken 声明不符，实际=%+v", claims)
	}
}

func TestLogin_WrongPasswordAndUnknownUser(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	seedUser(mocks, "alice", "secret1", true)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "alice", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("密码错误应返回 ErrInvalidCredentials，实际: %v", err)
	}
	_, err = svc.Login(context.Background(), &dto.LoginRequest{Username: "nobody", Password: "secret1"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("用户不存在应返回 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_InactiveUser(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	seedUser(mocks, "alice", "secret1", false)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "alice", Password: "secret1"})
	if !errors.Is(err, ErrUserInactive) {
		t.Errorf("停用账号应返回 ErrUserInactive，实际: %v", err)
	}
}

func TestLogin_RememberMe(t *testing.T) {
	svc, mocks, _, jwtMgr := setupTestAuthService()
	seedUser(mocks, "alice", "secret1", true)

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "alice", Password: "secret1", RememberMe: true})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}
	claims, err := jwtMgr.ParseToken(resp.RefreshToken)
	if err != nil {
		t.Fatalf("解析 RefreshToken 失败: %v", err)
	}
	if !claims.RememberMe {
		t.Error("RefreshToken 应带 remember_me 标记")
	}
	if time.Until(claims.ExpiresAt.Time) < 7*24*time.Hour {
		t.Errorf("记住我时 RefreshToken 有效期应更长，实际剩余=%v", time.Until(claims.ExpiresAt.Time))
	}
}

func TestLogin_UpgradesLegacyHash(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	sum := sha256.Sum256([]byte("oldpass"))
	mocks.users.users["user-legacy"] = &model.User{
		UserID:       "user-legacy",
		Username:     "legacy",
		PasswordHash: strings.ToUpper(hex.EncodeToString(sum[:])),
		Role:         model.RoleMember,
		IsActive:     true,
	}

	if _, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "legacy", Password: "oldpass"}); err != nil {
		t.Fatalf("旧哈希用户登录应成功: %v", err)
	}

	stored := mocks.users.users["user-legacy"].PasswordHash
	if isLegacyHash(stored) {
		t.Fatal("登录成功后旧哈希应被升级")
	}
	if bcrypt.CompareHashAndPassword([]byte(stored), []byte("oldpass")) != nil {
		t.Error("升级后的 bcrypt 哈希应能校验原密码")
	}

	if _, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "legacy", Password: "oldpass"}); err != nil {
		t.Errorf("升级后再次登录应成功: %v", err)
	}
}

func TestLogin_LegacyHashWrongPassword(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	sum := sha256.Sum256([]byte("oldpass"))
	legacy := hex.EncodeToString(sum[:])
	mocks.users.users["user-legacy"] = &model.User{
		UserID: "user-legacy", Username: "legacy", PasswordHash: legacy, IsActive: true,
	}

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "legacy", Password: "guess"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
	if mocks.users.users["user-legacy"].PasswordHash != legacy {
		t.Error("校验失败时不应修改存储的哈希")
	}
}

// ── RefreshToken / Logout 测试 ──

func TestRefreshToken_RotatesAndRevokesOld(t *testing.T) {
	svc, mocks, blacklist, jwtMgr := setupTestAuthService()
	seedUser(mocks, "alice", "secret1", true)
	ctx := context.Background()

	login, err := svc.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}

	refreshed, err := svc.RefreshToken(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken 应成功: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("应签发新的 RefreshToken")
	}

	old, _ := jwtMgr.ParseToken(login.RefreshToken)
	if _, ok := blacklist.revoked[old.ID]; !ok {
		t.Error("旧 RefreshToken 应被加入黑名单")
	}

	if _, err := svc.RefreshToken(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("重复使用旧 RefreshToken 应返回 ErrInvalidToken，实际: %v", err)
	}
}

func TestRefreshToken_RejectsAccessToken(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	seedUser(mocks, "alice", "secret1", true)

	login, _ := svc.Login(context.Background(), &dto.LoginRequest{Username: "alice", Password: "secret1"})
	if _, err := svc.RefreshToken(context.Background(), login.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("AccessToken 不能用于刷新，实际: %v", err)
	}
	if _, err := svc.RefreshToken(context.Background(), "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("无效令牌应返回 ErrInvalidToken，实际: %v", err)
	}
}

func TestLogout_BlacklistUnavailable(t *testing.T) {
	svc, _, blacklist, _ := setupTestAuthService()
	blacklist.err = errors.New("redis down")

	if err := svc.Logout(context.Background(), "jti-1", time.Now().Add(time.Hour)); err == nil {
		t.Error("黑名单不可用时登出应返回错误")
	}
}

func TestLogout_NilBlacklistIsNoop(t *testing.T) {
	cfg := testAuthConfig()
	repo, _ := newMockRepository()
	svc := NewAuthService(cfg, repo, jwt.NewManager(&cfg.Auth), nil, zap.NewNop())

	if err := svc.Logout(context.Background(), "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Errorf("未配置黑名单时登出应直接成功: %v", err)
	}
}

// ── GetCurrentUser 测试 ──

func TestGetCurrentUser(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	seedUser(mocks, "alice", "secret1", true)

	me, err := svc.GetCurrentUser(context.Background(), Identity{UserID: "user-alice"})
	if err != nil {
		t.Fatalf("GetCurrentUser 应成功: %v", err)
	}
	if me.Username != "alice" || !me.IsActive {
		t.Errorf("用户信息不符，实际=%+v", me)
	}

	if _, err := svc.GetCurrentUser(context.Background(), Identity{UserID: "user-ghost"}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

// ── EnsureAdmin 测试 ──

func TestEnsureAdmin(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	ctx := context.Background()

	if err := svc.EnsureAdmin(ctx, config.BootstrapConfig{}); err != nil {
		t.Fatalf("未配置时应跳过: %v", err)
	}
	if len(mocks.users.users) != 0 {
		t.Fatal("未配置时不应创建用户")
	}

	admin := config.BootstrapConfig{Username: "root", Password: "rootpass", Email: "root@example.com"}
	if err := svc.EnsureAdmin(ctx, admin); err != nil {
		t.Fatalf("EnsureAdmin 应成功: %v", err)
	}
	created, err := mocks.users.GetByUsername(ctx, "root")
	if err != nil {
		t.Fatalf("应已创建管理员: %v", err)
	}
	if !created.IsAdmin() {
		t.Errorf("期望 role=admin，实际=%s", created.Role)
	}

	// 重复调用幂等
	if err := svc.EnsureAdmin(ctx, admin); err != nil {
		t.Fatalf("重复调用应成功: %v", err)
	}
	if len(mocks.users.users) != 1 {
		t.Errorf("重复调用不应新建用户，实际用户数=%d", len(mocks.users.users))
	}
}

func TestEnsureAdmin_PromotesExistingUser(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	seedUser(mocks, "root", "secret1", false)

	if err := svc.EnsureAdmin(context.Background(), config.BootstrapConfig{Username: "root", Password: "rootpass"}); err != nil {
		t.Fatalf("EnsureAdmin 应成功: %v", err)
	}
	u := mocks.users.users["user-root"]
	if !u.IsAdmin() || !u.IsActive {
		t.Errorf("已有用户应被提升为启用的管理员，实际 role=%s active=%v", u.Role, u.IsActive)
	}
}

func strPtr(s string) *string { return &s }
