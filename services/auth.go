package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/biosecret/task-api/database"
	"github.com/biosecret/task-api/models"
	"github.com/biosecret/task-api/validation"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

// UserStore là nơi lưu thông tin đăng nhập
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

type AuthConfig struct {
	Secret          []byte
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	AdminInviteCode string
	// bcrypt.DefaultCost nếu bằng 0
	HashCost int
}

// Claims là nội dung của JWT: sub là id người dùng
type Claims struct {
	Role models.Role `json:"role"`
	Type string      `json:"typ"`
	jwt.RegisteredClaims
}

// AuthService đăng ký, đăng nhập và xác thực token không trạng thái
type AuthService struct {
	users     UserStore
	cfg       AuthConfig
	now       func() time.Time
	dummyHash []byte
}

func NewAuthService(users UserStore, cfg AuthConfig) (*AuthService, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("jwt secret must not be empty")
	}
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}

	// hash giả để login với email không tồn tại tốn thời gian như sai mật khẩu
	dummy, err := bcrypt.GenerateFromPassword([]byte("task-api-dummy-password"), cfg.HashCost)
	if err != nil {
		return nil, fmt.Errorf("could not hash password: %w", err)
	}

	return &AuthService{users: users, cfg: cfg, now: time.Now, dummyHash: dummy}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register tạo người dùng mới và trả về cặp token cho phiên đầu tiên
func (s *AuthService) Register(ctx context.Context, in models.RegisterInput) (*models.User, *models.TokenPair, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, nil, err
	}

	role := models.RoleUser
	if in.Role == models.RoleAdmin {
		if !s.validInviteCode(in.AdminCode) {
			return nil, nil, ErrForbidden
		}
		role = models.RoleAdmin
	}

	if _, err := s.users.FindUserByEmail(ctx, in.Email); err == nil {
		return nil, nil, ErrDuplicateEmail
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, nil, fmt.Errorf("find user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.HashCost)
	if err != nil {
		return nil, nil, fmt.Errorf("could not hash password: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     in.Email,
		Password:  string(hashed),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			return nil, nil, ErrDuplicateEmail
		}
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	tokens, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

func (s *AuthService) validInviteCode(code string) bool {
	if s.cfg.AdminInviteCode == "" || code == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(code), []byte(s.cfg.AdminInviteCode)) == 1
}

// Login trả về cùng một lỗi cho email không tồn tại và sai mật khẩu
func (s *AuthService) Login(ctx context.Context, in models.LoginInput) (*models.TokenPair, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.FindUserByEmail(ctx, in.Email)
	if errors.Is(err, database.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(in.Password))
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// Refresh đổi refresh token lấy cặp token mới, role được đọc lại từ store
func (s *AuthService) Refresh(ctx context.Context, in models.RefreshInput) (*models.TokenPair, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	claims, err := s.parse(in.RefreshToken, tokenRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindUserByID(ctx, claims.Subject)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidToken
	} else if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	return s.issue(user)
}

// Resolve xác thực access token và trả về identity của người gọi
func (s *AuthService) Resolve(token string) (models.Identity, error) {
	claims, err := s.parse(token, tokenAccess)
	if err != nil {
		return models.Identity{}, err
	}
	return models.Identity{ID: claims.Subject, Role: claims.Role}, nil
}

// Me trả về người dùng ứng với identity
func (s *AuthService) Me(ctx context.Context, identity models.Identity) (*models.User, error) {
	user, err := s.users.FindUserByID(ctx, identity.ID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrUnauthenticated
	} else if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*models.TokenPair, error) {
	access, err := s.sign(user, tokenAccess, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(user, tokenRefresh, s.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.cfg.AccessTTL.Seconds()),
	}, nil
}

func (s *AuthService) sign(user *models.User, typ string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Role: user.Role,
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *AuthService) parse(tokenString, typ string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrExpiredToken
	}
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != typ || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
