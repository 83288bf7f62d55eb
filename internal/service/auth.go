package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/telenexus/gateway-server-go/internal/errors"
	"github.com/telenexus/gateway-server-go/internal/model"
	"github.com/telenexus/gateway-server-go/internal/repository"
	"github.com/telenexus/gateway-server-go/internal/util"
)

const minPasswordLen = 8

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// AuthService handles dashboard accounts and session tokens. Sessions are
// stateless HS256 JWTs; revocation happens by deactivating the account.
type AuthService struct {
	users     repository.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewAuthService(users repository.UserRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

type RegisterInput struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	Company  *string `json:"company"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is a logged-in user plus their bearer token.
type Session struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.MissingRequired("email")
	}
	if !emailRegex.MatchString(email) {
		return nil, apperrors.Validation("email", "must be a valid email address")
	}
	if len(input.Password) < minPasswordLen {
		return nil, apperrors.Validation("password", "must be at least 8 characters")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.MissingRequired("name")
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if existing != nil {
		return nil, apperrors.AlreadyExists("User")
	}

	hash, err := util.HashPassword(input.Password)
	if err != nil {
		return nil, apperrors.Internal("Failed to hash password").WithCause(err)
	}

	user, err := s.users.Create(ctx, model.CreateUserParams{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Company:      input.Company,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}

	log.Info().Str("userId", user.ID).Msg("user registered")
	return &Session{User: user, Token: token}, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	// Same error for unknown email and wrong password.
	if user == nil || !util.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, apperrors.Unauthorized("Invalid email or password")
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden("Account is deactivated")
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}

	log.Info().Str("userId", user.ID).Msg("user logged in")
	return &Session{User: user, Token: token}, nil
}

// VerifyToken validates a session token and loads its user. Tokens signed
// with another method or an old secret are rejected, as are tokens for
// deactivated accounts.
func (s *AuthService) VerifyToken(ctx context.Context, tokenString string) (*model.User, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.InvalidToken("Unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.InvalidToken("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperrors.InvalidToken("Invalid token claims")
	}
	userID, _ := claims["sub"].(string)
	if userID == "" {
		return nil, apperrors.InvalidToken("Invalid token claims")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil || !user.IsActive {
		return nil, apperrors.Unauthorized("Account no longer active")
	}
	return user, nil
}

func (s *AuthService) issueToken(user *model.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenTTL).Unix(),
	})

	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", apperrors.Internal("Failed to sign token").WithCause(err)
	}
	return signed, nil
}
