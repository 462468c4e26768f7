package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/certiq/certiq-backend/internal/apperr"
	"github.com/certiq/certiq-backend/internal/config"
	"github.com/certiq/certiq-backend/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Claims extends JWT standard claims with the account id. The account id
// is always taken from here, never from request input. A candidate must
// not be able to submit answers as someone else.
type Claims struct {
	jwt.RegisteredClaims
	AccountID uuid.UUID `json:"account_id"`
	Email     string    `json:"email"`
}

// AuthService handles candidate authentication and JWT issuance.
type AuthService struct {
	cfg        *config.Config
	accounts   AccountStore
	candidates CandidateStore
	log        zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, accounts AccountStore, candidates CandidateStore, log zerolog.Logger) *AuthService {
	return &AuthService{
		cfg:        cfg,
		accounts:   accounts,
		candidates: candidates,
		log:        log.With().Str("component", "auth_service").Logger(),
	}
}

// Login verifies credentials and returns a signed token plus the
// account. Pending invitations addressed to the account's email are
// linked on every successful login.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.Account, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, apperr.Wrap(apperr.Unexpected, "load account", err)
	}
	if account == nil {
		return "", nil, apperr.E(apperr.Forbidden, "invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", nil, apperr.E(apperr.Forbidden, "invalid email or password")
	}

	if err := s.candidates.LinkAccountByEmail(ctx, account.Email, account.ID); err != nil {
		// Linking is retried on the next login; failing the login over
		// it would lock the candidate out entirely.
		s.log.Error().Err(err).
			Str("account_id", account.ID.String()).
			Msg("Failed to link pending invitations")
	}

	token, err := s.generateToken(account)
	if err != nil {
		return "", nil, apperr.Wrap(apperr.Unexpected, "sign token", err)
	}
	return token, account, nil
}

// GetAccount loads the authenticated caller's account.
func (s *AuthService) GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, "load account", err)
	}
	if account == nil {
		return nil, apperr.E(apperr.NotFound, "account not found")
	}
	return account, nil
}

func (s *AuthService) generateToken(account *model.Account) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   account.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		AccountID: account.ID,
		Email:     account.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
