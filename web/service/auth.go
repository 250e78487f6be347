package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dicoevent/dicoevent/logger"
	"github.com/dicoevent/dicoevent/util/random"
	"github.com/dicoevent/dicoevent/web/entity"
	"github.com/dicoevent/dicoevent/web/permission"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// ErrInvalidToken is returned for expired, malformed or wrongly typed tokens.
var ErrInvalidToken = errors.New("token is invalid or expired")

type tokenClaims struct {
	TokenType string `json:"token_type"`
	Username  string `json:"username"`
	jwt.RegisteredClaims
}

// AuthService issues and verifies HS256 bearer tokens.
type AuthService struct {
	users      *UserService
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthService(users *UserService, secret string, accessTTL, refreshTTL time.Duration) *AuthService {
	if secret == "" {
		secret = random.Seq(48)
		logger.Warning("No JWT secret configured, using a random one; tokens will not survive a restart")
	}
	return &AuthService{
		users:      users,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Login exchanges credentials for an access and a refresh token.
func (s *AuthService) Login(ctx context.Context, in *entity.TokenInput) (*entity.TokenPair, error) {
	u, err := s.users.Authenticate(ctx, in.Username, in.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			logger.Warningf("Failed login for %s", in.Username)
		}
		return nil, err
	}
	access, err := s.sign(u.Id, u.Username, tokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(u.Id, u.Username, tokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &entity.TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh issues a new access token from a valid refresh token.
func (s *AuthService) Refresh(ctx context.Context, in *entity.RefreshInput) (*entity.TokenPair, error) {
	claims, err := s.parse(in.Refresh, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	id, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	// the account may have been removed since the refresh token was issued
	if _, err := s.users.LoadActor(ctx, id); err != nil {
		return nil, err
	}
	access, err := s.sign(id, claims.Username, tokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	return &entity.TokenPair{Access: access}, nil
}

// Actor resolves an access token to the current principal.
func (s *AuthService) Actor(ctx context.Context, token string) (*permission.Actor, error) {
	claims, err := s.parse(token, tokenTypeAccess)
	if err != nil {
		return nil, err
	}
	id, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return s.users.LoadActor(ctx, id)
}

func (s *AuthService) sign(id int, username, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		TokenType: tokenType,
		Username:  username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(id),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        random.Seq(16),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *AuthService) parse(token, tokenType string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
