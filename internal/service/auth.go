package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdrocha-io/togglr-backend/internal/config"
	"github.com/gdrocha-io/togglr-backend/internal/dto/req"
	"github.com/gdrocha-io/togglr-backend/internal/dto/resp"
	"github.com/gdrocha-io/togglr-backend/internal/model"
	"github.com/gdrocha-io/togglr-backend/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	RefreshTokenTTL = 7 * 24 * time.Hour
	AccessTokenTTL  = 15 * time.Minute
	RedisKeyPrefix  = "togglr:auth:session:"
	Issuer          = "togglr-auth-service"

	TokenTypeUser   = "user"
	TokenTypeClient = "client"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrSessionExpired     = errors.New("session expired")
)

// Claims carries the principal. Users have roles, clients have scopes; both
// are comma separated.
type Claims struct {
	Type    string `json:"type"`
	Roles   string `json:"roles,omitempty"`
	Scopes  string `json:"scopes,omitempty"`
	Refresh bool   `json:"refresh,omitempty"`
	jwt.RegisteredClaims
}

// Actor maps verified claims onto the audit actor. A client token is only
// treated as CLIENT when it carries scopes.
func (c *Claims) Actor() Actor {
	kind := model.ActorUser
	if c.Type == TokenTypeClient && c.Scopes != "" {
		kind = model.ActorClient
	}
	return Actor{Name: c.Subject, Kind: kind, Roles: c.Roles, Scopes: c.Scopes}
}

type AuthService struct {
	redis           redis.UniversalClient
	signedKey       []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	users           map[string]config.UserCredential
	clients         map[string]config.ClientCredential
}

func NewAuthService(rdb redis.UniversalClient, cfg config.AuthConfig) *AuthService {
	secret := cfg.Secret
	if secret == "" {
		secret = uuid.New().String()
		logger.Warn("auth.secret not configured, tokens will not survive a restart")
	}
	accessTTL, refreshTTL := cfg.AccessTokenTTL, cfg.RefreshTokenTTL
	if accessTTL <= 0 {
		accessTTL = AccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = RefreshTokenTTL
	}

	s := &AuthService{
		redis:           rdb,
		signedKey:       []byte(secret),
		accessTokenTTL:  accessTTL,
		refreshTokenTTL: refreshTTL,
		users:           make(map[string]config.UserCredential, len(cfg.Users)),
		clients:         make(map[string]config.ClientCredential, len(cfg.Clients)),
	}
	for _, u := range cfg.Users {
		s.users[u.Username] = u
	}
	for _, c := range cfg.Clients {
		s.clients[c.ClientID] = c
	}
	return s
}

// Login authenticates a console user and returns an access/refresh pair.
func (s *AuthService) Login(ctx context.Context, body req.LoginReq) (*resp.TokenResp, error) {
	user, ok := s.users[body.Username]
	if !ok || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.generateTokens(ctx, Claims{Type: TokenTypeUser, Roles: user.Roles}, user.Username)
	if err != nil {
		return nil, err
	}
	tokens.User = &resp.UserInfo{Username: user.Username, Roles: user.Roles}
	return tokens, nil
}

// ClientLogin authenticates a machine client. Clients get an access token
// only and log in again when it expires.
func (s *AuthService) ClientLogin(_ context.Context, body req.ClientLoginReq) (*resp.TokenResp, error) {
	client, ok := s.clients[body.ClientID]
	if !ok || bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(body.ClientSecret)) != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.sign(Claims{Type: TokenTypeClient, Scopes: client.Scopes}, client.ClientID, s.accessTokenTTL)
	if err != nil {
		return nil, err
	}
	return &resp.TokenResp{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.accessTokenTTL.Seconds()),
		Client:      &resp.ClientInfo{ClientID: client.ClientID, Scopes: client.Scopes},
	}, nil
}

// Refresh handles token rotation using the Refresh Token
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*resp.TokenResp, error) {
	claims, err := s.parse(refreshToken)
	if err != nil || !claims.Refresh {
		return nil, ErrTokenInvalid
	}

	storedToken, err := s.redis.Get(ctx, s.sessionKey(claims.Subject)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, err
	}
	if storedToken != refreshToken {
		return nil, ErrTokenInvalid
	}

	return s.generateTokens(ctx, Claims{Type: claims.Type, Roles: claims.Roles}, claims.Subject)
}

func (s *AuthService) Logout(ctx context.Context, subject string) error {
	return s.redis.Del(ctx, s.sessionKey(subject)).Err()
}

// ParseAccessToken verifies signature and expiry and rejects refresh tokens.
func (s *AuthService) ParseAccessToken(token string) (*Claims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	if claims.Refresh {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (s *AuthService) parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.signedKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(Issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (s *AuthService) sessionKey(subject string) string {
	return RedisKeyPrefix + subject
}

func (s *AuthService) sign(claims Claims, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    Issuer,
		ID:        uuid.New().String(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signedKey)
}

func (s *AuthService) generateTokens(ctx context.Context, claims Claims, subject string) (*resp.TokenResp, error) {
	claims.Refresh = false
	accessToken, err := s.sign(claims, subject, s.accessTokenTTL)
	if err != nil {
		return nil, err
	}

	claims.Refresh = true
	refreshToken, err := s.sign(claims, subject, s.refreshTokenTTL)
	if err != nil {
		return nil, err
	}

	// Refresh tokens are allow-listed; one live session per subject.
	if err := s.redis.Set(ctx, s.sessionKey(subject), refreshToken, s.refreshTokenTTL).Err(); err != nil {
		logger.Error("failed to store refresh session", zap.String("subject", subject), zap.Error(err))
		return nil, err
	}

	return &resp.TokenResp{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.accessTokenTTL.Seconds()),
	}, nil
}

// HashSecret produces the bcrypt hash stored in configuration for users and
// clients.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
