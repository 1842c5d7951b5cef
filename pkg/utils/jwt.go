package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"oms-backend/pkg/models"
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// JWTService 签发与校验 HS256 令牌
type JWTService struct {
	secretKey []byte
	now       func() time.Time
}

func NewJWTService(secretKey string) *JWTService {
	return &JWTService{secretKey: []byte(secretKey), now: time.Now}
}

// TokenPair 访问令牌 + 刷新令牌
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // access token expiry, unix seconds
}

func (j *JWTService) sign(user *models.User, typ string, ttl time.Duration) (string, int64, error) {
	now := j.now()
	exp := now.Add(ttl)
	claims := &models.TokenClaims{
		UserID:         user.ID,
		Email:          user.Email,
		Role:           user.Role,
		OrganizationID: user.OrganizationID,
		Type:           typ,
		Exp:            exp.Unix(),
		Iat:            now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secretKey)
	if err != nil {
		return "", 0, fmt.Errorf("failed to generate %s token: %w", typ, err)
	}
	return signed, exp.Unix(), nil
}

// GenerateTokenPair 生成访问令牌和刷新令牌对; 角色与组织写入声明
func (j *JWTService) GenerateTokenPair(user *models.User) (TokenPair, error) {
	access, exp, err := j.sign(user, tokenTypeAccess, AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, _, err := j.sign(user, tokenTypeRefresh, RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: exp}, nil
}

func (j *JWTService) GenerateAccessToken(user *models.User) (string, int64, error) {
	return j.sign(user, tokenTypeAccess, AccessTokenTTL)
}

// ValidateToken 验证签名与过期时间
func (j *JWTService) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	}, jwt.WithTimeFunc(j.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if j.now().Unix() > claims.Exp {
		return nil, fmt.Errorf("%w: token expired", ErrInvalidToken)
	}
	return claims, nil
}

// ValidateAccessToken rejects refresh tokens presented as bearer tokens.
func (j *JWTService) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	return j.validateType(tokenString, tokenTypeAccess)
}

func (j *JWTService) ValidateRefreshToken(tokenString string) (*models.TokenClaims, error) {
	return j.validateType(tokenString, tokenTypeRefresh)
}

func (j *JWTService) validateType(tokenString, typ string) (*models.TokenClaims, error) {
	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != typ {
		return nil, fmt.Errorf("%w: expected %s token, got %s", ErrInvalidToken, typ, claims.Type)
	}
	return claims, nil
}
