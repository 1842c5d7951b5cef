package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"oms-backend/pkg/config"
	"oms-backend/pkg/database"
	"oms-backend/pkg/models"
	"oms-backend/pkg/utils"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	jwt    *utils.JWTService
	client *http.Client

	// overridable in tests
	tokenURL    string
	userInfoURL string
}

// GoogleUser Google用户信息结构
type GoogleUser struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GoogleTokenResponse Google令牌响应结构
type GoogleTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// OAuthRequest OAuth请求结构
type OAuthRequest struct {
	Code  string `json:"code" validate:"required"`
	State string `json:"state,omitempty"`
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config, db database.DatabaseInterface, jwtService *utils.JWTService) *AuthHandler {
	return &AuthHandler{
		config:      cfg,
		db:          db,
		jwt:         jwtService,
		client:      &http.Client{Timeout: 10 * time.Second},
		tokenURL:    googleTokenURL,
		userInfoURL: googleUserInfoURL,
	}
}

// WithGoogleEndpoints points the OAuth exchange at other endpoints.
func (h *AuthHandler) WithGoogleEndpoints(tokenURL, userInfoURL string, client *http.Client) *AuthHandler {
	h.tokenURL, h.userInfoURL = tokenURL, userInfoURL
	if client != nil {
		h.client = client
	}
	return h
}

func (h *AuthHandler) loginResponse(w http.ResponseWriter, status int, user *models.User) {
	pair, err := h.jwt.GenerateTokenPair(user)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to issue tokens")
		return
	}
	utils.WriteJSONResponse(w, status, models.UserLoginResponse{
		User:         *user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.UserRegisterRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if req.Role == "" {
		req.Role = models.RoleMember
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to hash password")
		return
	}
	user := &models.User{
		Email:    req.Email,
		Password: string(hash),
		Name:     strings.TrimSpace(req.Name),
		Provider: "email",
		Role:     req.Role,
	}
	if err := h.db.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, models.ErrConflict) {
			utils.WriteConflictResponse(w, "Email is already registered")
			return
		}
		utils.WriteDomainError(w, r, err)
		return
	}

	if req.Role == models.RoleOrganization {
		org := &models.Organization{
			Name:        strings.TrimSpace(req.OrganizationName),
			Description: req.OrganizationDescription,
			Email:       user.Email,
			OwnerID:     user.ID,
			Status:      models.OrganizationPending,
			Tags:        normalizeTags(req.OrganizationTags),
		}
		if err := h.db.CreateOrganization(r.Context(), org); err != nil {
			utils.WriteDomainError(w, r, fmt.Errorf("create organization application: %w", err))
			return
		}
		user.OrganizationID = org.ID
		user.Password = ""
		if err := h.db.UpdateUser(r.Context(), user); err != nil {
			utils.WriteDomainError(w, r, err)
			return
		}
	}

	slog.InfoContext(r.Context(), "user registered", "module", "handlers.auth", "operation", "register", "uid", user.ID, "role", user.Role)
	h.loginResponse(w, http.StatusCreated, user)
}

// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.UserLoginRequest
	if !decodeValid(w, r, &req) {
		return
	}
	user, err := h.db.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			utils.WriteUnauthorizedResponse(w, "Invalid email or password")
			return
		}
		utils.WriteDomainError(w, r, err)
		return
	}
	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid email or password")
		return
	}
	h.loginResponse(w, http.StatusOK, user)
}

// POST /api/auth/refresh
// The user is reloaded so role and organization changes reach the new tokens.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshTokenRequest
	if !decodeValid(w, r, &req) {
		return
	}
	claims, err := h.jwt.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid or expired refresh token")
		return
	}
	user, err := h.db.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			utils.WriteUnauthorizedResponse(w, "Invalid or expired refresh token")
			return
		}
		utils.WriteDomainError(w, r, err)
		return
	}
	h.loginResponse(w, http.StatusOK, user)
}

// GET /api/auth/oauth/google
// Returns the consent URL with a signed state for the client to redirect to.
func (h *AuthHandler) GoogleAuthURL(w http.ResponseWriter, r *http.Request) {
	if h.config.GoogleClientID == "" {
		utils.WriteErrorResponseWithCode(w, http.StatusServiceUnavailable, "OAUTH_UNAVAILABLE", "Google sign-in is not configured", nil)
		return
	}
	state, err := utils.SignState(h.config.JWTSecret)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create state")
		return
	}
	q := url.Values{}
	q.Set("client_id", h.config.GoogleClientID)
	q.Set("redirect_uri", h.config.OAuthRedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	utils.WriteSuccessResponse(w, map[string]string{"url": googleAuthURL + "?" + q.Encode(), "state": state})
}

// POST /api/auth/oauth/google
func (h *AuthHandler) GoogleOAuth(w http.ResponseWriter, r *http.Request) {
	var req OAuthRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if req.State != "" && !utils.VerifyState(h.config.JWTSecret, req.State) {
		utils.WriteBadRequestResponse(w, "Invalid OAuth state")
		return
	}
	if h.config.GoogleClientID == "" || h.config.GoogleClientSecret == "" {
		utils.WriteErrorResponseWithCode(w, http.StatusServiceUnavailable, "OAUTH_UNAVAILABLE", "Google sign-in is not configured", nil)
		return
	}

	accessToken, err := h.exchangeGoogleCode(r.Context(), req.Code)
	if err != nil {
		slog.WarnContext(r.Context(), "google code exchange failed", "module", "handlers.auth", "operation", "google_oauth", "error", err)
		utils.WriteUnauthorizedResponse(w, "Google authorization failed")
		return
	}
	info, err := h.getGoogleUserInfo(r.Context(), accessToken)
	if err != nil {
		slog.WarnContext(r.Context(), "google userinfo failed", "module", "handlers.auth", "operation", "google_oauth", "error", err)
		utils.WriteUnauthorizedResponse(w, "Google authorization failed")
		return
	}
	if info.Email == "" {
		utils.WriteUnauthorizedResponse(w, "Google account has no email")
		return
	}
	user, err := h.findOrCreateUser(r.Context(), info)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	h.loginResponse(w, http.StatusOK, user)
}

// exchangeGoogleCode 使用授权码换取访问令牌
func (h *AuthHandler) exchangeGoogleCode(ctx context.Context, code string) (string, error) {
	data := url.Values{}
	data.Set("client_id", h.config.GoogleClientID)
	data.Set("client_secret", h.config.GoogleClientSecret)
	data.Set("code", code)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", h.config.OAuthRedirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to exchange code: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("google token exchange failed (%d): %s", resp.StatusCode, body)
	}
	var tokenResp GoogleTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("empty access token from google")
	}
	return tokenResp.AccessToken, nil
}

// getGoogleUserInfo 使用访问令牌获取用户信息
func (h *AuthHandler) getGoogleUserInfo(ctx context.Context, accessToken string) (*GoogleUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("google user info request failed (%d): %s", resp.StatusCode, body)
	}
	var user GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &user, nil
}

// findOrCreateUser 查找或创建用户; 新用户角色为 member
func (h *AuthHandler) findOrCreateUser(ctx context.Context, info *GoogleUser) (*models.User, error) {
	user, err := h.db.GetUserByEmail(ctx, info.Email)
	if err == nil {
		changed := false
		if user.Name == "" && info.Name != "" {
			user.Name, changed = info.Name, true
		}
		if user.Photo == "" && info.Picture != "" {
			user.Photo, changed = info.Picture, true
		}
		if changed {
			user.Password = ""
			if err := h.db.UpdateUser(ctx, user); err != nil {
				return nil, fmt.Errorf("failed to update user: %w", err)
			}
		}
		return user, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	newUser := &models.User{
		Email:    info.Email,
		Name:     info.Name,
		Photo:    info.Picture,
		Provider: "google",
		Role:     models.RoleMember,
	}
	if err := h.db.CreateUser(ctx, newUser); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	slog.InfoContext(ctx, "created oauth user", "module", "handlers.auth", "operation", "google_oauth", "uid", newUser.ID)
	return newUser, nil
}

// GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := currentUser(w, r)
	if !ok {
		return
	}
	user, err := h.db.GetUserByID(r.Context(), caller.ID)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, user)
}

// PUT /api/me
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.UserProfileUpdate
	if !decodeValid(w, r, &req) {
		return
	}
	user, err := h.db.GetUserByID(r.Context(), caller.ID)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Photo != nil {
		user.Photo = strings.TrimSpace(*req.Photo)
	}
	user.Password = ""
	if err := h.db.UpdateUser(r.Context(), user); err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, user)
}
