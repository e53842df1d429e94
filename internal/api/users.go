/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/friendsincode/mimir_calendar/internal/auth"
	"github.com/friendsincode/mimir_calendar/internal/models"
)

type userRegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userUpdateRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type apiKeyCreateRequest struct {
	Name          string `json:"name"`
	ExpiresInDays int    `json:"expires_in_days"`
}

func (a *API) handleUserRegister(w http.ResponseWriter, r *http.Request) {
	var req userRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username_required")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email_required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password_too_short")
		return
	}

	var count int64
	if err := a.db.WithContext(r.Context()).Model(&models.User{}).
		Where("username = ? OR email = ?", req.Username, req.Email).
		Count(&count).Error; err != nil {
		a.logger.Error().Err(err).Msg("user uniqueness check failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if count > 0 {
		writeError(w, http.StatusConflict, "user_exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		a.logger.Error().Err(err).Msg("password hash failed")
		writeError(w, http.StatusInternalServerError, "hash_error")
		return
	}

	user := models.User{
		ID:       uuid.NewString(),
		Username: req.Username,
		Email:    req.Email,
		Password: string(hash),
		Role:     models.RoleMember,
	}

	if err := a.db.WithContext(r.Context()).Create(&user).Error; err != nil {
		a.logger.Error().Err(err).Msg("create user failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user registered")

	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleUserLogin(w http.ResponseWriter, r *http.Request) {
	var req userLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	var user models.User
	result := a.db.WithContext(r.Context()).First(&user, "username = ?", strings.TrimSpace(req.Username))
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if result.Error != nil {
		a.logger.Error().Err(result.Error).Msg("login lookup failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	token, err := auth.Issue(a.jwtSecret, auth.Claims{
		UserID: user.ID,
		Roles:  []string{string(user.Role)},
	}, a.cfg.TokenTTL)
	if err != nil {
		a.logger.Error().Err(err).Msg("token issue failed")
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_in": int(a.cfg.TokenTTL.Seconds()),
		"user":       user,
	})
}

func (a *API) handleUsersList(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	if err := a.db.WithContext(r.Context()).Order("created_at ASC").Find(&users).Error; err != nil {
		a.logger.Error().Err(err).Msg("list users failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) handleUserGet(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var user models.User
	result := a.db.WithContext(r.Context()).First(&user, "id = ?", claims.UserID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if result.Error != nil {
		a.logger.Error().Err(result.Error).Msg("get user failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleUserUpdate(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req userUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	var user models.User
	result := a.db.WithContext(r.Context()).First(&user, "id = ?", claims.UserID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if result.Error != nil {
		a.logger.Error().Err(result.Error).Msg("get user failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	updates := map[string]any{}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email == "" {
			writeError(w, http.StatusBadRequest, "email_required")
			return
		}
		updates["email"] = email
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			writeError(w, http.StatusBadRequest, "password_too_short")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			a.logger.Error().Err(err).Msg("password hash failed")
			writeError(w, http.StatusInternalServerError, "hash_error")
			return
		}
		updates["password"] = string(hash)
	}

	if len(updates) > 0 {
		if err := a.db.WithContext(r.Context()).Model(&user).Updates(updates).Error; err != nil {
			a.logger.Error().Err(err).Msg("update user failed")
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
	}

	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleUserDelete(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// Events and API keys go with the account.
	tx := a.db.WithContext(r.Context()).Begin()
	if err := tx.Where("user_id = ?", claims.UserID).Delete(&models.Event{}).Error; err != nil {
		tx.Rollback()
		a.logger.Error().Err(err).Msg("delete user events failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if err := tx.Where("user_id = ?", claims.UserID).Delete(&models.APIKey{}).Error; err != nil {
		tx.Rollback()
		a.logger.Error().Err(err).Msg("delete user api keys failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if err := tx.Delete(&models.User{}, "id = ?", claims.UserID).Error; err != nil {
		tx.Rollback()
		a.logger.Error().Err(err).Msg("delete user failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	tx.Commit()

	a.logger.Info().Str("user_id", claims.UserID).Msg("user deleted")

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAPIKeysList(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	keys, err := auth.ListAPIKeys(a.db.WithContext(r.Context()), claims.UserID)
	if err != nil {
		a.logger.Error().Err(err).Msg("list api keys failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, keys)
}

func (a *API) handleAPIKeyCreate(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req apiKeyCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}

	var expiresIn time.Duration
	if req.ExpiresInDays > 0 {
		expiresIn = time.Duration(req.ExpiresInDays) * 24 * time.Hour
	}

	plaintext, apiKey, err := auth.GenerateAPIKey(claims.UserID, req.Name, expiresIn)
	if err != nil {
		a.logger.Error().Err(err).Msg("generate api key failed")
		writeError(w, http.StatusInternalServerError, "key_generation_failed")
		return
	}

	if err := a.db.WithContext(r.Context()).Create(apiKey).Error; err != nil {
		a.logger.Error().Err(err).Msg("store api key failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	// The plaintext key is shown exactly once.
	writeJSON(w, http.StatusCreated, map[string]any{
		"key":     plaintext,
		"api_key": apiKey,
	})
}

func (a *API) handleAPIKeyRevoke(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	keyID := chi.URLParam(r, "keyID")
	if keyID == "" {
		writeError(w, http.StatusBadRequest, "key_id_required")
		return
	}

	err := auth.RevokeAPIKey(a.db.WithContext(r.Context()), keyID, claims.UserID)
	if errors.Is(err, auth.ErrAPIKeyNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("revoke api key failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
