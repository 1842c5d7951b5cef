package handlers

import (
	"net/http"
	"strings"

	chiRoute "github.com/go-chi/chi/v5"

	"oms-backend/pkg/middleware"
	"oms-backend/pkg/models"
	"oms-backend/pkg/utils"
)

// currentUser returns the authenticated caller or writes 401.
func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return nil, false
	}
	return user, true
}

// decodeValid parses the JSON body into v and runs struct validation.
func decodeValid(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := utils.ParseJSONBody(r, v); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return false
	}
	details, err := utils.ValidateStruct(v)
	if err != nil {
		if details == nil {
			utils.WriteBadRequestResponse(w, err.Error())
			return false
		}
		utils.WriteValidationErrorResponse(w, "Request validation failed", details)
		return false
	}
	return true
}

// pathID reads a required chi URL parameter.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := strings.TrimSpace(chiRoute.URLParam(r, name))
	if id == "" {
		utils.WriteBadRequestResponse(w, name+" is required")
		return "", false
	}
	return id, true
}

// canManageOrg: the organization's officer or an admin.
func canManageOrg(user *models.User, orgID string) bool {
	return user.Role == models.RoleAdmin || user.IsOfficerOf(orgID)
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
