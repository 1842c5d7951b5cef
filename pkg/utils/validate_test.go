package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"oms-backend/pkg/models"
	"oms-backend/pkg/storage"
	"oms-backend/pkg/workflow"
)

func TestValidateStructUsesJSONNames(t *testing.T) {
	t.Parallel()

	details, err := ValidateStruct(&models.UserRegisterRequest{
		Email:    "not-an-email",
		Password: "short",
		Name:     "Sam",
		Role:     models.RoleOrganization,
	})
	if err == nil {
		t.Fatalf("expected validation failure")
	}
	rules := map[string]string{}
	for _, d := range details {
		rules[d.Field] = d.Rule
	}
	if rules["email"] != "email" || rules["password"] != "min" || rules["organizationName"] != "required_if" {
		t.Fatalf("unexpected details: %+v", details)
	}

	if details, err := ValidateStruct(&models.DecisionRequest{Decision: "reject", Reason: "late"}); err != nil || details != nil {
		t.Fatalf("valid decision rejected: %v %+v", err, details)
	}
	if _, err := ValidateStruct(&models.BulkDecisionRequest{Decision: "accept"}); err == nil {
		t.Fatalf("bulk decision without ids should fail")
	}
}

func TestWriteDomainErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    error
		status int
		code   string
	}{
		{models.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{workflow.ErrAlreadyDecided, http.StatusConflict, "ALREADY_DECIDED"},
		{models.ErrConflict, http.StatusConflict, "CONFLICT"},
		{workflow.ErrReasonRequired, http.StatusBadRequest, "REASON_REQUIRED"},
		{workflow.ErrInvalidDecision, http.StatusBadRequest, "INVALID_DECISION"},
		{models.ErrInvalidInput, http.StatusBadRequest, "BAD_REQUEST"},
		{models.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{storage.ErrTooLarge, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
		{storage.ErrUnsupportedType, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE"},
		{storage.ErrNotConfigured, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		WriteDomainError(rec, req, tc.err)

		if rec.Code != tc.status {
			t.Fatalf("%v: status = %d, want %d", tc.err, rec.Code, tc.status)
		}
		var resp APIResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Success || resp.Error == nil || resp.Error.Code != tc.code {
			t.Fatalf("%v: unexpected body %+v", tc.err, resp)
		}
	}
}

func TestWriteListResponseSetsTotal(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteListResponse(rec, []string{"a", "b"}, &Meta{Unread: 1})

	var resp APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Meta == nil || resp.Meta.Total != 2 || resp.Meta.Unread != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
