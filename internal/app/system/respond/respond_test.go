package respond_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/gamerie/internal/app/system/apperr"
	"github.com/dalemusser/gamerie/internal/app/system/limits"
	"github.com/dalemusser/gamerie/internal/app/system/notify"
	"github.com/dalemusser/gamerie/internal/app/system/respond"
	"go.uber.org/zap"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.KindValidation, http.StatusBadRequest},
		{apperr.KindReset, http.StatusBadRequest},
		{apperr.KindLogin, http.StatusUnauthorized},
		{apperr.KindUnauthorized, http.StatusUnauthorized},
		{apperr.KindNotFound, http.StatusNotFound},
		{apperr.KindProfileMissing, http.StatusNotFound},
		{apperr.KindConflict, http.StatusConflict},
		{apperr.KindRegistration, http.StatusConflict},
		{apperr.KindUpload, http.StatusBadGateway},
		{apperr.KindStorageDelete, http.StatusBadGateway},
		{apperr.KindStoreWrite, http.StatusInternalServerError},
		{apperr.KindFailure, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := respond.Status(tt.kind); got != tt.want {
			t.Errorf("Status(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestDecode(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"alice"}`))
	if err := respond.Decode(r, &v); err != nil || v.Name != "alice" {
		t.Fatalf("Decode = %v, %+v", err, v)
	}

	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"alice","admin":true}`))
	if err := respond.Decode(r, &v); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("unknown field: err = %v", err)
	}

	big := `{"name":"` + strings.Repeat("a", limits.MaxJSONBody) + `"}`
	r = httptest.NewRequest("POST", "/", strings.NewReader(big))
	if err := respond.Decode(r, &v); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("oversized body: err = %v", err)
	}
}

func TestOK_TakesMessageFromNotification(t *testing.T) {
	n := notify.New(zap.NewNop(), nil)
	var body respond.Body

	h := respond.Collect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n.Success(r.Context(), "addGame", "Game added successfully")
		respond.OK(w, r, "", map[string]string{"id": "g1"})
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Message != "Game added successfully" || len(body.Notifications) != 1 {
		t.Errorf("body = %+v", body)
	}
}

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()
	respond.Error(rec, httptest.NewRequest("GET", "/", nil),
		apperr.New(apperr.KindNotFound, "getProfile", "Profile not found", nil), "fallback")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"message":"Profile not found"`) {
		t.Errorf("typed error: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	respond.Error(rec, httptest.NewRequest("GET", "/", nil), errors.New("boom"), "Something went wrong")
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "Something went wrong") {
		t.Errorf("plain error: %d %s", rec.Code, rec.Body.String())
	}
}
