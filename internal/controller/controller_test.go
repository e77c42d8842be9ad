package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lumenlms/lumen/internal/apperr"
	"github.com/lumenlms/lumen/internal/dto"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		code apperr.Code
		want int
	}{
		{apperr.CodeNotAvailable, http.StatusForbidden},
		{apperr.CodeQuizDisabled, http.StatusForbidden},
		{apperr.CodeForbidden, http.StatusForbidden},
		{apperr.CodeQuizNotFound, http.StatusNotFound},
		{apperr.CodeAttemptNotFound, http.StatusNotFound},
		{apperr.CodeQuestionNotFound, http.StatusNotFound},
		{apperr.CodeMaxAttemptsReached, http.StatusConflict},
		{apperr.CodeRetakeNotAllowed, http.StatusConflict},
		{apperr.CodeAttemptAlreadyInProgress, http.StatusConflict},
		{apperr.CodeAttemptAlreadyCompleted, http.StatusConflict},
		{apperr.CodeConcurrentConflict, http.StatusConflict},
		{apperr.CodeDataIntegrity, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.code); got != tc.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tc.code, got, tc.want)
		}
	}
}

func respond(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	RespondError(c, err)
	return rec
}

func TestRespondErrorEnvelope(t *testing.T) {
	rec := respond(apperr.ErrMaxAttemptsReached)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var body dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Code != string(apperr.CodeMaxAttemptsReached) {
		t.Errorf("code = %q, want %q", body.Code, apperr.CodeMaxAttemptsReached)
	}
	if body.Error == "" {
		t.Error("error message missing")
	}
}

func TestRespondErrorHidesInternals(t *testing.T) {
	rec := respond(errors.New("pq: connection refused"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body dto.ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error != "Internal server error" {
		t.Errorf("plain errors must not leak details, got %q", body.Error)
	}

	rec = respond(apperr.New(apperr.CodeDataIntegrity, "response references unknown question"))
	var integrity dto.ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &integrity)
	if integrity.Error != "Internal server error" {
		t.Errorf("data-integrity details must not leak, got %q", integrity.Error)
	}
}
