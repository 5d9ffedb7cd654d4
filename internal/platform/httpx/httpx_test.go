package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubFailure struct{ code string }

func (f stubFailure) Error() string         { return "job JOB001 cannot close" }
func (f stubFailure) FailureCode() string   { return f.code }
func (f stubFailure) FailureEntity() string { return "job" }
func (f stubFailure) FailureRef() string    { return "JOB001" }

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) ProblemDetail {
	t.Helper()
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var p ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestRespondErrorMapsFailures(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, fmt.Errorf("close: %w", stubFailure{code: "rule_violation"}))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	p := decodeProblem(t, rec)
	require.Equal(t, "rule_violation", p.Code)
	require.Equal(t, "job", p.Entity)
	require.Equal(t, "JOB001", p.Ref)

	rec = httptest.NewRecorder()
	RespondError(rec, stubFailure{code: "mystery"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRespondErrorSentinels(t *testing.T) {
	cases := map[error]int{
		ErrNotFound:                 http.StatusNotFound,
		ErrConflict:                 http.StatusConflict,
		ErrValidation:               http.StatusBadRequest,
		ErrUnauthorized:             http.StatusUnauthorized,
		errors.New("database gone"): http.StatusInternalServerError,
	}
	for err, status := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, err)
		require.Equal(t, status, rec.Code, err.Error())
		p := decodeProblem(t, rec)
		require.Equal(t, status, p.Status)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var target struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Acme","extra":true}`))
	require.ErrorIs(t, DecodeJSON(req, &target), ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Acme"}`))
	require.NoError(t, DecodeJSON(req, &target))
	require.Equal(t, "Acme", target.Name)
}
