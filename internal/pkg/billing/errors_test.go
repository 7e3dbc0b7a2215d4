package billing

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPerOperation(t *testing.T) {
	tests := []struct {
		name   string
		kinds  statusKinds
		status int
		want   Kind
	}{
		{"register conflict", registerKinds, http.StatusConflict, KindAlreadyExists},
		{"register validation", registerKinds, http.StatusBadRequest, KindValidationFailed},
		{"course write conflict", courseWriteKinds, http.StatusConflict, KindCourseAlreadyExists},
		{"course write forbidden", courseWriteKinds, http.StatusForbidden, KindAuthenticationFailed},
		{"pay conflict", payKinds, http.StatusConflict, KindCourseAlreadyPaid},
		{"pay no money", payKinds, http.StatusNotAcceptable, KindNotEnoughMoney},
		{"pay not found", payKinds, http.StatusNotFound, KindCourseNotFound},
		{"unauthorized", authOnly, http.StatusUnauthorized, KindAuthenticationFailed},
		{"unmapped conflict", authOnly, http.StatusConflict, KindServiceUnavailable},
		{"server error", payKinds, http.StatusBadGateway, KindServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify("op", tt.status, nil, tt.kinds).Kind)
		})
	}
}

func TestParseFieldErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{"list per field", `{"username":["a","b"]}`, map[string]string{"username": "a b"}},
		{"string per field", `{"password":"too short"}`, map[string]string{"password": "too short"}},
		{"json in string", `"{\"username\":\"taken\"}"`, map[string]string{"username": "taken"}},
		{"plain list", `["x"]`, map[string]string{"": "x"}},
		{"null", `null`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseFieldErrors([]byte(tt.raw)))
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, KindServiceUnavailable, KindOf(errors.New("plain")))

	wrapped := fmt.Errorf("outer: %w", &Error{Kind: KindNotEnoughMoney, Op: "pay", Status: 406})
	assert.Equal(t, KindNotEnoughMoney, KindOf(wrapped))
	assert.ErrorIs(t, wrapped, ErrNotEnoughMoney)
	assert.NotErrorIs(t, wrapped, ErrCourseAlreadyPaid)
	assert.Contains(t, wrapped.Error(), "status 406")
}
