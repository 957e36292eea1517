package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	type req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	err := validator.New().Struct(req{Email: "nope"})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, resp.Success)
	assert.Equal(t, []string{
		"field Email is not a valid email",
		"field Password is a required field",
	}, resp.Errors)
	assert.Contains(t, resp.Message, "Password")
}

func TestRender(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	Render(w, r, OK(http.StatusCreated, "created", map[string]string{"id": "1"}))

	require.Equal(t, http.StatusCreated, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(http.StatusCreated), body["statusCode"])
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "created", body["message"])
	assert.Equal(t, map[string]any{"id": "1"}, body["data"])
	assert.NotContains(t, body, "errors")
}

func TestError(t *testing.T) {
	resp := Error(http.StatusUnauthorized, "unauthorized request")

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
}
