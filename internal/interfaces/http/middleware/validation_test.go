package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arqcashflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validationPayload struct {
	Name  string `json:"name" binding:"required,max=5"`
	Count int    `json:"count" binding:"omitempty,min=1"`
}

func TestHandleValidationError_Details(t *testing.T) {
	require.NoError(t, SetupValidator())

	engine := gin.New()
	engine.POST("/", func(c *gin.Context) {
		var p validationPayload
		if err := c.ShouldBindJSON(&p); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"toolongname","count":0}`))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "name", resp.Error.Details[0].Field)
	assert.Equal(t, "Must be at most 5 characters", resp.Error.Details[0].Message)
}

func TestIsoDateRule(t *testing.T) {
	require.NoError(t, SetupValidator())

	engine := gin.New()
	engine.GET("/", func(c *gin.Context) {
		var q struct {
			Day string `form:"day" binding:"omitempty,isodate"`
		}
		if err := c.ShouldBindQuery(&q); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	for query, want := range map[string]int{
		"":               http.StatusOK,
		"day=2024-02-29": http.StatusOK,
		"day=2024-13-01": http.StatusBadRequest,
		"day=29/02/2024": http.StatusBadRequest,
	} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?"+query, nil))
		assert.Equal(t, want, w.Code, query)
	}
}

func TestHandleValidationError_NonValidation(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleValidationError(c, errors.New("unexpected EOF"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeBadRequest, errorCode(t, w))
}
