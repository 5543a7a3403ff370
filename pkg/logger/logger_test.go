package logger

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/timetable-api/pkg/config"
)

func TestNewTestEnvIsNop(t *testing.T) {
	l, err := New(&config.Config{Env: config.EnvTest})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.ErrorLevel))
}

func TestGinMiddlewareLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	router := gin.New()
	router.Use(GinMiddleware(zap.New(core)))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.POST("/api/v1/timetable/generate", func(c *gin.Context) {
		_ = c.Error(errors.New("lock timeout"))
		c.Status(http.StatusInternalServerError)
	})
	router.GET("/api/v1/timetable/runs/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/health", nil),
		httptest.NewRequest(http.MethodPost, "/api/v1/timetable/generate", nil),
		httptest.NewRequest(http.MethodGet, "/api/v1/timetable/runs/abc", nil),
	} {
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Contains(t, entries[1].ContextMap()["errors"], "lock timeout")
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, "/api/v1/timetable/runs/:id", entries[2].ContextMap()["route"])
}
