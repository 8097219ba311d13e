package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reportly-app/reportly/pkg/models"
)

func TestUsageHandler_Get(t *testing.T) {
	limit := 10
	svc := &mockUsageService{usage: &models.Usage{
		Plan:    models.PlanFree,
		Reports: models.NewUsageMetric(4, &limit),
		Scripts: models.NewUsageMetric(2, nil),
	}}
	mux := http.NewServeMux()
	NewUsageHandler(svc, zap.NewNop()).RegisterRoutes(mux, testAuthMiddleware(testUserID), passthroughUser)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/usage", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var usage models.Usage
	decodeData(t, rec.Body, &usage)
	assert.Equal(t, models.PlanFree, usage.Plan)
	assert.Equal(t, 4, usage.Reports.CurrentUsage)
	require.NotNil(t, usage.Reports.PercentUsed)
	assert.InDelta(t, 40.0, *usage.Reports.PercentUsed, 0.001)
	assert.True(t, usage.Scripts.IsUnlimited)
}
