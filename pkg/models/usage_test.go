package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlan(t *testing.T) {
	assert.Equal(t, PlanFree, ParsePlan(""))
	assert.Equal(t, PlanFree, ParsePlan("gold"))
	assert.Equal(t, PlanProfessional, ParsePlan("professional"))
	assert.Equal(t, PlanEnterprise, ParsePlan("enterprise"))

	assert.False(t, PlanFree.IsUnlimited())
	assert.True(t, PlanEnterprise.IsUnlimited())
}

func TestNewUsageMetric(t *testing.T) {
	limit := 10
	m := NewUsageMetric(4, &limit)
	assert.False(t, m.IsUnlimited)
	require.NotNil(t, m.PercentUsed)
	assert.InDelta(t, 40.0, *m.PercentUsed, 0.001)

	over := NewUsageMetric(12, &limit)
	assert.InDelta(t, 100.0, *over.PercentUsed, 0.001)

	unlimited := NewUsageMetric(7, nil)
	assert.True(t, unlimited.IsUnlimited)
	assert.Nil(t, unlimited.Limit)
	assert.Nil(t, unlimited.PercentUsed)
	assert.Equal(t, 7, unlimited.CurrentUsage)
}

func TestDesignLayout_WithDefaults(t *testing.T) {
	assert.Equal(t, DefaultTableTheme, DesignLayout{}.WithDefaults().TableTheme)
	assert.Equal(t, "TableStyleDark1", DesignLayout{TableTheme: "TableStyleDark1"}.WithDefaults().TableTheme)
}
