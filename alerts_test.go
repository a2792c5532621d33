package capflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKPIAlertsCriticalRunway(t *testing.T) {
	alerts := KPIAlerts(KPIReport{RunwayMonths: 2})
	assert.Len(t, alerts, 1)
	assert.Equal(t, AlertCritical, alerts[0].Level)
	assert.Equal(t, "runway_months", alerts[0].Metric)
}

func TestKPIAlertsWarningRunwayNotCritical(t *testing.T) {
	alerts := KPIAlerts(KPIReport{RunwayMonths: 5})
	assert.Len(t, alerts, 1)
	assert.Equal(t, AlertWarning, alerts[0].Level)
}

func TestKPIAlertsNoneWhenHealthy(t *testing.T) {
	alerts := KPIAlerts(KPIReport{RunwayMonths: 24, BurnRate: 10000, RevenueConcentrationRisk: 0.3, CashFlowRisk: 0.5})
	assert.Empty(t, alerts)
}

func TestKPIAlertsStacksMultiple(t *testing.T) {
	alerts := KPIAlerts(KPIReport{
		RunwayMonths:             2,
		BurnRate:                 150000,
		RevenueConcentrationRisk: 0.95,
		CashFlowRisk:             3.0,
	})
	assert.Len(t, alerts, 4)

	levels := map[string]AlertLevel{}
	for _, a := range alerts {
		levels[a.Metric] = a.Level
	}
	assert.Equal(t, AlertCritical, levels["runway_months"])
	assert.Equal(t, AlertWarning, levels["burn_rate"])
	assert.Equal(t, AlertWarning, levels["revenue_concentration_risk"])
	assert.Equal(t, AlertInfo, levels["cash_flow_risk"])
}
