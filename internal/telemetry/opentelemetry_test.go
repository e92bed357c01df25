package telemetry

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordLoginDuration_ExportedThroughRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	mp, err := InitMeterProvider(reg)
	require.NoError(t, err)
	defer Shutdown(context.Background(), mp)

	RecordLoginDuration(context.Background(), 120*time.Millisecond, "success")
	RecordLoginDuration(context.Background(), 80*time.Millisecond, "invalid_credentials")

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if !strings.Contains(mf.GetName(), "login_duration") {
			continue
		}
		found = true
		var total uint64
		for _, m := range mf.GetMetric() {
			total += m.GetHistogram().GetSampleCount()
		}
		assert.EqualValues(t, 2, total)
	}
	assert.True(t, found, "login duration histogram must be exported")
}
