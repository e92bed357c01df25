package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Collectors are created eagerly so instrumented code never hits a nil
// metric, e.g. in tests that skip InitCustomMetrics.
var (
	LoginSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "homefin_auth_logins_success_total",
		Help: "Total number of successful logins.",
	})
	LoginFailureTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "homefin_auth_logins_failure_total",
		Help: "Total number of failed logins by error code.",
	}, []string{"reason"})
	BackupCodesConsumedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "homefin_auth_backup_codes_consumed_total",
		Help: "Total number of backup codes consumed.",
	})
	LockoutRejectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "homefin_auth_lockout_rejections_total",
		Help: "Total number of attempts rejected by the lockout guard.",
	})
	RateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "homefin_auth_rate_limited_total",
		Help: "Total number of requests rejected by the rate limiter.",
	}, []string{"limiter"})
	SessionTerminationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "homefin_auth_session_terminations_total",
		Help: "Total number of sessions ended, by cause.",
	}, []string{"cause"})
	UnknownSessionRejectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "homefin_auth_unknown_session_rejections_total",
		Help: "Total number of valid access tokens rejected because their session no longer exists.",
	})
	ActiveSessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "homefin_auth_active_sessions",
		Help: "Approximate number of live sessions created by this process.",
	})
)

// InitCustomMetrics registers the custom Prometheus metrics.
// It should be called once at application startup.
func InitCustomMetrics(reg prometheus.Registerer) {
	if reg == nil {
		log.Error().Msg("Prometheus registry is nil, cannot register custom metrics.")
		return
	}

	collectors := map[string]prometheus.Collector{
		"LoginSuccessTotal":        LoginSuccessTotal,
		"LoginFailureTotal":        LoginFailureTotal,
		"BackupCodesConsumedTotal": BackupCodesConsumedTotal,
		"LockoutRejectionsTotal":   LockoutRejectionsTotal,
		"RateLimitedTotal":         RateLimitedTotal,
		"SessionTerminationsTotal": SessionTerminationsTotal,
		"ActiveSessionsGauge":      ActiveSessionsGauge,

		"UnknownSessionRejectionsTotal": UnknownSessionRejectionsTotal,
	}
	for name, c := range collectors {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Str("metric", name).Msg("Failed to register metric")
		}
	}
	log.Info().Msg("Custom Prometheus metrics registered.")
}
