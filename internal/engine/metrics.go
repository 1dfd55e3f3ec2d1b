package engine

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	commands *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(s *Server, reg prometheus.Registerer) *metrics {
	m := &metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flashsim",
			Name:      "commands_total",
			Help:      "Commands processed, by command name.",
		}, []string{"command"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flashsim",
			Name:      "command_errors_total",
			Help:      "Commands that returned an error reply, by command name.",
		}, []string{"command"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flashsim",
			Name:      "command_duration_seconds",
			Help:      "Command execution time.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"command"}),
	}
	if reg != nil {
		reg.MustRegister(m.commands, m.errors, m.duration, &keyspaceCollector{srv: s})
	}
	return m
}

func (m *metrics) observe(command string, start time.Time, failed bool) {
	m.commands.WithLabelValues(command).Inc()
	m.duration.WithLabelValues(command).Observe(time.Since(start).Seconds())
	if failed {
		m.errors.WithLabelValues(command).Inc()
	}
}

var (
	dbKeysDesc = prometheus.NewDesc("flashsim_db_keys",
		"Live keys per logical database.", []string{"db"}, nil)
	dbExpiresDesc = prometheus.NewDesc("flashsim_db_expiring_keys",
		"Live keys with an expiry per logical database.", []string{"db"}, nil)
	dirtyDesc = prometheus.NewDesc("flashsim_changes_since_last_save",
		"Keyspace changes since the last SAVE or BGSAVE.", nil, nil)
	lastSaveDesc = prometheus.NewDesc("flashsim_last_save_timestamp_seconds",
		"Unix time of the last SAVE or BGSAVE.", nil, nil)
)

// keyspaceCollector reads database sizes at scrape time.
type keyspaceCollector struct {
	srv *Server
}

func (c *keyspaceCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- dbKeysDesc
	ch <- dbExpiresDesc
	ch <- dirtyDesc
	ch <- lastSaveDesc
}

func (c *keyspaceCollector) Collect(ch chan<- prometheus.Metric) {
	for _, ds := range c.srv.dbStats() {
		db := strconv.Itoa(ds.Index)
		ch <- prometheus.MustNewConstMetric(dbKeysDesc, prometheus.GaugeValue, float64(ds.Keys), db)
		ch <- prometheus.MustNewConstMetric(dbExpiresDesc, prometheus.GaugeValue, float64(ds.Expires), db)
	}
	ch <- prometheus.MustNewConstMetric(dirtyDesc, prometheus.GaugeValue, float64(c.srv.Dirty()))
	ch <- prometheus.MustNewConstMetric(lastSaveDesc, prometheus.GaugeValue, float64(c.srv.LastSave()))
}
