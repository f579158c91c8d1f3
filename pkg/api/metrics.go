package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// microcliCollector implements prometheus.Collector over the daemon's
// console and audit counters, read on each scrape.
type microcliCollector struct {
	srv *Server

	sessionsActive *prometheus.Desc
	sessionsTotal  *prometheus.Desc
	bytesRead      *prometheus.Desc
	bytesWritten   *prometheus.Desc
	linesTotal     *prometheus.Desc
	auditRecords   *prometheus.Desc
	auditDropped   *prometheus.Desc
	uptime         *prometheus.Desc
}

func newCollector(srv *Server) *microcliCollector {
	return &microcliCollector{
		srv: srv,

		sessionsActive: prometheus.NewDesc(
			"microcli_sessions_active",
			"Current number of console sessions.",
			nil, nil,
		),
		sessionsTotal: prometheus.NewDesc(
			"microcli_sessions_total",
			"Total console sessions accepted.",
			nil, nil,
		),
		bytesRead: prometheus.NewDesc(
			"microcli_bytes_read_total",
			"Total bytes read from console connections.",
			nil, nil,
		),
		bytesWritten: prometheus.NewDesc(
			"microcli_bytes_written_total",
			"Total bytes written to console connections.",
			nil, nil,
		),
		linesTotal: prometheus.NewDesc(
			"microcli_lines_total",
			"Total dispatched lines by outcome.",
			[]string{"outcome"}, nil,
		),
		auditRecords: prometheus.NewDesc(
			"microcli_audit_records_total",
			"Total audit records ever added.",
			nil, nil,
		),
		auditDropped: prometheus.NewDesc(
			"microcli_audit_dropped_total",
			"Total audit records dropped by slow subscribers.",
			nil, nil,
		),
		uptime: prometheus.NewDesc(
			"microcli_uptime_seconds",
			"Seconds since the daemon started.",
			nil, nil,
		),
	}
}

func (c *microcliCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sessionsActive
	ch <- c.sessionsTotal
	ch <- c.bytesRead
	ch <- c.bytesWritten
	ch <- c.linesTotal
	ch <- c.auditRecords
	ch <- c.auditDropped
	ch <- c.uptime
}

func (c *microcliCollector) Collect(ch chan<- prometheus.Metric) {
	if c.srv.cfg.ConsoleStats != nil {
		stats := c.srv.cfg.ConsoleStats()
		ch <- prometheus.MustNewConstMetric(c.sessionsActive, prometheus.GaugeValue,
			float64(stats.SessionsActive))
		ch <- prometheus.MustNewConstMetric(c.sessionsTotal, prometheus.CounterValue,
			float64(stats.SessionsTotal))
		ch <- prometheus.MustNewConstMetric(c.bytesRead, prometheus.CounterValue,
			float64(stats.BytesRead))
		ch <- prometheus.MustNewConstMetric(c.bytesWritten, prometheus.CounterValue,
			float64(stats.BytesWritten))
		for outcome, count := range stats.Lines {
			ch <- prometheus.MustNewConstMetric(c.linesTotal, prometheus.CounterValue,
				float64(count), outcome)
		}
	}
	if c.srv.cfg.Audit != nil {
		ch <- prometheus.MustNewConstMetric(c.auditRecords, prometheus.CounterValue,
			float64(c.srv.cfg.Audit.Seq()))
		ch <- prometheus.MustNewConstMetric(c.auditDropped, prometheus.CounterValue,
			float64(c.srv.cfg.Audit.Dropped()))
	}
	ch <- prometheus.MustNewConstMetric(c.uptime, prometheus.GaugeValue,
		time.Since(c.srv.cfg.StartTime).Seconds())
}
