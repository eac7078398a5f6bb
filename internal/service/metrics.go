// metrics.go — Prometheus-коллектор количественной статистики инсталляции.
// Значения читаются из БД в момент scrape, поэтому не требуют фоновой
// синхронизации.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bigkaa/gometastore/internal/repository"
)

// statsQueryTimeout — предел времени запроса статистики при scrape.
const statsQueryTimeout = 3 * time.Second

// SiteStatsCollector — коллектор метрик metastore_site_*.
type SiteStatsCollector struct {
	store  repository.Store
	logger *slog.Logger

	users        *prometheus.Desc
	groups       *prometheus.Desc
	files        *prometheus.Desc
	metadatasets *prometheus.Desc
	submitted    *prometheus.Desc
	submissions  *prometheus.Desc
}

// NewSiteStatsCollector создаёт коллектор статистики.
func NewSiteStatsCollector(store repository.Store, logger *slog.Logger) *SiteStatsCollector {
	return &SiteStatsCollector{
		store:  store,
		logger: logger.With(slog.String("component", "site_stats")),
		users: prometheus.NewDesc("metastore_site_users",
			"Число зарегистрированных пользователей", nil, nil),
		groups: prometheus.NewDesc("metastore_site_groups",
			"Число групп", nil, nil),
		files: prometheus.NewDesc("metastore_site_files",
			"Число файлов в реестре", nil, nil),
		metadatasets: prometheus.NewDesc("metastore_site_metadatasets",
			"Число наборов метаданных", nil, nil),
		submitted: prometheus.NewDesc("metastore_site_metadatasets_submitted",
			"Число отправленных наборов метаданных", nil, nil),
		submissions: prometheus.NewDesc("metastore_site_submissions",
			"Число сабмишенов", nil, nil),
	}
}

// Describe реализует prometheus.Collector.
func (c *SiteStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.users
	ch <- c.groups
	ch <- c.files
	ch <- c.metadatasets
	ch <- c.submitted
	ch <- c.submissions
}

// Collect реализует prometheus.Collector.
func (c *SiteStatsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), statsQueryTimeout)
	defer cancel()

	counts, err := c.store.Stats().Counts(ctx)
	if err != nil {
		c.logger.Warn("Не удалось собрать статистику", slog.String("error", err.Error()))
		return
	}

	ch <- prometheus.MustNewConstMetric(c.users, prometheus.GaugeValue, float64(counts.Users))
	ch <- prometheus.MustNewConstMetric(c.groups, prometheus.GaugeValue, float64(counts.Groups))
	ch <- prometheus.MustNewConstMetric(c.files, prometheus.GaugeValue, float64(counts.Files))
	ch <- prometheus.MustNewConstMetric(c.metadatasets, prometheus.GaugeValue, float64(counts.Metadatasets))
	ch <- prometheus.MustNewConstMetric(c.submitted, prometheus.GaugeValue, float64(counts.Submitted))
	ch <- prometheus.MustNewConstMetric(c.submissions, prometheus.GaugeValue, float64(counts.Submissions))
}
