package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "snapset"

var (
	descSets = prometheus.NewDesc(
		namespace+"_sets_total",
		"File sets handled by the monitor, by result",
		[]string{"result"}, nil,
	)
	descPending = prometheus.NewDesc(
		namespace+"_sets_pending",
		"Sets seen on the last scan that are still waiting for files",
		nil, nil,
	)
	descFilesArchived = prometheus.NewDesc(
		namespace+"_files_archived_total",
		"Source files written into containers",
		nil, nil,
	)
	descMembersSkipped = prometheus.NewDesc(
		namespace+"_members_skipped_total",
		"Source files left out of a container because they could not be read",
		nil, nil,
	)
	descBytes = prometheus.NewDesc(
		namespace+"_bytes_total",
		"Container bytes before (in) and after (out) compression",
		[]string{"direction"}, nil,
	)
	descDeleted = prometheus.NewDesc(
		namespace+"_files_deleted_total",
		"Source files removed by the delete queue, by result",
		[]string{"result"}, nil,
	)
	descVerifyFailed = prometheus.NewDesc(
		namespace+"_verify_failed_total",
		"Representative copies whose digest did not match the source",
		nil, nil,
	)
)

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descSets
	ch <- descPending
	ch <- descFilesArchived
	ch <- descMembersSkipped
	ch <- descBytes
	ch <- descDeleted
	ch <- descVerifyFailed
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.Snapshot()
	counter := func(d *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}

	counter(descSets, s.SetsArchived, "archived")
	counter(descSets, s.SetsFailed, "failed")
	counter(descSets, s.SetsSkipped, "skipped")
	ch <- prometheus.MustNewConstMetric(descPending, prometheus.GaugeValue, float64(s.SetsPending))
	counter(descFilesArchived, s.FilesArchived)
	counter(descMembersSkipped, s.MembersSkipped)
	counter(descBytes, s.BytesIn, "in")
	counter(descBytes, s.BytesOut, "out")
	counter(descDeleted, s.FilesDeleted, "ok")
	counter(descDeleted, s.DeleteFailed, "error")
	counter(descVerifyFailed, s.VerifyFailed)
}

var _ prometheus.Collector = (*Collector)(nil)
