package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry and custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metrics are registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.recordsNormalized.Add(2)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_unit_records_normalized_total"], ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording sink outcomes", func() {
			before := testutil.ToFloat64(globalManager.recordsInserted.WithLabelValues("memory"))
			RecordBatchSynced("memory", 3)
			RecordBatchFailed("memory")
			RecordSinkLatency("memory", 12)

			Convey("Then inserted records accumulate", func() {
				after := testutil.ToFloat64(globalManager.recordsInserted.WithLabelValues("memory"))
				So(after-before, ShouldEqual, 3)
			})
		})

		Convey("When recording dropped rows", func() {
			before := testutil.ToFloat64(globalManager.rowsDropped.WithLabelValues("items"))
			RecordRowsDropped("items", 0)
			RecordRowsDropped("items", 2)

			Convey("Then zero counts are ignored", func() {
				So(testutil.ToFloat64(globalManager.rowsDropped.WithLabelValues("items"))-before, ShouldEqual, 2)
			})
		})

		Convey("When recording queue and HTTP metrics", func() {
			So(func() {
				UpdateQueueSize(4)
				UpdateQueueCapacity(10)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueRejected("full")
				UpdateWorkerCount(2)
				RecordWorkerFailure()
				AddCollectorBuffered(1)
				AddCollectorBuffered(-1)
				RecordNormalized(5)
				RecordFormatError("shape")
				RecordHTTPRequest("food-waste", "POST", "200", 3)
				RecordErrorByEndpoint("food-waste", "POST", "client_error")
			}, ShouldNotPanic)
			So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 4)
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
