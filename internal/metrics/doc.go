// Package metrics provides observability hooks for tracker operations.
//
// Components receive a Recorder through dependency injection. NoopRecorder is
// the default and does nothing; PrometheusRecorder registers collectors on a
// registry that the daemon serves at /metrics.
//
//	recorder := metrics.NewPrometheusRecorder(reg)
//	svc := service.New(store, service.WithRecorder(recorder))
package metrics
