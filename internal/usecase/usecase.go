package usecase

import "time"

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// UploadMetrics receives upload outcomes. *metrics.Metrics satisfies it.
type UploadMetrics interface {
	ObserveUpload(kind string, d time.Duration, err error)
	AddStagedBytes(n int64)
}

type SweepMetrics interface {
	ObserveSweep(scanned, deleted int, err error)
}

type nopMetrics struct{}

func (nopMetrics) ObserveUpload(string, time.Duration, error) {}
func (nopMetrics) AddStagedBytes(int64) {}
func (nopMetrics) ObserveSweep(int, int, error) {}
