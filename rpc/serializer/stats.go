package serializer

import (
	gometrics "github.com/rcrowley/go-metrics"
)

// Stats summarizes the messages a serializer produced
type Stats struct {
	Messages int64   // number of serialized messages
	MeanSize float64 // mean message size in bytes
	P99Size  float64 // 99th percentile of the message size in bytes
	MaxSize  int64   // largest message in bytes
	Rate     float64 // messages per second since the serializer was created
}

// sizeStats tracks message sizes in a histogram and the message rate in a meter
type sizeStats struct {
	sizes gometrics.Histogram
	rate  gometrics.Meter
}

func newSizeStats() *sizeStats {
	return &sizeStats{
		sizes: gometrics.NewHistogram(gometrics.NewExpDecaySample(1028, 0.015)),
		rate:  gometrics.NewMeter(),
	}
}

func (s *sizeStats) mark(size int) {
	s.sizes.Update(int64(size))
	s.rate.Mark(1)
}

func (s *sizeStats) snapshot() Stats {
	h := s.sizes.Snapshot()
	return Stats{
		Messages: h.Count(),
		MeanSize: h.Mean(),
		P99Size:  h.Percentile(0.99),
		MaxSize:  h.Max(),
		Rate:     s.rate.Snapshot().RateMean(),
	}
}
