package volume

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ChannelStats summarizes the sample distribution of a single channel.
type ChannelStats struct {
	// Channel is the channel index along the C axis
	Channel int

	// Min and Max are the extreme sample values
	Min float64
	Max float64

	// Mean is the arithmetic mean over all (Z, X, Y) samples
	Mean float64

	// StdDev is the sample standard deviation
	StdDev float64
}

// Stats computes summary statistics for every channel. Channels without
// samples yield zero-valued entries.
func (v *Volume) Stats() []ChannelStats {
	stats := make([]ChannelStats, v.C)
	for c := 0; c < v.C; c++ {
		samples, _ := v.ChannelSamples(c)
		stats[c] = summarize(c, samples)
	}
	return stats
}

// ChannelStats computes summary statistics for one channel.
func (v *Volume) ChannelStats(c int) (ChannelStats, error) {
	samples, err := v.ChannelSamples(c)
	if err != nil {
		return ChannelStats{}, err
	}
	return summarize(c, samples), nil
}

func summarize(c int, samples []float64) ChannelStats {
	if len(samples) == 0 {
		return ChannelStats{Channel: c}
	}

	return ChannelStats{
		Channel: c,
		Min:     floats.Min(samples),
		Max:     floats.Max(samples),
		Mean:    stat.Mean(samples, nil),
		StdDev:  stat.StdDev(samples, nil),
	}
}
