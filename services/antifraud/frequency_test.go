package antifraud

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectFrequencyAnomaly24hBurst(t *testing.T) {
	v := DetectFrequencyAnomaly(FrequencyStats{Count24h: 101, Total: 101, UniqueDownloaders: 101})
	require.True(t, v.Anomalous)
	require.Contains(t, v.Reason, "24 hours")

	v = DetectFrequencyAnomaly(FrequencyStats{Count24h: 100, Total: 100, UniqueDownloaders: 100})
	require.False(t, v.Anomalous)
}

func TestDetectFrequencyAnomalyLowUniqueRatio(t *testing.T) {
	// 20 downloads by 3 accounts: 15% unique
	v := DetectFrequencyAnomaly(FrequencyStats{Total: 20, UniqueDownloaders: 3})
	require.True(t, v.Anomalous)

	// ratio rule needs more than 10 total downloads
	v = DetectFrequencyAnomaly(FrequencyStats{Total: 10, UniqueDownloaders: 1})
	require.False(t, v.Anomalous)

	// healthy spread
	v = DetectFrequencyAnomaly(FrequencyStats{Total: 20, UniqueDownloaders: 15})
	require.False(t, v.Anomalous)
}

func TestDetectNewAccountBurst(t *testing.T) {
	require.True(t, DetectNewAccountBurst(BurstStats{Total: 11, NewAccountCount: 7}))
	require.False(t, DetectNewAccountBurst(BurstStats{Total: 11, NewAccountCount: 5}))
	require.False(t, DetectNewAccountBurst(BurstStats{Total: 10, NewAccountCount: 10}))
}
