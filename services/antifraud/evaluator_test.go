package antifraud

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluateSelfDownloadWinsOverFrequency(t *testing.T) {
	// both frequency rules would also trigger; self-download must win
	v := Evaluate(DownloadContext{
		DownloaderID:    "u1",
		UploaderID:      "u1",
		RepeatWithin24h: true,
		ValidCount30d:   5,
	})
	require.False(t, v.IsValid)
	require.Equal(t, TriggerSelfDownload, v.RiskType)
}

func TestEvaluate24hRuleWinsOver30dRule(t *testing.T) {
	v := Evaluate(DownloadContext{
		DownloaderID:    "u1",
		UploaderID:      "u2",
		RepeatWithin24h: true,
		ValidCount30d:   5,
	})
	require.False(t, v.IsValid)
	require.Equal(t, TriggerHighFrequency, v.RiskType)
	require.Contains(t, v.Reason, "24 hours")
}

func TestEvaluate30dBoundary(t *testing.T) {
	// two prior valid downloads: the third still earns
	v := Evaluate(DownloadContext{DownloaderID: "u1", UploaderID: "u2", ValidCount30d: 2})
	require.True(t, v.IsValid)

	// three prior valid downloads: the fourth never earns
	v = Evaluate(DownloadContext{DownloaderID: "u1", UploaderID: "u2", ValidCount30d: 3})
	require.False(t, v.IsValid)
	require.Equal(t, TriggerHighFrequency, v.RiskType)
}

func TestEvaluateValidByDefault(t *testing.T) {
	v := Evaluate(DownloadContext{DownloaderID: "u1", UploaderID: "u2"})
	require.True(t, v.IsValid)
	require.Empty(t, v.Reason)
}
