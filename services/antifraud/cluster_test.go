package antifraud

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDetectClusterTooFewAccounts(t *testing.T) {
	r := DetectCluster([]AccountProfile{{UserID: "u1"}})
	require.False(t, r.IsCluster)
	require.Zero(t, r.Confidence)
}

func TestDetectClusterAllIndicators(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	accounts := []AccountProfile{
		{
			UserID:       "u1",
			RegisteredAt: base,
			DownloadIPs:  []string{"1.2.3.4", "1.2.3.4"},
			ResourceIDs:  []string{"r1", "r2", "r3"},
		},
		{
			UserID:       "u2",
			RegisteredAt: base.Add(10 * time.Minute),
			DownloadIPs:  []string{"1.2.3.4", "1.2.3.4"},
			ResourceIDs:  []string{"r1", "r2", "r3"},
		},
	}

	r := DetectCluster(accounts)
	require.True(t, r.IsCluster)
	require.Equal(t, 90, r.Confidence)
	require.Equal(t, []string{
		"multiple accounts share IP",
		"registration intervals too short",
		"highly overlapping downloads",
	}, r.Indicators)
}

func TestDetectClusterSingleIndicatorBelowThreshold(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	accounts := []AccountProfile{
		{
			UserID:       "u1",
			RegisteredAt: base,
			DownloadIPs:  []string{"1.2.3.4", "1.2.3.4"},
			ResourceIDs:  []string{"r1"},
		},
		{
			UserID:       "u2",
			RegisteredAt: base.Add(48 * time.Hour),
			DownloadIPs:  []string{"1.2.3.4", "1.2.3.4"},
			ResourceIDs:  []string{"r9"},
		},
	}

	r := DetectCluster(accounts)
	require.False(t, r.IsCluster)
	require.Equal(t, 30, r.Confidence)
}

func TestDetectClusterOverlapTiersAreExclusive(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	// jaccard = 2/3 ≈ 0.67: mid tier only
	accounts := []AccountProfile{
		{
			UserID:       "u1",
			RegisteredAt: base,
			DownloadIPs:  []string{"1.1.1.1"},
			ResourceIDs:  []string{"r1", "r2", "r3"},
		},
		{
			UserID:       "u2",
			RegisteredAt: base.Add(48 * time.Hour),
			DownloadIPs:  []string{"2.2.2.2"},
			ResourceIDs:  []string{"r1", "r2"},
		},
	}

	r := DetectCluster(accounts)
	require.Equal(t, 20, r.Confidence)
	require.Equal(t, []string{"overlapping downloads"}, r.Indicators)
}

func TestDetectClusterRegistrationBurstAveragesPairwise(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	accounts := []AccountProfile{
		{UserID: "u1", RegisteredAt: base, DownloadIPs: []string{"1.1.1.1"}},
		{UserID: "u2", RegisteredAt: base.Add(30 * time.Minute), DownloadIPs: []string{"2.2.2.2"}},
		{UserID: "u3", RegisteredAt: base.Add(50 * time.Minute), DownloadIPs: []string{"3.3.3.3"}},
	}

	r := DetectCluster(accounts)
	require.Equal(t, 25, r.Confidence)
	require.Equal(t, []string{"registration intervals too short"}, r.Indicators)
}
