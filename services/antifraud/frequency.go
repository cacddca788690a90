package antifraud

import "fmt"

// FrequencyStats are rolling download counts for one resource.
type FrequencyStats struct {
	Count24h          int64 `json:"count24h"`
	Count7d           int64 `json:"count7d"`
	Count30d          int64 `json:"count30d"`
	Total             int64 `json:"total"`
	UniqueDownloaders int64 `json:"uniqueDownloaders"`
}

func (s FrequencyStats) UniqueRatio() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.UniqueDownloaders) / float64(s.Total)
}

type FrequencyVerdict struct {
	Anomalous bool
	Reason    string
}

const (
	burstLimit24h      = 100
	minTotalForRatio   = 10
	minUniqueRatio     = 0.3
	minBurstTotal      = 10
	newAccountMaxRatio = 0.5
)

// DetectFrequencyAnomaly flags a resource whose downloads are bursty or
// dominated by a small set of repeat downloaders.
func DetectFrequencyAnomaly(s FrequencyStats) FrequencyVerdict {
	if s.Count24h > burstLimit24h {
		return FrequencyVerdict{
			Anomalous: true,
			Reason:    fmt.Sprintf("%d downloads in 24 hours", s.Count24h),
		}
	}
	if s.Total > minTotalForRatio && s.UniqueRatio() < minUniqueRatio {
		return FrequencyVerdict{
			Anomalous: true,
			Reason:    fmt.Sprintf("unique downloader ratio %.0f%% across %d downloads", s.UniqueRatio()*100, s.Total),
		}
	}
	return FrequencyVerdict{}
}

// BurstStats describes recent downloads of one resource split by account
// age.
type BurstStats struct {
	Total           int64 `json:"total"`
	NewAccountCount int64 `json:"newAccountCount"`
}

// DetectNewAccountBurst flags a resource whose recent downloads come
// mostly from accounts registered in the last week.
func DetectNewAccountBurst(s BurstStats) bool {
	if s.Total <= minBurstTotal {
		return false
	}
	return float64(s.NewAccountCount)/float64(s.Total) > newAccountMaxRatio
}
