package antifraud

import "time"

// AccountProfile is the per-account evidence the cluster scorer works on.
type AccountProfile struct {
	UserID       string
	RegisteredAt time.Time
	DownloadIPs  []string
	ResourceIDs  []string
}

type ClusterResult struct {
	IsCluster  bool     `json:"isCluster"`
	Confidence int      `json:"confidence"`
	Indicators []string `json:"indicators"`
}

const (
	weightSharedIP          = 30
	weightRegistrationBurst = 25
	weightHighOverlap       = 35
	weightOverlap           = 20

	clusterThreshold = 60
)

// DetectCluster scores how likely a group of accounts is one actor.
// Indicators are independent and additive; each contributes its fixed
// weight once regardless of how far past the threshold the signal is. The
// result is a heuristic for human review, never grounds for automatic
// punishment.
func DetectCluster(accounts []AccountProfile) ClusterResult {
	if len(accounts) < 2 {
		return ClusterResult{}
	}

	var confidence int
	var indicators []string

	if sharedIPSignal(accounts) {
		confidence += weightSharedIP
		indicators = append(indicators, "multiple accounts share IP")
	}

	if registrationBurstSignal(accounts) {
		confidence += weightRegistrationBurst
		indicators = append(indicators, "registration intervals too short")
	}

	switch overlap := avgJaccardOverlap(accounts); {
	case overlap > 0.7:
		confidence += weightHighOverlap
		indicators = append(indicators, "highly overlapping downloads")
	case overlap > 0.5:
		confidence += weightOverlap
		indicators = append(indicators, "overlapping downloads")
	}

	if confidence > 100 {
		confidence = 100
	}

	return ClusterResult{
		IsCluster:  confidence >= clusterThreshold,
		Confidence: confidence,
		Indicators: indicators,
	}
}

// sharedIPSignal fires when fewer than half of the IP samples across the
// group are distinct, i.e. more than half the samples repeat an address.
func sharedIPSignal(accounts []AccountProfile) bool {
	total := 0
	unique := map[string]struct{}{}
	for _, a := range accounts {
		for _, ip := range a.DownloadIPs {
			total++
			unique[ip] = struct{}{}
		}
	}
	if total == 0 {
		return false
	}
	return float64(len(unique))/float64(total) < 0.5
}

// registrationBurstSignal fires when the average pairwise gap between
// account creation times is under one hour.
func registrationBurstSignal(accounts []AccountProfile) bool {
	var totalGap time.Duration
	pairs := 0
	for i := 0; i < len(accounts); i++ {
		for j := i + 1; j < len(accounts); j++ {
			gap := accounts[i].RegisteredAt.Sub(accounts[j].RegisteredAt)
			if gap < 0 {
				gap = -gap
			}
			totalGap += gap
			pairs++
		}
	}
	if pairs == 0 {
		return false
	}
	return totalGap/time.Duration(pairs) < time.Hour
}

// avgJaccardOverlap averages pairwise Jaccard similarity of the accounts'
// downloaded-resource sets.
func avgJaccardOverlap(accounts []AccountProfile) float64 {
	sets := make([]map[string]struct{}, len(accounts))
	for i, a := range accounts {
		sets[i] = make(map[string]struct{}, len(a.ResourceIDs))
		for _, r := range a.ResourceIDs {
			sets[i][r] = struct{}{}
		}
	}

	var sum float64
	pairs := 0
	for i := 0; i < len(sets); i++ {
		for j := i + 1; j < len(sets); j++ {
			sum += jaccard(sets[i], sets[j])
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return sum / float64(pairs)
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
