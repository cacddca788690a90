package antifraud

// DownloadContext carries the historical facts the validity rules need.
// The caller aggregates them from the download history; Evaluate itself
// touches no storage.
type DownloadContext struct {
	DownloaderID string
	UploaderID   string
	// RepeatWithin24h is true when a prior valid download of the same
	// resource by the same user exists in the trailing 24 hours.
	RepeatWithin24h bool
	// ValidCount30d counts prior valid downloads of the same resource by
	// the same user in the trailing 30 days.
	ValidCount30d int64
}

type Verdict struct {
	IsValid  bool
	Reason   string
	RiskType TriggerType
}

// maxValidPerResource30d bounds how many times one user can validly
// download one resource inside a rolling 30-day window.
const maxValidPerResource30d = 3

// Evaluate decides whether a download should earn the uploader points.
// Rules run in fixed priority order and the first match wins: self-download
// beats both frequency rules, and the 24-hour rule beats the 30-day rule.
func Evaluate(ctx DownloadContext) Verdict {
	if ctx.DownloaderID == ctx.UploaderID {
		return Verdict{
			Reason:   "downloading your own resource earns nothing",
			RiskType: TriggerSelfDownload,
		}
	}
	if ctx.RepeatWithin24h {
		return Verdict{
			Reason:   "resource already downloaded within 24 hours",
			RiskType: TriggerHighFrequency,
		}
	}
	if ctx.ValidCount30d >= maxValidPerResource30d {
		return Verdict{
			Reason:   "download limit for this resource reached in the last 30 days",
			RiskType: TriggerHighFrequency,
		}
	}
	return Verdict{IsValid: true}
}
