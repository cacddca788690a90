package download

const (
	freeTierPayout    = 2
	vipOnlyTierPayout = 10
	minPaidPayout     = 2
)

// CalculateEarnings maps a resource's tier and price to the uploader
// payout. The downloader's VIP flag is accepted for interface symmetry but
// does not influence the result. The payout is always positive, and for
// the paid tier never exceeds half the price rounded up.
func CalculateEarnings(tier PricingType, price int64, isVIPDownloader bool) int64 {
	switch tier {
	case PricingVIPOnly:
		return vipOnlyTierPayout
	case PricingPaid:
		payout := price / 5 // floor(price * 0.2)
		if payout < minPaidPayout {
			payout = minPaidPayout
		}
		return payout
	default:
		return freeTierPayout
	}
}
