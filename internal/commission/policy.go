package commission

// DefaultRateBP is the platform commission, in basis points, withheld from non-PRO workers.
const DefaultRateBP = 500

// Policy computes payout/commission and refund splits in integer currency units.
type Policy struct {
	RateBP int64
}

// New returns a Policy. A non-positive rate falls back to DefaultRateBP.
func New(rateBP int64) Policy {
	if rateBP <= 0 {
		rateBP = DefaultRateBP
	}
	return Policy{RateBP: rateBP}
}

// Split returns the worker payout and the platform commission for a completed task.
// PRO workers pay no commission. payout + commission == price.
func (p Policy) Split(price int64, workerIsPro bool) (payout, commission int64) {
	if workerIsPro || price <= 0 {
		return price, 0
	}
	commission = (price*p.RateBP + 5000) / 10000
	return price - commission, commission
}

// Refund returns round(price * pct / 100), half up. pct is expected in [0, 100].
func Refund(price int64, pct int) int64 {
	return (price*int64(pct) + 50) / 100
}
