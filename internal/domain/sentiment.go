package domain

// Bucket is one of five discrete sentiment categories derived from a
// continuous score.
type Bucket string

const (
	BucketVeryNegative Bucket = "very_negative"
	BucketNegative     Bucket = "negative"
	BucketNeutral      Bucket = "neutral"
	BucketPositive     Bucket = "positive"
	BucketVeryPositive Bucket = "very_positive"
)

// AllBuckets lists the buckets from most negative to most positive.
var AllBuckets = []Bucket{
	BucketVeryNegative,
	BucketNegative,
	BucketNeutral,
	BucketPositive,
	BucketVeryPositive,
}

// Band edges. Each band is inclusive on its lower bound, so an exact edge
// value belongs to the higher band.
const (
	edgeVeryNegative = -0.6
	edgeNegative     = -0.2
	edgePositive     = 0.2
	edgeVeryPositive = 0.6
)

// BucketFor maps a score in [-1, 1] to its bucket. The five bands partition
// the range with no gaps and no overlaps.
func BucketFor(score float64) Bucket {
	switch {
	case score >= edgeVeryPositive:
		return BucketVeryPositive
	case score >= edgePositive:
		return BucketPositive
	case score >= edgeNegative:
		return BucketNeutral
	case score >= edgeVeryNegative:
		return BucketNegative
	default:
		return BucketVeryNegative
	}
}
