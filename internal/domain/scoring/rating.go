package scoring

// StarRating maps a final score to 1-5 stars at the 2k, 5k, 10k and 20k
// boundaries.
func StarRating(score int) int {
	switch {
	case score < 2000:
		return 1
	case score < 5000:
		return 2
	case score < 10000:
		return 3
	case score < 20000:
		return 4
	default:
		return 5
	}
}
