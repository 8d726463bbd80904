package matching

const (
	CategoryExcellent = "Excellent Match"
	CategoryGood      = "Good Match"
	CategoryModerate  = "Moderate Match"
	CategoryLow       = "Low Match"
	CategoryPoor      = "Poor Match"
)

// GetMatchCategory maps a score to its display label. Each band includes
// its lower bound.
func GetMatchCategory(score int) string {
	switch {
	case score >= 80:
		return CategoryExcellent
	case score >= 60:
		return CategoryGood
	case score >= 40:
		return CategoryModerate
	case score >= 20:
		return CategoryLow
	default:
		return CategoryPoor
	}
}
