package voting

// Cost returns the quadratic price in credits of casting v votes on one
// option. Defined for negative v as well; rejecting negatives is the
// validator's job, not the cost model's.
func Cost(v int) int {
	return v * v
}

// TotalCost sums the quadratic cost over a full vote array.
func TotalCost(votes []int) int {
	total := 0
	for _, v := range votes {
		total += Cost(v)
	}
	return total
}

// Remaining may be negative; callers treat negative as over budget.
func Remaining(budget int, votes []int) int {
	return budget - TotalCost(votes)
}
