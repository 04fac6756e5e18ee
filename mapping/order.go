package mapping

// ShouldAggregateFirst decides from the first aggregation spec only.
// Text combining strategies (join, concat) run after the processors so that
// each element is shaped before the merge; every other strategy reduces
// first and leaves the processors to format the result.
func ShouldAggregateFirst(aggregations []Spec) bool {
	if len(aggregations) == 0 {
		return true
	}
	switch aggregations[0].key() {
	case "join", "concat":
		return false
	}
	return true
}
