package steps

// Reconcile computes the effective steps of a request given what has already
// been applied. A requested step whose value equals the applied one is forced
// to false; anything else keeps the requested value.
//
// A non-empty custom_stopwords list always forces remove_stopwords on and is
// carried as a sorted, deduplicated list. Otherwise the list is set empty.
// An empty request yields an empty set.
func Reconcile(previous, requested Set) Set {
	effective := make(Set, len(requested)+1)
	if len(requested) == 0 {
		return effective
	}

	for step, value := range requested {
		if step == CustomStopwords {
			continue
		}
		if prev, ok := previous[step]; ok && Equal(prev, value) {
			effective[step] = false
			continue
		}
		effective[step] = Normalize(value)
	}

	if terms := Terms(requested[CustomStopwords]); len(terms) > 0 {
		effective[RemoveStopwords] = true
		effective[CustomStopwords] = terms
	} else {
		effective[CustomStopwords] = []string{}
	}

	return effective
}
