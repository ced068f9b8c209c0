package filter

// HoverInput describes the filter option under the pointer.
// Empty strings and a nil Price mean "not hovered".
type HoverInput struct {
	Category string
	Color    string
	Size     string

	// Price overrides the committed range when non-nil. Pointing it at
	// NoPrice previews clearing the price filter.
	Price *PriceRange
}

// ComputeCandidate returns the filter set that committed would become if the
// hover target were clicked. Each hovered dimension is toggled on a copy;
// committed is never mutated. The result is canonical, ready for Key.
func ComputeCandidate(committed Set, hover HoverInput) Set {
	candidate := committed.Clone()
	candidate = candidate.with(Categories, toggled(candidate.Categories, hover.Category))
	candidate = candidate.with(Colors, toggled(candidate.Colors, hover.Color))
	candidate = candidate.with(Sizes, toggled(candidate.Sizes, hover.Size))

	if hover.Price != nil {
		candidate.Price = *hover.Price
	}

	return candidate.Canonical()
}

// CandidateKey is shorthand for ComputeCandidate(committed, hover).Key().
func CandidateKey(committed Set, hover HoverInput) Key {
	return ComputeCandidate(committed, hover).Key()
}
