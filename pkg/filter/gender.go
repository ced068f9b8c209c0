package filter

import (
	"net/url"
	"strings"
	"sync"
)

// GenderParam is the URL query parameter carrying the gender segment.
const GenderParam = "gender"

// ParseGender reads the gender segment from URL query values.
// A missing or blank parameter yields "".
func ParseGender(q url.Values) string {
	return strings.TrimSpace(q.Get(GenderParam))
}

// GenderWatcher turns a stream of observed gender values into transition
// notifications. The first observation fires only when a gender is
// present; later ones fire only when the value differs from the previous.
type GenderWatcher struct {
	mu       sync.Mutex
	observed bool
	current  string
	onChange func(gender string)
}

// NewGenderWatcher returns a watcher calling onChange on each transition.
func NewGenderWatcher(onChange func(gender string)) *GenderWatcher {
	return &GenderWatcher{onChange: onChange}
}

// WatchState wires a watcher to st.OnGenderChange.
func WatchState(st *State) *GenderWatcher {
	return NewGenderWatcher(st.OnGenderChange)
}

// Observe feeds the current gender value and reports whether onChange fired.
func (w *GenderWatcher) Observe(gender string) bool {
	changed := w.Record(gender)
	if changed && w.onChange != nil {
		w.onChange(gender)
	}
	return changed
}

// Record stores gender as observed without calling onChange, for callers
// that apply the filter reset themselves. It reports whether the gender
// differs from the previous observation.
func (w *GenderWatcher) Record(gender string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	changed := (!w.observed && gender != "") || (w.observed && gender != w.current)
	w.observed = true
	w.current = gender
	return changed
}

// Current returns the last observed gender.
func (w *GenderWatcher) Current() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}
