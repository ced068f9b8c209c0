package filter

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var setOpts = cmp.Options{
	cmp.AllowUnexported(PriceRange{}),
	cmpopts.EquateEmpty(),
}

func priceRef(p PriceRange) *PriceRange {
	return &p
}

func TestComputeCandidate(t *testing.T) {
	tests := []struct {
		name      string
		committed Set
		hover     HoverInput
		want      Set
	}{
		{
			name:      "hover selected color removes it",
			committed: Set{Colors: []string{"red"}},
			hover:     HoverInput{Color: "red"},
			want:      Set{Colors: []string{}},
		},
		{
			name:      "hover unselected color adds it sorted",
			committed: Set{Colors: []string{"red"}},
			hover:     HoverInput{Color: "blue"},
			want:      Set{Colors: []string{"blue", "red"}},
		},
		{
			name:      "hover removes from the middle of a selection",
			committed: Set{Sizes: []string{"S", "M", "L"}},
			hover:     HoverInput{Size: "M"},
			want:      Set{Sizes: []string{"L", "S"}},
		},
		{
			name:      "empty hover leaves dimensions unchanged",
			committed: Set{Categories: []string{"shirts"}, Colors: []string{"red"}, Sizes: []string{"M"}},
			hover:     HoverInput{},
			want:      Set{Categories: []string{"shirts"}, Colors: []string{"red"}, Sizes: []string{"M"}},
		},
		{
			name:      "untouched dimensions are copied",
			committed: Set{Gender: "women", Categories: []string{"shirts"}, Colors: []string{"red"}},
			hover:     HoverInput{Size: "XL"},
			want:      Set{Gender: "women", Categories: []string{"shirts"}, Colors: []string{"red"}, Sizes: []string{"XL"}},
		},
		{
			name:      "several dimensions hovered at once",
			committed: Set{Categories: []string{"shirts"}},
			hover:     HoverInput{Category: "shirts", Color: "green", Size: "S"},
			want:      Set{Categories: []string{}, Colors: []string{"green"}, Sizes: []string{"S"}},
		},
		{
			name:      "nil price keeps committed range",
			committed: Set{Price: Between(10, 50)},
			hover:     HoverInput{Color: "red"},
			want:      Set{Colors: []string{"red"}, Price: Between(10, 50)},
		},
		{
			name:      "tuple price overrides",
			committed: Set{Price: Between(10, 50)},
			hover:     HoverInput{Price: priceRef(Between(0, 20))},
			want:      Set{Price: Between(0, 20)},
		},
		{
			name:      "unset sentinel clears price",
			committed: Set{Price: Between(10, 50)},
			hover:     HoverInput{Price: priceRef(NoPrice)},
			want:      Set{Price: NoPrice},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeCandidate(tt.committed, tt.hover)
			if diff := cmp.Diff(tt.want, got, setOpts); diff != "" {
				t.Errorf("ComputeCandidate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComputeCandidate_DoesNotMutateCommitted(t *testing.T) {
	committed := Set{
		Gender:     "men",
		Categories: []string{"jeans", "shirts"},
		Colors:     []string{"red", "blue"},
		Sizes:      make([]string, 1, 8), // spare capacity would expose append aliasing
		Price:      Between(5, 100),
	}
	committed.Sizes[0] = "M"
	before := committed.Clone()

	ComputeCandidate(committed, HoverInput{Category: "jeans", Color: "green", Size: "L", Price: priceRef(NoPrice)})

	if diff := cmp.Diff(before, committed, setOpts); diff != "" {
		t.Errorf("committed set mutated (-before +after):\n%s", diff)
	}
	if got := committed.Sizes[:2][1]; got != "" {
		t.Errorf("backing array of committed sizes was written: %q", got)
	}
}

func TestComputeCandidate_Involution(t *testing.T) {
	committed := Set{Colors: []string{"blue", "red"}}
	for _, value := range []string{"red", "green"} {
		once := ComputeCandidate(committed, HoverInput{Color: value})
		twice := ComputeCandidate(once, HoverInput{Color: value})
		if twice.Key() != committed.Key() {
			t.Errorf("toggling %q twice: got %s, want %s", value, twice.Key(), committed.Key())
		}
	}
}

func TestCandidateKey_OrderIndependent(t *testing.T) {
	a := CandidateKey(Set{Colors: []string{"red"}}, HoverInput{Color: "blue"})
	b := CandidateKey(Set{Colors: []string{"blue"}}, HoverInput{Color: "red"})
	c := CandidateKey(Set{Colors: []string{"red", "blue", "green"}}, HoverInput{Color: "green"})

	if a != b || b != c {
		t.Errorf("equal candidate sets produced different keys: %s, %s, %s", a, b, c)
	}
	if want := Key("clothes:list:colors=blue,red"); a != want {
		t.Errorf("CandidateKey() = %s, want %s", a, want)
	}
}
