package discovery

import (
	"fmt"
	"sort"
	"testing"
)

func assertPermutation(t *testing.T, original, permuted []string) {
	t.Helper()
	if len(original) != len(permuted) {
		t.Fatalf("length changed: %d -> %d", len(original), len(permuted))
	}
	a := append([]string(nil), original...)
	b := append([]string(nil), permuted...)
	sort.Strings(a)
	sort.Strings(b)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("not a permutation: original %v, permuted %v", original, permuted)
		}
	}
}

func TestSpreadByArtist(t *testing.T) {
	t.Run("Two Artist Blocks", func(t *testing.T) {
		uris := []string{"a1", "a2", "a3", "b1", "b2", "b3"}
		artistMap := map[string]string{
			"a1": "A", "a2": "A", "a3": "A",
			"b1": "B", "b2": "B", "b3": "B",
		}

		result := SpreadByArtist(uris, artistMap)

		assertPermutation(t, uris, result)
		if n := AdjacentCollisions(result, artistMap); n != 0 {
			t.Errorf("expected zero adjacent collisions, got %d in %v", n, result)
		}
	})

	t.Run("Perfect Spread When Largest Group At Half", func(t *testing.T) {
		// 4 tracks by A in 8 total: ceil(8/2) boundary.
		uris := []string{"a1", "a2", "a3", "a4", "b1", "c1", "d1", "e1"}
		artistMap := map[string]string{
			"a1": "A", "a2": "A", "a3": "A", "a4": "A",
			"b1": "B", "c1": "C", "d1": "D", "e1": "E",
		}

		result := SpreadByArtist(uris, artistMap)

		assertPermutation(t, uris, result)
		if n := AdjacentCollisions(result, artistMap); n != 0 {
			t.Errorf("expected zero adjacent collisions, got %d in %v", n, result)
		}
	})

	t.Run("Majority Artist Minimizes Collisions", func(t *testing.T) {
		// 5 of 6 tracks share an artist: 3 collisions are unavoidable
		// (the best layout is A x A A A A with one separator).
		uris := []string{"a1", "a2", "a3", "a4", "a5", "b1"}
		artistMap := map[string]string{
			"a1": "A", "a2": "A", "a3": "A", "a4": "A", "a5": "A",
			"b1": "B",
		}

		result := SpreadByArtist(uris, artistMap)

		assertPermutation(t, uris, result)
		if n := AdjacentCollisions(result, artistMap); n != 3 {
			t.Errorf("expected the minimal 3 collisions, got %d in %v", n, result)
		}
	})

	t.Run("Empty Artist Map Preserves Elements", func(t *testing.T) {
		uris := []string{"t1", "t2", "t3", "t4"}

		result := SpreadByArtist(uris, nil)

		assertPermutation(t, uris, result)
	})

	t.Run("Unknown Artists Fill Gaps", func(t *testing.T) {
		// Two unmapped tracks can legally separate the three A tracks.
		uris := []string{"a1", "a2", "a3", "x1", "x2"}
		artistMap := map[string]string{"a1": "A", "a2": "A", "a3": "A"}

		result := SpreadByArtist(uris, artistMap)

		assertPermutation(t, uris, result)
		if n := AdjacentCollisions(result, artistMap); n != 0 {
			t.Errorf("expected unmapped tracks to break up the run, got %d collisions in %v", n, result)
		}
	})

	t.Run("Does Not Mutate Input", func(t *testing.T) {
		uris := []string{"a1", "b1", "a2", "b2"}
		artistMap := map[string]string{"a1": "A", "a2": "A", "b1": "B", "b2": "B"}
		snapshot := append([]string(nil), uris...)

		SpreadByArtist(uris, artistMap)

		for i := range snapshot {
			if uris[i] != snapshot[i] {
				t.Fatalf("input mutated: %v", uris)
			}
		}
	})

	t.Run("Short Inputs", func(t *testing.T) {
		if got := SpreadByArtist(nil, nil); len(got) != 0 {
			t.Errorf("expected empty result, got %v", got)
		}
		if got := SpreadByArtist([]string{"only"}, nil); len(got) != 1 || got[0] != "only" {
			t.Errorf("expected single element back, got %v", got)
		}
	})

	t.Run("Many Distributions Stay Collision Free", func(t *testing.T) {
		// Sweep group-size splits where the largest group fits in half the
		// slots; every one must spread perfectly.
		for largest := 1; largest <= 10; largest++ {
			for others := largest; others <= 12; others++ {
				var uris []string
				artistMap := map[string]string{}
				for i := 0; i < largest; i++ {
					uri := fmt.Sprintf("big-%d", i)
					uris = append(uris, uri)
					artistMap[uri] = "BIG"
				}
				for i := 0; i < others; i++ {
					uri := fmt.Sprintf("small-%d", i)
					uris = append(uris, uri)
					artistMap[uri] = fmt.Sprintf("S%d", i)
				}

				result := SpreadByArtist(uris, artistMap)
				assertPermutation(t, uris, result)
				if n := AdjacentCollisions(result, artistMap); n != 0 {
					t.Fatalf("largest=%d others=%d: %d collisions in %v", largest, others, n, result)
				}
			}
		}
	})
}
