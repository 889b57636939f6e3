package discovery

// SpreadByArtist permutes uris so no two adjacent entries share a primary
// artist, whenever the artist distribution allows it. Tracks absent from
// artistByURI form their own singleton groups and can sit next to anything.
//
// The strategy is greedy interleaving: repeatedly take the next track from the
// group with the most remaining members, excluding the group picked last; ties
// go to the group whose next track appeared earliest in the input, which keeps
// the result close to the original order. When a single artist holds more than
// half the tracks a perfect spread is impossible and the leftover run of that
// artist is emitted back to back, which is the minimum achievable number of
// collisions.
//
// The result is always a permutation of the input. An empty or nil map
// degrades to the input order unchanged.
func SpreadByArtist(uris []string, artistByURI map[string]string) []string {
	if len(uris) <= 1 {
		out := make([]string, len(uris))
		copy(out, uris)
		return out
	}

	// Group tracks by artist, preserving within-group input order. Tracks with
	// no resolvable artist get a unique key so they never collide.
	type group struct {
		tracks []string
		next   int // index into tracks of the next unconsumed entry
	}

	groups := make(map[string]*group)
	order := make([]string, 0, len(uris)) // group keys in first-seen order
	position := make(map[string]int, len(uris))

	for i, uri := range uris {
		position[uri] = i
		key := artistByURI[uri]
		if key == "" {
			key = "\x00solo:" + uri
		}
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
			order = append(order, key)
		}
		g.tracks = append(g.tracks, uri)
	}

	result := make([]string, 0, len(uris))
	lastKey := ""

	for len(result) < len(uris) {
		bestKey := ""
		bestRemaining := 0
		bestPos := 0

		for _, key := range order {
			g := groups[key]
			remaining := len(g.tracks) - g.next
			if remaining == 0 || key == lastKey {
				continue
			}
			headPos := position[g.tracks[g.next]]
			if bestKey == "" || remaining > bestRemaining ||
				(remaining == bestRemaining && headPos < bestPos) {
				bestKey = key
				bestRemaining = remaining
				bestPos = headPos
			}
		}

		// Only the last-picked group has tracks left: an unavoidable collision.
		if bestKey == "" {
			bestKey = lastKey
		}

		g := groups[bestKey]
		result = append(result, g.tracks[g.next])
		g.next++
		lastKey = bestKey
	}

	return result
}

// AdjacentCollisions counts adjacent pairs in uris mapped to the same artist.
// Tracks missing from the map never collide.
func AdjacentCollisions(uris []string, artistByURI map[string]string) int {
	collisions := 0
	for i := 1; i < len(uris); i++ {
		a, okA := artistByURI[uris[i-1]]
		b, okB := artistByURI[uris[i]]
		if okA && okB && a == b {
			collisions++
		}
	}
	return collisions
}
