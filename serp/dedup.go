package serp

import (
	"hash/fnv"
	"math/bits"
	"strings"
)

// nearDupThreshold is the maximum Hamming distance between two result
// fingerprints for them to count as the same content. 64-bit SimHash with
// word-level tokens puts unrelated snippets at ~32 bits apart.
const nearDupThreshold = 3

// deduper drops repeated hits while a results page is being walked:
// exact link repeats and near-duplicate title+snippet pairs (the same
// article syndicated on mirrors).
type deduper struct {
	links map[string]struct{}
	sigs  []uint64
}

func newDeduper() *deduper {
	return &deduper{links: make(map[string]struct{})}
}

// minDupWords is the minimum token count for the SimHash comparison.
// Below it the hash is dominated by a handful of words and distances
// between unrelated hits collapse, so only exact-link dedup applies.
const minDupWords = 10

// seen reports whether an equivalent hit was already accepted, and records
// this one if not.
func (d *deduper) seen(link, title, snippet string) bool {
	key := strings.TrimSuffix(strings.ToLower(link), "/")
	if _, ok := d.links[key]; ok {
		return true
	}
	d.links[key] = struct{}{}

	text := title + " " + snippet
	if len(strings.Fields(text)) < minDupWords {
		return false
	}

	sig := fingerprint(text)
	for _, prev := range d.sigs {
		if bits.OnesCount64(prev^sig) <= nearDupThreshold {
			return true
		}
	}
	d.sigs = append(d.sigs, sig)
	return false
}

// fingerprint computes a 64-bit SimHash of the text: FNV-64a over
// word-level tokens with bit-vector accumulation.
func fingerprint(text string) uint64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0
	}

	var vector [64]int
	for _, word := range words {
		h := fnv.New64a()
		h.Write([]byte(word))
		hash := h.Sum64()

		for i := 0; i < 64; i++ {
			if hash&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fp uint64
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			fp |= 1 << uint(i)
		}
	}
	return fp
}
