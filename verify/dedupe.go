package verify

import (
	"hash/fnv"
	"math/bits"
	"strings"
	"unicode"
)

// claimWords lowercases text and splits it into letter/number runs, so
// "Paris is in France." and "paris is in france" give the same words.
func claimWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// fingerprint is a 64-bit SimHash over claimWords(text).
func fingerprint(text string) uint64 {
	words := claimWords(text)
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

func distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// claimSet remembers extracted claims. A claim repeats one already seen when
// its words are identical; with maxDistance > 0 a SimHash within that
// distance also counts. Claims that differ only in a number or a name sit
// a few bits apart, so near matching stays off unless configured.
type claimSet struct {
	maxDistance int
	words       map[string]struct{}
	fps         []uint64
}

func newClaimSet(maxDistance int) *claimSet {
	return &claimSet{maxDistance: maxDistance, words: make(map[string]struct{})}
}

func (s *claimSet) contains(claim string) bool {
	if _, ok := s.words[strings.Join(claimWords(claim), " ")]; ok {
		return true
	}
	if s.maxDistance <= 0 {
		return false
	}
	fp := fingerprint(claim)
	for _, seen := range s.fps {
		if distance(fp, seen) <= s.maxDistance {
			return true
		}
	}
	return false
}

func (s *claimSet) add(claim string) {
	s.words[strings.Join(claimWords(claim), " ")] = struct{}{}
	s.fps = append(s.fps, fingerprint(claim))
}
