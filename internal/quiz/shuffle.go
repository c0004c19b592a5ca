package quiz

import (
	"hash/fnv"
	"math/rand"
)

// attemptRand returns a PRNG seeded from the attempt ID (plus an optional
// scope such as a question ID). The same attempt therefore always sees the
// same question and option order, while different attempts see different
// ones.
func attemptRand(parts ...string) *rand.Rand {
	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
	}
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

func shuffleQuestions(r *rand.Rand, qs []AttemptQuestion) {
	r.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
}

func shuffleOptions(r *rand.Rand, os []Option) {
	r.Shuffle(len(os), func(i, j int) { os[i], os[j] = os[j], os[i] })
}

func shuffleStrings(r *rand.Rand, ss []string) {
	r.Shuffle(len(ss), func(i, j int) { ss[i], ss[j] = ss[j], ss[i] })
}
