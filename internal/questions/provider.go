// Package questions supplies flag questions with difficulty-scaled country
// pools and region-biased distractors.
package questions

import (
	"math/rand/v2"
)

// Question is one round's challenge: the correct country plus a 4-way
// shuffle of options that contains it.
type Question struct {
	Country Country   `json:"country"`
	Options []Country `json:"options"`
}

// Provider returns the next question for a difficulty given the set of
// country codes already used this game. A nil return means the pool for
// that difficulty is exhausted.
type Provider interface {
	NextQuestion(difficulty string, used map[string]bool) *Question
}

// QuestionCount returns the number of rounds played at a difficulty.
func QuestionCount(difficulty string) int {
	switch difficulty {
	case "easy":
		return 15
	case "medium":
		return 20
	case "hard":
		return 25
	case "expert":
		return 30
	default:
		return 15
	}
}

func maxTier(difficulty string) int {
	switch difficulty {
	case "easy":
		return 1
	case "medium":
		return 2
	case "hard":
		return 3
	case "expert":
		return 4
	default:
		return 1
	}
}

const optionCount = 4

// StaticProvider serves questions from the embedded dataset.
type StaticProvider struct {
	rng *rand.Rand
}

// NewProvider creates a provider with a random seed.
func NewProvider() *StaticProvider {
	return &StaticProvider{
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// NewSeededProvider creates a provider with a fixed seed for tests.
func NewSeededProvider(seed uint64) *StaticProvider {
	return &StaticProvider{
		rng: rand.New(rand.NewPCG(seed, seed)),
	}
}

// NextQuestion picks an unused country from the difficulty's pool and three
// distractors, preferring countries from the same region.
func (p *StaticProvider) NextQuestion(difficulty string, used map[string]bool) *Question {
	tier := maxTier(difficulty)

	pool := make([]Country, 0, len(countries))
	var unused []Country
	for _, c := range countries {
		if c.tier > tier {
			continue
		}
		pool = append(pool, c)
		if !used[c.Code] {
			unused = append(unused, c)
		}
	}
	if len(unused) == 0 || len(pool) < optionCount {
		return nil
	}

	correct := unused[p.rng.IntN(len(unused))]

	// Distractors come from the same pool; same-region countries first.
	var sameRegion, otherRegion []Country
	for _, c := range pool {
		if c.Code == correct.Code {
			continue
		}
		if c.Region == correct.Region {
			sameRegion = append(sameRegion, c)
		} else {
			otherRegion = append(otherRegion, c)
		}
	}
	p.rng.Shuffle(len(sameRegion), func(i, j int) { sameRegion[i], sameRegion[j] = sameRegion[j], sameRegion[i] })
	p.rng.Shuffle(len(otherRegion), func(i, j int) { otherRegion[i], otherRegion[j] = otherRegion[j], otherRegion[i] })

	options := []Country{correct}
	for _, c := range append(sameRegion, otherRegion...) {
		if len(options) == optionCount {
			break
		}
		options = append(options, c)
	}

	p.rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	return &Question{Country: correct, Options: options}
}
