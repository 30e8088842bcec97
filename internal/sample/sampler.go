package sample

import (
	"math"
	"math/rand"
	"sort"
	"time"
)

type Config struct {
	// Temperature divides the scaled logits; 0 selects the argmax.
	Temperature float64
	TopK        int
	TopP        float64
	// Scale multiplies logits before temperature (the checkpoint's
	// softmax scale). Zero is treated as 1.
	Scale float64
	Seed  int64
}

type Sampler struct {
	Config Config
	rng    *rand.Rand
}

func New(cfg Config) *Sampler {
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Scale == 0 {
		cfg.Scale = 1
	}
	return &Sampler{
		Config: cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Rand exposes the sampler's generator so callers drawing inputs share one
// seed with decoding.
func (s *Sampler) Rand() *rand.Rand { return s.rng }

// Sample picks the next atom. logits is not modified. ok is false when the
// logits held NaN or Inf and a fallback was used.
func (s *Sampler) Sample(logits []float64) (id int, ok bool) {
	if len(logits) == 0 {
		return 0, false
	}
	if !finite(logits) {
		return firstFinite(logits), false
	}

	if s.Config.Temperature <= 0 {
		return ArgMax(logits), true
	}

	probs := Softmax(logits, s.Config.Scale/s.Config.Temperature)

	candidates := make([]candidate, 0, len(probs))
	for i, p := range probs {
		if p > 1e-10 {
			candidates = append(candidates, candidate{id: i, prob: p})
		}
	}
	if len(candidates) == 0 {
		return ArgMax(logits), true
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].prob > candidates[j].prob
	})

	candidates = topK(candidates, s.Config.TopK)
	candidates = topP(candidates, s.Config.TopP)

	return s.draw(candidates), true
}

func (s *Sampler) draw(candidates []candidate) int {
	sum := 0.0
	for _, c := range candidates {
		sum += c.prob
	}

	r := s.rng.Float64() * sum
	acc := 0.0
	for _, c := range candidates {
		acc += c.prob
		if r < acc {
			return c.id
		}
	}
	return candidates[0].id
}

type candidate struct {
	id   int
	prob float64
}

// Softmax returns softmax(scale * logits).
func Softmax(logits []float64, scale float64) []float64 {
	probs := make([]float64, len(logits))
	maxVal := math.Inf(-1)
	for i, v := range logits {
		probs[i] = v * scale
		if probs[i] > maxVal {
			maxVal = probs[i]
		}
	}

	sum := 0.0
	for i := range probs {
		probs[i] = math.Exp(probs[i] - maxVal)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// ArgMax returns the index of the largest logit, ignoring NaN; ties keep the
// lowest index.
func ArgMax(logits []float64) int {
	maxIdx := -1
	for i, v := range logits {
		if math.IsNaN(v) {
			continue
		}
		if maxIdx < 0 || v > logits[maxIdx] {
			maxIdx = i
		}
	}
	if maxIdx < 0 {
		return 0
	}
	return maxIdx
}

func finite(logits []float64) bool {
	for _, v := range logits {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func firstFinite(logits []float64) int {
	for i, v := range logits {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return i
		}
	}
	return 0
}

func topK(candidates []candidate, k int) []candidate {
	if k <= 0 || k >= len(candidates) {
		return candidates
	}
	return candidates[:k]
}

// topP keeps the smallest prefix whose mass reaches p.
func topP(candidates []candidate, p float64) []candidate {
	if p >= 1.0 || p <= 0.0 {
		return candidates
	}

	sum := 0.0
	for i, c := range candidates {
		sum += c.prob
		if sum >= p {
			return candidates[:i+1]
		}
	}
	return candidates
}
