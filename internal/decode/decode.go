package decode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/23skdu/longbow-quill/internal/logger"
	"github.com/23skdu/longbow-quill/internal/metrics"
	"github.com/23skdu/longbow-quill/internal/model"
	"github.com/23skdu/longbow-quill/internal/sample"
	"github.com/23skdu/longbow-quill/internal/vocab"
)

var ErrNoLength = errors.New("decode: max length must be positive")

// Pass is the output of one decoding pass. Atoms ends with the end atom when
// HitEnd is set.
type Pass struct {
	Author   int
	Atoms    []int
	HitEnd   bool
	Duration time.Duration
}

// StopReason reports why the pass ended.
func (p Pass) StopReason() string {
	if p.HitEnd {
		return metrics.StopEnd
	}
	return metrics.StopLength
}

// Result holds the forward pass and, for cycle runs, the reverse pass.
type Result struct {
	Input   []int
	Forward Pass
	Reverse *Pass
}

// Decoder runs the author-conditioned generation loop over a network.
type Decoder struct {
	Net     model.Network
	Sampler *sample.Sampler
	Authors *vocab.Index[string]

	Start  int
	End    int
	MaxLen int
}

// ForwardGen feeds input, then draws atoms until the end atom is produced or
// maxLen atoms have been generated.
func (d *Decoder) ForwardGen(ctx context.Context, input []int, author, maxLen int) (Pass, error) {
	if maxLen <= 0 {
		return Pass{}, ErrNoLength
	}
	start := time.Now()
	state, err := d.Net.Begin(input, author)
	if err != nil {
		return Pass{}, err
	}

	p := Pass{Author: author, Atoms: make([]int, 0, maxLen)}
	for len(p.Atoms) < maxLen {
		if err := ctx.Err(); err != nil {
			return p, err
		}
		atom, ok := d.Sampler.Sample(state.Logits())
		if !ok {
			metrics.RecordNonFinite()
			logger.Log.Warn("Non-finite logits", "step", state.Steps(), "fallback", atom)
		}
		p.Atoms = append(p.Atoms, atom)
		if atom == d.End {
			p.HitEnd = true
			break
		}
		if len(p.Atoms) == maxLen {
			break
		}
		if err := d.Net.Advance(state, atom); err != nil {
			return p, fmt.Errorf("decode: step %d: %w", len(p.Atoms), err)
		}
	}
	p.Duration = time.Since(start)
	return p, nil
}

// Run decodes input under author. With cycle set it feeds the start atom and
// the forward output back through the network under the flipped author.
func (d *Decoder) Run(ctx context.Context, input []int, author int, cycle bool) (*Result, error) {
	res := &Result{Input: input}

	fwd, err := d.ForwardGen(ctx, input, author, d.MaxLen)
	if err != nil {
		metrics.RecordError("decode")
		return nil, err
	}
	metrics.RecordPass(metrics.PassForward, len(fwd.Atoms), fwd.HitEnd, fwd.Duration)
	logger.Log.Debug("Forward pass",
		"author", author,
		"input_len", len(input),
		"atoms", len(fwd.Atoms),
		"stop", fwd.StopReason(),
		"elapsed", fwd.Duration)
	res.Forward = fwd

	if !cycle {
		return res, nil
	}

	rev, err := d.Authors.Flip(author)
	if err != nil {
		metrics.RecordError("decode")
		return nil, fmt.Errorf("decode: cycle: %w", err)
	}
	revInput := make([]int, 0, len(fwd.Atoms)+1)
	revInput = append(revInput, d.Start)
	revInput = append(revInput, fwd.Atoms...)

	back, err := d.ForwardGen(ctx, revInput, rev, d.MaxLen)
	if err != nil {
		metrics.RecordError("decode")
		return nil, err
	}
	metrics.RecordPass(metrics.PassReverse, len(back.Atoms), back.HitEnd, back.Duration)
	logger.Log.Debug("Reverse pass",
		"author", rev,
		"atoms", len(back.Atoms),
		"stop", back.StopReason(),
		"elapsed", back.Duration)
	res.Reverse = &back
	return res, nil
}
