package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/23skdu/longbow-quill/internal/checkpoint"
	"github.com/23skdu/longbow-quill/internal/config"
	"github.com/23skdu/longbow-quill/internal/dataset"
	"github.com/23skdu/longbow-quill/internal/decode"
	"github.com/23skdu/longbow-quill/internal/export"
	"github.com/23skdu/longbow-quill/internal/logger"
	"github.com/23skdu/longbow-quill/internal/metrics"
	"github.com/23skdu/longbow-quill/internal/registry"
	"github.com/23skdu/longbow-quill/internal/sample"
	"github.com/23skdu/longbow-quill/internal/textclean"
	"github.com/23skdu/longbow-quill/internal/tokenizer"
	"github.com/23skdu/longbow-quill/internal/transcript"
)

type runner struct {
	opts      options
	path      string
	modelType config.ModelType

	ck      *checkpoint.Checkpoint
	tok     *tokenizer.Tokenizer
	dec     *decode.Decoder
	sampler *sample.Sampler
	ds      *dataset.Dataset
	printer *transcript.Printer

	rows []export.Row
}

func newRunner(opts options, settings config.Settings, out io.Writer) (*runner, error) {
	path, err := registry.Resolve(settings.ModelsDir, opts.model)
	if err != nil {
		return nil, err
	}
	if path != opts.model {
		logger.Log.Info("Resolved checkpoint", "name", opts.model, "path", path)
	}

	ck, err := checkpoint.Load(path)
	if err != nil {
		return nil, err
	}
	r := &runner{opts: opts, path: path, ck: ck, printer: transcript.New(out)}
	if err := r.init(settings); err != nil {
		ck.Close()
		return nil, err
	}
	metrics.SetCheckpoint(ck.Name, string(ck.Config.ModelType))
	return r, nil
}

func (r *runner) init(settings config.Settings) error {
	opts, ck := r.opts, r.ck

	r.modelType = ck.Config.ModelType
	if opts.mType != "" {
		mt, err := config.ParseModelType(opts.mType)
		if err != nil {
			return err
		}
		if mt != ck.Config.ModelType {
			return fmt.Errorf("--m_type %s does not match checkpoint model type %s", mt, ck.Config.ModelType)
		}
	}
	if opts.softmaxScale != 0 {
		if err := ck.SetSoftmaxScale(opts.softmaxScale); err != nil {
			return err
		}
	}
	if opts.flip != 0 || opts.showRev != 0 {
		if _, err := ck.Authors.Flip(0); err != nil {
			return fmt.Errorf("flip and show_rev need two authors, checkpoint has %d: %w", ck.Authors.Size(), err)
		}
	}

	var err error
	if r.tok, err = ck.Tokenizer(); err != nil {
		return err
	}
	net, err := ck.Network()
	if err != nil {
		return err
	}

	temp := opts.temperature
	if opts.greedy {
		temp = 0
	}
	r.sampler = sample.New(sample.Config{
		Temperature: temp,
		TopK:        opts.topK,
		TopP:        opts.topP,
		Scale:       ck.Config.SoftmaxScale,
		Seed:        opts.seed,
	})

	maxLen := opts.maxLen
	if maxLen <= 0 {
		maxLen = ck.Config.MaxSeqLen
	}
	r.dec = &decode.Decoder{
		Net:     net,
		Sampler: r.sampler,
		Authors: ck.Authors,
		Start:   ck.Start(),
		End:     ck.End(),
		MaxLen:  maxLen,
	}

	if opts.interactive {
		return nil
	}
	dsPath := datasetPath(opts.dataset, ck.Config.DatasetFile, r.path)
	if dsPath == "" {
		return fmt.Errorf("no dataset: pass --dataset or set %s_DATASET", config.EnvPrefix)
	}
	if r.ds, err = dataset.Load(dsPath); err != nil {
		return err
	}
	if r.ds.End != "" && r.ds.End != ck.EndAtom {
		logger.Log.Warn("Dataset end atom differs from checkpoint", "dataset", r.ds.End, "checkpoint", ck.EndAtom)
	}
	return nil
}

// datasetPath prefers the explicit path, then the one stored in the
// checkpoint. A relative stored path that does not exist is taken relative to
// the checkpoint file.
func datasetPath(explicit, stored, ckPath string) string {
	if explicit != "" || stored == "" {
		return explicit
	}
	if filepath.IsAbs(stored) {
		return stored
	}
	if _, err := os.Stat(stored); err == nil {
		return stored
	}
	return filepath.Join(filepath.Dir(ckPath), stored)
}

func (r *runner) Close() {
	if err := r.ck.Close(); err != nil {
		logger.Log.Warn("Closing checkpoint", "error", err)
	}
}

func (r *runner) run(ctx context.Context) error {
	for i := 0; i < r.opts.numSamples; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s, err := r.draw()
		if err != nil {
			return err
		}
		if err := r.sample(ctx, i, s); err != nil {
			return err
		}
	}
	return nil
}

// draw picks the next input: a seed window for generative models, a sentence
// of a random author for translators.
func (r *runner) draw() (dataset.Sample, error) {
	rng := r.sampler.Rand()
	var (
		batch []dataset.Sample
		err   error
	)
	if r.modelType == config.ModelGenerative {
		batch, err = r.ds.RandomString(rng, r.opts.seedLength, r.opts.split, r.ck.Config.Atoms)
	} else {
		author, _ := r.ck.Authors.GetInverse(rng.Intn(r.ck.Authors.Size()))
		batch, err = r.ds.SentenceBatch(rng, 1, r.opts.split, author)
	}
	if err != nil {
		return dataset.Sample{}, err
	}
	return batch[0], nil
}

func (r *runner) sample(ctx context.Context, i int, s dataset.Sample) error {
	b, err := dataset.Prepare(s, r.tok, r.ck.Authors, r.ck.Config.MaxSeqLen)
	if err != nil {
		return err
	}
	target := b.Author
	if r.opts.flip != 0 {
		if target, err = r.ck.Authors.Flip(b.Author); err != nil {
			return err
		}
	}

	res, err := r.dec.Run(ctx, b.Inputs, target, r.opts.showRev != 0)
	if err != nil {
		return err
	}
	metrics.RecordSample(string(r.modelType))

	source, _ := r.ck.Authors.GetInverse(b.Author)
	targetName, _ := r.ck.Authors.GetInverse(target)
	e := transcript.Entry{
		Source:    source,
		SourceIdx: b.Author,
		Target:    targetName,
		TargetIdx: target,
		Input:     textclean.Clean(r.tok.Decode(r.tok.StripStart(b.Inputs))),
		Output:    textclean.Clean(r.tok.Decode(r.tok.StripEnd(res.Forward.Atoms))),
	}
	if res.Reverse != nil {
		e.HasReverse = true
		e.Reverse = r.tok.Decode(r.tok.StripEnd(res.Reverse.Atoms))
	}
	if err := r.printer.Print(e); err != nil {
		return err
	}

	r.rows = append(r.rows, export.Row{
		Sample:     i,
		Split:      s.Split,
		ModelType:  string(r.modelType),
		Source:     e.Source,
		Target:     e.Target,
		Input:      e.Input,
		Output:     e.Output,
		StopReason: res.Forward.StopReason(),
		Reverse:    e.Reverse,
		HasReverse: e.HasReverse,
	})
	return nil
}

// interactive decodes one line of in per sample. A line may name its author
// as "author: text"; otherwise a random author is used.
func (r *runner) interactive(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	i := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		s := r.parseLine(line)
		if err := r.sample(ctx, i, s); err != nil {
			metrics.RecordError("interactive")
			logger.Log.Error("Skipping input", err, "line", line)
			continue
		}
		i++
	}
	return sc.Err()
}

func (r *runner) parseLine(line string) dataset.Sample {
	s := dataset.Sample{Split: "stdin", Text: line}
	if name, text, ok := strings.Cut(line, ":"); ok && r.ck.Authors.Exists(strings.TrimSpace(name)) {
		s.Author = strings.TrimSpace(name)
		s.Text = strings.TrimSpace(text)
		return s
	}
	s.Author, _ = r.ck.Authors.GetInverse(r.sampler.Rand().Intn(r.ck.Authors.Size()))
	return s
}

// finish exports the collected rows.
func (r *runner) finish(ctx context.Context) error {
	if len(r.rows) == 0 {
		return nil
	}
	if r.opts.export != "" {
		if err := os.MkdirAll(filepath.Dir(r.opts.export), 0o755); err != nil {
			return err
		}
		if err := export.WriteFile(r.opts.export, r.rows); err != nil {
			metrics.RecordError("export")
			return err
		}
	}
	if r.opts.flight != "" {
		fc := export.NewFlightClient(r.opts.flight)
		if err := fc.Connect(ctx); err != nil {
			metrics.RecordError("export")
			return err
		}
		defer fc.Close()
		if err := fc.DoPut(ctx, r.opts.split, r.rows); err != nil {
			metrics.RecordError("export")
			return err
		}
	}
	return nil
}
