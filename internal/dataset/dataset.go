package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/23skdu/longbow-quill/internal/logger"
)

var (
	ErrUnknownSplit = errors.New("dataset: unknown split")
	ErrNoSentences  = errors.New("dataset: no sentences")
)

// Sample is one labelled sentence.
type Sample struct {
	Author string
	Split  string
	Text   string
}

// Dataset holds labelled sentences grouped by split.
type Dataset struct {
	// Start and End are the sentinel atoms recorded with the data, if any.
	Start string
	End   string

	samples []Sample
	splits  map[string][]int
}

type jsonFile struct {
	Configs struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"configs"`
	Docs []struct {
		Author string   `json:"author"`
		Split  string   `json:"split"`
		Sents  []string `json:"sents"`
	} `json:"docs"`
}

// Load reads a .json or .csv dataset.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ds *Dataset
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		ds, err = ReadCSV(f)
	default:
		ds, err = ReadJSON(f)
	}
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", path, err)
	}
	logger.Log.Debug("Dataset loaded", "path", path, "sentences", len(ds.samples), "splits", len(ds.splits))
	return ds, nil
}

func ReadJSON(r io.Reader) (*Dataset, error) {
	var raw jsonFile
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}
	ds := New(raw.Configs.Start, raw.Configs.End)
	for _, d := range raw.Docs {
		for _, s := range d.Sents {
			ds.Add(Sample{Author: d.Author, Split: d.Split, Text: s})
		}
	}
	return ds, nil
}

// ReadCSV reads author,split,text rows with a header line.
func ReadCSV(r io.Reader) (*Dataset, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, df.Err
	}
	cols := make(map[string][]string, 3)
	for _, name := range []string{"author", "split", "text"} {
		s := df.Col(name)
		if s.Err != nil {
			return nil, fmt.Errorf("column %q: %w", name, s.Err)
		}
		cols[name] = s.Records()
	}

	ds := New("", "")
	for i := 0; i < df.Nrow(); i++ {
		ds.Add(Sample{Author: cols["author"][i], Split: cols["split"][i], Text: cols["text"][i]})
	}
	return ds, nil
}

func New(start, end string) *Dataset {
	return &Dataset{Start: start, End: end, splits: make(map[string][]int)}
}

func (d *Dataset) Add(s Sample) {
	d.splits[s.Split] = append(d.splits[s.Split], len(d.samples))
	d.samples = append(d.samples, s)
}

func (d *Dataset) Len() int { return len(d.samples) }

func (d *Dataset) Splits() []string {
	out := make([]string, 0, len(d.splits))
	for s := range d.splits {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (d *Dataset) split(name string) ([]int, error) {
	idx, ok := d.splits[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (have %v)", ErrUnknownSplit, name, d.Splits())
	}
	return idx, nil
}

// SentenceBatch draws n sentences of author from split. An empty author
// accepts every author.
func (d *Dataset) SentenceBatch(rng *rand.Rand, n int, split, author string) ([]Sample, error) {
	idx, err := d.split(split)
	if err != nil {
		return nil, err
	}
	var pool []int
	for _, i := range idx {
		if author == "" || d.samples[i].Author == author {
			pool = append(pool, i)
		}
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w for author %q in split %q", ErrNoSentences, author, split)
	}
	out := make([]Sample, n)
	for k := range out {
		out[k] = d.samples[pool[rng.Intn(len(pool))]]
	}
	return out, nil
}

// RandomString cuts a window of slen atoms from a random sentence of split.
// Sentences shorter than slen are returned whole.
func (d *Dataset) RandomString(rng *rand.Rand, slen int, split, atoms string) ([]Sample, error) {
	idx, err := d.split(split)
	if err != nil {
		return nil, err
	}
	if len(idx) == 0 {
		return nil, fmt.Errorf("%w in split %q", ErrNoSentences, split)
	}
	s := d.samples[idx[rng.Intn(len(idx))]]

	var parts []string
	joiner := ""
	if atoms == "word" {
		parts = strings.Fields(s.Text)
		joiner = " "
	} else {
		for _, r := range s.Text {
			parts = append(parts, string(r))
		}
	}
	if slen > 0 && len(parts) > slen {
		off := rng.Intn(len(parts) - slen + 1)
		parts = parts[off : off+slen]
	}
	s.Text = strings.Join(parts, joiner)
	return []Sample{s}, nil
}

// SplitCount is one row of Summary.
type SplitCount struct {
	Split     string
	Author    string
	Sentences int
}

// Summary tabulates sentence counts per split and author.
func (d *Dataset) Summary() dataframe.DataFrame {
	counts := make(map[[2]string]int)
	for _, s := range d.samples {
		counts[[2]string{s.Split, s.Author}]++
	}
	rows := make([]SplitCount, 0, len(counts))
	for k, v := range counts {
		rows = append(rows, SplitCount{Split: k[0], Author: k[1], Sentences: v})
	}
	df := dataframe.LoadStructs(rows)
	return df.Arrange(
		dataframe.Sort("Split"),
		dataframe.Sort("Author"),
	)
}
