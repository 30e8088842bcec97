package dataset

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/23skdu/longbow-quill/internal/tokenizer"
	"github.com/23skdu/longbow-quill/internal/vocab"
)

const sampleJSON = `{
  "configs": {"start": "<", "end": ">"},
  "docs": [
    {"author": "austen", "split": "train", "sents": ["abc", "cab"]},
    {"author": "austen", "split": "val", "sents": ["ab ba"]},
    {"author": "twain", "split": "val", "sents": ["cc", "a c"]}
  ]
}`

const sampleCSV = `author,split,text
austen,val,abc
twain,val,ba
twain,test,123
`

func TestReadJSON(t *testing.T) {
	ds, err := ReadJSON(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatal(err)
	}
	if ds.Start != "<" || ds.End != ">" {
		t.Errorf("sentinels = %q/%q", ds.Start, ds.End)
	}
	if ds.Len() != 5 {
		t.Errorf("Len = %d, want 5", ds.Len())
	}
	if got := ds.Splits(); !reflect.DeepEqual(got, []string{"train", "val"}) {
		t.Errorf("Splits = %v", got)
	}
}

func TestReadCSV(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 3 {
		t.Fatalf("Len = %d, want 3", ds.Len())
	}
	batch, err := ds.SentenceBatch(rand.New(rand.NewSource(1)), 1, "test", "")
	if err != nil {
		t.Fatal(err)
	}
	// numeric text stays a string
	if batch[0].Text != "123" || batch[0].Author != "twain" {
		t.Errorf("sample = %+v", batch[0])
	}

	if _, err := ReadCSV(strings.NewReader("who,text\nx,y\n")); err == nil {
		t.Error("expected error for missing columns")
	}
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	jp := filepath.Join(dir, "data.json")
	cp := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(jp, []byte(sampleJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cp, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	for path, want := range map[string]int{jp: 5, cp: 3} {
		ds, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s): %v", path, err)
		}
		if ds.Len() != want {
			t.Errorf("Load(%s).Len = %d, want %d", path, ds.Len(), want)
		}
	}
	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSentenceBatch(t *testing.T) {
	ds, _ := ReadJSON(strings.NewReader(sampleJSON))
	rng := rand.New(rand.NewSource(42))

	batch, err := ds.SentenceBatch(rng, 20, "val", "twain")
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range batch {
		if s.Author != "twain" || s.Split != "val" {
			t.Fatalf("unexpected sample %+v", s)
		}
	}

	if _, err := ds.SentenceBatch(rng, 1, "dev", ""); !errors.Is(err, ErrUnknownSplit) {
		t.Errorf("unknown split: %v", err)
	}
	if _, err := ds.SentenceBatch(rng, 1, "train", "twain"); !errors.Is(err, ErrNoSentences) {
		t.Errorf("missing author: %v", err)
	}
}

func TestRandomString(t *testing.T) {
	ds := New("", "")
	ds.Add(Sample{Author: "a", Split: "val", Text: "abcdefghij"})
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 20; i++ {
		b, err := ds.RandomString(rng, 4, "val", "char")
		if err != nil {
			t.Fatal(err)
		}
		if len(b) != 1 || len(b[0].Text) != 4 || !strings.Contains("abcdefghij", b[0].Text) {
			t.Fatalf("window = %q", b[0].Text)
		}
	}
	b, _ := ds.RandomString(rng, 50, "val", "char")
	if b[0].Text != "abcdefghij" {
		t.Errorf("short sentence = %q", b[0].Text)
	}

	words := New("", "")
	words.Add(Sample{Author: "a", Split: "val", Text: "the cat sat on the mat"})
	w, _ := words.RandomString(rng, 2, "val", "word")
	if len(strings.Fields(w[0].Text)) != 2 {
		t.Errorf("word window = %q", w[0].Text)
	}
	if _, err := words.RandomString(rng, 2, "test", "word"); !errors.Is(err, ErrUnknownSplit) {
		t.Errorf("unknown split: %v", err)
	}
}

func TestSummary(t *testing.T) {
	ds, _ := ReadJSON(strings.NewReader(sampleJSON))
	df := ds.Summary()
	if df.Err != nil {
		t.Fatal(df.Err)
	}
	if df.Nrow() != 3 {
		t.Fatalf("rows = %d, want 3", df.Nrow())
	}
	splits := df.Col("Split").Records()
	authors := df.Col("Author").Records()
	counts := df.Col("Sentences").Records()
	if splits[0] != "train" || authors[0] != "austen" || counts[0] != "2" {
		t.Errorf("first row = %s/%s/%s", splits[0], authors[0], counts[0])
	}
	if splits[2] != "val" || authors[2] != "twain" || counts[2] != "2" {
		t.Errorf("last row = %s/%s/%s", splits[2], authors[2], counts[2])
	}
}

func TestPrepare(t *testing.T) {
	atoms, _ := vocab.FromSlice([]string{"<", ">", "a", "b", "c", " "})
	authors, _ := vocab.FromSlice([]string{"austen", "twain"})
	tok, err := tokenizer.New(atoms, "char", "<", ">")
	if err != nil {
		t.Fatal(err)
	}

	b, err := Prepare(Sample{Author: "twain", Text: "abc"}, tok, authors, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(b.Inputs, []int{0, 2, 3, 4}) {
		t.Errorf("Inputs = %v", b.Inputs)
	}
	if !reflect.DeepEqual(b.Targets, []int{2, 3, 4, 1}) {
		t.Errorf("Targets = %v", b.Targets)
	}
	if b.Author != 1 || b.Len != 4 {
		t.Errorf("Author/Len = %d/%d", b.Author, b.Len)
	}

	short, _ := Prepare(Sample{Author: "austen", Text: "abcab"}, tok, authors, 2)
	if !reflect.DeepEqual(short.Inputs, []int{0, 2, 3}) || !reflect.DeepEqual(short.Targets, []int{2, 3}) {
		t.Errorf("truncated = %v / %v", short.Inputs, short.Targets)
	}

	if _, err := Prepare(Sample{Author: "poe", Text: "a"}, tok, authors, 10); err == nil {
		t.Error("expected unknown author error")
	}
	if _, err := Prepare(Sample{Author: "austen", Text: "xyz"}, tok, authors, 10); err == nil {
		t.Error("expected unknown atom error")
	}
}
