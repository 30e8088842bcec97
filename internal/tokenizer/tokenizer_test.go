package tokenizer

import (
	"reflect"
	"testing"

	"github.com/23skdu/longbow-quill/internal/vocab"
)

func charTokenizer(t *testing.T) *Tokenizer {
	t.Helper()
	atoms, err := vocab.FromSlice([]string{"<", ">", "a", "b", " ", "é"})
	if err != nil {
		t.Fatal(err)
	}
	tok, err := New(atoms, "char", "<", ">")
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestEncodeChars(t *testing.T) {
	tok := charTokenizer(t)
	ids, err := tok.Encode("ab é")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids, []int{2, 3, 4, 5}) {
		t.Errorf("Encode = %v", ids)
	}
	if _, err := tok.Encode("abc"); err == nil {
		t.Error("expected error for unknown atom")
	}
}

func TestDecodeChars(t *testing.T) {
	tok := charTokenizer(t)
	if got := tok.Decode([]int{0, 2, 99, 3, 1}); got != "<ab>" {
		t.Errorf("Decode = %q", got)
	}
	if got := tok.Decode(tok.StripEnd([]int{2, 3, 1})); got != "ab" {
		t.Errorf("Decode(StripEnd) = %q", got)
	}
	if got := tok.StripStart([]int{0, 2}); !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("StripStart = %v", got)
	}
	if got := tok.StripStart([]int{2}); !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("StripStart without start = %v", got)
	}
}

func TestWordAtoms(t *testing.T) {
	atoms, _ := vocab.FromSlice([]string{"START", "END", "the", "cat", "sat"})
	tok, err := New(atoms, "word", "START", "END")
	if err != nil {
		t.Fatal(err)
	}
	ids, err := tok.Encode("the  cat sat")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids, []int{2, 3, 4}) {
		t.Errorf("Encode = %v", ids)
	}
	if got := tok.Decode(ids); got != "the cat sat" {
		t.Errorf("Decode = %q", got)
	}
}

func TestNewErrors(t *testing.T) {
	atoms, _ := vocab.FromSlice([]string{"<", ">"})
	tests := []struct {
		name, mode, start, end string
	}{
		{"bad mode", "bpe", "<", ">"},
		{"missing start", "char", "^", ">"},
		{"missing end", "char", "<", "$"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(atoms, tt.mode, tt.start, tt.end); err == nil {
				t.Error("expected error")
			}
		})
	}
}
