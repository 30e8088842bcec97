package textclean

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"round brackets", "he said -lrb- quietly -rrb-", "he said ( quietly )"},
		{"square and curly", "-lsb- x -rsb- -lcb- y -rcb-", "[ x ] { y }"},
		{"double quote", "''hello''", `"hello"`},
		{"lone i", "then i went", "then I went"},
		{"leading i", "i think so", "I think so"},
		{"gonna", "we are gon na win", "we are gonna win"},
		{"dollar", "it cost $ 5", "it cost $5"},
		{"punctuation", "wait , what ?", "wait, what?"},
		{"full stop", "the end .", "the end."},
		{"negation", "it does n't matter", "it doesn't matter"},
		{"apostrophe", "the dog 's bone", "the dog's bone"},
		{"hash", "# 1 hit", "#1 hit"},
		{"decimal", "pi is 3 . 14", "pi is 3.14"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanIsIdempotentOnCleanText(t *testing.T) {
	clean := []string{
		"It was the best of times, it was the worst of times.",
		"I said (quietly) that it doesn't matter.",
		`She asked: "where?"`,
		"The price was $5.99 [approx].",
		"no punctuation here at all",
	}
	for _, s := range clean {
		if got := Clean(s); got != s {
			t.Errorf("Clean(%q) = %q, want unchanged", s, got)
		}
		if twice := Clean(Clean(s)); twice != Clean(s) {
			t.Errorf("Clean not idempotent on %q", s)
		}
	}
}
