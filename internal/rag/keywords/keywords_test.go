package keywords

import (
	"reflect"
	"testing"
)

func TestExtract_DropsStopwordsAndShortTokens(t *testing.T) {
	got := Extract("The quick and the lazy fox is in it")
	for _, tok := range got {
		if len(tok) <= 2 {
			t.Fatalf("unexpected short token %q", tok)
		}
		if _, stop := stopwords[tok]; stop {
			t.Fatalf("unexpected stopword %q", tok)
		}
	}
}

func TestExtract_OrdersByFrequencyThenFirstAppearance(t *testing.T) {
	got := Extract("alpha beta beta gamma gamma gamma alpha")
	want := []string{"gamma", "alpha", "beta"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestExtract_TruncatesToTwenty(t *testing.T) {
	text := ""
	for i := 0; i < 30; i++ {
		text += "word" + string(rune('a'+i)) + " "
	}
	got := Extract(text)
	if len(got) > 20 {
		t.Fatalf("expected at most 20 keywords, got %d", len(got))
	}
}

func TestExtract_EmptyInput(t *testing.T) {
	if got := Extract(""); len(got) != 0 {
		t.Fatalf("expected no keywords for empty input, got %v", got)
	}
}
