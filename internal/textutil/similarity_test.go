package textutil

import "testing"

func TestDiceSimilarity_Identical(t *testing.T) {
	a := []string{"buy", "milk"}
	if got := DiceSimilarity(a, a); got != 1.0 {
		t.Errorf("DiceSimilarity(identical) = %v, want 1.0", got)
	}
}

func TestDiceSimilarity_Disjoint(t *testing.T) {
	a := []string{"buy", "milk"}
	b := []string{"call", "dentist"}
	if got := DiceSimilarity(a, b); got != 0.0 {
		t.Errorf("DiceSimilarity(disjoint) = %v, want 0.0", got)
	}
}

func TestDiceSimilarity_Partial(t *testing.T) {
	a := []string{"buy", "milk", "eggs"}
	b := []string{"buy", "bread", "eggs"}
	got := DiceSimilarity(a, b)
	want := (2.0 * 2) / (3.0 + 3.0)
	if got != want {
		t.Errorf("DiceSimilarity(partial) = %v, want %v", got, want)
	}
}

func TestDiceSimilarity_EmptySet(t *testing.T) {
	if got := DiceSimilarity(nil, []string{"a"}); got != 0.0 {
		t.Errorf("DiceSimilarity(empty) = %v, want 0.0", got)
	}
}

func TestTextSimilarity_EndToEnd(t *testing.T) {
	got := TextSimilarity("Buy milk and eggs", "buy milk and eggs today")
	if got <= 0.5 || got >= 1.0 {
		t.Errorf("TextSimilarity = %v, want in (0.5, 1.0)", got)
	}
}
