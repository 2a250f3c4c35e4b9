package ui

import "testing"

func TestFuzzyMatchBasic(t *testing.T) {
	result := FuzzyMatch("the stream is starting soon", []rune("starting"), nil)
	if result.Score <= 0 {
		t.Fatal("expected positive score for substring match")
	}
	if len(result.Positions) == 0 {
		t.Fatal("expected non-empty match positions")
	}
}

func TestFuzzyMatchNonContiguous(t *testing.T) {
	result := FuzzyMatch("pooling leak", []rune("plk"), nil)
	if result.Score <= 0 {
		t.Fatal("expected positive score for non-contiguous fuzzy match")
	}
}

func TestFuzzyMatchNoMatch(t *testing.T) {
	result := FuzzyMatch("hello chat", []rune("xyz"), nil)
	if result.Score != 0 || len(result.Positions) != 0 {
		t.Errorf("expected zero result, got %+v", result)
	}
}

func TestFuzzyMatchCaseInsensitive(t *testing.T) {
	result := FuzzyMatch("POG Champ Moment", []rune("pog"), nil)
	if result.Score <= 0 {
		t.Fatalf("expected case-insensitive match, got score=%d", result.Score)
	}
}

func TestFuzzyMatchEmptyPattern(t *testing.T) {
	if result := FuzzyMatch("anything", nil, nil); result.Score != 0 {
		t.Errorf("empty pattern scored %d", result.Score)
	}
}

func TestSearchRingOrdersByScore(t *testing.T) {
	r := NewRing(10)
	r.Append(chatLine("a", "viewer", "pooling is great"))
	r.Append(chatLine("b", "viewer", "p-something o-other l-long i-inner n-nope g-gone"))
	r.Append(chatLine("c", "viewer", "unrelated"))

	hits := SearchRing(r, "pooling", nil)
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
	if hits[0].Line.ID != "a" {
		t.Errorf("best hit = %s, want the exact substring match", hits[0].Line.ID)
	}
	for _, h := range hits {
		text := []rune(SearchText(h.Line))
		for _, p := range h.Positions {
			if p < 0 || p >= len(text) {
				t.Errorf("position %d out of bounds for %q", p, string(text))
			}
		}
	}
}

func TestSearchRingMatchesAuthor(t *testing.T) {
	r := NewRing(10)
	r.Append(chatLine("a", "somestreamer", "hello"))

	hits := SearchRing(r, "somestreamer", nil)
	if len(hits) != 1 {
		t.Fatalf("author search found %d hits", len(hits))
	}
}

func TestSearchRingEmptyQuery(t *testing.T) {
	r := NewRing(10)
	r.Append(chatLine("a", "viewer", "hello"))
	if hits := SearchRing(r, "  ", nil); hits != nil {
		t.Errorf("blank query returned %d hits", len(hits))
	}
}
