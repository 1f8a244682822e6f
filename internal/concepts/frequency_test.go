package concepts

import (
	"fmt"
	"strings"
	"testing"
)

func TestFrequencyExtractor_EmptyText(t *testing.T) {
	ents, rels := NewFrequencyExtractor().Extract("")
	if len(ents) != 0 || len(rels) != 0 {
		t.Fatalf("expected empty results, got %v / %v", ents, rels)
	}
}

func TestFrequencyExtractor_NoTokenRepeats(t *testing.T) {
	ents, rels := NewFrequencyExtractor().Extract("alpha beta gamma delta")
	if len(ents) != 0 || len(rels) != 0 {
		t.Fatalf("expected no concepts when nothing repeats, got %v / %v", ents, rels)
	}
}

func TestFrequencyExtractor_ShortTokensDropped(t *testing.T) {
	ents, _ := NewFrequencyExtractor().Extract("a a a bb bb")
	if len(ents) != 1 || ents[0] != "bb" {
		t.Fatalf("expected only bb to survive, got %v", ents)
	}
}

func TestFrequencyExtractor_FirstSeenOrderAndAdjacency(t *testing.T) {
	text := "machine learning machine deep learning deep network network"
	ents, rels := NewFrequencyExtractor().Extract(text)

	want := []string{"machine", "learning", "deep", "network"}
	if len(ents) != len(want) {
		t.Fatalf("entities: got %v, want %v", ents, want)
	}
	for i := range want {
		if ents[i] != want[i] {
			t.Fatalf("entities out of order: got %v, want %v", ents, want)
		}
	}

	if len(rels) != len(ents)-1 {
		t.Fatalf("relation count: got %d, want %d", len(rels), len(ents)-1)
	}
	for i, r := range rels {
		if r.Source != ents[i] || r.Target != ents[i+1] {
			t.Fatalf("relation %d does not pair consecutive entries: %+v", i, r)
		}
	}
}

func TestFrequencyExtractor_ChineseSlideText(t *testing.T) {
	ents, rels := NewFrequencyExtractor().Extract("机器学习 机器学习 深度学习 深度学习 无关 无关")

	want := []string{"机器学习", "深度学习", "无关"}
	if len(ents) != 3 {
		t.Fatalf("entities: got %v, want %v", ents, want)
	}
	for i := range want {
		if ents[i] != want[i] {
			t.Fatalf("entities: got %v, want %v", ents, want)
		}
	}

	if len(rels) != 2 {
		t.Fatalf("relations: got %v", rels)
	}
	if rels[0] != (Relation{Source: "机器学习", Target: "深度学习"}) {
		t.Fatalf("unexpected first relation: %+v", rels[0])
	}
	if rels[1] != (Relation{Source: "深度学习", Target: "无关"}) {
		t.Fatalf("unexpected second relation: %+v", rels[1])
	}
}

func TestFrequencyExtractor_CapsAtMaxConcepts(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 150; i++ {
		tok := fmt.Sprintf("tok%03d", i)
		b.WriteString(tok + " " + tok + " ")
	}
	ents, rels := NewFrequencyExtractor().Extract(b.String())

	if len(ents) != maxConcepts {
		t.Fatalf("expected cap at %d, got %d", maxConcepts, len(ents))
	}
	if ents[0] != "tok000" || ents[maxConcepts-1] != fmt.Sprintf("tok%03d", maxConcepts-1) {
		t.Fatalf("cap must preserve first-seen prefix, got first=%s last=%s", ents[0], ents[len(ents)-1])
	}
	if len(rels) != maxConcepts-1 {
		t.Fatalf("relations after cap: got %d, want %d", len(rels), maxConcepts-1)
	}
}

func TestFrequencyExtractor_PunctuationSeparatesTokens(t *testing.T) {
	ents, _ := NewFrequencyExtractor().Extract("graph-store, graph-store; store!graph")
	want := []string{"graph", "store"}
	if len(ents) != 2 || ents[0] != want[0] || ents[1] != want[1] {
		t.Fatalf("entities: got %v, want %v", ents, want)
	}
}

func TestFrequencyExtractor_SingleSurvivorHasNoRelations(t *testing.T) {
	ents, rels := NewFrequencyExtractor().Extract("solo solo")
	if len(ents) != 1 {
		t.Fatalf("entities: got %v", ents)
	}
	if len(rels) != 0 {
		t.Fatalf("expected no relations for fewer than 2 concepts, got %v", rels)
	}
}
