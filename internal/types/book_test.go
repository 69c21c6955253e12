package types

import "testing"

func TestBookNormalize(t *testing.T) {
	b := &Book{
		Chapters: []Chapter{
			{ID: "a", Status: StatusProcessing, Progress: 40, AudioParts: []AudioPart{{ID: "a-part-0"}}},
			{ID: "b", Status: StatusProcessing, Progress: 15},
			{ID: "c", Status: StatusError, Progress: 0},
		},
	}
	b.Normalize()

	if b.Chapters[0].Status != StatusCompleted || b.Chapters[0].Progress != 100 {
		t.Errorf("chapter a: got %s/%d, want completed/100", b.Chapters[0].Status, b.Chapters[0].Progress)
	}
	if b.Chapters[1].Status != StatusIdle || b.Chapters[1].Progress != 0 {
		t.Errorf("chapter b: got %s/%d, want idle/0", b.Chapters[1].Status, b.Chapters[1].Progress)
	}
	if b.Chapters[2].Status != StatusError {
		t.Errorf("chapter c: status changed to %s", b.Chapters[2].Status)
	}
}

func TestBookClone(t *testing.T) {
	ts := 12.5
	b := &Book{
		ID:             "book-1",
		SourceDocument: []byte("%PDF-"),
		Chapters: []Chapter{
			{ID: "c1", AudioParts: []AudioPart{{ID: "c1-part-0", LastTimestamp: &ts}}},
		},
	}
	c := b.Clone()
	*c.Chapters[0].AudioParts[0].LastTimestamp = 99
	c.Chapters[0].Title = "changed"
	c.SourceDocument[0] = 'x'

	if *b.Chapters[0].AudioParts[0].LastTimestamp != 12.5 {
		t.Error("clone shares timestamp pointer")
	}
	if b.Chapters[0].Title != "" {
		t.Error("clone shares chapter slice")
	}
	if b.SourceDocument[0] != '%' {
		t.Error("clone shares source document")
	}
}

func TestBookLookup(t *testing.T) {
	b := &Book{Chapters: []Chapter{{ID: "c1", AudioParts: []AudioPart{{ID: "p0"}}}}}
	if b.Chapter("missing") != nil {
		t.Error("expected nil for missing chapter")
	}
	ch := b.Chapter("c1")
	if ch == nil {
		t.Fatal("expected chapter c1")
	}
	if ch.Part("p0") == nil {
		t.Error("expected part p0")
	}
	if ch.Part("p1") != nil {
		t.Error("expected nil for missing part")
	}
}
