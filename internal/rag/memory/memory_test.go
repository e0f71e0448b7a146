package memory

import "testing"

func TestAppend_TrimsToMaxEntries(t *testing.T) {
	s := NewStore()
	for i := 0; i < 25; i++ {
		s.Append("conv1", Message{Role: RoleUser, Content: "msg"})
	}
	if got := s.LastN("conv1", 0); len(got) != maxEntries {
		t.Fatalf("expected %d entries retained, got %d", maxEntries, len(got))
	}
}

func TestLastN_ReturnsMostRecent(t *testing.T) {
	s := NewStore()
	for i := 0; i < 10; i++ {
		s.Append("conv1", Message{Role: RoleUser, Content: string(rune('a' + i))})
	}
	got := s.LastN("conv1", 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	want := []string{"h", "i", "j"}
	for i, m := range got {
		if m.Content != want[i] {
			t.Fatalf("expected %q at %d, got %q", want[i], i, m.Content)
		}
	}
}

func TestLastN_UnknownConversationReturnsEmpty(t *testing.T) {
	s := NewStore()
	if got := s.LastN("missing", 5); len(got) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(got))
	}
}
