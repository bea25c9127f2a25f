package api

import "testing"

func TestKind_Opposite(t *testing.T) {
	if got := KindLike.Opposite(); got != KindDislike {
		t.Errorf("Got %q, want %q", got, KindDislike)
	}
	if got := KindDislike.Opposite(); got != KindLike {
		t.Errorf("Got %q, want %q", got, KindLike)
	}
}

func TestKind_Label(t *testing.T) {
	if got := KindLike.Label(); got != "Like" {
		t.Errorf("Got %q, want Like", got)
	}
	if got := KindDislike.Label(); got != "Dislike" {
		t.Errorf("Got %q, want Dislike", got)
	}
}
