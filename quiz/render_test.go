package quiz

import (
	"testing"
	"time"
)

func TestEscapeMarkdown(t *testing.T) {
	got := EscapeMarkdown(`a_b*c[d](e)~f` + "`" + `>#+-=|{}.!\`)
	want := `a\_b\*c\[d\]\(e\)\~f\` + "`" + `\>\#\+\-\=\|\{\}\.\!\\`
	if got != want {
		t.Fatalf("EscapeMarkdown=%q, want %q", got, want)
	}
	if got := EscapeMarkdown("plain text 123"); got != "plain text 123" {
		t.Fatalf("plain text changed: %q", got)
	}
}

func TestChoiceLabel(t *testing.T) {
	for i, want := range []string{"A", "B", "C", "D", "E"} {
		if got := ChoiceLabel(i); got != want {
			t.Fatalf("ChoiceLabel(%d)=%s, want %s", i, got, want)
		}
	}
	if got := ChoiceLabel(-1); got != "?" {
		t.Fatalf("ChoiceLabel(-1)=%s", got)
	}
}

func TestSplitElapsed(t *testing.T) {
	cases := []struct {
		d        time.Duration
		min, sec int
	}{
		{75 * time.Second, 1, 15},
		{75*time.Second + 999*time.Millisecond, 1, 15},
		{59 * time.Second, 0, 59},
		{-5 * time.Second, 0, 0},
		{10 * time.Minute, 10, 0},
	}
	for _, c := range cases {
		m, s := SplitElapsed(c.d)
		if m != c.min || s != c.sec {
			t.Fatalf("SplitElapsed(%v)=%d,%d want %d,%d", c.d, m, s, c.min, c.sec)
		}
	}
}
