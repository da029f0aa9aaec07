package deck

import "testing"

var (
	holdemPrivate = []int{2, 0, 0, 0}
	holdemPublic  = []int{0, 3, 1, 1}
)

func TestDeckDeterminism(t *testing.T) {
	a := New(7)
	b := New(7)

	for i := 0; i < 5; i++ {
		ha := a.DealHand(2, 4, holdemPrivate, holdemPublic)
		hb := b.DealHand(2, 4, holdemPrivate, holdemPublic)
		if ha.String() != hb.String() {
			t.Fatalf("hand %d differs:\n%s\n%s", i, ha, hb)
		}
	}
}

func TestDeckSeedsDiffer(t *testing.T) {
	a := New(1).DealHand(2, 4, holdemPrivate, holdemPublic)
	b := New(2).DealHand(2, 4, holdemPrivate, holdemPublic)
	if a.String() == b.String() {
		t.Fatalf("different seeds dealt the same hand: %s", a)
	}
}

func TestDeckSkipMatchesDeal(t *testing.T) {
	a := New(99)
	b := New(99)

	a.DealHand(2, 4, holdemPrivate, holdemPublic)
	a.DealHand(2, 4, holdemPrivate, holdemPublic)
	b.Skip(2, 4, holdemPrivate, holdemPublic)
	b.Skip(2, 4, holdemPrivate, holdemPublic)

	if a.HandsDealt() != 2 || b.HandsDealt() != 2 {
		t.Fatalf("deal counters diverged: %d vs %d", a.HandsDealt(), b.HandsDealt())
	}
	ha := a.DealHand(2, 4, holdemPrivate, holdemPublic)
	hb := b.DealHand(2, 4, holdemPrivate, holdemPublic)
	if ha.String() != hb.String() {
		t.Fatalf("skip diverged from deal:\n%s\n%s", ha, hb)
	}
}

func TestDealHandNoDuplicates(t *testing.T) {
	d := New(3)
	hr := d.DealHand(3, 4, holdemPrivate, holdemPublic)

	seen := map[Card]bool{}
	check := func(cards []Card) {
		for _, c := range cards {
			if seen[c] {
				t.Fatalf("card %s dealt twice", c)
			}
			seen[c] = true
		}
	}
	for pos := 0; pos < 3; pos++ {
		for r := 0; r < 4; r++ {
			check(hr.private[pos][r])
		}
	}
	for r := 0; r < 4; r++ {
		check(hr.public[r])
	}
	// 3 seats x 2 hole cards + 5 board cards
	if len(seen) != 11 {
		t.Fatalf("dealt %d distinct cards, want 11", len(seen))
	}
}

func TestHandRecordEmptyQueries(t *testing.T) {
	hr := NewHandRecord(2, 4)
	hr.SetPrivate(0, 0, mustCards(t, "AhKd"))
	hr.SetPublic(1, mustCards(t, "2c3c4c"))

	if got := hr.PrivateCards(0, 0); got != "AhKd" {
		t.Errorf("PrivateCards(0,0) = %q, want AhKd", got)
	}
	if got := hr.PrivateCards(1, 0); got != "" {
		t.Errorf("undealt position rendered %q, want empty", got)
	}
	if got := hr.PrivateCards(0, 2); got != "" {
		t.Errorf("undealt round rendered %q, want empty", got)
	}
	if got := hr.PrivateCards(5, 0); got != "" {
		t.Errorf("out-of-range position rendered %q, want empty", got)
	}
	if got := hr.PublicCards(1); got != "2c3c4c" {
		t.Errorf("PublicCards(1) = %q, want 2c3c4c", got)
	}
	if got := hr.PublicCards(3); got != "" {
		t.Errorf("empty public round rendered %q, want empty", got)
	}
}

func TestHandRecordEvaluationCards(t *testing.T) {
	hr := NewHandRecord(2, 2)
	hr.SetPrivate(1, 0, mustCards(t, "AhKd"))
	hr.SetPublic(1, mustCards(t, "2c3c4c"))

	cards := hr.EvaluationCards(1)
	if got := CardsString(cards); got != "AhKd2c3c4c" {
		t.Fatalf("EvaluationCards(1) = %q, want AhKd2c3c4c", got)
	}
}

func TestParseCardRoundTrip(t *testing.T) {
	for _, s := range []string{"2c", "9d", "Th", "Js", "Qc", "Kd", "Ah"} {
		c, err := ParseCard(s)
		if err != nil {
			t.Fatalf("ParseCard(%q): %v", s, err)
		}
		if c.String() != s {
			t.Errorf("round trip %q -> %q", s, c)
		}
	}
	for _, s := range []string{"", "A", "1h", "Ax", "10h", "ah"} {
		if _, err := ParseCard(s); err == nil {
			t.Errorf("ParseCard(%q) accepted invalid card", s)
		}
	}
}

func mustCards(t *testing.T, s string) []Card {
	t.Helper()
	var cards []Card
	for i := 0; i < len(s); i += 2 {
		c, err := ParseCard(s[i : i+2])
		if err != nil {
			t.Fatalf("bad card literal %q: %v", s[i:i+2], err)
		}
		cards = append(cards, c)
	}
	return cards
}
