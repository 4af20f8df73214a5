package cards

import "math/rand/v2"

// Deck is a 52-card deck dealt from the top down after a Fisher-Yates
// shuffle. It is not safe for concurrent use; callers serialize access the
// same way they serialize every other hand mutation.
type Deck struct {
	cards [52]Card
	next  int
}

// NewDeck returns a fresh, unshuffled deck.
func NewDeck() *Deck {
	d := &Deck{}
	i := 0
	for suit := Clubs; suit <= Spades; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards[i] = Card{Rank: rank, Suit: suit}
			i++
		}
	}
	return d
}

// Shuffle randomizes card order using the supplied RNG and resets the deal
// cursor to the top.
func (d *Deck) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
	d.next = 0
}

// Deal removes and returns the next n cards from the top of the deck.
func (d *Deck) Deal(n int) []Card {
	if d.next+n > len(d.cards) {
		panic("cards: deck exhausted")
	}
	out := make([]Card, n)
	copy(out, d.cards[d.next:d.next+n])
	d.next += n
	return out
}

// Remaining reports how many cards are left to deal.
func (d *Deck) Remaining() int {
	return len(d.cards) - d.next
}
