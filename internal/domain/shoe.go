package domain

import (
	"math/rand"
	"time"
)

// CardsPerDeck is the size of one standard deck.
const CardsPerDeck = 52

// reshuffleDivisor sets the penetration limit: a shoe with fewer than
// size/reshuffleDivisor cards left is reshuffled before the next deal.
const reshuffleDivisor = 4

// Shoe is a multi-deck card source. Cards are drawn from the front.
type Shoe struct {
	decks int
	size  int
	cards []Card
	next  int
	rng   *rand.Rand

	// forced counts resets triggered by drawing from an exhausted shoe.
	forced int
}

// NewShoe builds and shuffles a shoe of the given number of decks.
// A nil rng is replaced by a time-seeded source.
func NewShoe(decks int, rng *rand.Rand) *Shoe {
	if decks < 1 {
		decks = 1
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s := &Shoe{decks: decks, rng: rng}
	s.Reset()
	return s
}

// NewStackedShoe returns a shoe that deals the given cards in order before
// falling back to a shuffled reset of full decks.
func NewStackedShoe(decks int, cards []Card) *Shoe {
	if decks < 1 {
		decks = 1
	}
	return &Shoe{
		decks: decks,
		size:  len(cards),
		cards: cloneCards(cards),
		rng:   rand.New(rand.NewSource(1)),
	}
}

// Reset rebuilds the shoe from fresh decks, shuffles it and burns the top
// card to the bottom.
func (s *Shoe) Reset() {
	cards := make([]Card, 0, s.decks*CardsPerDeck)
	for i := 0; i < s.decks; i++ {
		cards = append(cards, NewDeck()...)
	}
	s.rng.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
	if len(cards) > 1 {
		burn := cards[0]
		cards = append(cards[1:], burn)
	}
	s.cards = cards
	s.size = len(cards)
	s.next = 0
}

// Draw removes and returns the next card. An exhausted shoe is reset first.
func (s *Shoe) Draw() Card {
	if s.next >= len(s.cards) {
		s.forced++
		s.Reset()
	}
	c := s.cards[s.next]
	s.next++
	return c
}

// Remaining returns the number of undealt cards.
func (s *Shoe) Remaining() int {
	return len(s.cards) - s.next
}

// Len returns the number of cards the shoe holds when full.
func (s *Shoe) Len() int {
	return s.size
}

// Decks returns the number of decks in the shoe.
func (s *Shoe) Decks() int {
	return s.decks
}

// NeedsReshuffle reports whether fewer than a quarter of the cards remain.
func (s *Shoe) NeedsReshuffle() bool {
	return s.Remaining()*reshuffleDivisor < s.Len()
}

// ForcedResets returns how many times Draw had to reset an exhausted shoe.
func (s *Shoe) ForcedResets() int {
	return s.forced
}

func (s *Shoe) clone() *Shoe {
	return &Shoe{
		decks:  s.decks,
		size:   s.size,
		cards:  cloneCards(s.cards),
		next:   s.next,
		rng:    s.rng,
		forced: s.forced,
	}
}
