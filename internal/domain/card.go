package domain

import "strconv"

// Suit is one of the four French suits.
type Suit string

const (
	Spades   Suit = "S"
	Hearts   Suit = "H"
	Diamonds Suit = "D"
	Clubs    Suit = "C"
)

// Suits lists every suit in deck-building order.
var Suits = [4]Suit{Spades, Hearts, Diamonds, Clubs}

// Card ranks. Number cards use their face value.
const (
	Ace   = 1
	Jack  = 11
	Queen = 12
	King  = 13
)

// Card is a single playing card.
type Card struct {
	Rank int  `json:"rank"` // 1..13 (A=1, J=11, Q=12, K=13)
	Suit Suit `json:"suit"`
}

// Value returns the blackjack value of the card with aces counted as 11.
func (c Card) Value() int {
	switch {
	case c.Rank == Ace:
		return 11
	case c.Rank >= 10:
		return 10
	default:
		return c.Rank
	}
}

// IsTenValue reports whether the card counts as ten (10, J, Q, K).
func (c Card) IsTenValue() bool {
	return c.Rank >= 10
}

func (c Card) String() string {
	var r string
	switch c.Rank {
	case Ace:
		r = "A"
	case Jack:
		r = "J"
	case Queen:
		r = "Q"
	case King:
		r = "K"
	default:
		r = strconv.Itoa(c.Rank)
	}
	return r + string(c.Suit)
}

// NewDeck returns an ordered 52-card deck.
func NewDeck() []Card {
	deck := make([]Card, 0, 52)
	for _, s := range Suits {
		for r := Ace; r <= King; r++ {
			deck = append(deck, Card{Rank: r, Suit: s})
		}
	}
	return deck
}

func cloneCards(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	out := make([]Card, len(cards))
	copy(out, cards)
	return out
}
