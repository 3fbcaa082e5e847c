package domain

// Slide groups the interactions shown together, in authored order.
type Slide struct {
	ID           string         `json:"id"`
	Title        string         `json:"title,omitempty"`
	Interactions []*Interaction `json:"interactions"`
}

// Deck is an ordered set of slides authored as one lesson.
type Deck struct {
	ID     string   `json:"id"`
	Title  string   `json:"title,omitempty"`
	Slides []*Slide `json:"slides"`
}

// DeckRepository serves authored definitions. Implementations return copies;
// callers may not mutate what the repository holds.
type DeckRepository interface {
	// ListDecks returns every deck, ordered by ID.
	ListDecks() []*Deck

	// GetDeck returns one deck or a NOT_FOUND error.
	GetDeck(deckID string) (*Deck, error)

	// GetSlideInteractions returns a slide's interactions in authored order.
	GetSlideInteractions(deckID, slideID string) ([]*Interaction, error)

	// GetInteraction returns one interaction or INTERACTION_NOT_FOUND.
	GetInteraction(deckID, slideID, interactionID string) (*Interaction, error)
}

// Clone returns a deep copy.
func (s *Slide) Clone() *Slide {
	if s == nil {
		return nil
	}
	c := &Slide{ID: s.ID, Title: s.Title, Interactions: make([]*Interaction, len(s.Interactions))}
	for i, in := range s.Interactions {
		c.Interactions[i] = in.Clone()
	}
	return c
}

// Clone returns a deep copy.
func (d *Deck) Clone() *Deck {
	if d == nil {
		return nil
	}
	c := &Deck{ID: d.ID, Title: d.Title, Slides: make([]*Slide, len(d.Slides))}
	for i, s := range d.Slides {
		c.Slides[i] = s.Clone()
	}
	return c
}
