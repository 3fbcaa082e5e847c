package models

import "slide-capture/internal/domain"

// DeckFile is the on-disk YAML shape of one deck.
type DeckFile struct {
	ID     string      `yaml:"id"`
	Title  string      `yaml:"title"`
	Slides []SlideFile `yaml:"slides"`
}

type SlideFile struct {
	ID           string               `yaml:"id"`
	Title        string               `yaml:"title"`
	Interactions []domain.Interaction `yaml:"interactions"`
}

// ToDomain converts the file into a deck and stamps each interaction with
// its slide ID.
func (f *DeckFile) ToDomain() *domain.Deck {
	deck := &domain.Deck{ID: f.ID, Title: f.Title, Slides: make([]*domain.Slide, 0, len(f.Slides))}
	for _, sf := range f.Slides {
		slide := &domain.Slide{ID: sf.ID, Title: sf.Title, Interactions: make([]*domain.Interaction, 0, len(sf.Interactions))}
		for i := range sf.Interactions {
			interaction := sf.Interactions[i]
			interaction.SlideID = sf.ID
			slide.Interactions = append(slide.Interactions, interaction.Clone())
		}
		deck.Slides = append(deck.Slides, slide)
	}
	return deck
}
