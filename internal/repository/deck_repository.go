package repository

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"slide-capture/internal/domain"
	"slide-capture/internal/logger"
	"slide-capture/internal/repository/models"
	"slide-capture/internal/validation"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type deckRepository struct {
	decks map[string]*domain.Deck
	// slides indexes "<deck>/<slide>" for lookups from the HTTP surface.
	slides map[string]*domain.Slide
}

// NewDeckRepository loads every *.yaml / *.yml file in dir. Any invalid
// definition fails the whole load.
func NewDeckRepository(dir string, v *validation.Validator) (domain.DeckRepository, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read deck directory %s: %w", dir, err)
	}

	var decks []*domain.Deck
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read deck file %s: %w", path, err)
		}
		deck, err := ParseDeck(data, v)
		if err != nil {
			return nil, fmt.Errorf("deck file %s: %w", e.Name(), err)
		}
		decks = append(decks, deck)
	}

	repo, err := NewInMemoryDeckRepository(decks...)
	if err != nil {
		return nil, err
	}
	logger.Get().Info("DeckRepository: decks loaded", zap.String("dir", dir), zap.Int("count", len(decks)))
	return repo, nil
}

// NewInMemoryDeckRepository serves already-parsed decks. Deck IDs must be unique.
func NewInMemoryDeckRepository(decks ...*domain.Deck) (domain.DeckRepository, error) {
	r := &deckRepository{
		decks:  make(map[string]*domain.Deck, len(decks)),
		slides: make(map[string]*domain.Slide),
	}
	for _, d := range decks {
		if _, dup := r.decks[d.ID]; dup {
			return nil, domain.NewError(domain.CodeValidation, fmt.Sprintf("deck %q is defined more than once", d.ID), nil)
		}
		d = d.Clone()
		r.decks[d.ID] = d
		for _, s := range d.Slides {
			r.slides[slideKey(d.ID, s.ID)] = s
		}
	}
	return r, nil
}

// ParseDeck decodes one YAML deck and validates every definition in it.
func ParseDeck(data []byte, v *validation.Validator) (*domain.Deck, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file models.DeckFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.NewInvalidInputError("deck file is empty")
		}
		return nil, domain.NewError(domain.CodeInvalidFormat, "failed to parse deck", err)
	}

	if errs := validateDeckFile(&file, v); len(errs) > 0 {
		return nil, domain.NewError(domain.CodeValidation, fmt.Sprintf("deck %q has invalid definitions", file.ID), errs)
	}
	return file.ToDomain(), nil
}

func validateDeckFile(file *models.DeckFile, v *validation.Validator) domain.ValidationErrors {
	var errs domain.ValidationErrors
	if file.ID == "" {
		errs = append(errs, domain.NewMissingFieldError("id"))
	}

	slideIDs := make(map[string]bool, len(file.Slides))
	for si, slide := range file.Slides {
		slidePath := fmt.Sprintf("slides[%d]", si)
		if slide.ID == "" {
			errs = append(errs, domain.NewMissingFieldError(slidePath+".id"))
		} else if slideIDs[slide.ID] {
			errs = append(errs, domain.NewInvalidValueError(slidePath+".id", fmt.Sprintf("slide %q is defined more than once", slide.ID)))
		}
		slideIDs[slide.ID] = true

		interactionIDs := make(map[string]bool, len(slide.Interactions))
		for ii := range slide.Interactions {
			interaction := &slide.Interactions[ii]
			path := fmt.Sprintf("%s.interactions[%d]", slidePath, ii)
			if interaction.ID != "" && interactionIDs[interaction.ID] {
				errs = append(errs, domain.NewInvalidValueError(path+".id", fmt.Sprintf("interaction %q is defined more than once", interaction.ID)))
			}
			interactionIDs[interaction.ID] = true
			if ierrs := v.ValidateInteraction(interaction); len(ierrs) > 0 {
				errs = append(errs, ierrs.Prefixed(path)...)
			}
		}
	}
	return errs
}

func (r *deckRepository) ListDecks() []*domain.Deck {
	ids := make([]string, 0, len(r.decks))
	for id := range r.decks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*domain.Deck, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.decks[id].Clone())
	}
	return out
}

func (r *deckRepository) GetDeck(deckID string) (*domain.Deck, error) {
	d, ok := r.decks[deckID]
	if !ok {
		return nil, domain.NewNotFoundError(fmt.Sprintf("deck %q not found", deckID))
	}
	return d.Clone(), nil
}

func (r *deckRepository) GetSlideInteractions(deckID, slideID string) ([]*domain.Interaction, error) {
	s, ok := r.slides[slideKey(deckID, slideID)]
	if !ok {
		return nil, domain.NewNotFoundError(fmt.Sprintf("slide %q not found in deck %q", slideID, deckID))
	}
	return s.Clone().Interactions, nil
}

func (r *deckRepository) GetInteraction(deckID, slideID, interactionID string) (*domain.Interaction, error) {
	s, ok := r.slides[slideKey(deckID, slideID)]
	if !ok {
		return nil, domain.NewInteractionNotFoundError(slideID, interactionID)
	}
	for _, in := range s.Interactions {
		if in.ID == interactionID {
			return in.Clone(), nil
		}
	}
	return nil, domain.NewInteractionNotFoundError(slideID, interactionID)
}

func slideKey(deckID, slideID string) string {
	return deckID + "/" + slideID
}
