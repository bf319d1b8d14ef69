package publication

import (
	"unicode/utf8"

	"anoa.com/folio/internal/entity"
	"anoa.com/folio/pkg/apperror"
)

func validateTitle(title string) error {
	if title == "" {
		return apperror.InvalidInput("Required! Must include a title")
	}
	if utf8.RuneCountInString(title) < minTitleLength {
		return apperror.InvalidInput("Too short title!")
	}
	return nil
}

func validateText(text string) error {
	if text == "" {
		return apperror.InvalidInput("Required! Must include a text")
	}
	if utf8.RuneCountInString(text) < minTextLength {
		return apperror.InvalidInput("Too short text!")
	}
	return nil
}

// normalize makes empty child lists render as [] rather than null.
func normalize(pub *entity.Publication) *entity.Publication {
	if pub.Ratings == nil {
		pub.Ratings = []entity.Rating{}
	}
	if pub.Comments == nil {
		pub.Comments = []entity.Comment{}
	}
	return pub
}

func normalizeAll(pubs []*entity.Publication) []*entity.Publication {
	if pubs == nil {
		return []*entity.Publication{}
	}
	for _, pub := range pubs {
		normalize(pub)
	}
	return pubs
}
