package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// MaxTitleRunes bounds the derived title length.
	MaxTitleRunes = 120

	slugWordLimit  = 8
	slugHashLength = 8
)

// Common validation errors for items
var (
	ErrItemTextEmpty  = errors.New("item text cannot be empty")
	ErrItemJobIDEmpty = errors.New("item job ID cannot be empty")
	ErrItemUnitEmpty  = errors.New("item unit cannot be empty")
	ErrItemTierEmpty  = errors.New("item tier is invalid")
)

// CandidateItem is unvalidated generation output. SequenceID is the
// provider-assigned position within the batch and carries no identity.
type CandidateItem struct {
	SequenceID int    `json:"id"`
	Text       string `json:"text"`
}

// AcceptedItem is a candidate that passed the quality gate and is handed to
// the content store. All fields besides ID, JobID, Unit, Tier and CreatedAt
// are derived from Text.
type AcceptedItem struct {
	ID          uuid.UUID `json:"id"`
	JobID       uuid.UUID `json:"job_id"`
	Unit        string    `json:"unit"`
	Tier        Tier      `json:"tier"`
	Text        string    `json:"text"`
	ContentHash string    `json:"content_hash"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	WordCount   int       `json:"word_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// DeriveItem builds an AcceptedItem from a candidate's text. Derivation is
// deterministic: the same text always yields the same hash, slug, title and
// word count.
func DeriveItem(jobID uuid.UUID, unit string, tier Tier, text string) (*AcceptedItem, error) {
	normalized := NormalizeText(text)
	if normalized == "" {
		return nil, ErrItemTextEmpty
	}

	hash := ContentHash(normalized)
	item := &AcceptedItem{
		ID:          uuid.New(),
		JobID:       jobID,
		Unit:        unit,
		Tier:        tier,
		Text:        normalized,
		ContentHash: hash,
		Slug:        deriveSlug(normalized, hash),
		Title:       deriveTitle(normalized),
		WordCount:   len(strings.Fields(normalized)),
		CreatedAt:   time.Now().UTC(),
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

// Validate checks that the item carries everything the content store needs.
func (i *AcceptedItem) Validate() error {
	if strings.TrimSpace(i.Text) == "" {
		return ErrItemTextEmpty
	}
	if i.JobID == uuid.Nil {
		return ErrItemJobIDEmpty
	}
	if strings.TrimSpace(i.Unit) == "" {
		return ErrItemUnitEmpty
	}
	if !i.Tier.IsValid() {
		return ErrItemTierEmpty
	}
	return nil
}

// NormalizeText trims the text and collapses internal whitespace runs.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ContentHash returns the hex SHA-256 of the normalized text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(NormalizeText(text)))
	return hex.EncodeToString(sum[:])
}

func deriveSlug(text, hash string) string {
	var words []string
	for _, field := range strings.Fields(strings.ToLower(text)) {
		word := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, field)
		if word == "" {
			continue
		}
		words = append(words, word)
		if len(words) == slugWordLimit {
			break
		}
	}

	suffix := hash[:slugHashLength]
	if len(words) == 0 {
		return suffix
	}
	return strings.Join(words, "-") + "-" + suffix
}

func deriveTitle(text string) string {
	title := text
	if idx := strings.IndexAny(text, ".!?"); idx >= 0 {
		title = text[:idx+1]
	}

	if utf8.RuneCountInString(title) > MaxTitleRunes {
		runes := []rune(title)
		title = strings.TrimSpace(string(runes[:MaxTitleRunes]))
	}
	return title
}
