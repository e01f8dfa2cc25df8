package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"palm-reader/internal/domain"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	// MaxHistoryImageBytes bounds the stored data URI so an entry stays under
	// the 400 KB DynamoDB item limit together with the reading and keys.
	MaxHistoryImageBytes = 350 * 1024
)

// HistoryStore persists readings the user wants to revisit.
type HistoryStore interface {
	Load(ctx context.Context, limit int) ([]domain.HistoryEntry, error)
	Append(ctx context.Context, entry domain.HistoryEntry) error
}

type SaveInput struct {
	Reading      domain.Reading
	Image        string
	DominantHand domain.Hand
}

// HistoryService records accepted readings on behalf of the caller.
type HistoryService struct {
	store HistoryStore
	now   func() time.Time
}

func NewHistoryService(store HistoryStore) (*HistoryService, error) {
	if store == nil {
		return nil, errors.New("usecase: history store must not be nil")
	}
	return &HistoryService{store: store, now: time.Now}, nil
}

func (h *HistoryService) Save(ctx context.Context, in SaveInput) (domain.HistoryEntry, error) {
	reading := in.Reading
	if err := ValidateReading(&reading); err != nil {
		return domain.HistoryEntry{}, newError(ErrorInvalidInput, "invalid_reading", err)
	}
	image := strings.TrimSpace(in.Image)
	if len(image) > MaxHistoryImageBytes {
		return domain.HistoryEntry{}, newError(ErrorInvalidInput, "image_too_large",
			fmt.Errorf("image is %d bytes, limit is %d", len(image), MaxHistoryImageBytes))
	}
	entry := domain.HistoryEntry{
		ID:           newUUID(),
		Date:         h.now().UTC(),
		Reading:      reading,
		Image:        image,
		DominantHand: in.DominantHand,
	}
	if err := h.store.Append(ctx, entry); err != nil {
		return domain.HistoryEntry{}, newError(ErrorInternal, "history_write_error", err)
	}
	return entry, nil
}

// List returns entries newest first.
func (h *HistoryService) List(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	entries, err := h.store.Load(ctx, limit)
	if err != nil {
		return nil, newError(ErrorInternal, "history_read_error", err)
	}
	return entries, nil
}

var newUUID = func() string {
	return uuid.NewString()
}
