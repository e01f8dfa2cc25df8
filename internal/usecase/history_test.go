package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"palm-reader/internal/domain"
)

type stubHistoryStore struct {
	appended []domain.HistoryEntry
	loaded   []domain.HistoryEntry
	gotLimit int
	err      error
}

func (s *stubHistoryStore) Load(_ context.Context, limit int) ([]domain.HistoryEntry, error) {
	s.gotLimit = limit
	return s.loaded, s.err
}

func (s *stubHistoryStore) Append(_ context.Context, entry domain.HistoryEntry) error {
	if s.err != nil {
		return s.err
	}
	s.appended = append(s.appended, entry)
	return nil
}

func withFixedUUID(t *testing.T, id string) {
	t.Helper()
	prev := newUUID
	newUUID = func() string { return id }
	t.Cleanup(func() { newUUID = prev })
}

func TestNewHistoryService_NilStore(t *testing.T) {
	_, err := NewHistoryService(nil)
	require.Error(t, err)
}

func TestHistorySave(t *testing.T) {
	withFixedUUID(t, "entry-1")
	store := &stubHistoryStore{}
	svc, err := NewHistoryService(store)
	require.NoError(t, err)
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.FixedZone("CET", 3600))
	svc.now = func() time.Time { return at }

	reading, err := NormalizeReading(validReadingJSON)
	require.NoError(t, err)

	entry, err := svc.Save(context.Background(), SaveInput{
		Reading:      reading,
		Image:        "  " + testDataURI() + "\n",
		DominantHand: domain.HandLeft,
	})
	require.NoError(t, err)
	require.Equal(t, "entry-1", entry.ID)
	require.Equal(t, at.UTC(), entry.Date)
	require.Equal(t, time.UTC, entry.Date.Location())
	require.Equal(t, testDataURI(), entry.Image)
	require.Equal(t, domain.HandLeft, entry.DominantHand)
	require.Equal(t, []domain.HistoryEntry{entry}, store.appended)
}

func TestHistorySave_RejectsInvalidReading(t *testing.T) {
	store := &stubHistoryStore{}
	svc, err := NewHistoryService(store)
	require.NoError(t, err)

	_, err = svc.Save(context.Background(), SaveInput{Reading: domain.Reading{OverallReading: "only this"}})
	expectUsecaseError(t, err, ErrorInvalidInput, "invalid_reading")
	require.Empty(t, store.appended)
}

func TestHistorySave_StoreFailure(t *testing.T) {
	store := &stubHistoryStore{err: errors.New("table missing")}
	svc, err := NewHistoryService(store)
	require.NoError(t, err)

	reading, err := NormalizeReading(validReadingJSON)
	require.NoError(t, err)
	_, err = svc.Save(context.Background(), SaveInput{Reading: reading})
	expectUsecaseError(t, err, ErrorInternal, "history_write_error")
}

func TestHistoryList_Limits(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "default", limit: 0, want: 50},
		{name: "negative", limit: -3, want: 50},
		{name: "explicit", limit: 7, want: 7},
		{name: "capped", limit: 5000, want: 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubHistoryStore{loaded: []domain.HistoryEntry{{ID: "a"}}}
			svc, err := NewHistoryService(store)
			require.NoError(t, err)

			got, err := svc.List(context.Background(), tt.limit)
			require.NoError(t, err)
			require.Equal(t, tt.want, store.gotLimit)
			require.Len(t, got, 1)
		})
	}
}

func TestHistoryList_StoreFailure(t *testing.T) {
	svc, err := NewHistoryService(&stubHistoryStore{err: errors.New("throttled")})
	require.NoError(t, err)

	_, err = svc.List(context.Background(), 10)
	expectUsecaseError(t, err, ErrorInternal, "history_read_error")
}

func sizedDataURI(n int) string {
	const prefix = "data:image/jpeg;base64,"
	return prefix + strings.Repeat("A", n-len(prefix))
}

func TestHistorySave_ImageSize(t *testing.T) {
	reading, err := NormalizeReading(validReadingJSON)
	require.NoError(t, err)

	t.Run("at limit", func(t *testing.T) {
		store := &stubHistoryStore{}
		svc, err := NewHistoryService(store)
		require.NoError(t, err)

		image := sizedDataURI(MaxHistoryImageBytes)
		entry, err := svc.Save(context.Background(), SaveInput{Reading: reading, Image: image})
		require.NoError(t, err)
		require.Len(t, entry.Image, MaxHistoryImageBytes)
		require.Len(t, store.appended, 1)
	})

	t.Run("over limit", func(t *testing.T) {
		store := &stubHistoryStore{}
		svc, err := NewHistoryService(store)
		require.NoError(t, err)

		_, err = svc.Save(context.Background(), SaveInput{Reading: reading, Image: sizedDataURI(MaxHistoryImageBytes + 1)})
		expectUsecaseError(t, err, ErrorInvalidInput, "image_too_large")
		require.Empty(t, store.appended)
	})

	t.Run("phone photo", func(t *testing.T) {
		store := &stubHistoryStore{}
		svc, err := NewHistoryService(store)
		require.NoError(t, err)

		_, err = svc.Save(context.Background(), SaveInput{Reading: reading, Image: sizedDataURI(2_700_000)})
		expectUsecaseError(t, err, ErrorInvalidInput, "image_too_large")
		require.Empty(t, store.appended)
	})
}
