package paramstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeGetter struct {
	vals    []string
	errs    []error
	calls   int
	gotName string
}

func (f *fakeGetter) GetParameter(_ context.Context, name string) (string, error) {
	f.gotName = name
	i := f.calls
	f.calls++
	var val string
	var err error
	if i < len(f.vals) {
		val = f.vals[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return val, err
}

func TestKeySource_ExplicitKeyWins(t *testing.T) {
	g := &fakeGetter{vals: []string{"from-ssm"}}
	ks, err := NewKeySource("  explicit-key ", g, "/palm-reader")
	require.NoError(t, err)

	key, err := ks.APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "explicit-key", key)
	require.Zero(t, g.calls)
}

func TestKeySource_NoSourceIsOffline(t *testing.T) {
	ks, err := NewKeySource("", nil, "")
	require.NoError(t, err)

	key, err := ks.APIKey(context.Background())
	require.NoError(t, err)
	require.Empty(t, key)
}

func TestKeySource_RequiresPrefixWithGetter(t *testing.T) {
	_, err := NewKeySource("", &fakeGetter{}, " / ")
	require.Error(t, err)
}

func TestKeySource_ReadsAndCaches(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "json token", raw: `{"token":"AIza-ssm"}`},
		{name: "raw value", raw: "  AIza-ssm\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &fakeGetter{vals: []string{tt.raw}}
			ks, err := NewKeySource("", g, "/palm-reader/")
			require.NoError(t, err)

			for range 3 {
				key, err := ks.APIKey(context.Background())
				require.NoError(t, err)
				require.Equal(t, "AIza-ssm", key)
			}
			require.Equal(t, 1, g.calls)
			require.Equal(t, "/palm-reader/api-key", g.gotName)
		})
	}
}

func TestKeySource_NotFoundIsOffline(t *testing.T) {
	g := &fakeGetter{errs: []error{fmt.Errorf("%w: /palm-reader/api-key", ErrNotFound)}}
	ks, err := NewKeySource("", g, "/palm-reader")
	require.NoError(t, err)

	key, err := ks.APIKey(context.Background())
	require.NoError(t, err)
	require.Empty(t, key)
}

func TestKeySource_MissingParameterIsRememberedForTTL(t *testing.T) {
	notFound := fmt.Errorf("%w: /palm-reader/api-key", ErrNotFound)
	g := &fakeGetter{
		vals: []string{"", `{"token":"AIza-created"}`},
		errs: []error{notFound, nil},
	}
	ks, err := NewKeySource("", g, "/palm-reader")
	require.NoError(t, err)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ks.now = func() time.Time { return now }

	for range 5 {
		key, err := ks.APIKey(context.Background())
		require.NoError(t, err)
		require.Empty(t, key)
	}
	require.Equal(t, 1, g.calls)

	now = now.Add(MissTTL - time.Second)
	key, err := ks.APIKey(context.Background())
	require.NoError(t, err)
	require.Empty(t, key)
	require.Equal(t, 1, g.calls)

	now = now.Add(time.Second)
	key, err = ks.APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "AIza-created", key)
	require.Equal(t, 2, g.calls)
}

func TestKeySource_FailuresAreNotCached(t *testing.T) {
	g := &fakeGetter{
		vals: []string{"", `{"token":"AIza-later"}`},
		errs: []error{errors.New("throttled"), nil},
	}
	ks, err := NewKeySource("", g, "/palm-reader")
	require.NoError(t, err)

	_, err = ks.APIKey(context.Background())
	require.ErrorContains(t, err, "throttled")

	key, err := ks.APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "AIza-later", key)
	require.Equal(t, 2, g.calls)
}

func TestParseKey_Errors(t *testing.T) {
	_, err := parseKey(`{"other":"value"}`)
	require.ErrorContains(t, err, "empty")

	_, err = parseKey(`{"broken`)
	require.ErrorContains(t, err, "unmarshal")

	_, err = parseKey("   ")
	require.ErrorContains(t, err, "empty")
}
