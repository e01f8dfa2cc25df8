package paramstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// KeyParameter is the parameter name, relative to the prefix, holding the
// model API key.
const KeyParameter = "/api-key"

// MissTTL is how long a missing parameter is remembered before the next lookup.
const MissTTL = time.Minute

// tokenPayload is the JSON shape accepted for the stored key.
type tokenPayload struct {
	Token string `json:"token"`
}

// KeySource resolves the model API key. An explicit key wins; otherwise the
// key is read from Parameter Store. A missing parameter resolves to "" so the
// caller can run without a model. Successful lookups are cached for the life
// of the source, a missing parameter for MissTTL, errors not at all.
type KeySource struct {
	explicit string
	getter   Getter
	name     string
	now      func() time.Time

	mu        sync.Mutex
	cached    string
	missUntil time.Time
}

func NewKeySource(explicit string, getter Getter, prefix string) (*KeySource, error) {
	explicit = strings.TrimSpace(explicit)
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if explicit == "" && getter != nil && prefix == "" {
		return nil, errors.New("paramstore: parameter prefix must not be empty")
	}
	ks := &KeySource{explicit: explicit, getter: getter, now: time.Now}
	if prefix != "" {
		ks.name = prefix + KeyParameter
	}
	return ks, nil
}

func (k *KeySource) APIKey(ctx context.Context) (string, error) {
	if k.explicit != "" {
		return k.explicit, nil
	}
	if k.getter == nil || k.name == "" {
		return "", nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if k.cached != "" {
		return k.cached, nil
	}
	if k.now().Before(k.missUntil) {
		return "", nil
	}

	raw, err := k.getter.GetParameter(ctx, k.name)
	if errors.Is(err, ErrNotFound) {
		k.missUntil = k.now().Add(MissTTL)
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("paramstore: fetch api key: %w", err)
	}
	key, err := parseKey(raw)
	if err != nil {
		return "", err
	}
	k.cached = key
	return key, nil
}

// parseKey accepts {"token": "..."} or the bare key.
func parseKey(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") {
		var tp tokenPayload
		if err := json.Unmarshal([]byte(raw), &tp); err != nil {
			return "", fmt.Errorf("paramstore: unmarshal api key value as JSON: %w", err)
		}
		raw = strings.TrimSpace(tp.Token)
	}
	if raw == "" {
		return "", errors.New("paramstore: api key is empty")
	}
	return raw, nil
}
