package firestore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/crownside/storefront/internal/domain"
	platformfs "github.com/crownside/storefront/internal/platform/firestore"
	"github.com/crownside/storefront/internal/repositories"
)

const cartCollection = "carts"

// cartDocument stores the cart as an opaque JSON payload so older or corrupt
// payloads degrade to an empty cart instead of a hard failure.
type cartDocument struct {
	SessionID string    `firestore:"sessionId"`
	Payload   string    `firestore:"payload"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// CartStore persists session carts in Firestore.
type CartStore struct {
	repo   *platformfs.BaseRepository[cartDocument]
	logger func(ctx context.Context, event string, fields map[string]any)
	clock  func() time.Time
}

// CartStoreDeps lists the dependencies required to build a CartStore.
type CartStoreDeps struct {
	Provider *platformfs.Provider
	Logger   func(ctx context.Context, event string, fields map[string]any)
	Clock    func() time.Time
}

var _ repositories.CartStore = (*CartStore)(nil)

// NewCartStore validates dependencies and builds a CartStore.
func NewCartStore(deps CartStoreDeps) (*CartStore, error) {
	if deps.Provider == nil {
		return nil, errors.New("cart store: firestore provider is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &CartStore{
		repo:   platformfs.NewBaseRepository[cartDocument](deps.Provider, cartCollection, nil, nil),
		logger: logger,
		clock:  func() time.Time { return clock().UTC() },
	}, nil
}

// Load returns the persisted cart for the session. Unknown sessions and
// undecodable payloads both yield an empty cart.
func (s *CartStore) Load(ctx context.Context, sessionID string) (domain.Cart, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.Cart{}, errors.New("cart store: session id is required")
	}

	doc, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return emptyCart(sessionID), nil
		}
		return domain.Cart{}, err
	}

	var cart domain.Cart
	if err := json.Unmarshal([]byte(doc.Data.Payload), &cart); err != nil {
		s.logger(ctx, "cart_store.payload_corrupt", map[string]any{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return emptyCart(sessionID), nil
	}

	cart.SessionID = sessionID
	cart.UpdatedAt = doc.Data.UpdatedAt
	if cart.Lines == nil {
		cart.Lines = []domain.CartLine{}
	}
	return cart, nil
}

// Save upserts the cart under its session ID.
func (s *CartStore) Save(ctx context.Context, cart domain.Cart) error {
	sessionID := strings.TrimSpace(cart.SessionID)
	if sessionID == "" {
		return errors.New("cart store: session id is required")
	}

	now := s.clock()
	cart.SessionID = sessionID
	cart.UpdatedAt = now

	payload, err := json.Marshal(cart)
	if err != nil {
		return err
	}

	_, err = s.repo.Set(ctx, sessionID, cartDocument{
		SessionID: sessionID,
		Payload:   string(payload),
		UpdatedAt: now,
	})
	return err
}

// Delete removes the cart for the session. Missing carts are not an error.
func (s *CartStore) Delete(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return errors.New("cart store: session id is required")
	}

	err := s.repo.Delete(ctx, sessionID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return nil
		}
	}
	return err
}

func emptyCart(sessionID string) domain.Cart {
	return domain.Cart{
		SessionID: sessionID,
		Lines:     []domain.CartLine{},
	}
}
