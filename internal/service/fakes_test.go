package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/mockupdesk/listing-server-go/internal/model"
)

// In-memory repositories shared by the service tests.

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
	seq   int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*model.User)}
}

func (r *memUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id], nil
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) Create(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	user := &model.User{
		ID:        "user-" + strconv.Itoa(r.seq),
		Email:     params.Email,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *memUserRepo) UpdateEtsyShopID(ctx context.Context, id string, shopID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.EtsyShopID = &shopID
	}
	return nil
}

type memTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*model.ProviderToken
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: make(map[string]*model.ProviderToken)}
}

func tokenKey(userID, provider string) string {
	return userID + "/" + provider
}

func (r *memTokenRepo) FindByUserAndProvider(ctx context.Context, userID, provider string) (*model.ProviderToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token := r.tokens[tokenKey(userID, provider)]
	if token == nil || token.Invalidated {
		return nil, nil
	}
	return token, nil
}

func (r *memTokenRepo) Save(ctx context.Context, params model.SaveProviderTokenParams) (*model.ProviderToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token := &model.ProviderToken{
		ID:           tokenKey(params.UserID, params.Provider),
		UserID:       params.UserID,
		Provider:     params.Provider,
		AccessToken:  params.AccessToken,
		RefreshToken: params.RefreshToken,
		ExpiresAt:    params.ExpiresAt,
		Scope:        params.Scope,
	}
	r.tokens[token.ID] = token
	return token, nil
}

func (r *memTokenRepo) Invalidate(ctx context.Context, userID, provider string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token, ok := r.tokens[tokenKey(userID, provider)]; ok {
		token.Invalidated = true
	}
	return nil
}

type memStateRepo struct {
	mu     sync.Mutex
	states map[string]*model.OAuthState
	seq    int
}

func newMemStateRepo() *memStateRepo {
	return &memStateRepo{states: make(map[string]*model.OAuthState)}
}

func (r *memStateRepo) Insert(ctx context.Context, params model.CreateOAuthStateParams) (*model.OAuthState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	entry := &model.OAuthState{
		ID:           "state-" + strconv.Itoa(r.seq),
		State:        params.State,
		Provider:     params.Provider,
		CodeVerifier: params.CodeVerifier,
		UserID:       params.UserID,
		ExpiresAt:    params.ExpiresAt,
		CreatedAt:    time.Now(),
	}
	r.states[params.State] = entry
	return entry, nil
}

func (r *memStateRepo) Consume(ctx context.Context, state string) (*model.OAuthState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := r.states[state]
	delete(r.states, state)
	return entry, nil
}

func (r *memStateRepo) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var purged int64
	for state, entry := range r.states {
		if entry.ExpiresAt.Before(before) {
			delete(r.states, state)
			purged++
		}
	}
	return purged, nil
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	seq      int
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]*model.Session)}
}

func (r *memSessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session := r.sessions[tokenHash]
	if session == nil || session.ExpiresAt.Before(time.Now()) {
		return nil, nil
	}
	return session, nil
}

func (r *memSessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	session := &model.Session{
		ID:        "session-" + strconv.Itoa(r.seq),
		TokenHash: params.TokenHash,
		UserID:    params.UserID,
		ExpiresAt: params.ExpiresAt,
		CreatedAt: time.Now(),
	}
	r.sessions[params.TokenHash] = session
	return session, nil
}

func (r *memSessionRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, session := range r.sessions {
		if session.ID == id {
			delete(r.sessions, hash)
		}
	}
	return nil
}

func (r *memSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for hash, session := range r.sessions {
		if session.ExpiresAt.Before(time.Now()) {
			delete(r.sessions, hash)
			deleted++
		}
	}
	return deleted, nil
}

type memListingRepo struct {
	mu       sync.Mutex
	listings map[string]*model.Listing
	seq      int
}

func newMemListingRepo() *memListingRepo {
	return &memListingRepo{listings: make(map[string]*model.Listing)}
}

func (r *memListingRepo) FindByID(ctx context.Context, id string, userID string) (*model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	listing := r.listings[id]
	if listing == nil || listing.UserID != userID {
		return nil, nil
	}
	return listing, nil
}

func (r *memListingRepo) FindByUserID(ctx context.Context, userID string) ([]*model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Listing
	for _, listing := range r.listings {
		if listing.UserID == userID {
			out = append(out, listing)
		}
	}
	return out, nil
}

func (r *memListingRepo) Create(ctx context.Context, params model.CreateListingParams) (*model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	listing := &model.Listing{
		ID:                   "listing-" + strconv.Itoa(r.seq),
		UserID:               params.UserID,
		MarketplaceListingID: params.MarketplaceListingID,
		Title:                params.Title,
		Description:          params.Description,
		Price:                params.Price,
		Tags:                 pq.StringArray(params.Tags),
		MockupFiles:          params.MockupFiles,
		ArtifactPath:         params.ArtifactPath,
		Status:               params.Status,
		CreatedAt:            time.Now(),
		UpdatedAt:            time.Now(),
	}
	r.listings[listing.ID] = listing
	return listing, nil
}

func (r *memListingRepo) UpdateStatus(ctx context.Context, id string, status model.ListingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if listing, ok := r.listings[id]; ok {
		listing.Status = status
	}
	return nil
}
