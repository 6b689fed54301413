package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/hookrelay/internal/domain"
	"github.com/Strob0t/hookrelay/internal/domain/account"
	"github.com/Strob0t/hookrelay/internal/domain/destination"
	"github.com/Strob0t/hookrelay/internal/domain/mention"
	"github.com/Strob0t/hookrelay/internal/port/notifier"
)

var errStoreDown = errors.New("store unavailable")

// fakeStore is an in-memory database.Store.
type fakeStore struct {
	mu           sync.Mutex
	accounts     map[string]account.Account
	destinations map[string]destination.Destination
	prefs        map[string]map[mention.EventKey]bool
	identities   map[string]map[string]mention.Identity

	destErr     error // returned by GetDestination when set
	prefsErr    error
	identityErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:     make(map[string]account.Account),
		destinations: make(map[string]destination.Destination),
		prefs:        make(map[string]map[mention.EventKey]bool),
		identities:   make(map[string]map[string]mention.Identity),
	}
}

func (f *fakeStore) addDestination(d destination.Destination) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destinations[d.ID] = d
}

func (f *fakeStore) GetDestination(_ context.Context, id string) (*destination.Destination, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.destErr != nil {
		return nil, f.destErr
	}
	d, ok := f.destinations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &d, nil
}

func (f *fakeStore) GetMentionPreferences(_ context.Context, destinationID string) (mention.Preferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prefsErr != nil {
		return nil, f.prefsErr
	}
	return mention.Merge(f.prefs[destinationID]), nil
}

func (f *fakeStore) GetMentionIdentity(_ context.Context, destinationID, username string) (*mention.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.identityErr != nil {
		return nil, f.identityErr
	}
	id, ok := f.identities[destinationID][username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &id, nil
}

func (f *fakeStore) CreateAccount(_ context.Context, req account.CreateRequest) (*account.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := account.Account{ID: uuid.NewString(), Name: req.Name, CreatedAt: time.Now()}
	f.accounts[a.ID] = a
	return &a, nil
}

func (f *fakeStore) ListAccounts(_ context.Context) ([]account.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]account.Account, 0, len(f.accounts))
	for _, a := range f.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeStore) DeleteAccount(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.accounts, id)
	for did, d := range f.destinations {
		if d.OwnerID == id {
			delete(f.destinations, did)
		}
	}
	return nil
}

func (f *fakeStore) CreateDestination(_ context.Context, d *destination.Destination) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.destinations {
		if existing.RepoIdentifier == d.RepoIdentifier {
			return domain.ErrConflict
		}
	}
	d.ID = uuid.NewString()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	f.destinations[d.ID] = *d
	return nil
}

func (f *fakeStore) ListDestinations(_ context.Context, ownerID string) ([]destination.Destination, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []destination.Destination
	for _, d := range f.destinations {
		if ownerID == "" || d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateDestination(_ context.Context, id string, req destination.UpdateRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.destinations[id]
	if !ok {
		return domain.ErrNotFound
	}
	if req.NotificationURL != "" {
		d.NotificationURL = req.NotificationURL
	}
	if req.Secret != "" {
		d.Secret = req.Secret
	}
	f.destinations[id] = d
	return nil
}

func (f *fakeStore) DeleteDestination(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.destinations[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.destinations, id)
	delete(f.prefs, id)
	delete(f.identities, id)
	return nil
}

func (f *fakeStore) SetMentionPreference(_ context.Context, destinationID string, key mention.EventKey, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.destinations[destinationID]; !ok {
		return domain.ErrNotFound
	}
	if f.prefs[destinationID] == nil {
		f.prefs[destinationID] = make(map[mention.EventKey]bool)
	}
	f.prefs[destinationID][key] = enabled
	return nil
}

func (f *fakeStore) AddMentionIdentity(_ context.Context, req mention.IdentityRequest) (*mention.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.destinations[req.DestinationID]; !ok {
		return nil, domain.ErrNotFound
	}
	if f.identities[req.DestinationID] == nil {
		f.identities[req.DestinationID] = make(map[string]mention.Identity)
	}
	if _, dup := f.identities[req.DestinationID][req.SourceUsername]; dup {
		return nil, domain.ErrConflict
	}
	id := mention.Identity{
		ID:             uuid.NewString(),
		DestinationID:  req.DestinationID,
		SourceUsername: req.SourceUsername,
		TargetHandle:   req.TargetHandle,
		LinkedOwnerID:  req.LinkedOwnerID,
		CreatedAt:      time.Now(),
	}
	f.identities[req.DestinationID][req.SourceUsername] = id
	return &id, nil
}

func (f *fakeStore) ListMentionIdentities(_ context.Context, destinationID string) ([]mention.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []mention.Identity
	for _, id := range f.identities[destinationID] {
		out = append(out, id)
	}
	return out, nil
}

func (f *fakeStore) DeleteMentionIdentity(_ context.Context, destinationID, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.identities[destinationID][username]; !ok {
		return domain.ErrNotFound
	}
	delete(f.identities[destinationID], username)
	return nil
}

func (f *fakeStore) Ping(_ context.Context) error { return nil }

// fakeDispatcher records deliveries and answers with a canned result.
type fakeDispatcher struct {
	mu     sync.Mutex
	calls  []dispatchCall
	result notifier.Result
	err    error
}

type dispatchCall struct {
	url string
	msg notifier.Message
}

func (f *fakeDispatcher) Deliver(_ context.Context, url string, msg notifier.Message) (notifier.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dispatchCall{url: url, msg: msg})
	return f.result, f.err
}

// fakePublisher captures published messages.
type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return f.err
}
