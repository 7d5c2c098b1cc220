package core

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/PaulFidika/nekokit/identity"
	jwtkit "github.com/PaulFidika/nekokit/jwt"
	"github.com/PaulFidika/nekokit/subscriptions"
	"github.com/google/uuid"
)

// tokenVerifier treats the raw token as the subject. A "role:" prefix sets
// the role claim, as in "anon:<uuid>".
type tokenVerifier struct{}

func (tokenVerifier) Verify(_ context.Context, raw string) (*jwtkit.Claims, error) {
	if raw == "invalid" {
		return nil, errors.New("token is malformed")
	}
	if role, sub, ok := strings.Cut(raw, ":"); ok {
		return &jwtkit.Claims{Subject: sub, Role: role}, nil
	}
	return &jwtkit.Claims{Subject: raw, Role: UserRole}, nil
}

type fakeIdentities struct {
	mu         sync.Mutex
	users      map[uuid.UUID]*identity.User
	rows       map[string]map[uuid.UUID]int64
	failTables map[string]bool
	roles      map[uuid.UUID]map[string]bool
	getErr     error
	deleteErr  error
	purgeErr   error
	purged     bool
}

func newFakeIdentities() *fakeIdentities {
	return &fakeIdentities{
		users:      map[uuid.UUID]*identity.User{},
		rows:       map[string]map[uuid.UUID]int64{},
		failTables: map[string]bool{},
		roles:      map[uuid.UUID]map[string]bool{},
	}
}

func (f *fakeIdentities) add(email string, verified bool) *identity.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &identity.User{ID: uuid.New(), Email: email, EmailVerified: verified}
	f.users[u.ID] = u
	for _, t := range identity.CascadeTables {
		if f.rows[t] == nil {
			f.rows[t] = map[uuid.UUID]int64{}
		}
		f.rows[t][u.ID] = 1
	}
	return u
}

func (f *fakeIdentities) owned(id uuid.UUID) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, t := range f.rows {
		n += t[id]
	}
	return n
}

func (f *fakeIdentities) GetByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id], nil
}

func (f *fakeIdentities) grant(id uuid.UUID, role string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.roles[id] == nil {
		f.roles[id] = map[string]bool{}
	}
	f.roles[id][role] = true
}

func (f *fakeIdentities) HasRole(_ context.Context, id uuid.UUID, role string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roles[id][role], nil
}

func (f *fakeIdentities) Delete(_ context.Context, id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
	return nil
}

func (f *fakeIdentities) DeleteOwnedRows(_ context.Context, table string, id uuid.UUID) (int64, error) {
	if f.failTables[table] {
		return 0, errors.New("permission denied for table " + table)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.rows[table][id]
	delete(f.rows[table], id)
	return n, nil
}

func (f *fakeIdentities) PurgeTx(ctx context.Context, id uuid.UUID) (map[string]int64, error) {
	if f.purgeErr != nil {
		return nil, f.purgeErr
	}
	f.purged = true
	out := map[string]int64{}
	for _, t := range identity.CascadeTables {
		n, _ := f.DeleteOwnedRows(ctx, t, id)
		out[t] = n
	}
	return out, f.Delete(ctx, id)
}

func (f *fakeIdentities) orphans(table string, remove bool) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, c := range f.rows[table] {
		if _, ok := f.users[id]; !ok {
			n += c
			if remove {
				delete(f.rows[table], id)
			}
		}
	}
	return n
}

func (f *fakeIdentities) CountOrphans(_ context.Context, table string) (int64, error) {
	return f.orphans(table, false), nil
}

func (f *fakeIdentities) DeleteOrphans(_ context.Context, table string) (int64, error) {
	return f.orphans(table, true), nil
}

type fakeSubs struct {
	mu      sync.Mutex
	records map[uuid.UUID]subscriptions.Record
	upserts int
	err     error
}

func newFakeSubs() *fakeSubs {
	return &fakeSubs{records: map[uuid.UUID]subscriptions.Record{}}
}

func (f *fakeSubs) Upsert(_ context.Context, r subscriptions.Record) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	f.records[r.UserID] = r
	return nil
}

func (f *fakeSubs) Get(_ context.Context, id uuid.UUID) (*subscriptions.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}
