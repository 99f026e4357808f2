package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/identity"
	"github.com/Ramsey-B/clover/pkg/models"
)

type fakeFinder struct {
	byEmail   map[string]*models.Contact
	byProfile map[string]*models.Contact
	byKey     map[string]*models.Contact
	calls     []string
	err       error
}

func (f *fakeFinder) FindByEmail(ctx context.Context, email string) (*models.Contact, error) {
	f.calls = append(f.calls, "email")
	return f.byEmail[email], f.err
}

func (f *fakeFinder) FindByProfileURL(ctx context.Context, profileURL string) (*models.Contact, error) {
	f.calls = append(f.calls, "profile")
	return f.byProfile[profileURL], f.err
}

func (f *fakeFinder) FindByDedupeKey(ctx context.Context, key string) (*models.Contact, error) {
	f.calls = append(f.calls, "key")
	return f.byKey[key], f.err
}

func newTestEngine(finder *fakeFinder) *Engine {
	logger := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {})
	return NewEngine(logger, finder)
}

func TestFindExistingContactEmailFirst(t *testing.T) {
	want := &models.Contact{ID: 1, Email: "jane@example.com"}
	finder := &fakeFinder{
		byEmail:   map[string]*models.Contact{"jane@example.com": want},
		byProfile: map[string]*models.Contact{"https://linkedin.com/in/jdoe": {ID: 2}},
	}

	got, err := newTestEngine(finder).FindExistingContact(context.Background(), identity.Key{
		Email:      "jane@example.com",
		ProfileURL: "https://linkedin.com/in/jdoe",
		DedupeKey:  "email:jane@example.com",
	})

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, []string{"email"}, finder.calls)
}

func TestFindExistingContactFallsBackToProfile(t *testing.T) {
	want := &models.Contact{ID: 2}
	finder := &fakeFinder{
		byEmail:   map[string]*models.Contact{},
		byProfile: map[string]*models.Contact{"https://linkedin.com/in/jdoe": want},
	}

	got, err := newTestEngine(finder).FindExistingContact(context.Background(), identity.Key{
		Email:      "jane@example.com",
		ProfileURL: "https://linkedin.com/in/jdoe",
		DedupeKey:  "email:jane@example.com",
	})

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.ID)
	assert.Equal(t, []string{"email", "profile"}, finder.calls)
}

func TestFindExistingContactFallsBackToKey(t *testing.T) {
	want := &models.Contact{ID: 3}
	finder := &fakeFinder{
		byKey: map[string]*models.Contact{"nameco:jane|doe|acme": want},
	}

	got, err := newTestEngine(finder).FindExistingContact(context.Background(), identity.Key{
		DedupeKey: "nameco:jane|doe|acme",
	})

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(3), got.ID)
	// Empty email and profile never hit the store
	assert.Equal(t, []string{"key"}, finder.calls)
}

func TestFindExistingContactNoMatch(t *testing.T) {
	finder := &fakeFinder{}

	got, err := newTestEngine(finder).FindExistingContact(context.Background(), identity.Key{
		Email:     "jane@example.com",
		DedupeKey: "email:jane@example.com",
	})

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindExistingContactEmptyKeyNeverMatches(t *testing.T) {
	finder := &fakeFinder{
		byKey: map[string]*models.Contact{"": {ID: 9}},
	}

	got, err := newTestEngine(finder).FindExistingContact(context.Background(), identity.Key{})

	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, finder.calls)
}

func TestFindExistingContactPropagatesError(t *testing.T) {
	finder := &fakeFinder{err: errors.New("connection refused")}

	got, err := newTestEngine(finder).FindExistingContact(context.Background(), identity.Key{
		Email: "jane@example.com",
	})

	assert.Error(t, err)
	assert.Nil(t, got)
}
