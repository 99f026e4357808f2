package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/models"
)

type fakeTx struct {
	database.Tx
	commits   int
	rollbacks int
}

func (t *fakeTx) Commit(ctx context.Context) error   { t.commits++; return nil }
func (t *fakeTx) Rollback(ctx context.Context) error { t.rollbacks++; return nil }
func (t *fakeTx) IsOpen() bool                       { return true }

type fakeDB struct {
	database.DB
	tx *fakeTx
}

func (d *fakeDB) GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error) {
	return ctx, d.tx, nil
}

// fakeContactStore is an in-memory contact table. It backs both the pipeline's
// ContactStore and the matcher's ContactFinder.
type fakeContactStore struct {
	db        *fakeDB
	contacts  map[int64]*models.Contact
	nextID    int64
	createErr error
}

func newFakeContactStore() *fakeContactStore {
	return &fakeContactStore{
		db:       &fakeDB{tx: &fakeTx{}},
		contacts: make(map[int64]*models.Contact),
		nextID:   1,
	}
}

func (s *fakeContactStore) DB() database.DB { return s.db }

func (s *fakeContactStore) Create(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	contact.ID = s.nextID
	s.nextID++
	stored := *contact
	s.contacts[contact.ID] = &stored
	return contact, nil
}

func (s *fakeContactStore) Update(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	if _, ok := s.contacts[contact.ID]; !ok {
		return nil, errors.New("contact not found")
	}
	stored := *contact
	s.contacts[contact.ID] = &stored
	return contact, nil
}

func (s *fakeContactStore) FindByEmail(ctx context.Context, email string) (*models.Contact, error) {
	for _, c := range s.contacts {
		if c.Email == email {
			found := *c
			return &found, nil
		}
	}
	return nil, nil
}

func (s *fakeContactStore) FindByProfileURL(ctx context.Context, profileURL string) (*models.Contact, error) {
	for _, c := range s.contacts {
		if c.ProfileURL != "" && strings.EqualFold(c.ProfileURL, profileURL) {
			found := *c
			return &found, nil
		}
	}
	return nil, nil
}

func (s *fakeContactStore) FindByDedupeKey(ctx context.Context, key string) (*models.Contact, error) {
	for _, c := range s.contacts {
		if c.DedupeKey == key {
			found := *c
			return &found, nil
		}
	}
	return nil, nil
}

type fakeNoteStore struct {
	notes []models.Note
}

func (s *fakeNoteStore) Create(ctx context.Context, note *models.Note) (*models.Note, error) {
	s.notes = append(s.notes, *note)
	return note, nil
}

func (s *fakeNoteStore) ExistsWithBody(ctx context.Context, contactID int64, body string) (bool, error) {
	for _, n := range s.notes {
		if n.ContactID == contactID && n.Body == body {
			return true, nil
		}
	}
	return false, nil
}

type fakeStatusStore struct {
	changes []models.StatusChange
}

func (s *fakeStatusStore) Create(ctx context.Context, change *models.StatusChange) (*models.StatusChange, error) {
	s.changes = append(s.changes, *change)
	return change, nil
}

type fakeEmitter struct {
	created int
	updated int
}

func (e *fakeEmitter) EmitContactCreated(ctx context.Context, contact *models.Contact) error {
	e.created++
	return nil
}

func (e *fakeEmitter) EmitContactUpdated(ctx context.Context, contact *models.Contact) error {
	e.updated++
	return nil
}

type fakeSnapshotter struct {
	snapshots int
}

func (s *fakeSnapshotter) Snapshot(ctx context.Context) (string, error) {
	s.snapshots++
	return "backup.csv", nil
}

type testHarness struct {
	engine      *Engine
	contacts    *fakeContactStore
	notes       *fakeNoteStore
	statuses    *fakeStatusStore
	emitter     *fakeEmitter
	snapshotter *fakeSnapshotter
}

func newTestHarness() *testHarness {
	logger := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {})
	contacts := newFakeContactStore()
	notes := &fakeNoteStore{}
	statuses := &fakeStatusStore{}
	emitter := &fakeEmitter{}
	snapshotter := &fakeSnapshotter{}
	matcher := matching.NewEngine(logger, contacts)
	engine := NewEngine(logger, contacts, notes, statuses, matcher, emitter, snapshotter)
	return &testHarness{
		engine:      engine,
		contacts:    contacts,
		notes:       notes,
		statuses:    statuses,
		emitter:     emitter,
		snapshotter: snapshotter,
	}
}

func TestUpsertCreatesContact(t *testing.T) {
	h := newTestHarness()

	resp, err := h.engine.Upsert(context.Background(), models.UpsertContactRequest{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "Jane.Doe@Example.com",
		Company:   "Acme Inc.",
	})

	require.NoError(t, err)
	assert.True(t, resp.Created)
	assert.Equal(t, "email:jane.doe@example.com", resp.DedupeKey)

	stored := h.contacts.contacts[resp.ContactID]
	require.NotNil(t, stored)
	assert.Equal(t, "jane.doe@example.com", stored.Email)
	assert.Equal(t, "Jane", stored.FirstName)
	assert.Equal(t, models.StatusNew, stored.Status)
	assert.Equal(t, 1, h.contacts.db.tx.commits)
	assert.Equal(t, 1, h.emitter.created)
}

func TestUpsertSameEmailTwiceMergesIntoOne(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()

	first, err := h.engine.Upsert(ctx, models.UpsertContactRequest{
		FirstName: "Jane",
		Email:     "jane@example.com",
	})
	require.NoError(t, err)

	second, err := h.engine.Upsert(ctx, models.UpsertContactRequest{
		FirstName: "Janet",
		Email:     "JANE@example.com",
		JobTitle:  "CTO",
	})
	require.NoError(t, err)

	assert.True(t, first.Created)
	assert.False(t, second.Created)
	assert.Equal(t, first.ContactID, second.ContactID)
	assert.Len(t, h.contacts.contacts, 1)

	// Re-imported fields overwrite
	stored := h.contacts.contacts[first.ContactID]
	assert.Equal(t, "Janet", stored.FirstName)
	assert.Equal(t, "CTO", stored.JobTitle)
	assert.Equal(t, 1, h.emitter.created)
	assert.Equal(t, 1, h.emitter.updated)
}

func TestUpsertMatchesByProfileURLWhenEmailsDiffer(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()

	first, err := h.engine.Upsert(ctx, models.UpsertContactRequest{
		Email:      "jane@old-corp.com",
		ProfileURL: "linkedin.com/in/jdoe",
	})
	require.NoError(t, err)

	// New email address, same profile. Email lookup misses, profile hits.
	second, err := h.engine.Upsert(ctx, models.UpsertContactRequest{
		Email:      "jane@new-corp.com",
		ProfileURL: "https://LinkedIn.com/in/jdoe/?trk=feed",
	})
	require.NoError(t, err)

	assert.False(t, second.Created)
	assert.Equal(t, first.ContactID, second.ContactID)
	assert.Equal(t, "jane@new-corp.com", h.contacts.contacts[first.ContactID].Email)
}

func TestUpsertRecordsStatusChangeBeforeOverwrite(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()

	resp, err := h.engine.Upsert(ctx, models.UpsertContactRequest{
		Email:  "jane@example.com",
		Status: "contacted",
	})
	require.NoError(t, err)

	// No transition recorded on insert
	assert.Empty(t, h.statuses.changes)
	assert.Equal(t, models.StatusContacted, h.contacts.contacts[resp.ContactID].Status)

	_, err = h.engine.Upsert(ctx, models.UpsertContactRequest{
		Email:  "jane@example.com",
		Status: "Quoted",
	})
	require.NoError(t, err)

	require.Len(t, h.statuses.changes, 1)
	change := h.statuses.changes[0]
	assert.Equal(t, resp.ContactID, change.ContactID)
	assert.Equal(t, models.StatusContacted, change.OldStatus)
	assert.Equal(t, models.StatusQuoted, change.NewStatus)
}

func TestUpsertSkipsStatusChangeWhenUnchanged(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()

	_, err := h.engine.Upsert(ctx, models.UpsertContactRequest{
		Email:  "jane@example.com",
		Status: "Contacted",
	})
	require.NoError(t, err)

	_, err = h.engine.Upsert(ctx, models.UpsertContactRequest{
		Email:  "jane@example.com",
		Status: "CONTACTED",
	})
	require.NoError(t, err)

	// Unrecognized status keeps the stored one and records nothing
	resp, err := h.engine.Upsert(ctx, models.UpsertContactRequest{
		Email:  "jane@example.com",
		Status: "banana",
	})
	require.NoError(t, err)

	assert.Empty(t, h.statuses.changes)
	assert.Equal(t, models.StatusContacted, h.contacts.contacts[resp.ContactID].Status)
}

func TestUpsertAttachesSanitizedNoteOnce(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()

	_, err := h.engine.Upsert(ctx, models.UpsertContactRequest{
		Email: "jane@example.com",
		Note:  "met at  booth,\n\nwants demo",
	})
	require.NoError(t, err)

	// Same note re-imported is suppressed
	resp, err := h.engine.Upsert(ctx, models.UpsertContactRequest{
		Email: "jane@example.com",
		Note:  "met at booth, wants demo",
	})
	require.NoError(t, err)

	require.Len(t, h.notes.notes, 1)
	assert.Equal(t, resp.ContactID, h.notes.notes[0].ContactID)
	assert.Equal(t, "met at booth, wants demo", h.notes.notes[0].Body)
}

func TestUpsertUnkeyableRowStillInserts(t *testing.T) {
	h := newTestHarness()

	resp, err := h.engine.Upsert(context.Background(), models.UpsertContactRequest{
		Phone: "+49 151 1234",
		City:  "Berlin",
	})

	require.NoError(t, err)
	assert.True(t, resp.Created)
	assert.Empty(t, resp.DedupeKey)
	assert.Len(t, h.contacts.contacts, 1)
}

func TestUpsertTwoUnkeyableRowsNeverMerge(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()

	a, err := h.engine.Upsert(ctx, models.UpsertContactRequest{City: "Berlin"})
	require.NoError(t, err)
	b, err := h.engine.Upsert(ctx, models.UpsertContactRequest{City: "Munich"})
	require.NoError(t, err)

	assert.NotEqual(t, a.ContactID, b.ContactID)
	assert.Len(t, h.contacts.contacts, 2)
}

func TestImportBatchIsolatesRowErrors(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()

	// Seed one contact, then break inserts so only the updating row succeeds
	_, err := h.engine.Upsert(ctx, models.UpsertContactRequest{Email: "jane@example.com"})
	require.NoError(t, err)
	h.contacts.createErr = errors.New("insert failed")

	result := h.engine.ImportBatch(ctx, []models.UpsertContactRequest{
		{FirstName: "Bob", LastName: "Smith", Email: "bob@example.com"},
		{FirstName: "Jane", Email: "jane@example.com"},
		{FirstName: "Eve", Email: "eve@example.com"},
	})

	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Updated)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 1, result.Errors[0].Row)
	assert.Contains(t, result.Errors[0].Error, "insert failed")
	assert.Contains(t, result.Errors[0].Error, "Bob Smith <bob@example.com>")
	assert.Equal(t, 3, result.Errors[1].Row)
}

func TestImportBatchSnapshotsOnce(t *testing.T) {
	h := newTestHarness()

	h.engine.ImportBatch(context.Background(), []models.UpsertContactRequest{
		{Email: "a@example.com"},
		{Email: "b@example.com"},
	})

	assert.Equal(t, 1, h.snapshotter.snapshots)
}

func TestUpsertWithNilEmitterAndSnapshotter(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {})
	contacts := newFakeContactStore()
	matcher := matching.NewEngine(logger, contacts)
	engine := NewEngine(logger, contacts, &fakeNoteStore{}, &fakeStatusStore{}, matcher, nil, nil)

	resp, err := engine.Upsert(context.Background(), models.UpsertContactRequest{Email: "jane@example.com"})
	require.NoError(t, err)
	assert.True(t, resp.Created)

	result := engine.ImportBatch(context.Background(), []models.UpsertContactRequest{{Email: "bob@example.com"}})
	assert.Equal(t, 1, result.Created)
}
