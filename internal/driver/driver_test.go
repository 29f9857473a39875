package driver

import (
	"context"
	"net/http"
	"testing"

	"notedesk/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	docs []store.Document

	initErr   error
	getAllErr error
	createErr error
	deleteErr error

	initCalls   int
	getAllCalls int
	createCalls int
	deleteCalls int
	closeCalls  int

	lastAddress string
	lastCreate  store.Fields
	lastDelete  string
}

func (f *fakeStore) Initialize(ctx context.Context, address string) error {
	f.initCalls++
	f.lastAddress = address
	return f.initErr
}

func (f *fakeStore) Create(ctx context.Context, fields store.Fields) (store.WriteResult, error) {
	f.createCalls++
	f.lastCreate = fields
	if f.createErr != nil {
		return store.WriteResult{}, f.createErr
	}
	return store.WriteResult{OK: true, ID: "new-id", Rev: "1-ab"}, nil
}

func (f *fakeStore) GetAll(ctx context.Context) ([]store.Document, error) {
	f.getAllCalls++
	if f.getAllErr != nil {
		return nil, f.getAllErr
	}
	return f.docs, nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) (store.WriteResult, error) {
	f.deleteCalls++
	f.lastDelete = id
	if f.deleteErr != nil {
		return store.WriteResult{}, f.deleteErr
	}
	return store.WriteResult{OK: true, ID: id, Rev: "2-cd"}, nil
}

func (f *fakeStore) Close() error {
	f.closeCalls++
	return nil
}

func TestOnStartLoadsDocuments(t *testing.T) {
	fake := &fakeStore{docs: []store.Document{
		{ID: "id-1", Rev: "1-aa", Title: "A", Content: "B", CreatedAt: "2024-01-01T00:00:00Z"},
		{ID: "id-2", Rev: "1-bb", Title: "C", Content: "D", CreatedAt: "2024-02-01T00:00:00Z"},
	}}
	d := New(fake, "postgres://localhost/notedesk")

	d.OnStart(context.Background())

	assert.Equal(t, 1, fake.initCalls)
	assert.Equal(t, "postgres://localhost/notedesk", fake.lastAddress)
	assert.Equal(t, 1, fake.getAllCalls)
	require.Len(t, d.Documents, 2)
	assert.Equal(t, StatusSuccess, d.Status.Type)
	assert.Equal(t, "2 document(s) loaded", d.Status.Message)
	assert.False(t, d.IsLoading)
}

func TestOnStartConnectionFailure(t *testing.T) {
	fake := &fakeStore{initErr: &store.StoreError{
		Kind:    store.KindConnectionFailed,
		Status:  http.StatusInternalServerError,
		Message: "failed to connect to store",
	}}
	d := New(fake, "postgres://nowhere/notedesk")

	d.OnStart(context.Background())

	assert.Equal(t, StatusError, d.Status.Type)
	assert.Contains(t, d.Status.Message, "failed to connect")
	assert.Empty(t, d.Documents)
	assert.Zero(t, fake.getAllCalls)

	// No connection was opened, so unmount must not close one.
	d.OnStop()
	assert.Zero(t, fake.closeCalls)
}

func TestAddDocumentValidatesLocally(t *testing.T) {
	fake := &fakeStore{}
	d := New(fake, "addr")
	d.NewDocument = NewDocument{Title: "", Content: "some content"}

	d.AddDocument(context.Background())

	assert.Zero(t, fake.createCalls, "an invalid form must never reach the store")
	assert.Equal(t, Status{Message: "Title and content are required", Type: StatusError}, d.Status)
	assert.False(t, d.IsLoading)
}

func TestAddDocumentSuccess(t *testing.T) {
	fake := &fakeStore{docs: []store.Document{
		{ID: "new-id", Rev: "1-ab", Title: "A", Content: "B", CreatedAt: "2024-01-01T00:00:00Z"},
	}}
	d := New(fake, "addr")
	d.NewDocument = NewDocument{Title: "A", Content: "B"}

	d.AddDocument(context.Background())

	assert.Equal(t, 1, fake.createCalls)
	require.NotNil(t, fake.lastCreate.Title)
	assert.Equal(t, "A", *fake.lastCreate.Title)
	require.NotNil(t, fake.lastCreate.Content)
	assert.Equal(t, "B", *fake.lastCreate.Content)

	assert.Equal(t, NewDocument{}, d.NewDocument, "form fields are cleared on success")
	assert.Equal(t, 1, fake.getAllCalls, "a successful add triggers a refresh")
	assert.Equal(t, StatusSuccess, d.Status.Type)
	assert.False(t, d.IsLoading)
}

func TestAddDocumentStoreFailure(t *testing.T) {
	fake := &fakeStore{createErr: &store.StoreError{
		Kind:    store.KindWriteFailed,
		Status:  http.StatusInternalServerError,
		Message: "failed to create document",
	}}
	d := New(fake, "addr")
	d.NewDocument = NewDocument{Title: "A", Content: "B"}

	d.AddDocument(context.Background())

	assert.Equal(t, StatusError, d.Status.Type)
	assert.Zero(t, fake.getAllCalls, "a failed add does not refresh")
	assert.Equal(t, NewDocument{Title: "A", Content: "B"}, d.NewDocument, "form fields survive a failure")
	assert.False(t, d.IsLoading)
}

func TestDeleteDocumentFailureThenRefreshStillWorks(t *testing.T) {
	fake := &fakeStore{deleteErr: &store.StoreError{
		Kind:    store.KindWriteFailed,
		Status:  http.StatusNotFound,
		Message: "failed to delete document missing",
	}}
	d := New(fake, "addr")

	d.DeleteDocument(context.Background(), "missing")
	assert.Equal(t, StatusError, d.Status.Type)
	assert.False(t, d.IsLoading)

	d.Refresh(context.Background())
	assert.Equal(t, StatusSuccess, d.Status.Type)
	assert.False(t, d.IsLoading)
}

func TestDeleteDocumentSuccess(t *testing.T) {
	fake := &fakeStore{}
	d := New(fake, "addr")

	d.DeleteDocument(context.Background(), "id-1")

	assert.Equal(t, "id-1", fake.lastDelete)
	assert.Equal(t, 1, fake.getAllCalls, "a successful delete triggers a refresh")
	assert.Equal(t, StatusSuccess, d.Status.Type)
	assert.False(t, d.IsLoading)
}

func TestRefreshFailureKeepsStaleList(t *testing.T) {
	fake := &fakeStore{docs: []store.Document{{ID: "id-1", Rev: "1-aa", Title: "A"}}}
	d := New(fake, "addr")

	d.Refresh(context.Background())
	require.Len(t, d.Documents, 1)

	fake.getAllErr = &store.StoreError{
		Kind:    store.KindReadFailed,
		Status:  http.StatusInternalServerError,
		Message: "failed to fetch documents",
	}
	d.Refresh(context.Background())

	assert.Len(t, d.Documents, 1, "the last successful list stays on screen")
	assert.Equal(t, StatusError, d.Status.Type)
	assert.False(t, d.IsLoading)
}

func TestOnStopClosesOnce(t *testing.T) {
	fake := &fakeStore{}
	d := New(fake, "addr")

	d.OnStart(context.Background())
	d.OnStop()
	d.OnStop()

	assert.Equal(t, 1, fake.closeCalls)
}

func TestOnChangeObserver(t *testing.T) {
	fake := &fakeStore{}
	d := New(fake, "addr")

	changes := 0
	var statusAtNotify []Status
	d.OnChange = func() {
		changes++
		statusAtNotify = append(statusAtNotify, d.Status)
	}

	d.Refresh(context.Background())
	assert.Equal(t, 3, changes, "loading on, status, loading off each notify")
	// The status transition itself is observable, not just the loading flips.
	require.Len(t, statusAtNotify, 3)
	assert.Equal(t, StatusSuccess, statusAtNotify[1].Type)

	changes = 0
	d.NewDocument = NewDocument{Title: "", Content: "x"}
	d.AddDocument(context.Background())
	assert.Equal(t, 1, changes, "a validation failure notifies exactly once")
}
