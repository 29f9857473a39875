// Package driver bridges user actions to store calls and reflects the
// results in plain UI state. The hosting environment renders the state,
// invokes the action methods, and calls the lifecycle hooks on mount and
// unmount; rendering itself is out of scope here.
package driver

import (
	"context"
	"fmt"
	"strings"

	"notedesk/internal/store"
	"notedesk/pkg/logger"
)

// DocumentStore is the subset of the store the driver needs.
type DocumentStore interface {
	Initialize(ctx context.Context, address string) error
	Create(ctx context.Context, fields store.Fields) (store.WriteResult, error)
	GetAll(ctx context.Context) ([]store.Document, error)
	Delete(ctx context.Context, id string) (store.WriteResult, error)
	Close() error
}

type StatusType string

const (
	StatusInfo    StatusType = "info"
	StatusSuccess StatusType = "success"
	StatusError   StatusType = "error"
)

// Status is the message shown to the user after each action.
type Status struct {
	Message string     `json:"message"`
	Type    StatusType `json:"type"`
}

// NewDocument holds the form fields for the next document to create.
type NewDocument struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Driver owns the in-memory UI state and sequences store calls in
// response to user actions. Errors never escape an action; they become
// an error status. Not safe for concurrent use: the driver expects a
// single-threaded, event-driven host and imposes no locking of its own.
type Driver struct {
	store   DocumentStore
	address string
	started bool

	Documents   []store.Document
	Status      Status
	IsLoading   bool
	NewDocument NewDocument

	// OnChange, when set, is invoked after every state transition so the
	// host can re-render. Any observer mechanism works; this is the
	// simplest one.
	OnChange func()
}

func New(s DocumentStore, address string) *Driver {
	return &Driver{
		store:     s,
		address:   address,
		Documents: []store.Document{},
	}
}

// OnStart is the mount hook: initialize the store connection and, on
// success, load the document list. On failure the list stays empty and
// the failure message is surfaced as an error status.
func (d *Driver) OnStart(ctx context.Context) {
	if err := d.store.Initialize(ctx, d.address); err != nil {
		logger.Sugar.Errorf("Driver failed to initialize store: %v", err)
		d.setStatus(err.Error(), StatusError)
		return
	}
	d.started = true
	d.setStatus("Connected to document store", StatusSuccess)
	d.Refresh(ctx)
}

// OnStop is the unmount hook: close the connection if one is open.
func (d *Driver) OnStop() {
	if !d.started {
		return
	}
	d.started = false
	if err := d.store.Close(); err != nil {
		logger.Sugar.Errorf("Driver failed to close store: %v", err)
	}
}

// Refresh replaces the document list with the store's current contents.
// On failure the last successful list stays on screen.
func (d *Driver) Refresh(ctx context.Context) {
	d.setLoading(true)
	docs, err := d.store.GetAll(ctx)
	if err != nil {
		logger.Sugar.Errorf("Driver failed to fetch documents: %v", err)
		d.setStatus(err.Error(), StatusError)
	} else {
		d.Documents = docs
		d.setStatus(fmt.Sprintf("%d document(s) loaded", len(docs)), StatusSuccess)
	}
	d.setLoading(false)
}

// AddDocument creates a document from the NewDocument form fields. Both
// fields must be non-empty; an invalid form never reaches the store.
func (d *Driver) AddDocument(ctx context.Context) {
	title := strings.TrimSpace(d.NewDocument.Title)
	content := strings.TrimSpace(d.NewDocument.Content)
	if title == "" || content == "" {
		d.setStatus("Title and content are required", StatusError)
		return
	}

	d.setLoading(true)
	_, err := d.store.Create(ctx, store.Fields{Title: &title, Content: &content})
	if err != nil {
		logger.Sugar.Errorf("Driver failed to create document: %v", err)
		d.setStatus(err.Error(), StatusError)
		d.setLoading(false)
		return
	}
	d.NewDocument = NewDocument{}
	d.setStatus("Document created", StatusSuccess)
	d.setLoading(false)
	d.Refresh(ctx)
}

// DeleteDocument removes the document with the given id and refreshes
// the list on success.
func (d *Driver) DeleteDocument(ctx context.Context, id string) {
	d.setLoading(true)
	_, err := d.store.Delete(ctx, id)
	if err != nil {
		logger.Sugar.Errorf("Driver failed to delete document %s: %v", id, err)
		d.setStatus(err.Error(), StatusError)
		d.setLoading(false)
		return
	}
	d.setStatus("Document deleted", StatusSuccess)
	d.setLoading(false)
	d.Refresh(ctx)
}

func (d *Driver) setStatus(message string, t StatusType) {
	d.Status = Status{Message: message, Type: t}
	d.notify()
}

func (d *Driver) setLoading(loading bool) {
	d.IsLoading = loading
	d.notify()
}

func (d *Driver) notify() {
	if d.OnChange != nil {
		d.OnChange()
	}
}
