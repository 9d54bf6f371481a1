package view

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ashureev/agentdesk/internal/domain"
	"github.com/ashureev/agentdesk/internal/notify"
)

// QueryCapacity is the number of sample queries suggested per agent. It is
// shown to the user but not enforced.
const QueryCapacity = 5

// Toast titles of the query table.
const (
	msgQueriesLoadFailed = "Failed to load queries"
	msgQueryUpdated      = "Query updated successfully"
	msgQueryUpdateFailed = "Failed to update query"
	msgQueryDeleted      = "Query deleted successfully"
	msgQueryDeleteFailed = "Failed to delete query"
	msgQueryAdded        = "Query added successfully"
	msgQueryAddFailed    = "Failed to add query"
)

// ErrUnknownQuery is returned when an edit targets a row that is not listed.
var ErrUnknownQuery = errors.New("query is not in the list")

// QueryService is the subset of the remote session used by QueryTable.
type QueryService interface {
	ListQueries(ctx context.Context, purchasedAgentID string) ([]domain.SupportQuery, error)
	CreateQuery(ctx context.Context, in domain.SupportQueryInput) (*domain.SupportQuery, error)
	UpdateQuery(ctx context.Context, queryID, text string) (*domain.SupportQuery, error)
	DeleteQuery(ctx context.Context, queryID string) error
}

// QueryTarget identifies the purchased agent whose queries are managed.
type QueryTarget struct {
	PurchasedAgentID string
	CompanyID        string
	AgentID          string
}

// QueryTableState is a snapshot of the table.
type QueryTableState struct {
	Status   Status                `json:"status"`
	Queries  []domain.SupportQuery `json:"queries"`
	Editing  string                `json:"editing,omitempty"`
	Draft    string                `json:"draft,omitempty"`
	Empty    bool                  `json:"empty"`
	Capacity int                   `json:"capacity"`
}

// QueryTable lists, edits, deletes and adds support queries in place. At most
// one row is edited at a time. Overlapping saves are not coordinated; the last
// response to arrive wins.
type QueryTable struct {
	svc    QueryService
	notify Notifier
	target QueryTarget

	mu      sync.Mutex
	status  Status
	loaded  bool
	queries []domain.SupportQuery
	editing string
	draft   string
}

// NewQueryTable returns an idle table for target.
func NewQueryTable(svc QueryService, n Notifier, target QueryTarget) *QueryTable {
	return &QueryTable{
		svc:    svc,
		notify: notifierOrNop(n),
		target: target,
		status: idle(),
	}
}

// Load fetches the list. An empty list is a successful load.
func (t *QueryTable) Load(ctx context.Context) error {
	t.setStatus(loading())

	queries, err := t.svc.ListQueries(ctx, t.target.PurchasedAgentID)
	if err != nil {
		t.fail(msgQueriesLoadFailed, err)
		return err
	}

	t.mu.Lock()
	if queries == nil {
		queries = []domain.SupportQuery{}
	}
	t.queries = queries
	t.loaded = true
	t.status = succeeded("")
	t.mu.Unlock()
	return nil
}

// BeginEdit puts the row with id in edit mode, leaving any other row.
func (t *QueryTable) BeginEdit(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexLocked(id)
	if i < 0 {
		return ErrUnknownQuery
	}
	t.editing = id
	t.draft = t.queries[i].Text
	return nil
}

// SetDraft replaces the text of the row being edited.
func (t *QueryTable) SetDraft(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.editing != "" {
		t.draft = text
	}
}

// CancelEdit leaves edit mode without saving.
func (t *QueryTable) CancelEdit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.editing, t.draft = "", ""
}

// SaveEdit sends the draft of the edited row. On failure the row stays in
// edit mode with its draft so the user can retry.
func (t *QueryTable) SaveEdit(ctx context.Context) error {
	t.mu.Lock()
	id, text := t.editing, t.draft
	t.mu.Unlock()
	if id == "" {
		return ErrUnknownQuery
	}

	t.setStatus(loading())
	updated, err := t.svc.UpdateQuery(ctx, id, text)
	if err != nil {
		t.fail(msgQueryUpdateFailed, err)
		return err
	}

	t.mu.Lock()
	if i := t.indexLocked(id); i >= 0 {
		t.queries[i] = *updated
	}
	if t.editing == id {
		t.editing, t.draft = "", ""
	}
	t.status = succeeded(msgQueryUpdated)
	t.mu.Unlock()

	t.notify.Notify(notify.KindSuccess, msgQueryUpdated, "")
	return nil
}

// Delete removes the row with id after the API confirms.
func (t *QueryTable) Delete(ctx context.Context, id string) error {
	t.setStatus(loading())
	if err := t.svc.DeleteQuery(ctx, id); err != nil {
		t.fail(msgQueryDeleteFailed, err)
		return err
	}

	t.mu.Lock()
	if i := t.indexLocked(id); i >= 0 {
		t.queries = append(t.queries[:i:i], t.queries[i+1:]...)
	}
	if t.editing == id {
		t.editing, t.draft = "", ""
	}
	t.status = succeeded(msgQueryDeleted)
	t.mu.Unlock()

	t.notify.Notify(notify.KindSuccess, msgQueryDeleted, "")
	return nil
}

// Add creates a query from text. Blank text is ignored and reports false.
func (t *QueryTable) Add(ctx context.Context, text string) (bool, error) {
	if strings.TrimSpace(text) == "" {
		return false, nil
	}

	t.setStatus(loading())
	created, err := t.svc.CreateQuery(ctx, domain.SupportQueryInput{
		Text:             text,
		CompanyID:        t.target.CompanyID,
		AgentID:          t.target.AgentID,
		PurchasedAgentID: t.target.PurchasedAgentID,
	})
	if err != nil {
		t.fail(msgQueryAddFailed, err)
		return false, err
	}

	t.mu.Lock()
	t.queries = append(t.queries, *created)
	t.status = succeeded(msgQueryAdded)
	t.mu.Unlock()

	t.notify.Notify(notify.KindSuccess, msgQueryAdded, "")
	return true, nil
}

// Dismiss clears the outcome of the last action.
func (t *QueryTable) Dismiss() {
	t.setStatus(idle())
}

// State returns a snapshot of the table.
func (t *QueryTable) State() QueryTableState {
	t.mu.Lock()
	defer t.mu.Unlock()

	queries := append([]domain.SupportQuery{}, t.queries...)
	return QueryTableState{
		Status:   t.status,
		Queries:  queries,
		Editing:  t.editing,
		Draft:    t.draft,
		Empty:    t.loaded && len(queries) == 0,
		Capacity: QueryCapacity,
	}
}

func (t *QueryTable) fail(title string, err error) {
	st := failed(err)
	t.setStatus(st)
	t.notify.Notify(notify.KindError, title, st.Message)
}

func (t *QueryTable) setStatus(s Status) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

func (t *QueryTable) indexLocked(id string) int {
	for i, q := range t.queries {
		if q.ID == id {
			return i
		}
	}
	return -1
}
