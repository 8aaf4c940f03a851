package hatodo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	haclient "github.com/mkelcik/go-ha-client/v2"

	"github.com/dnoble/vaultsync/internal/collab"
	"github.com/dnoble/vaultsync/internal/model"
)

// RESTClient is the subset of [haclient.Client] methods used by the adapter.
// Defining it as an interface allows mock injection in tests.
type RESTClient interface {
	Ping(ctx context.Context) error
	// CallService POSTs to /api/services/<domain>/<service> without
	// return_response. Used for mutations (add, update, remove).
	CallService(ctx context.Context, domain, service string, body io.Reader) error
	// CallServiceWithResponse POSTs with ?return_response=true. Used for
	// todo.get_items which returns data.
	CallServiceWithResponse(ctx context.Context, domain, service string, body io.Reader) (haclient.ServiceCallResponse, error)
}

// haClientWrapper wraps [haclient.Client] and adds a plain CallService method
// that POSTs without ?return_response — required for HA services that don't
// support responses (e.g. todo.add_item, todo.update_item, todo.remove_item).
type haClientWrapper struct {
	client  *haclient.Client
	baseURL string
	token   string
	hc      *http.Client
}

func (w *haClientWrapper) Ping(ctx context.Context) error {
	return w.client.Ping(ctx)
}

// CallService POSTs the body to /api/services/<domain>/<service> without
// appending ?return_response, so HA does not try to return data.
func (w *haClientWrapper) CallService(ctx context.Context, domain, service string, body io.Reader) error {
	endpoint := fmt.Sprintf("%s/api/services/%s/%s",
		strings.TrimRight(w.baseURL, "/"),
		url.PathEscape(domain),
		url.PathEscape(service),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("create service request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.hc.Do(req)
	if err != nil {
		return fmt.Errorf("execute service request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusBadRequest {
		var br struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&br)
		return errors.New(br.Message)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return &collab.GatewayError{Kind: collab.GatewayErrorAuthDenied, Message: "HA returned 401 Unauthorized — check ha_token"}
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("HA returned unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (w *haClientWrapper) CallServiceWithResponse(ctx context.Context, domain, service string, body io.Reader) (haclient.ServiceCallResponse, error) {
	return w.client.CallServiceWithResponse(ctx, domain, service, body)
}

// Adapter implements collab.ReminderGateway against Home Assistant todo
// lists via the REST API. Create one with [NewAdapter] or
// [NewAdapterWithClient]. Real-time push (the teacher's WebSocket
// subscription) is out of scope here — the sync engine only ever polls.
type Adapter struct {
	rest   RESTClient
	logger *slog.Logger
}

// NewAdapter creates an Adapter backed by a real HA REST client.
func NewAdapter(haURL, token string, logger *slog.Logger) (*Adapter, error) {
	rest, err := haclient.NewClient(haURL,
		haclient.WithToken(token),
		haclient.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create HA REST client: %w", err)
	}

	wrapper := &haClientWrapper{
		client:  rest,
		baseURL: haURL,
		token:   token,
		hc:      &http.Client{},
	}

	return &Adapter{rest: wrapper, logger: logger}, nil
}

// NewAdapterWithClient creates an Adapter with a caller-supplied REST client.
// Intended for testing with a mock [RESTClient].
func NewAdapterWithClient(rest RESTClient, logger *slog.Logger) *Adapter {
	return &Adapter{rest: rest, logger: logger}
}

// Ping validates the HA connection and token with retry.
func (a *Adapter) Ping(ctx context.Context) error {
	err := Retry(ctx, defaultMaxAttempts, func() error {
		return a.rest.Ping(ctx)
	})
	if err != nil {
		return fmt.Errorf("ping HA: %w", err)
	}
	return nil
}

// ListTasks fetches all todo items across the given HA entities (lists),
// optionally excluding completed ones.
func (a *Adapter) ListTasks(ctx context.Context, listIDs []string, includeCompleted bool) ([]model.ReminderTask, error) {
	var out []model.ReminderTask
	for _, entityID := range listIDs {
		data := buildGetItemsData(entityID)

		var resp haclient.ServiceCallResponse
		err := Retry(ctx, defaultMaxAttempts, func() error {
			var callErr error
			resp, callErr = a.rest.CallServiceWithResponse(ctx, domainTodo, serviceGetItems, serviceBody(data))
			return callErr
		})
		if err != nil {
			return nil, fmt.Errorf("get items for %s: %w", entityID, err)
		}

		items, err := parseGetItemsResponse(resp, entityID)
		if err != nil {
			return nil, err
		}
		for _, t := range items {
			if !includeCompleted && t.Status == model.StatusDone {
				continue
			}
			out = append(out, t)
		}
	}
	return out, nil
}

// Create adds a new todo item to entityID. HA's todo.add_item does not
// return the item's minted uid, so Create re-fetches the list and returns
// the "entityID/title" itemID of the item with the matching title.
func (a *Adapter) Create(ctx context.Context, listID string, task model.ReminderTask) (string, error) {
	data := buildAddItemData(listID, task)
	err := Retry(ctx, defaultMaxAttempts, func() error {
		return a.rest.CallService(ctx, domainTodo, serviceAddItem, serviceBody(data))
	})
	if err != nil {
		return "", fmt.Errorf("add item %q to %s: %w", task.Title, listID, err)
	}

	created, err := a.ListTasks(ctx, []string{listID}, true)
	if err != nil {
		return "", fmt.Errorf("resolve uid for newly created item %q: %w", task.Title, err)
	}
	for _, t := range created {
		if t.Title == task.Title {
			return t.ItemID, nil
		}
	}
	return "", &collab.GatewayError{Kind: collab.GatewayErrorNotFound, Message: fmt.Sprintf("created item %q not found on re-fetch", task.Title)}
}

// Update applies a sparse field change set to an existing item. itemID must
// be "entityID/currentTitle" — HA's todo services address items by title
// within an entity, not by a stable id, so the gateway packs both into the
// opaque itemID string returned from ListTasks/Create.
//
// A ListID change (a reroute) has no native HA equivalent, so Update
// performs it as add-then-remove (create in the target list, then remove
// from the source list): HA mints a new uid, which callers must
// re-resolve via ListTasks on the next sync pass.
func (a *Adapter) Update(ctx context.Context, itemID string, changes collab.FieldChanges) error {
	entityID, currentTitle, ok := splitItemID(itemID)
	if !ok {
		return &collab.GatewayError{Kind: collab.GatewayErrorNotFound, Message: fmt.Sprintf("malformed item id %q", itemID)}
	}

	if changes.ListID != nil && *changes.ListID != entityID {
		return a.reroute(ctx, entityID, *changes.ListID, currentTitle, changes)
	}

	local := fieldChanges{title: changes.Title, notes: changes.Notes, dueDate: changes.DueDate, priority: changes.Priority, status: changes.Status}
	data := buildUpdateItemData(entityID, currentTitle, local)
	err := Retry(ctx, defaultMaxAttempts, func() error {
		return a.rest.CallService(ctx, domainTodo, serviceUpdateItem, serviceBody(data))
	})
	if err != nil {
		return fmt.Errorf("update item %q in %s: %w", currentTitle, entityID, err)
	}
	return nil
}

func (a *Adapter) reroute(ctx context.Context, fromEntity, toEntity, currentTitle string, changes collab.FieldChanges) error {
	title := currentTitle
	if changes.Title != nil {
		title = *changes.Title
	}
	task := model.ReminderTask{Title: title}
	if changes.Notes != nil {
		task.Notes = *changes.Notes
	}
	if changes.DueDate != nil {
		task.DueDate = *changes.DueDate
	}
	if changes.Priority != nil {
		task.Priority = *changes.Priority
	}

	if _, err := a.Create(ctx, toEntity, task); err != nil {
		return fmt.Errorf("reroute %q to %s: %w", currentTitle, toEntity, err)
	}
	if err := a.removeByTitle(ctx, fromEntity, currentTitle); err != nil {
		return fmt.Errorf("reroute %q: remove from %s: %w", currentTitle, fromEntity, err)
	}
	return nil
}

// Delete removes a todo item identified by its "entityID/title" itemID.
func (a *Adapter) Delete(ctx context.Context, itemID string) error {
	entityID, title, ok := splitItemID(itemID)
	if !ok {
		return &collab.GatewayError{Kind: collab.GatewayErrorNotFound, Message: fmt.Sprintf("malformed item id %q", itemID)}
	}
	return a.removeByTitle(ctx, entityID, title)
}

func (a *Adapter) removeByTitle(ctx context.Context, entityID, title string) error {
	data := buildRemoveItemData(entityID, title)
	err := Retry(ctx, defaultMaxAttempts, func() error {
		return a.rest.CallService(ctx, domainTodo, serviceRemoveItem, serviceBody(data))
	})
	if err != nil {
		return fmt.Errorf("remove item %q from %s: %w", title, entityID, err)
	}
	return nil
}

// splitItemID recovers the entity id and title packed into an opaque itemID
// by ItemID / ListTasks. See Update's doc comment for why HA needs this.
func splitItemID(itemID string) (entityID, title string, ok bool) {
	idx := strings.Index(itemID, "/")
	if idx < 0 {
		return "", "", false
	}
	return itemID[:idx], itemID[idx+1:], true
}

// serviceBody marshals data to a JSON [io.Reader] for service calls.
func serviceBody(data map[string]interface{}) io.Reader {
	b, _ := json.Marshal(data) //nolint:errcheck // map[string]interface{} always marshals
	return bytes.NewReader(b)
}

// parseGetItemsResponse extracts todo items from the service call response.
func parseGetItemsResponse(resp haclient.ServiceCallResponse, entityID string) ([]model.ReminderTask, error) {
	raw, ok := resp.ServiceResponse[entityID]
	if !ok {
		return nil, fmt.Errorf("no service response for entity %s", entityID)
	}

	var haResp haItemsResponse
	if err := json.Unmarshal(raw, &haResp); err != nil {
		return nil, fmt.Errorf("parse items response for %s: %w", entityID, err)
	}

	items := make([]model.ReminderTask, 0, len(haResp.Items))
	for _, h := range haResp.Items {
		t := haItemToReminderTask(entityID, h)
		t.ItemID = entityID + "/" + t.Title
		items = append(items, t)
	}
	return items, nil
}
