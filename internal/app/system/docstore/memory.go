package docstore

import (
	"context"
	"sync"

	"github.com/dalemusser/gamerie/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/bson"
)

// Memory is an in-process Documents implementation. Documents are stored as
// BSON so reads return deep copies with the same field names the Mongo
// implementation persists.
//
// FailOn, when set, is consulted before every operation; a non-nil return is
// wrapped the same way a driver error would be.
type Memory struct {
	mu    sync.RWMutex
	colls map[string]map[string]bson.Raw

	FailOn func(op, collection, id string) error
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{colls: map[string]map[string]bson.Raw{}}
}

// Ops names passed to FailOn.
const (
	OpFetch  = "fetch"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

func (m *Memory) fail(op, collection, id string) error {
	if m.FailOn == nil {
		return nil
	}
	return m.FailOn(op, collection, id)
}

func (m *Memory) Fetch(ctx context.Context, collection, id string, out any) error {
	if err := m.fail(OpFetch, collection, id); err != nil {
		return apperr.New(apperr.KindFailure, "fetch "+collection, msgReadFailed, err)
	}
	m.mu.RLock()
	raw, ok := m.colls[collection][id]
	m.mu.RUnlock()
	if !ok {
		return apperr.New(apperr.KindNotFound, "fetch "+collection, msgNotFound, nil)
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		return apperr.New(apperr.KindFailure, "fetch "+collection, msgReadFailed, err)
	}
	return nil
}

func (m *Memory) Create(ctx context.Context, collection, id string, doc any) error {
	if err := m.fail(OpCreate, collection, id); err != nil {
		return apperr.New(apperr.KindStoreWrite, "create "+collection, msgWriteFailed, err)
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return apperr.New(apperr.KindStoreWrite, "create "+collection, msgWriteFailed, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.colls[collection]
	if !ok {
		c = map[string]bson.Raw{}
		m.colls[collection] = c
	}
	if _, exists := c[id]; exists {
		return apperr.New(apperr.KindConflict, "create "+collection, msgExists, nil)
	}
	c[id] = raw
	return nil
}

func (m *Memory) PartialUpdate(ctx context.Context, collection, id string, fields Fields) error {
	if err := m.fail(OpUpdate, collection, id); err != nil {
		return apperr.New(apperr.KindStoreWrite, "update "+collection, msgWriteFailed, err)
	}
	if len(fields) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.colls[collection][id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "update "+collection, msgNotFound, nil)
	}

	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return apperr.New(apperr.KindStoreWrite, "update "+collection, msgWriteFailed, err)
	}
	doc = setFields(doc, fields)

	next, err := bson.Marshal(doc)
	if err != nil {
		return apperr.New(apperr.KindStoreWrite, "update "+collection, msgWriteFailed, err)
	}
	m.colls[collection][id] = next
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := m.fail(OpDelete, collection, id); err != nil {
		return apperr.New(apperr.KindStoreWrite, "delete "+collection, msgDelete, err)
	}
	m.mu.Lock()
	delete(m.colls[collection], id)
	m.mu.Unlock()
	return nil
}

// Len returns the number of documents in collection.
func (m *Memory) Len(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.colls[collection])
}

// setFields overwrites or appends top-level keys, keeping field order.
func setFields(doc bson.D, fields Fields) bson.D {
	seen := make(map[string]bool, len(fields))
	for i, e := range doc {
		if v, ok := fields[e.Key]; ok {
			doc[i].Value = v
			seen[e.Key] = true
		}
	}
	for k, v := range fields {
		if !seen[k] {
			doc = append(doc, bson.E{Key: k, Value: v})
		}
	}
	return doc
}
