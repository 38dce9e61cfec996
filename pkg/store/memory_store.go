package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"postcraft/pkg/domain"
)

// MemoryStore keeps users, content and templates in-process. Nothing survives a restart.
type MemoryStore struct {
	mu  sync.RWMutex
	now func() time.Time

	users     map[int64]domain.User
	usernames map[string]int64
	content   map[int64]domain.ContentRecord
	order     []int64 // content ids in insertion order
	templates map[int64]domain.Template
	tplOrder  []int64

	nextUserID     int64
	nextContentID  int64
	nextTemplateID int64
}

// MemoryOption customizes a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemoryStore initializes an empty in-memory store. Counters start at 1.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		now:            func() time.Time { return time.Now().UTC() },
		users:          make(map[int64]domain.User),
		usernames:      make(map[string]int64),
		content:        make(map[int64]domain.ContentRecord),
		templates:      make(map[int64]domain.Template),
		nextUserID:     1,
		nextContentID:  1,
		nextTemplateID: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// CreateUser registers a user under the next user id.
func (m *MemoryStore) CreateUser(u domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.usernames[u.Username]; exists {
		return domain.User{}, ErrUsernameTaken
	}
	u.ID = m.nextUserID
	m.nextUserID++
	if u.CreatedAt.IsZero() {
		u.CreatedAt = m.now()
	}
	m.users[u.ID] = u
	m.usernames[u.Username] = u.ID
	return u, nil
}

// GetUser returns a user by ID.
func (m *MemoryStore) GetUser(id int64) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// GetUserByUsername looks up a user by username.
func (m *MemoryStore) GetUserByUsername(username string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.usernames[username]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

// CreateContent assigns the next content id and the creation time, then inserts.
func (m *MemoryStore) CreateContent(rec domain.ContentRecord) (domain.ContentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = m.nextContentID
	m.nextContentID++
	rec.CreatedAt = m.now()
	rec.Images = cloneImages(rec.Images)
	m.content[rec.ID] = rec
	m.order = append(m.order, rec.ID)
	return copyRecord(rec), nil
}

// GetContent retrieves a record by ID.
func (m *MemoryStore) GetContent(id int64) (domain.ContentRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.content[id]
	if !ok {
		return domain.ContentRecord{}, false, nil
	}
	return copyRecord(rec), true, nil
}

// ListContentByOwner returns the owner's records, most recent first.
// Records with equal CreatedAt keep insertion order.
func (m *MemoryStore) ListContentByOwner(ownerID int64) ([]domain.ContentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.ContentRecord, 0, len(m.order))
	for _, id := range m.order {
		if rec, ok := m.content[id]; ok && rec.OwnerID == ownerID {
			res = append(res, copyRecord(rec))
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

// UpdateContent merges patch into an existing record. A miss never creates.
func (m *MemoryStore) UpdateContent(id int64, patch domain.ContentPatch) (domain.ContentRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.content[id]
	if !ok {
		return domain.ContentRecord{}, false, nil
	}
	rec = patch.Apply(rec)
	m.content[id] = rec
	return copyRecord(rec), true, nil
}

// DeleteContent removes a record and reports whether it existed.
func (m *MemoryStore) DeleteContent(id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.content[id]; !ok {
		return false, nil
	}
	delete(m.content, id)
	filtered := m.order[:0]
	for _, item := range m.order {
		if item != id {
			filtered = append(filtered, item)
		}
	}
	m.order = filtered
	return true, nil
}

// CountContent returns the number of stored records across all owners.
func (m *MemoryStore) CountContent() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.content), nil
}

// ContentStats aggregates the owner's records by platform.
func (m *MemoryStore) ContentStats(ownerID int64) (domain.ContentStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byPlatform := make(map[string]int)
	for _, rec := range m.content {
		if rec.OwnerID == ownerID {
			byPlatform[rec.Platform]++
		}
	}
	return statsFromCounts(byPlatform), nil
}

// CreateTemplate inserts a template under the next template id.
func (m *MemoryStore) CreateTemplate(t domain.Template) (domain.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.nextTemplateID
	m.nextTemplateID++
	m.templates[t.ID] = t
	m.tplOrder = append(m.tplOrder, t.ID)
	return t, nil
}

// GetTemplate returns a template by ID.
func (m *MemoryStore) GetTemplate(id int64) (domain.Template, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	return t, ok, nil
}

// ListTemplates returns all templates in insertion order.
func (m *MemoryStore) ListTemplates() ([]domain.Template, error) {
	return m.filterTemplates(func(domain.Template) bool { return true }), nil
}

// ListTemplatesByPlatform returns templates whose platform matches exactly.
func (m *MemoryStore) ListTemplatesByPlatform(platform string) ([]domain.Template, error) {
	return m.filterTemplates(func(t domain.Template) bool { return t.Platform == platform }), nil
}

func (m *MemoryStore) filterTemplates(keep func(domain.Template) bool) []domain.Template {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Template, 0, len(m.tplOrder))
	for _, id := range m.tplOrder {
		if t, ok := m.templates[id]; ok && keep(t) {
			res = append(res, t)
		}
	}
	return res
}

func copyRecord(rec domain.ContentRecord) domain.ContentRecord {
	rec.Images = cloneImages(rec.Images)
	return rec
}

func cloneImages(images []string) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		if img = strings.TrimSpace(img); img != "" {
			out = append(out, img)
		}
	}
	return out
}
