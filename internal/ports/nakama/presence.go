package nakama

import (
	"sync"

	"blackjack/internal/ports"
)

// Directory records which users watch which table. Nakama notifications
// are addressed to users, so the user id doubles as the connection id.
type Directory struct {
	mu     sync.RWMutex
	tables map[string]map[string]struct{}
	users  map[string]string
}

var _ ports.ViewerDirectory = (*Directory)(nil)

func NewDirectory() *Directory {
	return &Directory{
		tables: make(map[string]map[string]struct{}),
		users:  make(map[string]string),
	}
}

// Bind attaches a user to a table, replacing any earlier binding.
func (d *Directory) Bind(userID, tableID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unbindLocked(userID)
	users, ok := d.tables[tableID]
	if !ok {
		users = make(map[string]struct{})
		d.tables[tableID] = users
	}
	users[userID] = struct{}{}
	d.users[userID] = tableID
}

// Unbind detaches a user and returns the table it watched.
func (d *Directory) Unbind(userID string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unbindLocked(userID)
}

func (d *Directory) unbindLocked(userID string) string {
	tableID, ok := d.users[userID]
	if !ok {
		return ""
	}
	delete(d.users, userID)
	if users := d.tables[tableID]; users != nil {
		delete(users, userID)
		if len(users) == 0 {
			delete(d.tables, tableID)
		}
	}
	return tableID
}

func (d *Directory) Viewers(tableID string) []ports.Viewer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	users := d.tables[tableID]
	out := make([]ports.Viewer, 0, len(users))
	for userID := range users {
		out = append(out, ports.Viewer{ConnectionID: userID, PlayerID: userID, TableID: tableID})
	}
	return out
}
