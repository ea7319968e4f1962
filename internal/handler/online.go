package handler

import (
	"sync"

	"github.com/l1jgo/tickworld/internal/world"
)

// Online tracks which accounts are logged in (or logging in, or still
// saving after logout) and which player belongs to which session.
type Online struct {
	mu        sync.Mutex
	accounts  map[string]uint64 // account -> session holding it
	bySession map[uint64]*world.Player
}

func NewOnline() *Online {
	return &Online{
		accounts:  make(map[string]uint64),
		bySession: make(map[uint64]*world.Player),
	}
}

// Reserve claims account for a session. It fails if another session holds it.
func (o *Online) Reserve(account string, sessID uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if holder, ok := o.accounts[account]; ok && holder != sessID {
		return false
	}
	o.accounts[account] = sessID
	return true
}

// Release frees account if sessID still holds it.
func (o *Online) Release(account string, sessID uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.accounts[account] == sessID {
		delete(o.accounts, account)
	}
}

func (o *Online) Bind(sessID uint64, p *world.Player) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.bySession[sessID] = p
}

// Player returns the player bound to a session, nil before login.
func (o *Online) Player(sessID uint64) *world.Player {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.bySession[sessID]
}

// Unbind drops the session's player and returns it.
func (o *Online) Unbind(sessID uint64) *world.Player {
	o.mu.Lock()
	defer o.mu.Unlock()
	p := o.bySession[sessID]
	delete(o.bySession, sessID)
	return p
}

// Accounts is the number of reserved accounts, logins in flight included.
func (o *Online) Accounts() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.accounts)
}
