package state

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnknownRoom is returned when removing a room that was never cached.
	ErrUnknownRoom = errors.New("unknown room")
	// ErrUnknownUser is returned when removing a user that was never cached.
	ErrUnknownUser = errors.New("unknown user")
)

var nonAlnum = regexp.MustCompile(`[^0-9a-zA-Z]`)

// Normalize lower-cases a name and strips every non-alphanumeric character.
// Normalized names are the only key space the cache operates on; callers must
// never compare identities without going through Normalize.
func Normalize(name string) string {
	return strings.ToLower(nonAlnum.ReplaceAllString(name, ""))
}

// Room tracks which users are currently present in a chat room.
// Membership is keyed by normalized user name.
type Room struct {
	Name  string
	users map[string]struct{}
}

func newRoom(name string) *Room {
	return &Room{
		Name:  name,
		users: make(map[string]struct{}),
	}
}

// User holds a display name and the authorization level the server reported
// for the user in each room, keyed by normalized room name.
type User struct {
	ID    string
	Name  string
	auths map[string]string
}

func newUser(name string) *User {
	return &User{
		ID:    Normalize(name),
		Name:  name,
		auths: make(map[string]string),
	}
}

// Cache is the shared view of rooms and users built up from server events.
// Rooms and users are guarded by independent locks; an operation acquires at
// most one of them, so there is no lock ordering to get wrong.
type Cache struct {
	roomsMu sync.RWMutex
	rooms   map[string]*Room

	usersMu sync.RWMutex
	users   map[string]*User
}

// NewCache constructs an empty cache.
func NewCache() *Cache {
	return &Cache{
		rooms: make(map[string]*Room),
		users: make(map[string]*User),
	}
}

// EnsureRoom inserts a room if it is not cached yet. Idempotent.
func (c *Cache) EnsureRoom(name string) {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	c.ensureRoomLocked(name)
}

func (c *Cache) ensureRoomLocked(name string) *Room {
	key := Normalize(name)
	room, ok := c.rooms[key]
	if !ok {
		room = newRoom(name)
		c.rooms[key] = room
	}
	return room
}

// EnsureUser inserts a user if it is not cached yet. Idempotent.
func (c *Cache) EnsureUser(name string) {
	c.usersMu.Lock()
	defer c.usersMu.Unlock()
	c.ensureUserLocked(name)
}

func (c *Cache) ensureUserLocked(name string) *User {
	key := Normalize(name)
	user, ok := c.users[key]
	if !ok {
		user = newUser(name)
		c.users[key] = user
	}
	return user
}

// RemoveRoom deletes a room. Callers are expected to know the room exists;
// removing an unknown room is a programming error and reported as such.
func (c *Cache) RemoveRoom(name string) error {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	key := Normalize(name)
	if _, ok := c.rooms[key]; !ok {
		return ErrUnknownRoom
	}
	delete(c.rooms, key)
	return nil
}

// RemoveUser deletes a user. Same contract as RemoveRoom.
func (c *Cache) RemoveUser(name string) error {
	c.usersMu.Lock()
	defer c.usersMu.Unlock()
	key := Normalize(name)
	if _, ok := c.users[key]; !ok {
		return ErrUnknownUser
	}
	delete(c.users, key)
	return nil
}

// AddUserToRoom records the user as present in the room, creating the room
// if needed. Presence lists can arrive before an explicit join record.
func (c *Cache) AddUserToRoom(user, room string) {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	r := c.ensureRoomLocked(room)
	r.users[Normalize(user)] = struct{}{}
}

// RemoveUserFromRoom drops the user from the room's membership set.
// Removing an absent member is a no-op; the room is created if needed.
func (c *Cache) RemoveUserFromRoom(user, room string) {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	r := c.ensureRoomLocked(room)
	delete(r.users, Normalize(user))
}

// AddAuth records the user's authorization level in a room, creating the
// user if needed. Add-if-absent: a level already on record is kept, so an
// explicit authorization change must remove before re-adding.
func (c *Cache) AddAuth(auth, user, room string) {
	c.usersMu.Lock()
	defer c.usersMu.Unlock()
	u := c.ensureUserLocked(user)
	key := Normalize(room)
	if _, ok := u.auths[key]; !ok {
		u.auths[key] = auth
	}
}

// ContainsRoom reports whether the room is cached.
func (c *Cache) ContainsRoom(name string) bool {
	c.roomsMu.RLock()
	defer c.roomsMu.RUnlock()
	_, ok := c.rooms[Normalize(name)]
	return ok
}

// ContainsUser reports whether the user is cached.
func (c *Cache) ContainsUser(name string) bool {
	c.usersMu.RLock()
	defer c.usersMu.RUnlock()
	_, ok := c.users[Normalize(name)]
	return ok
}

// RoomHasUser reports whether the user is currently present in the room.
func (c *Cache) RoomHasUser(user, room string) bool {
	c.roomsMu.RLock()
	defer c.roomsMu.RUnlock()
	r, ok := c.rooms[Normalize(room)]
	if !ok {
		return false
	}
	_, ok = r.users[Normalize(user)]
	return ok
}

// HasAuth reports whether the user holds exactly the given authorization
// level in the room.
func (c *Cache) HasAuth(auth, user, room string) bool {
	c.usersMu.RLock()
	defer c.usersMu.RUnlock()
	u, ok := c.users[Normalize(user)]
	if !ok {
		return false
	}
	return u.auths[Normalize(room)] == auth
}

// RoomNames returns the cached room display names, sorted.
func (c *Cache) RoomNames() []string {
	c.roomsMu.RLock()
	defer c.roomsMu.RUnlock()
	names := make([]string, 0, len(c.rooms))
	for _, r := range c.rooms {
		names = append(names, r.Name)
	}
	sort.Strings(names)
	return names
}

// RoomMembers returns the normalized names of the users present in a room,
// sorted. Returns nil for an unknown room.
func (c *Cache) RoomMembers(room string) []string {
	c.roomsMu.RLock()
	defer c.roomsMu.RUnlock()
	r, ok := c.rooms[Normalize(room)]
	if !ok {
		return nil
	}
	members := make([]string, 0, len(r.users))
	for u := range r.users {
		members = append(members, u)
	}
	sort.Strings(members)
	return members
}

// UserAuths returns a copy of the user's per-room authorization levels,
// keyed by normalized room name. Returns nil for an unknown user.
func (c *Cache) UserAuths(user string) map[string]string {
	c.usersMu.RLock()
	defer c.usersMu.RUnlock()
	u, ok := c.users[Normalize(user)]
	if !ok {
		return nil
	}
	auths := make(map[string]string, len(u.auths))
	for room, auth := range u.auths {
		auths[room] = auth
	}
	return auths
}

// UserName returns the display name recorded for a user, or the empty
// string if the user is unknown.
func (c *Cache) UserName(user string) string {
	c.usersMu.RLock()
	defer c.usersMu.RUnlock()
	u, ok := c.users[Normalize(user)]
	if !ok {
		return ""
	}
	return u.Name
}
