package runtime

import (
	"sync"

	"chat-relay/domain"
)

type connSet map[domain.ConnID]struct{}

// userPresence tracks one user inside one channel: the cached display name
// and every connection of theirs currently joined (multi-device).
type userPresence struct {
	displayName string
	conns       connSet
}

// Departure is a per-channel "left" transition returned by Purge.
type Departure struct {
	ChannelID domain.ChannelID
	User      domain.PresenceInfo
}

// PresenceTracker maps channels to the set of currently-joined users.
// It is broadcast-agnostic: transitions are returned to the caller, never
// emitted as side effects, which keeps the component testable.
//
// The de-dup key is the user, not the connection: a user joining from a
// second device produces no transition, and only the last connection
// leaving produces "left". State is a pure function of the
// join/leave/purge call history.
type PresenceTracker struct {
	mu       sync.Mutex
	channels map[domain.ChannelID]map[domain.UserID]*userPresence
	// reverse index: which channels each connection has joined, and for
	// which user. Drives Purge on disconnect.
	conns map[domain.ConnID]map[domain.ChannelID]domain.UserID
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		channels: make(map[domain.ChannelID]map[domain.UserID]*userPresence),
		conns:    make(map[domain.ConnID]map[domain.ChannelID]domain.UserID),
	}
}

// Join adds the connection to the channel's room. It reports whether this
// was the user's first connection in the channel, i.e. whether a "joined"
// transition should be broadcast. Rejoining with the same connection is a
// no-op.
func (p *PresenceTracker) Join(channelID domain.ChannelID, connID domain.ConnID, identity domain.Identity) (firstJoin bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	users, ok := p.channels[channelID]
	if !ok {
		users = make(map[domain.UserID]*userPresence)
		p.channels[channelID] = users
	}

	entry, ok := users[identity.UserID]
	if !ok {
		entry = &userPresence{displayName: identity.DisplayName, conns: make(connSet)}
		users[identity.UserID] = entry
		firstJoin = true
	}
	entry.conns[connID] = struct{}{}

	byChannel, ok := p.conns[connID]
	if !ok {
		byChannel = make(map[domain.ChannelID]domain.UserID)
		p.conns[connID] = byChannel
	}
	byChannel[channelID] = identity.UserID

	return firstJoin
}

// Leave removes the connection from the channel. It reports whether this
// was the user's last connection there (a "left" transition) together with
// the departing user's info. Leaving a channel the connection never joined
// is a no-op.
func (p *PresenceTracker) Leave(channelID domain.ChannelID, connID domain.ConnID) (lastLeave bool, user domain.PresenceInfo, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.leaveLocked(channelID, connID)
}

func (p *PresenceTracker) leaveLocked(channelID domain.ChannelID, connID domain.ConnID) (bool, domain.PresenceInfo, bool) {
	byChannel, joined := p.conns[connID]
	if !joined {
		return false, domain.PresenceInfo{}, false
	}
	userID, joined := byChannel[channelID]
	if !joined {
		return false, domain.PresenceInfo{}, false
	}

	delete(byChannel, channelID)
	if len(byChannel) == 0 {
		delete(p.conns, connID)
	}

	users := p.channels[channelID]
	entry := users[userID]
	info := domain.PresenceInfo{ID: userID, DisplayName: entry.displayName}

	delete(entry.conns, connID)
	if len(entry.conns) > 0 {
		// Another device of the same user is still present.
		return false, info, true
	}

	delete(users, userID)
	// No empty sets are left behind, to prevent leaks over time.
	if len(users) == 0 {
		delete(p.channels, channelID)
	}
	return true, info, true
}

// Snapshot returns the currently-present user set of a channel, used to
// answer a newly-joined client's initial state request.
func (p *PresenceTracker) Snapshot(channelID domain.ChannelID) map[domain.UserID]domain.PresenceInfo {
	p.mu.Lock()
	defer p.mu.Unlock()

	snapshot := make(map[domain.UserID]domain.PresenceInfo)
	for userID, entry := range p.channels[channelID] {
		snapshot[userID] = domain.PresenceInfo{ID: userID, DisplayName: entry.displayName}
	}
	return snapshot
}

// Roster returns a copy of every connection subscribed to the channel's
// room. The copy is safe to iterate while broadcasts and membership
// changes proceed concurrently.
func (p *PresenceTracker) Roster(channelID domain.ChannelID) []domain.ConnID {
	p.mu.Lock()
	defer p.mu.Unlock()

	var roster []domain.ConnID
	for _, entry := range p.channels[channelID] {
		for connID := range entry.conns {
			roster = append(roster, connID)
		}
	}
	return roster
}

// Purge removes the connection from every channel it joined, returning one
// departure per channel where it was the user's last connection. Purging
// an unknown or already-purged connection returns nothing.
func (p *PresenceTracker) Purge(connID domain.ConnID) []Departure {
	p.mu.Lock()
	defer p.mu.Unlock()

	byChannel := p.conns[connID]
	var departures []Departure
	for channelID := range byChannel {
		if lastLeave, user, ok := p.leaveLocked(channelID, connID); ok && lastLeave {
			departures = append(departures, Departure{ChannelID: channelID, User: user})
		}
	}
	return departures
}

// Counts reports the number of channels with any presence and the total
// number of present (channel, user) entries, for observability.
func (p *PresenceTracker) Counts() (channels, users int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, u := range p.channels {
		users += len(u)
	}
	return len(p.channels), users
}
