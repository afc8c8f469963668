package core

import "sync"

// Presence tracks which display names are currently joined to each
// room. It lives only in memory: a process restart rebuilds it empty.
// Member lists keep join order and collapse multiple connections under
// the same display name into one entry.
type Presence struct {
	mu    sync.Mutex
	rooms map[string][]string
}

// NewPresence constructs an empty presence registry.
func NewPresence() *Presence {
	return &Presence{rooms: make(map[string][]string)}
}

// MoveTo removes name from every room it currently occupies and adds
// it to room. It returns the names of the vacated rooms. The whole
// transition happens under one lock so the name is never observed in
// two rooms at once.
func (p *Presence) MoveTo(room, name string) (vacated []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for r, members := range p.rooms {
		if r == room {
			continue
		}
		if trimmed, ok := remove(members, name); ok {
			vacated = append(vacated, r)
			if len(trimmed) == 0 {
				delete(p.rooms, r)
			} else {
				p.rooms[r] = trimmed
			}
		}
	}

	if !contains(p.rooms[room], name) {
		p.rooms[room] = append(p.rooms[room], name)
	}
	return vacated
}

// Remove deletes name from room. Returns true if the name was present.
func (p *Presence) Remove(room, name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	trimmed, ok := remove(p.rooms[room], name)
	if !ok {
		return false
	}
	if len(trimmed) == 0 {
		delete(p.rooms, room)
	} else {
		p.rooms[room] = trimmed
	}
	return true
}

// Drop deletes the whole presence entry of a room.
func (p *Presence) Drop(room string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.rooms, room)
}

// Users returns the member list of a room in join order.
func (p *Presence) Users(room string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	members := p.rooms[room]
	out := make([]string, len(members))
	copy(out, members)
	return out
}

func contains(members []string, name string) bool {
	for _, m := range members {
		if m == name {
			return true
		}
	}
	return false
}

func remove(members []string, name string) ([]string, bool) {
	for i, m := range members {
		if m == name {
			return append(members[:i:i], members[i+1:]...), true
		}
	}
	return members, false
}
