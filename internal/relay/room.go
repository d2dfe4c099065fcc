package relay

// Room holds every peer that shares an origin key, keyed by peer id.
// Rooms are created on first join and dropped when the last member leaves.
type Room map[string]*Peer

// others returns all members except the given id.
func (r Room) others(id string) []*Peer {
	out := make([]*Peer, 0, len(r))
	for pid, p := range r {
		if pid != id {
			out = append(out, p)
		}
	}
	return out
}
