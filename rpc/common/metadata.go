package common

import "github.com/ValentinKolb/dShare/lib/store"

// NodeMetadata is the JSON document returned by the metadata command
type NodeMetadata struct {
	Name              string     `json:"name"`
	Version           string     `json:"version"`
	Address           string     `json:"address"`
	Peers             []PeerInfo `json:"peers"`
	AllowInteractions bool       `json:"allow_interactions"`
	Store             store.Info `json:"store"`
}

// PeerStatus is the outcome of the sync handshake with a peer
type PeerStatus string

const (
	PeerUnknown      PeerStatus = "unknown"
	PeerAcknowledged PeerStatus = "acknowledged"
	PeerRestricted   PeerStatus = "restricted"
	PeerUnavailable  PeerStatus = "unavailable"
)

// PeerInfo describes what a node knows about one of its peers
type PeerInfo struct {
	Address   string     `json:"address"`
	Status    PeerStatus `json:"status"`
	Attempts  int        `json:"attempts"`
	LastError string     `json:"last_error,omitempty"`
	UpdatedAt int64      `json:"updated_at"`
}
