package models

// Modalities of a stored unit hash.
const (
	ModalityFrame   = "frame"
	ModalitySegment = "segment"
)

// UnitHash is one per-unit perceptual hash of a stored media item. Position
// is the unit's index in sampling order.
type UnitHash struct {
	MediaID  string `json:"media_id"`
	Modality string `json:"modality"`
	Position int    `json:"position"`
	Hash     string `json:"hash"`
}
