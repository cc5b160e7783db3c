package model

// EventRecord is the normalized representation of an emitted event for sinks.
type EventRecord struct {
	ID        string      `json:"id"`
	TxID      string      `json:"tx_id"`
	Program   string      `json:"program"`
	Index     uint32      `json:"index"`
	Name      string      `json:"name"`
	Data      string      `json:"data"`
	Decoded   interface{} `json:"decoded,omitempty"`
	EmittedAt string      `json:"emitted_at"`
}
