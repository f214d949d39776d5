package main

// ChangeEvent is the message forwarded for every item change on the table.
// Images are plain JSON; the key prefixes are kept verbatim so consumers
// can classify events without the table schema.
type ChangeEvent struct {
	EventID        string         `json:"event_id"`
	EventName      string         `json:"event_name"` // INSERT | MODIFY | REMOVE
	EntityType     string         `json:"entity_type"`
	PartitionKey   string         `json:"partition_key"`
	SortKey        string         `json:"sort_key"`
	SequenceNumber string         `json:"sequence_number"`
	ApproximateAt  int64          `json:"approximate_creation_time"`
	NewImage       map[string]any `json:"new_image,omitempty"`
	OldImage       map[string]any `json:"old_image,omitempty"`
}
