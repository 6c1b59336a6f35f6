package models

// Record is a bus message detached from the client library, as handed to
// processors and dead-letter sinks.
type Record struct {
	Key   []byte
	Value []byte
	Topic string
}
