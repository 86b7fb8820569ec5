package publisher

// Publisher exports scraped deal events for external consumers.
// Publishing is best-effort: a failure never blocks notification fan-out.
type Publisher interface {
	// Publish appends a deal event to the stream
	Publish(message []byte) error

	// Close closes the publisher connection
	Close() error
}
