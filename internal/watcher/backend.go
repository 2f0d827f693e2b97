package watcher

import "context"

// Backend defines the platform-specific file watching implementation.
type Backend interface {
	// Watch adds a directory to be monitored. Watching is not
	// recursive; savekeeper only cares about the top level of a save
	// directory.
	Watch(path string) error

	// Start begins watching for events. This method should block until
	// the context is cancelled or an error occurs.
	Start(ctx context.Context) error

	// Stop stops the watcher and releases all resources.
	Stop() error

	// Events returns the channel for receiving file system events.
	Events() <-chan Event

	// Errors returns the channel for receiving errors.
	Errors() <-chan error
}
