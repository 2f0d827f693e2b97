package watcher

import (
	"path/filepath"
	"strings"
	"time"
)

// Options configures the file watcher behavior.
type Options struct {
	// Pattern is the glob the base name of a file must match to be
	// reported, e.g. "*.baronysave". Empty matches every file.
	Pattern string
	// SettleDelay is how long a file must stay unchanged before the
	// fallback backend reports it. The Linux backend reacts on
	// close-after-write and ignores this.
	SettleDelay time.Duration
	// IgnorePatterns are base-name globs that are never reported even
	// when they match Pattern.
	IgnorePatterns []string
}

// setDefaults applies default values to unset options.
func (o *Options) setDefaults() {
	if o.SettleDelay == 0 {
		o.SettleDelay = 100 * time.Millisecond
	}

	if o.IgnorePatterns == nil {
		o.IgnorePatterns = []string{
			"*.tmp",
			"*.temp",
			".DS_Store",
			"Thumbs.db",
		}
	}
}

// matches reports whether an event for path should be delivered.
func (o *Options) matches(path string) bool {
	base := filepath.Base(path)

	// Hidden files are never saves.
	if strings.HasPrefix(base, ".") {
		return false
	}

	for _, pattern := range o.IgnorePatterns {
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return false
		}
	}

	if o.Pattern == "" {
		return true
	}
	ok, err := filepath.Match(o.Pattern, base)
	return err == nil && ok
}
