package config

import "time"

const (
	// MaxProjectNameLength is the maximum length for project names.
	MaxProjectNameLength = 100

	// MaxProjectDescriptionLength is the maximum length for project descriptions.
	MaxProjectDescriptionLength = 500

	// MaxKeywordNameLength is the maximum length for keyword names.
	MaxKeywordNameLength = 100

	// MaxNoteTitleLength bounds note titles. Content is unbounded text.
	MaxNoteTitleLength = 255

	// MaxTypeLength bounds the free-form type column on notes and sources (VARCHAR(100)).
	MaxTypeLength = 100

	// MaxLinkTypeLength bounds note link types (VARCHAR(50)).
	MaxLinkTypeLength = 50

	// DefaultPageLimit is used when a caller asks for limit <= 0.
	DefaultPageLimit = 100

	// MaxPageLimit caps any single page.
	MaxPageLimit = 1000

	// DefaultCacheTTL is how long a cached project instance may be served.
	DefaultCacheTTL = 600 * time.Second

	// DefaultCacheSize is the entry bound for the in-memory cache.
	DefaultCacheSize = 10_000

	// DefaultLockTimeout bounds how long Update waits on a project row lock.
	DefaultLockTimeout = 5 * time.Second

	// DefaultMaxHierarchyDepth bounds the ancestor walk. A chain longer than
	// this is treated as corrupt and rejected like a cycle.
	DefaultMaxHierarchyDepth = 10_000
)
