package storage

// Keys under which the session is persisted.
const (
	// KeyToken holds the bearer token.
	KeyToken = "jwt"
	// KeyUser holds the JSON-encoded current user.
	KeyUser = "user"
)

// Store is durable key/value storage for session state, the equivalent of a
// browser's localStorage. Put and Delete apply all given keys in one write so
// readers never observe a partial update.
type Store interface {
	// Get returns the value stored under key and whether it exists.
	Get(key string) (string, bool, error)
	// Put stores all values at once, replacing existing ones.
	Put(values map[string]string) error
	// Delete removes the given keys. Missing keys are ignored.
	Delete(keys ...string) error
}
