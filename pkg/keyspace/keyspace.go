// Package keyspace builds the store keys for every record family.
//
// All ephemeral state shares one store, so every key is namespaced by a short
// prefix. Keeping construction in one place keeps writers and the reapers in
// agreement about which ancillary keys belong to a session.
package keyspace

// Shared keys.
const (
	// Logins is the hash mapping session token to user.
	Logins = "login:"
	// Recent is the ordered set ranking tokens by last-seen time.
	Recent = "recent:"
	// Views is the ordered set ranking items by view count. Scores are
	// decremented per view, so rank 0 is the most viewed item.
	Views = "viewed:"
	// Schedule is the ordered set ranking row ids by refresh due-time.
	Schedule = "schedule:"
	// Delay is the ordered set holding each scheduled row's refresh delay
	// in seconds.
	Delay = "delay:"
)

// Viewed returns the key of a session's recent-view ordered set.
func Viewed(token string) string { return "viewed:" + token }

// Cart returns the key of a session's cart hash.
func Cart(token string) string { return "cart:" + token }

// Page returns the key of a cached page, given the request hash.
func Page(hash string) string { return "cache:" + hash }

// Row returns the key of a cached row payload.
func Row(rowID string) string { return "inv:" + rowID }
