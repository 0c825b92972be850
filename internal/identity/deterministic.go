package identity

import (
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// UUID derives a deterministic UUID from a stable key using go-hashid.
//
// Callers must ensure key construction prevents cross-entity collisions (prefix by domain/type).
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(trimmed))
	}
	return uid
}

// PostUUID identifies a post by its route so rebuilds keep the same ID.
func PostUUID(route string) uuid.UUID {
	return UUID("go-blog:post:" + strings.TrimSpace(route))
}

// TagUUID identifies a tag by its slug.
func TagUUID(slug string) uuid.UUID {
	return UUID("go-blog:tag:" + strings.ToLower(strings.TrimSpace(slug)))
}

// FeedEntryID renders a post ID as the urn used by Atom entries.
func FeedEntryID(route string) string {
	return "urn:uuid:" + PostUUID(route).String()
}
