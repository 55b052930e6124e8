package cache

import "fmt"

func DocumentContentKey(docID string) string {
	return fmt.Sprintf("doc:content:%s", docID)
}

// DocumentListKey caches the backend's document listing.
const DocumentListKey = "doc:list"

func RateLimitKey(client string) string {
	return fmt.Sprintf("ratelimit:%s", client)
}
