package livelist

// Entity is a single domain record flowing through the sync pattern.
// Implementations are plain data carriers; the store never inspects
// anything beyond the identifier.
type Entity interface {
	EntityID() string
}

// Pagination mirrors the server's count of the full collection,
// independent of how many items are materialized client-side.
type Pagination struct {
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Total int `json:"total"`
}

// ListPage is a materialized, bounded slice of entities plus
// pagination metadata.
type ListPage[E Entity] struct {
	Items      []E        `json:"items"`
	Pagination Pagination `json:"pagination"`
}
