package index

// DiagramIndex defines the interface for index operations. Consumers
// should depend on this interface rather than the concrete *DB type to
// facilitate testing with mocks.
type DiagramIndex interface {
	UpsertDiagram(d DiagramRow, nodeIDs []string, childLinks map[string]string) error
	DeleteDiagram(path string) error
	ReplaceNodes(nodes []NodeRow) error
	ListDiagrams(limit, offset int) ([]DiagramRow, int, error)
	DiagramsReferencing(nodeID string) ([]string, error)
	ParentsOf(childPath string) ([]string, error)
	AllChecksums() (map[string]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies DiagramIndex at compile time.
var _ DiagramIndex = (*DB)(nil)
