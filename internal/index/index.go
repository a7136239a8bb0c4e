package index

// FileIndex defines the interface for workspace file indexing.
// Consumers should depend on this interface rather than the concrete
// *DB type to facilitate testing with mocks.
type FileIndex interface {
	UpsertFile(row FileRow, body string) error
	DeleteFile(path string) error
	GetChecksum(path string) (string, error)
	ListFiles(limit, offset int, status, sort string) ([]FileRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Summary() (Summary, error)
	Close() error
}

// Verify *DB satisfies FileIndex at compile time.
var _ FileIndex = (*DB)(nil)
