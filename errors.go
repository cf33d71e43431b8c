package regionqt

// Error types attached to every error returned by this package. Use
// errors.Type or errors.IsType from github.com/aukilabs/go-tooling/pkg/errors
// to classify them.
const (
	// ErrTypeSourceUnavailable reports a pixel source that cannot be read.
	ErrTypeSourceUnavailable = "source-unavailable"

	// ErrTypeEmptyTree reports an operation that needs a built tree.
	ErrTypeEmptyTree = "empty-tree"

	// ErrTypeCorruptData reports a truncated or malformed encoded tree.
	ErrTypeCorruptData = "corrupt-data"

	// ErrTypeInvalidBoundingBox reports a bounding box with min > max.
	ErrTypeInvalidBoundingBox = "invalid-bounding-box"
)
