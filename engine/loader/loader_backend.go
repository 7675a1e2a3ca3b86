package loader

import "io"

// loaderBackend defines the generic interface for decoding rig documents from files or streams.
// Concrete implementations (e.g., yamlLoaderBackendImpl) handle format-specific details.
type loaderBackend interface {
	// Load decodes the rig document at the given file path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *rigDocument: the decoded document
	//   - error: error if reading or decoding fails
	Load(path string) (*rigDocument, error)

	// LoadReader decodes a rig document from a reader stream.
	//
	// Parameters:
	//   - r: the reader providing the document
	//
	// Returns:
	//   - *rigDocument: the decoded document
	//   - error: error if decoding fails
	LoadReader(r io.Reader) (*rigDocument, error)
}
