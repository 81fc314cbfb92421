package graph

import "errors"

var (
	// ErrValidation indicates an argument outside its legal range
	// (bad timing, unknown kind, malformed params).
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateID indicates a caller-supplied id that already exists.
	// Duplicate ids are caller misuse and always fail loudly.
	ErrDuplicateID = errors.New("duplicate node id")

	// ErrUnsupportedMediaType indicates a media type outside {video, image}.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrNodeNotFound indicates a reference to an id with no live node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrGraphDestroyed indicates a mutation after Destroy.
	ErrGraphDestroyed = errors.New("graph destroyed")
)
