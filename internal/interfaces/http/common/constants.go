package common

import "time"

const (
	// MaxJSONRequestBody limits JSON request bodies.
	MaxJSONRequestBody = 1 << 20
	// MaxPhotoRequestBody leaves room for multipart framing around a 5MB photo.
	MaxPhotoRequestBody = 6 << 20
	// RequestTimeout bounds the work done for one non-streaming request.
	RequestTimeout = 5 * time.Second
	// UploadTimeout covers the round trip to photo storage.
	UploadTimeout = 30 * time.Second
	// DiscoveryTimeout is longer since it waits on the place-search provider.
	DiscoveryTimeout = 45 * time.Second
)
