// internal/app/system/limits/limits.go
package limits

// Request body size limits.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxJSONBody is the largest JSON request body a handler will decode.
	// A full profile patch with replaced collections fits well inside it.
	MaxJSONBody = 256 << 10 // 256 KB

	// MaxImageBytes is the default cap for a profile or background image.
	MaxImageBytes = 8 << 20 // 8 MB

	// MultipartOverhead is added to the image cap to allow for the multipart
	// envelope around the file part.
	MultipartOverhead = 64 << 10
)
