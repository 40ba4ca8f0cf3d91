package mime

const OctetStream = "application/octet-stream"

// byExtension maps a file extension (with the leading dot) to its media type.
var byExtension = map[string]string{
	// text and web
	".html":     "text/html",
	".htm":      "text/html",
	".shtml":    "text/html",
	".xhtml":    "application/xhtml+xml",
	".txt":      "text/plain",
	".text":     "text/plain",
	".log":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".css":      "text/css",
	".csv":      "text/csv",
	".rtf":      "text/rtf",
	".ics":      "text/calendar",

	// scripts and code
	".js":     "application/javascript",
	".mjs":    "application/javascript",
	".cjs":    "application/javascript",
	".json":   "application/json",
	".jsonld": "application/ld+json",
	".xml":    "application/xml",
	".xsd":    "application/xml",
	".yaml":   "application/yaml",
	".yml":    "application/yaml",

	// images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".jpe":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".ico":  "image/x-icon",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",

	// audio and video
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
	".aac":  "audio/aac",
	".flac": "audio/flac",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".ogv":  "video/ogg",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",

	// archives and binary
	".zip":  "application/zip",
	".rar":  "application/x-rar-compressed",
	".7z":   "application/x-7z-compressed",
	".tar":  "application/x-tar",
	".gz":   "application/gzip",
	".bz2":  "application/x-bzip2",
	".xz":   "application/x-xz",
	".pdf":  "application/pdf",
	".wasm": "application/wasm",
	".bin":  OctetStream,
	".exe":  OctetStream,
	".so":   OctetStream,

	// fonts
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
}

// ByExtension returns the media type registered for the extension (with the
// leading dot), falling back to application/octet-stream.
func ByExtension(ext string) string {
	if m, ok := byExtension[ext]; ok {
		return m
	}

	return OctetStream
}
