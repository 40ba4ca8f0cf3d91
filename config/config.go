package config

import "time"

type (
	Ring struct {
		// Entries is the submission queue depth the ring is initialized with.
		Entries uint32
		// SubmitThreshold bounds how many queued requests the driver picks up
		// before flushing them to the kernel in a single batch.
		SubmitThreshold int
		// UserDataPoolSize is the capacity of the per-operation user-data pool.
		// Exhaustion is transient (completions return slots promptly), so the
		// pool only needs to cover the peak number of in-flight operations.
		UserDataPoolSize uint32
	}

	LineBufferSize struct {
		Default, Maximal int
	}

	BodySpace struct {
		// Prealloc caps the initial allocation for a request body, so that an
		// absurd Content-Length alone cannot reserve memory ahead of data.
		Prealloc int
		// MaxSize discards any request whose declared body is bigger.
		MaxSize uint64
	}

	HTTP struct {
		// LineBuffer is the accumulator for request lines and header fields
		// spanning multiple reads.
		LineBuffer LineBufferSize
		// HeadersPrealloc is the initial number of seats in the headers storage.
		HeadersPrealloc int
		Body            BodySpace
	}

	NET struct {
		// ReadBufferSize is a size of buffer in bytes which will be used to
		// read from a socket.
		ReadBufferSize int
		// ReadTimeout bounds how long a connection may stay idle between
		// reads before it is closed.
		ReadTimeout time.Duration
		// AcceptLoopInterruptPeriod controls how often the pending accept is
		// interrupted in order to check whether it's time to stop.
		AcceptLoopInterruptPeriod time.Duration
	}
)

// Config holds settings used across the runtime and the HTTP layer, mainly
// restrictions, limitations and pre-allocations.
//
// Always modify defaults (returned via Default()) instead of initializing the
// struct manually, as zero values of most limits are not usable.
type Config struct {
	Ring Ring
	HTTP HTTP
	NET  NET
}

// Default returns the default config. Ring defaults follow the values the
// runtime was designed around: 128 queue entries, 64-request submit batches,
// 128K user-data slots.
func Default() *Config {
	return &Config{
		Ring: Ring{
			Entries:          128,
			SubmitThreshold:  64,
			UserDataPoolSize: 128 * 1024,
		},
		HTTP: HTTP{
			LineBuffer: LineBufferSize{
				Default: 1024,
				Maximal: 16 * 1024,
			},
			HeadersPrealloc: 8,
			Body: BodySpace{
				Prealloc: 64 * 1024,
				MaxSize:  8 * 1024 * 1024,
			},
		},
		NET: NET{
			ReadBufferSize:            8 * 1024,
			ReadTimeout:               90 * time.Second,
			AcceptLoopInterruptPeriod: 5 * time.Second,
		},
	}
}
