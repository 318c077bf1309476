package spec_test

import (
	"errors"
	"testing"

	"github.com/nmatsuoka/go-quadtiles/spec"
)

func TestCompressionRoundTrip(t *testing.T) {
	data := []byte("hello world, hello world, hello world")

	for _, tag := range []spec.Compression{spec.CompressionNone, spec.CompressionGzip, spec.CompressionZstd} {
		compressed, err := spec.Compress(data, tag)
		if err != nil {
			t.Fatalf("Compress(tag=%d) failed: %v", tag, err)
		}
		got, err := spec.Decompress(compressed, tag)
		if err != nil {
			t.Fatalf("Decompress(tag=%d) failed: %v", tag, err)
		}
		if string(got) != string(data) {
			t.Errorf("round-trip(tag=%d) = %q, want %q", tag, got, data)
		}
	}
}

func TestCompressionUnsupported(t *testing.T) {
	for _, tag := range []spec.Compression{spec.CompressionUnknown, spec.CompressionBrotli} {
		if _, err := spec.Compress([]byte("x"), tag); !errors.Is(err, spec.ErrUnsupportedCompression) {
			t.Errorf("Compress(tag=%d) error = %v, want ErrUnsupportedCompression", tag, err)
		}
		if _, err := spec.Decompress([]byte("x"), tag); !errors.Is(err, spec.ErrUnsupportedCompression) {
			t.Errorf("Decompress(tag=%d) error = %v, want ErrUnsupportedCompression", tag, err)
		}
	}
}
