package spec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Compress encodes data with the algorithm named by tag. None is the identity.
// Unknown and Brotli (no encoder is available in this implementation) fail
// with ErrUnsupportedCompression, matching the contract external callers see.
func Compress(data []byte, tag Compression) ([]byte, error) {
	switch tag {
	case CompressionNone:
		return data, nil
	case CompressionGzip:
		var buf bytes.Buffer
		w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
		if err != nil {
			return nil, errors.Wrap(err, "spec: gzip compress")
		}
		if _, err := w.Write(data); err != nil {
			return nil, errors.Wrap(err, "spec: gzip compress")
		}
		if err := w.Close(); err != nil {
			return nil, errors.Wrap(err, "spec: gzip compress")
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, errors.Wrap(err, "spec: zstd compress")
		}
		defer enc.Close()
		return enc.EncodeAll(data, make([]byte, 0, len(data))), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedCompression, "tag %d", tag)
	}
}

// Decompress reverses Compress.
func Decompress(data []byte, tag Compression) ([]byte, error) {
	switch tag {
	case CompressionNone:
		return data, nil
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrap(err, "spec: gzip decompress")
		}
		defer r.Close()
		result, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.Wrap(err, "spec: gzip decompress")
		}
		return result, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrap(err, "spec: zstd decompress")
		}
		defer dec.Close()
		result, err := io.ReadAll(dec)
		if err != nil {
			return nil, errors.Wrap(err, "spec: zstd decompress")
		}
		return result, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedCompression, "tag %d", tag)
	}
}
