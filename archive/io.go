package archive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// RangeReader is the byte-range provider contract (C6): given an offset
// and length, return bytes. Implementations return exactly length bytes
// unless EOF truncates the request.
type RangeReader interface {
	GetRange(offset, length uint64) ([]byte, error)
}

// Sink is the byte sink contract (C7) a writer patches the prelude
// through and appends tile/leaf data to.
type Sink interface {
	// Append extends the sink and returns the absolute offset the data was written at.
	Append(data []byte) (offset uint64, err error)
	// AppendSync is like Append but used during construction to durably reserve the prelude.
	AppendSync(data []byte) (offset uint64, err error)
	// WriteAt patches bytes inside the already-reserved prelude.
	WriteAt(data []byte, offset uint64) error
}

// FileSink is a Sink backed by an os.File.
type FileSink struct {
	file   *os.File
	cursor uint64
}

// NewFileSink creates the named file (truncating it if it exists) and returns a FileSink over it.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "archive: create file sink")
	}
	return &FileSink{file: f}, nil
}

func (s *FileSink) Append(data []byte) (uint64, error) {
	offset := s.cursor
	if _, err := s.file.WriteAt(data, int64(offset)); err != nil {
		return 0, errors.Wrap(err, "archive: file sink append")
	}
	s.cursor += uint64(len(data))
	return offset, nil
}

func (s *FileSink) AppendSync(data []byte) (uint64, error) {
	offset, err := s.Append(data)
	if err != nil {
		return 0, err
	}
	return offset, s.file.Sync()
}

func (s *FileSink) WriteAt(data []byte, offset uint64) error {
	_, err := s.file.WriteAt(data, int64(offset))
	return errors.Wrap(err, "archive: file sink write-at")
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	return s.file.Close()
}

// FileRangeReader is a RangeReader backed by an os.File.
type FileRangeReader struct {
	file *os.File
}

// NewFileRangeReader opens path for reading.
func NewFileRangeReader(path string) (*FileRangeReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "archive: open file range reader")
	}
	return &FileRangeReader{file: f}, nil
}

func (r *FileRangeReader) GetRange(offset, length uint64) ([]byte, error) {
	buf := make([]byte, length)
	n, err := r.file.ReadAt(buf, int64(offset))
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "archive: file range read")
	}
	return buf[:n], nil
}

// Close closes the underlying file.
func (r *FileRangeReader) Close() error {
	return r.file.Close()
}

// MemorySink is an in-memory Sink, useful for tests and for building an
// archive that will be handed off without ever touching a filesystem.
type MemorySink struct {
	buf []byte
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Append(data []byte) (uint64, error) {
	offset := uint64(len(s.buf))
	s.buf = append(s.buf, data...)
	return offset, nil
}

func (s *MemorySink) AppendSync(data []byte) (uint64, error) {
	return s.Append(data)
}

func (s *MemorySink) WriteAt(data []byte, offset uint64) error {
	if offset+uint64(len(data)) > uint64(len(s.buf)) {
		return errors.New("archive: memory sink write-at out of bounds")
	}
	copy(s.buf[offset:], data)
	return nil
}

// Bytes returns the sink's current backing buffer. The caller must not
// retain it across further writes.
func (s *MemorySink) Bytes() []byte {
	return s.buf
}

// MemoryRangeReader is a RangeReader over an in-memory byte slice.
type MemoryRangeReader struct {
	data []byte
}

// NewMemoryRangeReader wraps data for range reads.
func NewMemoryRangeReader(data []byte) *MemoryRangeReader {
	return &MemoryRangeReader{data: data}
}

func (r *MemoryRangeReader) GetRange(offset, length uint64) ([]byte, error) {
	if offset >= uint64(len(r.data)) {
		return nil, nil
	}
	end := offset + length
	if end > uint64(len(r.data)) {
		end = uint64(len(r.data))
	}
	return r.data[offset:end], nil
}

// HTTPRangeReader is a RangeReader that issues HTTP Range requests,
// retrying transient failures with an exponential backoff.
type HTTPRangeReader struct {
	URL             string
	Client          *http.Client
	MaxElapsedTime  time.Duration
}

// NewHTTPRangeReader builds an HTTPRangeReader for url using http.DefaultClient.
func NewHTTPRangeReader(url string) *HTTPRangeReader {
	return &HTTPRangeReader{URL: url, Client: http.DefaultClient, MaxElapsedTime: 30 * time.Second}
}

func (r *HTTPRangeReader) GetRange(offset, length uint64) ([]byte, error) {
	var result []byte

	fetch := func() error {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, r.URL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, offset+length-1))

		resp, err := r.Client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
			return errors.Errorf("archive: unexpected HTTP status %d", resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		result = data
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = r.MaxElapsedTime
	if err := backoff.Retry(fetch, b); err != nil {
		return nil, errors.Wrap(err, "archive: http range request failed")
	}
	return result, nil
}

// S3RangeReader is a RangeReader over an S3 object, fetched with the
// Range header rather than downloading the whole object.
type S3RangeReader struct {
	client *s3.S3
	bucket string
	key    string
}

// NewS3RangeReader builds an S3RangeReader for the given bucket/key using sess.
func NewS3RangeReader(sess *session.Session, bucket, key string) *S3RangeReader {
	return &S3RangeReader{client: s3.New(sess), bucket: bucket, key: key}
}

func (r *S3RangeReader) GetRange(offset, length uint64) ([]byte, error) {
	rangeHeader := fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)
	out, err := r.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key),
		Range:  aws.String(rangeHeader),
	})
	if err != nil {
		return nil, errors.Wrap(err, "archive: s3 GetObject failed")
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrap(err, "archive: s3 body read failed")
	}
	return data, nil
}
