package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/docgate/docgate/internal/common"
	"github.com/docgate/docgate/internal/logging"
	"github.com/docgate/docgate/internal/server/models"
	"github.com/docgate/docgate/internal/server/storage"
	"github.com/gabriel-vasile/mimetype"
)

const (
	// SignedURLValidity is how long an issued read link stays valid.
	SignedURLValidity = time.Hour
	// MaxUploadSize caps a single document upload.
	MaxUploadSize = 50 << 20

	PDFContentType = "application/pdf"

	streamBufferSize = 32 << 10
	sniffSize        = 512
	maxEmptyReads    = 100
)

var repeatedSeparators = regexp.MustCompile(`/{2,}`)

// Sanitize turns a caller-supplied document name into a store key: every
// ".." is removed, backslashes become slashes, runs of slashes collapse and
// one leading slash is dropped.
func Sanitize(name string) (string, error) {
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", "")
	}
	name = strings.ReplaceAll(name, `\`, "/")
	name = repeatedSeparators.ReplaceAllString(name, "/")
	name = strings.TrimPrefix(name, "/")

	if name == "" {
		return "", common.NewError(common.ErrorInvalidInput, "invalid document name")
	}
	return name, nil
}

// DocumentService is the gateway between callers and the blob store. Every
// name it receives is sanitized before it reaches the store.
type DocumentService struct {
	store  storage.BlobStore
	logger logging.Logger
	now    func() time.Time
}

func NewDocumentService(store storage.BlobStore, logger logging.Logger) *DocumentService {
	return &DocumentService{
		store:  store,
		logger: logger.With("module", "documents"),
		now:    time.Now,
	}
}

func (s *DocumentService) mustExist(ctx context.Context, name string) error {
	ok, err := s.store.Exists(ctx, name)
	if err != nil {
		return common.Internal(err)
	}
	if !ok {
		return common.NewError(common.ErrorNotFound, "document not found")
	}
	return nil
}

// IssueSignedURL returns a read link valid for SignedURLValidity.
func (s *DocumentService) IssueSignedURL(ctx context.Context, name string) (*models.SignedURL, error) {
	name, err := Sanitize(name)
	if err != nil {
		return nil, err
	}
	if err := s.mustExist(ctx, name); err != nil {
		return nil, err
	}

	issuedAt := s.now()
	url, err := s.store.SignedURL(ctx, name, SignedURLValidity)
	if err != nil {
		s.logger.Error(ctx, "sign url failed", "name", name, "error", err)
		return nil, common.Internal(err)
	}

	return &models.SignedURL{URL: url, ExpiresAt: issuedAt.Add(SignedURLValidity)}, nil
}

// List returns every PDF in the store, sorted by name.
func (s *DocumentService) List(ctx context.Context) ([]models.BlobReference, error) {
	refs, err := s.store.List(ctx, "")
	if err != nil {
		s.logger.Error(ctx, "list failed", "error", err)
		return nil, common.Internal(err)
	}

	out := make([]models.BlobReference, 0, len(refs))
	for _, r := range refs {
		if strings.HasSuffix(strings.ToLower(r.Name), ".pdf") {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// parseRange interprets a single-range Range header against an object of
// size bytes. It returns nil when the whole object should be served, and
// ErrorRangeNotSatisfiable when the range lies outside it. Multi-range and
// malformed values are ignored.
func parseRange(header string, size int64) (*storage.ByteRange, error) {
	value, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok || strings.Contains(value, ",") {
		return nil, nil
	}
	first, last, ok := strings.Cut(strings.TrimSpace(value), "-")
	if !ok {
		return nil, nil
	}

	unsatisfiable := common.NewError(common.ErrorRangeNotSatisfiable, "requested range not satisfiable")

	if first == "" {
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n < 0 {
			return nil, nil
		}
		if n == 0 || size == 0 {
			return nil, unsatisfiable
		}
		n = min(n, size)
		return &storage.ByteRange{Start: size - n, End: size - 1}, nil
	}

	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 {
		return nil, nil
	}
	end := size - 1
	if last != "" {
		end, err = strconv.ParseInt(last, 10, 64)
		if err != nil || end < start {
			return nil, nil
		}
	}
	if start >= size {
		return nil, unsatisfiable
	}
	end = min(end, size-1)
	return &storage.ByteRange{Start: start, End: end}, nil
}

// StreamTo copies document name into w through a fixed-size buffer, so a
// slow client throttles reads from the store. rangeHeader may carry a single
// byte range. Once the first byte has been written, failures are logged
// and end the stream instead of being returned.
func (s *DocumentService) StreamTo(ctx context.Context, name, rangeHeader string, w http.ResponseWriter) error {
	name, err := Sanitize(name)
	if err != nil {
		return err
	}

	md, err := s.store.Metadata(ctx, name)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NewError(common.ErrorNotFound, "document not found")
		}
		return common.Internal(err)
	}

	rng, err := parseRange(rangeHeader, md.Size)
	if err != nil {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", md.Size))
		return err
	}

	rc, err := s.store.OpenReader(ctx, name, rng)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NewError(common.ErrorNotFound, "document not found")
		}
		s.logger.Error(ctx, "open failed", "name", name, "error", err)
		return common.Internal(err)
	}
	defer rc.Close()

	buf := make([]byte, streamBufferSize)

	// Nothing is committed to w until the first chunk has been read.
	n, readErr := readSome(rc, buf)
	if readErr != nil && readErr != io.EOF {
		s.logger.Error(ctx, "read failed before first byte", "name", name, "error", readErr)
		return common.Internal(readErr)
	}

	contentType := md.ContentType
	if contentType == "" {
		contentType = PDFContentType
	}
	status, length := http.StatusOK, md.Size
	if rng != nil {
		status, length = http.StatusPartialContent, rng.Length()
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.Start, rng.End, md.Size))
	}

	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.FormatInt(length, 10))
	h.Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": path.Base(name)}))
	h.Set("Cache-Control", "private, max-age=3600")
	h.Set("Accept-Ranges", "bytes")
	w.WriteHeader(status)

	var written int64
	for n > 0 {
		if _, err := w.Write(buf[:n]); err != nil {
			s.logger.Info(ctx, "client disconnected", "name", name, "bytes", written)
			return nil
		}
		written += int64(n)

		if readErr == io.EOF {
			break
		}
		if ctx.Err() != nil {
			s.logger.Info(ctx, "client disconnected", "name", name, "bytes", written)
			return nil
		}

		n, readErr = readSome(rc, buf)
		if readErr != nil && readErr != io.EOF {
			s.logger.Error(ctx, "read failed mid-stream", "name", name, "bytes", written, "error", readErr)
			return nil
		}
	}

	s.logger.Debug(ctx, "document streamed", "name", name, "bytes", written)
	return nil
}

// readSome reads until buf holds at least one byte or the reader fails.
// A reader that keeps returning nothing yields io.ErrNoProgress.
func readSome(r io.Reader, buf []byte) (int, error) {
	for range maxEmptyReads {
		n, err := r.Read(buf)
		if n > 0 || err != nil {
			if n > 0 && err != nil && err != io.EOF {
				// Deliver what was read; the error resurfaces on the next call.
				return n, nil
			}
			return n, err
		}
	}
	return 0, io.ErrNoProgress
}

// Upload stores a PDF under the sanitized name, adding a .pdf suffix when
// missing. size is the declared payload length.
func (s *DocumentService) Upload(ctx context.Context, name string, r io.Reader, size int64, declaredType string) (*models.BlobReference, error) {
	mediaType, _, err := mime.ParseMediaType(declaredType)
	if err != nil || mediaType != PDFContentType {
		return nil, common.NewError(common.ErrorInvalidInput, "only PDF documents are accepted")
	}
	if size <= 0 {
		return nil, common.NewError(common.ErrorInvalidInput, "document is empty")
	}
	if size > MaxUploadSize {
		return nil, common.NewError(common.ErrorInvalidInput, "document exceeds the 50 MiB limit")
	}

	name, err = Sanitize(name)
	if err != nil {
		return nil, err
	}
	// Trailing dots would turn into ".." once the extension is appended.
	name = strings.TrimRight(name, ".")
	if name == "" || strings.HasSuffix(name, "/") {
		return nil, common.NewError(common.ErrorInvalidInput, "invalid document name")
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}

	head := make([]byte, min(size, sniffSize))
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, common.NewError(common.ErrorInvalidInput, "document is shorter than its declared size")
	}
	if !mimetype.Detect(head).Is(PDFContentType) {
		return nil, common.NewError(common.ErrorInvalidInput, "only PDF documents are accepted")
	}

	exists, err := s.store.Exists(ctx, name)
	if err != nil {
		return nil, common.Internal(err)
	}
	if exists {
		return nil, common.NewError(common.ErrorConflict, "document already exists")
	}

	body := io.LimitReader(io.MultiReader(bytes.NewReader(head), r), size)
	if err := s.store.Write(ctx, name, PDFContentType, body, size); err != nil {
		s.logger.Error(ctx, "upload failed", "name", name, "error", err)
		return nil, common.Internal(err)
	}

	s.logger.Info(ctx, "document uploaded", "name", name, "bytes", size)
	return &models.BlobReference{Name: name, Size: size, LastModified: s.now()}, nil
}

func (s *DocumentService) Delete(ctx context.Context, name string) error {
	name, err := Sanitize(name)
	if err != nil {
		return err
	}
	if err := s.mustExist(ctx, name); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, name); err != nil {
		s.logger.Error(ctx, "delete failed", "name", name, "error", err)
		return common.Internal(err)
	}

	s.logger.Info(ctx, "document deleted", "name", name)
	return nil
}

// DeleteMany deletes names one after another and reports each outcome. It
// fails as a whole only when names is empty.
func (s *DocumentService) DeleteMany(ctx context.Context, names []string) (*models.BulkDeleteResult, error) {
	if len(names) == 0 {
		return nil, common.NewError(common.ErrorInvalidInput, "no documents specified")
	}

	result := models.NewBulkDeleteResult()
	for _, raw := range names {
		name, err := Sanitize(raw)
		if err != nil {
			result.Errors = append(result.Errors, models.BulkDeleteError{Name: raw, Reason: common.Message(err)})
			continue
		}

		ok, err := s.store.Exists(ctx, name)
		if err != nil {
			s.logger.Error(ctx, "bulk delete lookup failed", "name", name, "error", err)
			result.Errors = append(result.Errors, models.BulkDeleteError{Name: raw, Reason: "lookup failed"})
			continue
		}
		if !ok {
			result.NotFound = append(result.NotFound, raw)
			continue
		}

		if err := s.store.Delete(ctx, name); err != nil {
			s.logger.Error(ctx, "bulk delete failed", "name", name, "error", err)
			result.Errors = append(result.Errors, models.BulkDeleteError{Name: raw, Reason: "delete failed"})
			continue
		}
		result.Deleted = append(result.Deleted, raw)
	}

	s.logger.Info(ctx, "bulk delete finished",
		"deleted", len(result.Deleted), "not_found", len(result.NotFound), "errors", len(result.Errors))
	return result, nil
}
