package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Handle copies body into w. contentLength is checked when known (>= 0).
// The copy stops early once ctx ends.
func Handle(ctx context.Context, body io.Reader, contentLength int64, w io.Writer, logger *slog.Logger, optFns ...Option) error {
	if w == nil {
		return errors.New("destination writer must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return fmt.Errorf("applying option: %w", err)
		}
	}

	body = &contextReader{ctx: ctx, r: body}

	writer := w
	if opts.checksum != nil {
		writer = io.MultiWriter(writer, opts.checksum)
	}

	if opts.progress {
		writer = &progressWriter{
			w:         writer,
			logger:    logger,
			total:     contentLength,
			startTime: time.Now(),
		}
	}

	n, err := io.Copy(writer, body)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrDownloadCancelled, err)
		}

		return fmt.Errorf("copying file body: %w", err)
	}

	if contentLength >= 0 && n != contentLength {
		return &Error{
			Err:    ErrContentLengthMismatch,
			Detail: fmt.Sprintf("expected %d bytes, got %d", contentLength, n),
		}
	}

	if err := opts.checksum.Verify(); err != nil {
		return err
	}

	return nil
}
