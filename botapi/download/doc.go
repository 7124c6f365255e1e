// Package download streams Bot API file contents to an [io.Writer] with
// optional checksum validation and progress reporting.
//
// [Handle] copies a response body to the destination while honouring the
// request context:
//
//	err := download.Handle(ctx, resp.Body, resp.ContentLength, w, logger,
//		download.WithChecksum(sha256.New(), expectedHex),
//	)
//
// Most callers should use [github.com/adamwoolhether/tgthrottle/botapi.Client.DownloadFile],
// which resolves the file URL and invokes Handle internally.
package download
