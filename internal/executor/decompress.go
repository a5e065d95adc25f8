package executor

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// decompressBody transparently decodes body per the Content-Encoding
// header value (gzip, deflate, br). On failure the raw bytes are
// returned unchanged and ok is false, signaling the caller to preserve
// the Content-Encoding header rather than strip it.
func decompressBody(encoding string, body []byte) (decoded []byte, ok bool) {
	switch encoding {
	case "gzip":
		r, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return body, false
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return body, false
		}
		return out, true

	case "deflate":
		r, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			return body, false
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return body, false
		}
		return out, true

	case "br":
		r := brotli.NewReader(bytes.NewReader(body))
		out, err := io.ReadAll(r)
		if err != nil {
			return body, false
		}
		return out, true

	default:
		return body, false
	}
}
