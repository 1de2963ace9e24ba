package web

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-ulogview/internal/config"
	"github.com/go-while/go-ulogview/internal/logging"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

const (
	mimeFormURLEncoded = "application/x-www-form-urlencoded"
	mimeMultipartForm  = "multipart/form-data"
)

// parseFormFields builds the form fields mapping of a request: the URL query
// for GET and HEAD, the decoded body for POST. Anything it cannot parse
// yields an empty mapping; the request itself is never failed.
func (s *WebServer) parseFormFields(c *gin.Context) url.Values {
	if c.Request.Method != http.MethodPost {
		return c.Request.URL.Query()
	}

	fields, err := parsePostBody(c.Writer, c.Request, s.maxFormSize())
	if err != nil {
		logging.L().Debug("ignoring unparsable form body",
			"content_type", c.GetHeader("Content-Type"),
			"error", err,
		)
		return url.Values{}
	}
	return fields
}

func (s *WebServer) maxFormSize() int64 {
	if s.Config == nil || s.Config.MaxFormSize <= 0 {
		return config.DefaultMaxFormSize
	}
	return s.Config.MaxFormSize
}

// parsePostBody dispatches on the Content-Type media type.
// Unsupported or missing types give an empty mapping and no error.
func parsePostBody(w http.ResponseWriter, r *http.Request, limit int64) (url.Values, error) {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return url.Values{}, nil
	}
	mediatype, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return nil, fmt.Errorf("bad content type %q: %w", ct, err)
	}

	body := http.MaxBytesReader(w, r.Body, limit)
	switch mediatype {
	case mimeFormURLEncoded:
		return parseURLEncoded(body, params["charset"])
	case mimeMultipartForm:
		return parseMultipart(body, params["boundary"], limit)
	default:
		return url.Values{}, nil
	}
}

func parseURLEncoded(body io.Reader, charset string) (url.Values, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read form body: %w", err)
	}
	parsed, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse form body: %w", err)
	}

	fields := make(url.Values, len(parsed))
	for key, values := range parsed {
		name, err := decodeCharsetToUTF8(key, charset)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			dv, err := decodeCharsetToUTF8(v, charset)
			if err != nil {
				return nil, err
			}
			fields[name] = append(fields[name], dv)
		}
	}
	return fields, nil
}

func parseMultipart(body io.Reader, boundary string, limit int64) (url.Values, error) {
	if boundary == "" {
		return nil, fmt.Errorf("multipart body without boundary")
	}
	form, err := multipart.NewReader(body, boundary).ReadForm(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to parse multipart body: %w", err)
	}
	defer form.RemoveAll()

	fields := make(url.Values, len(form.Value)+len(form.File))
	for name, values := range form.Value {
		fields[name] = append(fields[name], values...)
	}
	for name, files := range form.File {
		for _, fh := range files {
			fields[name] = append(fields[name], fh.Filename)
		}
	}
	return fields, nil
}

// decodeCharsetToUTF8 converts text from the declared form charset to UTF-8.
// Empty and UTF-8 charsets only have invalid sequences replaced.
func decodeCharsetToUTF8(text, charset string) (string, error) {
	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return strings.ToValidUTF8(text, "�"), nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", fmt.Errorf("unsupported charset: %s", charset)
	}
	if enc == nil {
		return strings.ToValidUTF8(text, "�"), nil
	}

	result, _, err := transform.String(enc.NewDecoder(), text)
	if err != nil {
		return "", fmt.Errorf("failed to decode from %s: %v", charset, err)
	}
	return result, nil
}
