package mortar

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
)

// ErrEncoderClosed is returned when an [Encoder] is asked to write a second
// body.
var ErrEncoderClosed = errors.New("form: encoder has already written a body")

// Encoder writes a multipart/form-data body to an [io.Writer].
type Encoder struct {
	mw     *multipart.Writer
	opts   []Option
	closed bool
}

// NewEncoder creates a new [Encoder] that writes to w. The options apply when
// the body is encoded.
func NewEncoder(w io.Writer, opts ...Option) *Encoder {
	return &Encoder{mw: multipart.NewWriter(w), opts: opts}
}

// SetBoundary overrides the randomly generated multipart boundary. It must be
// called before [Encoder.Encode].
func (e *Encoder) SetBoundary(boundary string) error {
	return e.mw.SetBoundary(boundary)
}

// FormDataContentType returns the Content-Type of the body, including its
// boundary.
func (e *Encoder) FormDataContentType() string {
	return e.mw.FormDataContentType()
}

// Encode encodes request according to commands and writes the complete
// multipart body, including the closing boundary, to the underlying
// [io.Writer]. An Encoder writes a single body; later calls return
// [ErrEncoderClosed]. A call that fails before anything is written may be
// retried.
func (e *Encoder) Encode(request any, commands Commands) error {
	if e.closed {
		return ErrEncoderClosed
	}
	payload, err := Encode(request, commands, e.opts...)
	if err != nil {
		return err
	}

	e.closed = true
	if err := payload.WriteMultipart(e.mw); err != nil {
		return err
	}
	return e.mw.Close()
}

// Decoder reads a multipart/form-data body back into a [Payload].
type Decoder struct {
	r *multipart.Reader
}

// NewDecoder creates a new [Decoder] that reads a body delimited by boundary
// from r.
func NewDecoder(r io.Reader, boundary string) *Decoder {
	return &Decoder{r: multipart.NewReader(r, boundary)}
}

// Boundary extracts the boundary parameter of a multipart Content-Type.
func Boundary(contentType string) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("form: invalid content type: %w", err)
	}
	if mediaType != "multipart/form-data" {
		return "", fmt.Errorf("form: unexpected content type %q", mediaType)
	}
	boundary, ok := params["boundary"]
	if !ok || boundary == "" {
		return "", fmt.Errorf("form: content type has no boundary")
	}
	return boundary, nil
}

// Decode reads every part of the body in order. Parts with a filename become
// [File] values with their content buffered in memory; all others become
// strings.
func (d *Decoder) Decode() (Payload, error) {
	payload := Payload{}
	for {
		part, err := d.r.NextPart()
		if errors.Is(err, io.EOF) {
			return payload, nil
		}
		if err != nil {
			return nil, fmt.Errorf("form: failed to read part: %w", err)
		}

		body, err := io.ReadAll(part)
		if err != nil {
			return nil, fmt.Errorf("form: failed to read part %q: %w", part.FormName(), err)
		}

		pair := Pair{Name: part.FormName()}
		if filename := part.FileName(); filename != "" {
			pair.Value = File{
				Filename:    filename,
				ContentType: part.Header.Get("Content-Type"),
				Content:     bytes.NewReader(body),
			}
		} else {
			pair.Value = string(body)
		}
		payload = append(payload, pair)
	}
}
