package mortar_test

import (
	"bytes"
	"errors"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tomasbasham/mortar"
)

const testBoundary = "mortar-test-boundary"

func TestEncoder_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		request  any
		commands mortar.Commands
		want     []part
	}{
		"upload": {
			request: Upload{
				Name: "report",
				Tags: []string{"q1", "draft"},
				Meta: map[string]int{"pages": 3},
				Files: []mortar.File{
					{Filename: "a.txt", ContentType: "text/plain", Content: strings.NewReader("alpha")},
					{Filename: "b.bin", Content: strings.NewReader("beta")},
				},
				Kind: Gopher,
				Note: &noteVal,
			},
			commands: mortar.Commands{
				{Name: "name", Command: mortar.AppendSingle},
				{Name: "tags", Command: mortar.AppendEach},
				{Name: "meta", Command: mortar.EncodeAsJSON},
				{Name: "files", Command: mortar.AppendEach},
				{Name: "kind", Command: mortar.AppendSingle},
				{Name: "note", Command: mortar.AppendSingle},
			},
			want: []part{
				{Name: "name", Text: "report"},
				{Name: "tags", Text: "q1"},
				{Name: "tags", Text: "draft"},
				{Name: "meta", Text: `{"pages":3}`},
				{Name: "files", Text: "alpha", Filename: "a.txt", ContentType: "text/plain"},
				{Name: "files", Text: "beta", Filename: "b.bin", ContentType: "application/octet-stream"},
				{Name: "kind", Text: "gopher"},
				{Name: "note", Text: "a note"},
			},
		},
		"binary values": {
			request: map[string]any{
				"raw":    []byte("raw bytes"),
				"reader": strings.NewReader("streamed"),
				"file":   &mortar.File{Filename: `we"ird.txt`, Content: strings.NewReader("quoted")},
			},
			commands: mortar.Commands{
				{Name: "raw", Command: mortar.AppendSingle},
				{Name: "reader", Command: mortar.AppendSingle},
				{Name: "file", Command: mortar.AppendSingle},
			},
			want: []part{
				{Name: "raw", Text: "raw bytes"},
				{Name: "reader", Text: "streamed", Filename: "blob", ContentType: "application/octet-stream"},
				{Name: "file", Text: "quoted", Filename: `we"ird.txt`, ContentType: "application/octet-stream"},
			},
		},
		"pointer receiver marshalers": {
			request: Ticket{Title: "outage", Version: Version{Major: 2}},
			commands: mortar.Commands{
				{Name: "title", Command: mortar.AppendSingle},
				{Name: "priority", Command: mortar.AppendSingle},
				{Name: "version", Command: mortar.AppendSingle},
			},
			want: []part{
				{Name: "title", Text: "outage"},
				{Name: "priority", Text: "low"},
				{Name: "version", Text: "v2.0"},
			},
		},
		"empty payload": {
			request: map[string]any{"tags": nil},
			commands: mortar.Commands{
				{Name: "tags", Command: mortar.AppendEach},
			},
			want: []part{},
		},
	}
	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var b bytes.Buffer
			encoder := mortar.NewEncoder(&b)
			if err := encoder.SetBoundary(testBoundary); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := encoder.Encode(tt.request, tt.commands); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			boundary, err := mortar.Boundary(encoder.FormDataContentType())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if boundary != testBoundary {
				t.Errorf("expected boundary %q, got %q", testBoundary, boundary)
			}

			got, err := mortar.NewDecoder(&b, boundary).Decode()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, flatten(t, got)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncoder_Strict(t *testing.T) {
	t.Parallel()

	var b bytes.Buffer
	encoder := mortar.NewEncoder(&b, mortar.WithStrict())
	err := encoder.Encode(map[string]any{"tags": "x"}, mortar.Commands{
		{Name: "tags", Command: mortar.AppendEach},
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if b.Len() != 0 {
		t.Errorf("expected nothing to be written, got %q", b.String())
	}
}

func TestEncoder_SingleBody(t *testing.T) {
	t.Parallel()

	var b bytes.Buffer
	encoder := mortar.NewEncoder(&b)
	commands := mortar.Commands{{Name: "a", Command: mortar.AppendSingle}}

	if err := encoder.Encode(map[string]any{"a": 1}, commands); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	written := b.String()

	if err := encoder.Encode(map[string]any{"a": 2}, commands); !errors.Is(err, mortar.ErrEncoderClosed) {
		t.Fatalf("expected %v, got %v", mortar.ErrEncoderClosed, err)
	}
	if diff := cmp.Diff(written, b.String()); diff != "" {
		t.Errorf("body changed after the second call (-want +got):\n%s", diff)
	}
}

func TestEncoder_RetryAfterStrictError(t *testing.T) {
	t.Parallel()

	var b bytes.Buffer
	encoder := mortar.NewEncoder(&b, mortar.WithStrict())
	commands := mortar.Commands{{Name: "a", Command: mortar.AppendEach}}

	if err := encoder.Encode(map[string]any{"a": "x"}, commands); err == nil {
		t.Fatal("expected an error")
	}
	if err := encoder.Encode(map[string]any{"a": []string{"x"}}, commands); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Len() == 0 {
		t.Errorf("expected a body to be written")
	}
}

func TestPayload_WriteMultipart_Unsupported(t *testing.T) {
	t.Parallel()

	var b bytes.Buffer
	mw := multipart.NewWriter(&b)
	p := mortar.Payload{{Name: "meta", Value: map[string]int{"a": 1}}}
	if err := p.WriteMultipart(mw); err == nil {
		t.Fatal("expected an error")
	}
}

func TestBoundary(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input   string
		want    string
		wantErr bool
	}{
		"form data":        {input: "multipart/form-data; boundary=abc123", want: "abc123"},
		"quoted boundary":  {input: `multipart/form-data; boundary="a b"`, want: "a b"},
		"missing boundary": {input: "multipart/form-data", wantErr: true},
		"wrong media type": {input: "text/plain; boundary=abc", wantErr: true},
		"malformed":        {input: ";;", wantErr: true},
	}
	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := mortar.Boundary(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error: %v, got: %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDecoder_Malformed(t *testing.T) {
	t.Parallel()

	body := "--" + testBoundary + "\r\nContent-Disposition: form-data; name=\"a\"\r\n\r\nvalue"
	if _, err := mortar.NewDecoder(strings.NewReader(body), testBoundary).Decode(); err == nil {
		t.Fatal("expected an error for a truncated body")
	}
}
