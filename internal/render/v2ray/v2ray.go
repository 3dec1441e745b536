package v2ray

import (
	"encoding/base64"
	"strings"

	"vortexconv/internal/link"
	"vortexconv/internal/render"
)

const Name = "v2ray"

// Renderer re-encodes descriptors as share links. The aggregate is a
// standard base64 subscription body, one link per line.
type Renderer struct{}

func (Renderer) ContentType() string { return "text/plain; charset=utf-8" }

func (Renderer) Render(d *link.Descriptor) (string, error) {
	uri := d.URI()
	if uri == "" {
		return "", &render.UnsupportedError{Target: Name, Type: d.Type()}
	}
	return uri, nil
}

func (Renderer) Aggregate(fragments []string) (string, error) {
	return base64.StdEncoding.EncodeToString([]byte(strings.Join(fragments, "\n"))), nil
}

func init() {
	render.Register(Name, func() render.Renderer { return Renderer{} })
}
