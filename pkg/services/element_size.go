package services

import (
	"bytes"
	"context"
	"encoding/json"
	"text/template"

	"github.com/vango-dev/sprout/pkg/protocol"
	"github.com/vango-dev/sprout/pkg/service"
)

// PollInterval is how often the injected probe samples the element, in
// milliseconds.
const PollInterval = 50

var probe = template.Must(template.New("element-size").Parse(`
(function(ctx) {
    var size = [-1, -1, -1, -1];
    setInterval(function() {
        var elem = document.getElementById("{{js .ElementID}}");
        if (!elem) { return; }
        var rect = elem.getBoundingClientRect();
        var x = rect.left, y = rect.top;
        var dx = elem.offsetWidth, dy = elem.offsetHeight;
        if (size[0] != x || size[1] != y || size[2] != dx || size[3] != dy) {
            size = [x, y, dx, dy];
            ctx.send(JSON.stringify({"x": x, "y": y, "dx": dx, "dy": dy}));
        }
    }, {{.Interval}});
})(ctx);
`))

// Size is the position and extent of an element in CSS pixels.
type Size struct {
	X  int `json:"x"`
	Y  int `json:"y"`
	DX int `json:"dx"`
	DY int `json:"dy"`
}

// ElementSize reports the size of the element with the given HTML id
// whenever it changes. It ends when the frontend sends Stop.
type ElementSize struct {
	ElementID string
}

var _ service.Service[Size] = ElementSize{}

// Script returns the probe injected into the frontend.
func (e ElementSize) Script() (string, error) {
	var buf bytes.Buffer
	err := probe.Execute(&buf, struct {
		ElementID string
		Interval  int
	}{e.ElementID, PollInterval})
	return buf.String(), err
}

// Start implements service.Service.
func (e ElementSize) Start(ctx context.Context, mb *service.Mailbox) <-chan Size {
	ch := make(chan Size)
	js, err := e.Script()
	if err != nil {
		close(ch)
		return ch
	}
	mb.RunJS(js)

	go func() {
		defer close(ch)
		for {
			msg, err := mb.Recv(ctx)
			if err != nil || msg.Kind == protocol.ServiceStop {
				return
			}
			var s Size
			if err := json.Unmarshal([]byte(msg.Data), &s); err != nil {
				continue
			}
			select {
			case ch <- s:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
