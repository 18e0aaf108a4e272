package remote

import (
	"bytes"
	"image"
	"image/png"
	"net/rpc"

	"ndpanel/internal/state"
	"ndpanel/pkg/proto"
)

func Dial(addr string) (*Client, error) {
	client, err := rpc.DialHTTP("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{rpc: client}, nil
}

type Client struct {
	rpc *rpc.Client
}

func (c *Client) Close() error {
	return c.rpc.Close()
}

func (c *Client) ButtonDown() error {
	return c.rpc.Call("Panel.Button", ButtonRequest{Down: true}, &Empty{})
}

func (c *Client) ButtonUp() error {
	return c.rpc.Call("Panel.Button", ButtonRequest{Down: false}, &Empty{})
}

func (c *Client) Click(req ClickRequest) error {
	return c.rpc.Call("Panel.Click", req, &Empty{})
}

func (c *Client) Rotate(w state.Wheel, delta int) error {
	return c.rpc.Call("Panel.Rotate", RotateRequest{Wheel: w, Delta: delta}, &Empty{})
}

func (c *Client) SetMount(in bool) error {
	return c.rpc.Call("Panel.SetMount", in, &Empty{})
}

func (c *Client) SetCharge(on bool) error {
	return c.rpc.Call("Panel.SetCharge", on, &Empty{})
}

func (c *Client) SetVoltage(v float64) error {
	return c.rpc.Call("Panel.SetVoltage", v, &Empty{})
}

func (c *Client) State() (*State, error) {
	var s State
	if err := c.rpc.Call("Panel.State", Empty{}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Frame returns the PNG encoded current frame.
func (c *Client) Frame(secondary bool) ([]byte, error) {
	var resp FrameResponse
	if err := c.rpc.Call("Panel.Frame", FrameRequest{Secondary: secondary}, &resp); err != nil {
		return nil, err
	}
	return resp.PNG, nil
}

// Display returns the remote display panel.
func (c *Client) Display() (proto.Control, error) {
	d := &display{rpc: c.rpc}
	if err := d.refresh(); err != nil {
		return nil, err
	}
	return d, nil
}

type display struct {
	rpc  *rpc.Client
	size image.Point
}

func (d *display) refresh() error {
	return d.rpc.Call("Display.Size", Empty{}, &d.size)
}

func (d *display) Startup() error {
	return d.rpc.Call("Display.Command", "startup", &Empty{})
}

func (d *display) Shutdown() error {
	return d.rpc.Call("Display.Command", "shutdown", &Empty{})
}

func (d *display) SetLight(light uint8) error {
	return d.rpc.Call("Display.SetLight", light, &Empty{})
}

func (d *display) SetRotate(landscape bool, invert bool) error {
	err := d.rpc.Call("Display.SetRotate", SetRotateRequest{
		Landscape: landscape,
		Invert:    invert,
	}, &Empty{})
	if err != nil {
		return err
	}
	return d.refresh()
}

func (d *display) Size() image.Point {
	return d.size
}

func (d *display) DrawBitmap(posX uint16, posY uint16, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}

	return d.rpc.Call("Display.DrawBitmap", &DrawBitmapRequest{
		PosX:  posX,
		PosY:  posY,
		Image: buf.Bytes(),
	}, &Empty{})
}
