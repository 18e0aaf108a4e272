// Package inch35 drives the 320x480 USB serial display used as the
// secondary panel.
package inch35

import (
	"bytes"
	"encoding/binary"
	"image"
	"io"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"ndpanel/pkg/bitmap"
	"ndpanel/pkg/proto"
)

const (
	Width  = 320
	Height = 480
)

// Command codes.
const (
	cmdShutdown   = 108
	cmdStartup    = 109
	cmdSetLight   = 110
	cmdSetRotate  = 121
	cmdDrawBitmap = 197
)

var (
	ErrWidthOverflow  = errors.New("width overflow")
	ErrHeightOverflow = errors.New("height overflow")
)

// Open opens the named serial port and returns the panel on it.
func Open(serial *proto.Serial, logger *zap.Logger) (*Inch35, error) {
	err := serial.Open(&proto.Options{
		DTR:         true,
		RTS:         true,
		BaudRate:    115200,
		ReadTimeout: time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	return New(serial, logger), nil
}

// New wraps an already open port.
func New(port io.Writer, logger *zap.Logger) *Inch35 {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inch35{
		port:   port,
		logger: logger.With(zap.String("via", "inch35")),
		width:  Width,
		height: Height,
	}
}

type Inch35 struct {
	port   io.Writer
	logger *zap.Logger
	width  int
	height int
}

var _ proto.Control = (*Inch35)(nil)

func (i *Inch35) Startup() error {
	return i.sendCMD(cmdStartup)
}

func (i *Inch35) Shutdown() error {
	return i.sendCMD(cmdShutdown)
}

// SetLight takes a brightness in percent; the panel counts the other way.
func (i *Inch35) SetLight(light uint8) error {
	if light > 100 {
		light = 100
	}
	return i.sendCMD(cmdSetLight, int((1-float64(light)/100)*255))
}

func (i *Inch35) SetRotate(landscape bool, invert bool) error {
	ov := 100
	i.width, i.height = Width, Height
	if landscape {
		ov++
		i.width, i.height = Height, Width
	}
	if invert {
		ov++
	}

	var bs bytes.Buffer
	bs.WriteByte(uint8(ov))
	_ = binary.Write(&bs, binary.BigEndian, uint16(i.width))
	_ = binary.Write(&bs, binary.BigEndian, uint16(i.height))

	return i.sendOpt(cmdSetRotate, 16, bs.Bytes())
}

func (i *Inch35) Size() image.Point {
	return image.Pt(i.width, i.height)
}

func (i *Inch35) DrawBitmap(posX uint16, posY uint16, img image.Image) error {
	size := img.Bounds().Size()

	if size.X+int(posX) > i.width {
		return ErrWidthOverflow
	} else if size.Y+int(posY) > i.height {
		return ErrHeightOverflow
	}

	if err := i.sendCMD(cmdDrawBitmap, int(posX), int(posY), int(posX)+size.X-1, int(posY)+size.Y-1); err != nil {
		return err
	}

	return i.sendBytes(bitmap.Encode(img))
}
