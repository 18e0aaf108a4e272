package inch35

import (
	"fmt"
	"time"

	"github.com/inhies/go-bytesize"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func (i *Inch35) sendCMD(code uint8, vars ...int) error {
	if len(vars) > 4 {
		return errors.New("too many vars")
	}

	var v [4]int
	copy(v[:], vars)

	return i.sendRaw(code, v, nil)
}

// sendOpt sends a command with a payload padded to fixed bytes.
func (i *Inch35) sendOpt(code uint8, fixed int, payload []byte) error {
	if len(payload) > fixed {
		return errors.New("too many bytes")
	}

	buf := make([]byte, fixed)
	copy(buf[6:], payload)

	return i.sendRaw(code, [4]int{}, buf)
}

// sendRaw packs four 10 bit vars into the first five bytes, followed by
// the command code.
func (i *Inch35) sendRaw(code uint8, v [4]int, buf []byte) error {
	if len(buf) == 0 {
		buf = make([]byte, 6)
	}

	buf[0] = byte(v[0] >> 2)
	buf[1] = byte(((v[0] & 3) << 6) + (v[1] >> 4))
	buf[2] = byte(((v[1] & 0xF) << 4) + (v[2] >> 6))
	buf[3] = byte(((v[2] & 0x3F) << 2) + (v[3] >> 8))
	buf[4] = byte(v[3] & 0xFF)
	buf[5] = code

	return i.sendBytes(buf)
}

func (i *Inch35) sendBytes(bs []byte) error {
	start := time.Now()
	n, err := i.port.Write(bs)
	if err != nil {
		return errors.Wrap(err, "write")
	}
	if n != len(bs) {
		return errors.Errorf("short write %d/%d", n, len(bs))
	}

	ext := ""
	if len(bs) <= 16 {
		ext = fmt.Sprintf("%x", bs)
	}

	i.logger.With(
		zap.String("sent", bytesize.New(float64(n)).String()),
		zap.Duration("cost", time.Since(start)),
		zap.String("data", ext),
	).Debug("transfer")

	return nil
}
