// Package proto defines the display panels a rendered frame can be pushed to.
package proto

import (
	"image"
)

// Control drives a physical or virtual display panel.
type Control interface {
	Startup() error
	Shutdown() error

	SetLight(light uint8) error
	SetRotate(landscape bool, invert bool) error

	// Size is the drawable area under the current rotation.
	Size() image.Point
	DrawBitmap(posX uint16, posY uint16, img image.Image) error
}
