// Package render presents the simulator's shared MMIO framebuffer, either in
// a native window (fyne) or inside the terminal (tcell/tview), and forwards
// host keyboard events back into the MMIO scancode ring and key bitmap.
package render

import (
	"image"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"

	"github.com/fpgrars/fpgrars/vm"
)

// decodePixel turns one BBGGGRRR byte into 24-bit RGB by scaling each
// channel up to 0-255: red/green get 3 bits (step 36), blue gets 2 (step 85).
func decodePixel(b byte) color.RGBA {
	r := (b & 0x07) * 36
	g := ((b >> 3) & 0x07) * 36
	bl := ((b >> 6) & 0x03) * 85
	return color.RGBA{R: r, G: g, B: bl, A: 255}
}

// Window is the native (fyne) front end: a raster canvas refreshed from the
// shared MMIO buffer on a timer, with keyboard events translated to MMIO
// scancodes and forwarded to the running VM.
type Window struct {
	bus    vm.MMIOBus
	width  int
	height int
	scale  int

	app fyne.App
	win fyne.Window
	img *canvas.Image

	frame []byte
}

// NewWindow builds (but does not yet show) a windowed framebuffer renderer
// of the given logical size, displayed at scale.
func NewWindow(bus vm.MMIOBus, width, height, scale int) *Window {
	a := app.New()
	w := a.NewWindow("fpgrars")

	win := &Window{
		bus: bus, width: width, height: height, scale: scale,
		app: a, win: w,
		frame: make([]byte, width*height),
	}

	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	win.img = canvas.NewImageFromImage(rgba)
	win.img.FillMode = canvas.ImageFillOriginal
	win.img.ScaleMode = canvas.ImageScalePixels

	w.SetContent(win.img)
	w.Resize(fyne.NewSize(float32(width*scale), float32(height*scale)))

	return win
}

// OnKey registers a callback invoked with (scancode, down) for every host
// key transition; the caller forwards these straight into vm.MMIOBus.
func (w *Window) OnKey(fn func(scancode byte, down bool)) {
	w.win.Canvas().SetOnTypedRune(func(r rune) {
		fn(byte(r), true)
	})
	if deskCanvas, ok := w.win.Canvas().(desktop.Canvas); ok {
		deskCanvas.SetOnKeyDown(func(ev *fyne.KeyEvent) {
			fn(keyScancode(ev.Name), true)
		})
		deskCanvas.SetOnKeyUp(func(ev *fyne.KeyEvent) {
			fn(keyScancode(ev.Name), false)
		})
	}
}

// keyScancode maps a subset of fyne's named keys onto a byte scancode; unlisted
// keys map to their first ASCII byte, a best-effort fallback matching the
// scope of a single-byte scancode ring.
func keyScancode(name fyne.KeyName) byte {
	switch name {
	case fyne.KeyUp:
		return 0x48
	case fyne.KeyDown:
		return 0x50
	case fyne.KeyLeft:
		return 0x4B
	case fyne.KeyRight:
		return 0x4D
	case fyne.KeyEscape:
		return 0x01
	case fyne.KeyReturn, fyne.KeyEnter:
		return 0x1C
	case fyne.KeySpace:
		return 0x39
	default:
		if len(name) > 0 {
			return byte(name[0])
		}
		return 0
	}
}

// Run shows the window and refreshes the raster from the MMIO buffer roughly
// 60 times per second until the window is closed; it blocks until then.
func (w *Window) Run() {
	stop := make(chan struct{})
	w.win.SetOnClosed(func() { close(stop) })

	go func() {
		ticker := time.NewTicker(time.Second / 60)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				w.redraw()
			}
		}
	}()

	w.win.ShowAndRun()
}

func (w *Window) redraw() {
	w.bus.ReadFrame(w.frame)
	rgba := w.img.Image.(*image.RGBA)
	for i, b := range w.frame {
		rgba.Set(i%w.width, i/w.width, decodePixel(b))
	}
	canvas.Refresh(w.img)
}
