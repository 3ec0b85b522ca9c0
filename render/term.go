package render

import (
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/fpgrars/fpgrars/vm"
)

// Terminal is the text-mode front end: the framebuffer is drawn as a grid of
// half-block characters, one pixel column per terminal column and two pixel
// rows per terminal cell. It is not scaled; whatever does not fit inside the
// terminal box is cropped. Host key events are translated to MMIO scancodes
// the same way the windowed front end does.
type Terminal struct {
	bus    vm.MMIOBus
	width  int
	height int

	app   *tview.Application
	box   *tview.Box
	frame []byte

	onKey func(scancode byte, down bool)
}

// NewTerminal builds a terminal renderer for a width x height logical
// framebuffer.
func NewTerminal(bus vm.MMIOBus, width, height int) *Terminal {
	t := &Terminal{
		bus:    bus,
		width:  width,
		height: height,
		app:    tview.NewApplication(),
		frame:  make([]byte, width*height),
	}

	t.box = tview.NewBox().SetBorder(true).SetTitle(" fpgrars ")
	t.box.SetDrawFunc(t.draw)
	t.app.SetRoot(t.box, true)
	t.app.SetInputCapture(t.handleKey)

	return t
}

// OnKey registers a callback invoked with (scancode, down) for every
// translated key event.
func (t *Terminal) OnKey(fn func(scancode byte, down bool)) { t.onKey = fn }

// Run starts the tview event loop; it blocks until the application stops
// (Ctrl-C, by default, matching the debugger TUI's own binding). A
// background ticker forces a redraw ~30 times per second so framebuffer
// updates appear without waiting on a terminal resize or key event.
func (t *Terminal) Run() error {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second / 30)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				t.app.QueueUpdateDraw(func() {})
			}
		}
	}()
	err := t.app.Run()
	close(stop)
	return err
}

func (t *Terminal) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() == tcell.KeyCtrlC {
		t.app.Stop()
		return nil
	}
	if t.onKey != nil {
		t.onKey(terminalScancode(event), true)
	}
	return event
}

func terminalScancode(event *tcell.EventKey) byte {
	switch event.Key() {
	case tcell.KeyUp:
		return 0x48
	case tcell.KeyDown:
		return 0x50
	case tcell.KeyLeft:
		return 0x4B
	case tcell.KeyRight:
		return 0x4D
	case tcell.KeyEnter:
		return 0x1C
	case tcell.KeyEsc:
		return 0x01
	default:
		if r := event.Rune(); r != 0 {
			return byte(r)
		}
		return 0
	}
}

// draw renders the current framebuffer as a grid of colored '▀' cells, two
// logical rows per terminal cell (upper/lower half-block trick), directly
// onto the tcell screen tview hands the box's draw callback.
func (t *Terminal) draw(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
	t.bus.ReadFrame(t.frame)

	for row := 0; row < height-2 && row*2 < t.height; row++ {
		for col := 0; col < width-2 && col < t.width; col++ {
			top := t.pixelAt(col, row*2)
			bottom := t.pixelAt(col, row*2+1)
			style := tcell.StyleDefault.
				Foreground(rgbColor(top)).
				Background(rgbColor(bottom))
			screen.SetContent(x+1+col, y+1+row, '▀', nil, style)
		}
	}
	return x + 1, y + 1, width - 2, height - 2
}

func (t *Terminal) pixelAt(col, row int) byte {
	if col < 0 || row < 0 || col >= t.width || row >= t.height {
		return 0
	}
	return t.frame[row*t.width+col]
}

func rgbColor(b byte) tcell.Color {
	px := decodePixel(b)
	return tcell.NewRGBColor(int32(px.R), int32(px.G), int32(px.B))
}
