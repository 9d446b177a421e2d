package display

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/rook-computer/octolcd/internal/render"
)

// Driver names accepted by Open.
const (
	DriverAuto        = "auto"
	DriverHD44780     = "hd44780"
	DriverConsole     = "console"
	DriverFramebuffer = "framebuffer"
	DriverMemory      = "memory"
)

// Drivers lists every valid driver name.
var Drivers = []string{DriverAuto, DriverHD44780, DriverConsole, DriverFramebuffer, DriverMemory}

type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

// Options selects and configures a sink.
type Options struct {
	Driver     string
	I2CBus     string
	I2CAddress uint8
	// FramebufferDevice defaults to /dev/fb0.
	FramebufferDevice string
	// QRPayload is shown by the framebuffer driver when set.
	QRPayload string
	Title     string
	Logger    Logger
}

// ValidDriver reports whether name is a known driver.
func ValidDriver(name string) bool {
	for _, d := range Drivers {
		if strings.EqualFold(d, name) {
			return true
		}
	}
	return false
}

// Open creates the sink named by opts.Driver. "auto" picks the console when
// stdout is a terminal and the HD44780 otherwise.
func Open(opts Options) (render.Sink, error) {
	driver := strings.ToLower(opts.Driver)
	if driver == "" || driver == DriverAuto {
		driver = autoDriver(term.IsTerminal(int(os.Stdout.Fd())))
		if opts.Logger != nil {
			opts.Logger.Infof("display", "auto selected %s driver", driver)
		}
	}

	switch driver {
	case DriverHD44780:
		return OpenHD44780(opts.I2CBus, opts.I2CAddress, opts.Logger)
	case DriverConsole:
		return OpenConsole(opts.Title)
	case DriverFramebuffer:
		dev := opts.FramebufferDevice
		if dev == "" {
			dev = "/dev/fb0"
		}
		return OpenFramebuffer(dev, opts.QRPayload, opts.Logger)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("display: unknown driver %q", opts.Driver)
	}
}

func autoDriver(interactive bool) string {
	if interactive {
		return DriverConsole
	}
	return DriverHD44780
}
