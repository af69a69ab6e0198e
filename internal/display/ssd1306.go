package display

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"
)

type SSD1306Options struct {
	Bus     string // "" picks the first I²C bus
	Width   int
	Height  int
	Rotated bool
}

type oled struct {
	*ssd1306.Dev
	bus i2c.BusCloser
}

// Halt blanks the panel and releases the bus.
func (o *oled) Halt() error {
	err := o.Dev.Halt()
	if cerr := o.bus.Close(); err == nil {
		err = cerr
	}
	return err
}

// OpenSSD1306 opens an SSD1306 OLED on I²C.
func OpenSSD1306(opt SSD1306Options) (Panel, error) {
	if opt.Width == 0 {
		opt.Width = 128
	}
	if opt.Height == 0 {
		opt.Height = 32
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	bus, err := i2creg.Open(opt.Bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", opt.Bus, err)
	}

	dev, err := ssd1306.NewI2C(bus, &ssd1306.Opts{
		W:       opt.Width,
		H:       opt.Height,
		Rotated: opt.Rotated,
	})
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("ssd1306: %w", err)
	}

	return &oled{Dev: dev, bus: bus}, nil
}
