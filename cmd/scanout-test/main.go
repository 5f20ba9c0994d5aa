// Command scanout-test renders a moving test pattern straight onto every
// connected display, bypassing any windowing system. It runs for a fixed
// duration and restores the previous display state on exit.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/BeatGlow/scanout"
	"github.com/BeatGlow/scanout/framebuffer"
	"github.com/BeatGlow/scanout/pattern"
)

func main() {
	cardFlag := flag.Int("card", 0, "DRM card number")
	durationFlag := flag.Duration("duration", 10*time.Second, "Run duration, 0 runs forever")
	intervalFlag := flag.Duration("interval", scanout.DefaultInterval, "Frame interval")
	singleFlag := flag.Bool("single", false, "Single buffered, accepts tearing")
	fbdevFlag := flag.String("fbdev", "", "Use a legacy framebuffer device (e.g. /dev/fb0) instead of KMS")
	blPinFlag := flag.String("bl", "", "Backlight GPIO pin")
	fontFlag := flag.String("font", "", "TTF font file for the overlay text")
	fontSizeFlag := flag.Float64("font-size", 24, "Overlay font size in points")
	textFlag := flag.String("text", "", "Overlay text")
	flag.Parse()

	painter := &pattern.Text{
		Label: *textFlag,
		Next:  new(pattern.Colorwash),
	}
	if *fontFlag != "" {
		face, err := pattern.LoadFace(*fontFlag, *fontSizeFlag)
		if err != nil {
			fatal(err)
		}
		painter.Face = face
	}

	if *fbdevFlag != "" {
		runLegacy(*fbdevFlag, painter, *intervalFlag, *durationFlag)
		return
	}

	config := &scanout.Config{
		SingleBuffer: *singleFlag,
	}
	if *blPinFlag != "" {
		if _, err := host.Init(); err != nil {
			fatal(err)
		}
		if config.Backlight = gpioreg.ByName(*blPinFlag); config.Backlight == nil {
			fatal(fmt.Errorf("invalid backlight pin %q", *blPinFlag))
		}
	}

	card, err := scanout.OpenCard(*cardFlag)
	if err != nil {
		fatal(err)
	}

	descs, err := card.ScanOutputs()
	if err != nil {
		_ = card.Close()
		fatal(err)
	}

	dev := scanout.NewDevice(card, config)
	for _, desc := range descs {
		if _, err = dev.AddOutput(desc); err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping connector %d: %v\n", desc.Conn, err)
			continue
		}
		fmt.Printf("using output: connector %d at %dx%d\n", desc.Conn, desc.Width, desc.Height)
	}
	if len(dev.Outputs()) == 0 {
		_ = dev.Close()
		fatal(fmt.Errorf("no usable outputs on card %d", *cardFlag))
	}

	fmt.Printf("running for %s, hit control-c to stop early...\n", durationText(*durationFlag))
	err = dev.Run(painter, *intervalFlag, *durationFlag)
	if cerr := dev.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fatal(err)
	}
}

func runLegacy(path string, painter scanout.Painter, interval, duration time.Duration) {
	fb, err := framebuffer.Open(path)
	if err != nil {
		fatal(err)
	}
	if err = fb.Blank(false); err != nil {
		fmt.Fprintf(os.Stderr, "warning: unblank %s: %v\n", path, err)
	}

	pix, width, height, pitch := fb.Surface()
	fmt.Printf("using framebuffer: %s at %dx%d\n", path, width, height)
	fmt.Printf("running for %s, hit control-c to stop early...\n", durationText(duration))

	if interval <= 0 {
		interval = scanout.DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var stop <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		stop = timer.C
	}

loop:
	for {
		painter.Paint(pix, width, height, pitch)
		select {
		case <-stop:
			break loop
		case <-ticker.C:
		}
	}
	if err = fb.Close(); err != nil {
		fatal(err)
	}
}

func durationText(d time.Duration) string {
	if d <= 0 {
		return "ever"
	}
	return d.String()
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "fatal: "+err.Error())
	os.Exit(1)
}
