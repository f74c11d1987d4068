// Package ui renders the floating lyrics pane with Fyne.
package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const (
	windowTitle  = "lyricpane"
	windowWidth  = 400
	windowHeight = 600
	opacityStep  = 0.05
)

// Window is the main overlay surface: song heading, scrollable lyric
// text, a status line, and the opacity slider. It implements the
// overlay Surface contract; setters are safe to call from any
// goroutine.
type Window struct {
	app     fyne.App
	win     fyne.Window
	heading *widget.Label
	lyrics  *widget.Label
	status  *widget.Label
	slider  *widget.Slider
}

// New builds the window. onOpacity is invoked with the new value
// whenever the user moves the slider; the visual change is applied
// here.
func New(a fyne.App, initialOpacity float64, onOpacity func(float64)) *Window {
	w := &Window{
		app: a,
		win: a.NewWindow(windowTitle),
	}

	a.Settings().SetTheme(newOverlayTheme(initialOpacity))

	w.heading = widget.NewLabel("No song playing")
	w.heading.TextStyle = fyne.TextStyle{Bold: true}

	w.lyrics = widget.NewLabel("")
	w.lyrics.Wrapping = fyne.TextWrapWord

	w.status = widget.NewLabel("Initializing...")

	w.slider = widget.NewSlider(0, 1)
	w.slider.Step = opacityStep
	w.slider.Value = initialOpacity
	w.slider.OnChanged = func(v float64) {
		w.app.Settings().SetTheme(newOverlayTheme(v))
		if onOpacity != nil {
			onOpacity(v)
		}
	}

	top := container.NewVBox(
		container.NewBorder(nil, nil, widget.NewLabel("Opacity:"), nil, w.slider),
		w.heading,
		widget.NewSeparator(),
	)
	bottom := container.NewVBox(widget.NewSeparator(), w.status)
	content := container.NewBorder(top, bottom, nil, nil, container.NewVScroll(w.lyrics))

	w.win.SetContent(content)
	w.win.Resize(fyne.NewSize(windowWidth, windowHeight))

	return w
}

// SetTrack implements the Surface contract.
func (w *Window) SetTrack(artist, title string) {
	fyne.Do(func() {
		if artist == "" && title == "" {
			w.heading.SetText("No song playing")
			return
		}
		w.heading.SetText(artist + " - " + title)
	})
}

// SetLyrics implements the Surface contract.
func (w *Window) SetLyrics(text string) {
	fyne.Do(func() {
		w.lyrics.SetText(text)
	})
}

// SetStatus implements the Surface contract.
func (w *Window) SetStatus(status string) {
	fyne.Do(func() {
		w.status.SetText(status)
	})
}

// ShowAndRun enters the GUI event loop; it returns when the window is
// closed, which ends the process.
func (w *Window) ShowAndRun() {
	w.win.ShowAndRun()
}
