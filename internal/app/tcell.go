package app

import (
	"context"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/silverkey/internal/input/source"
)

// screenView draws the inspector on a tcell screen.
type screenView struct {
	mu     sync.Mutex
	screen tcell.Screen
}

func (v *screenView) draw(lines []string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	width, height := v.screen.Size()
	v.screen.Clear()

	title := tcell.StyleDefault.Bold(true)
	dim := tcell.StyleDefault.Dim(true)
	for y, line := range lines {
		if y >= height {
			break
		}
		style := tcell.StyleDefault
		switch {
		case y == 0:
			style = title
		case y == len(lines)-1:
			style = dim
		}
		x := 0
		for _, r := range line {
			if x >= width {
				break
			}
			v.screen.SetContent(x, y, r, nil, style)
			x++
		}
	}
	v.screen.Show()
}

func (v *screenView) sync() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.screen.Sync()
}

func (a *Application) runTcell(ctx context.Context) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()
	screen.HideCursor()

	return a.runScreen(ctx, screen)
}

// runScreen drives an initialized screen until ctx is done. The screen is
// left for the caller to finalize.
func (a *Application) runScreen(ctx context.Context, screen tcell.Screen) error {
	view := &screenView{screen: screen}
	src := source.NewTerminal(screen, a.log.Logger)
	src.OnOther(func(ev tcell.Event) {
		if _, ok := ev.(*tcell.EventResize); ok {
			view.sync()
			view.draw(a.inspect())
		}
	})

	if err := a.engine.BindSource(src); err != nil {
		return err
	}
	defer a.engine.UnbindSource(src)
	a.bindQuit()

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-a.Changed():
				view.draw(a.inspect())
			}
		}
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	view.draw(a.inspect())
	stopPlayback := a.startPlayback(ctx)
	defer stopPlayback()

	err := src.Run(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
