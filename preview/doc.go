// Package preview shows a running session: the original, encoded and
// decoded frames side by side in one window.
//
// Window implements pipeline.Display. Run owns the calling goroutine for
// the window's event loop and runs the session on another goroutine:
//
//	win := preview.NewWindow("avscramble")
//	session.SetDisplay(win)
//	err := win.Run(ctx, func(ctx context.Context) error {
//	    _, err := session.Capture(ctx)
//	    return err
//	})
//
// Closing the window or pressing Escape stops the session. Building with
// the headless tag replaces the window with one that only counts frames.
package preview
