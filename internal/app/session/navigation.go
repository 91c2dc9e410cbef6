package session

import (
	"sync"
	"time"

	"hzpresence/internal/pkg/logx"
)

// RouteHome is the main route a successful login navigates to.
const RouteHome = "/"

// Navigator moves the UI to a route.
type Navigator interface {
	GoTo(route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

func (f NavigatorFunc) GoTo(route string) { f(route) }

// LogNavigator only logs. Headless clients have nowhere to go.
type LogNavigator struct{}

func (LogNavigator) GoTo(route string) {
	logx.Info("Navigation requested", "route", route)
}

// navigation is the pending post-login move to RouteHome. A newer schedule or a cancel
// supersedes it, and it does nothing once the session is gone.
type navigation struct {
	to    Navigator
	delay time.Duration
	valid func() bool

	mu    sync.Mutex
	gen   uint64
	timer *time.Timer
}

func newNavigation(to Navigator, delay time.Duration, valid func() bool) *navigation {
	return &navigation{to: to, delay: delay, valid: valid}
}

func (n *navigation) schedule() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.stopLocked()
	gen := n.gen

	delay := n.delay
	if delay < 0 {
		delay = 0
	}
	n.timer = time.AfterFunc(delay, func() { n.fire(gen) })
}

func (n *navigation) cancel() {
	n.mu.Lock()
	n.stopLocked()
	n.mu.Unlock()
}

// stopLocked invalidates the pending task, if any.
func (n *navigation) stopLocked() {
	n.gen++
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

// fire claims the task under mu and calls the navigator without it, so GoTo may call
// back into the Store.
func (n *navigation) fire(gen uint64) {
	n.mu.Lock()
	if gen != n.gen {
		n.mu.Unlock()
		return
	}
	n.timer = nil
	n.mu.Unlock()

	if !n.valid() {
		return
	}
	n.to.GoTo(RouteHome)
}
