// Package shutdown coordinates how the process and the server come to an end.
//
// The exit handler runs hooks registered with BeforeExit, in reverse order,
// before the process exits. OS signals are not trapped; the server stops
// when a client asks it to (see Signal).
package shutdown

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

var h = newHandler()

type handler struct {
	active atomic.Value
	mtx    sync.Mutex
	stack  []func()

	// overridden in tests
	exitFn func(int)
	stderr io.Writer
}

func newHandler() *handler {
	h := &handler{exitFn: os.Exit, stderr: os.Stderr}
	h.active.Store(false)
	return h
}

// IsActive reports whether the process has started exiting.
func IsActive() bool {
	return h.active.Load().(bool)
}

// BeforeExit registers f to run before the process exits. Hooks run in
// reverse registration order.
func BeforeExit(f func()) {
	h.mtx.Lock()
	h.stack = append(h.stack, f)
	h.mtx.Unlock()
}

func Exit() {
	h.exit(nil, 0, recover())
}

func ExitWithCode(code int) {
	h.exit(nil, code, recover())
}

func Fatal(v ...interface{}) {
	h.exit(errors.New(fmt.Sprint(v...)), 1, recover())
}

func Fatalf(format string, v ...interface{}) {
	h.exit(errors.Errorf(format, v...), 1, recover())
}

func (h *handler) exit(err error, code int, serious interface{}) {
	h.mtx.Lock()
	h.active.Store(true)
	for i := len(h.stack) - 1; i >= 0; i-- {
		h.stack[i]()
	}
	h.stack = nil
	if serious != nil {
		panic(serious)
	}
	if err != nil {
		log.New(h.stderr, "", log.Lshortfile|log.Lmicroseconds).Output(3, err.Error())
	}
	h.mtx.Unlock()
	h.exitFn(code)
}
