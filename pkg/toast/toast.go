package toast

import "sync"

// EventName is the event name dispatched for toasts.
// Client-side code should listen for this event.
const EventName = "dashboard:toast"

// Type represents the toast notification type.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
)

// Toast is the payload delivered to the client.
type Toast struct {
	Level   Type   `json:"level"`
	Message string `json:"message"`
}

// Emitter delivers named events to a client.
type Emitter interface {
	Emit(name string, data any)
}

// EmitterFunc adapts a function to an Emitter.
type EmitterFunc func(name string, data any)

// Emit calls f(name, data).
func (f EmitterFunc) Emit(name string, data any) {
	f(name, data)
}

// Show displays a toast notification to the user.
//
// The client receives an event named "dashboard:toast" whose payload is a
// Toast: { level: "success|error", message: "..." }.
func Show(e Emitter, level Type, message string) {
	if e == nil {
		return
	}
	e.Emit(EventName, Toast{Level: level, Message: message})
}

// Success shows a success toast.
//
//	toast.Success(e, "Signed in successfully!")
func Success(e Emitter, message string) {
	Show(e, TypeSuccess, message)
}

// Error shows an error toast.
//
//	toast.Error(e, "Invalid credentials, try again.")
func Error(e Emitter, message string) {
	Show(e, TypeError, message)
}

// Recorder collects toasts so they can be returned in an HTTP response.
// Non-toast events are ignored.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

// Emit implements Emitter.
func (r *Recorder) Emit(name string, data any) {
	if name != EventName {
		return
	}
	t, ok := data.(Toast)
	if !ok {
		return
	}
	r.mu.Lock()
	r.toasts = append(r.toasts, t)
	r.mu.Unlock()
}

// Toasts returns a copy of the recorded toasts.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Toast(nil), r.toasts...)
}

// Last returns the most recent toast.
func (r *Recorder) Last() (Toast, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.toasts) == 0 {
		return Toast{}, false
	}
	return r.toasts[len(r.toasts)-1], true
}
