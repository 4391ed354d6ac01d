// Package toast provides feedback notifications for the dashboard.
//
// Toasts are events named "dashboard:toast" delivered through an Emitter.
// HTTP handlers collect them in a Recorder and return them with the
// response.
//
// # Client-Side Handler
//
// The page script renders the payload with the toast UI:
//
//	window.addEventListener("dashboard:toast", (e) => {
//	    const { level, message } = e.detail;
//	    showToast(level, message);
//	});
//
// # Server-Side Usage
//
//	rec := &toast.Recorder{}
//	toast.Success(rec, "Signed in successfully!")
//	writeJSON(w, rec.Toasts())
package toast
