// Package server provides the loopback HTTP server that completes the OAuth sign-in.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [BasicRouter] matches exact paths, allows one method per path and wraps every request, matched or not,
// in the registered [Middleware] (first added runs first).
//
// # Redirect Capture
//
// [LoopbackCapturer] implements services.RedirectCapturer. For each sign-in it listens on the host of the
// configured redirect URI, opens the authorization page in the browser, and waits for a single request to
// the callback path. [CallbackHandler] only records the query parameters; state validation and the code
// exchange happen in services.AuthManager.
package server
