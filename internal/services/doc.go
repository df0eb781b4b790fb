// Package services talks to Spotify: the accounts service for sign-in and the Web API for playlist search.
//
// # Authentication
//
// [AuthManager] drives the OAuth2 authorization-code flow with [golang.org/x/oauth2]. Client credentials are
// sent in the form body. The authorization page is presented through a [RedirectCapturer], which the CLI
// implements with a loopback HTTP server. The resulting credential is persisted through a
// [CredentialRepository] and the sign-in state is always derived from it.
//
// No refresh grant is used. An expired token is only discovered when the Web API answers 401, at which
// point the session is invalidated and the user must sign in again.
//
// # Search
//
// [PlaylistSearcher] fetches one page of playlists per call. Requests are paced with a [rate.Limiter].
// End of results is detected from a short page only; the total reported by the API is ignored.
//
// # Error Handling
//
// Services return sentinel and typed errors from the shared package:
//   - [shared.ErrNotAuthenticated] : no stored credential
//   - [shared.ErrAuthenticationCancelled] : the user closed or rejected the authorization page
//   - [shared.TokenExchangeError] : the code could not be exchanged
//   - [shared.ErrSessionExpired] : the API rejected the token
//   - [shared.ErrNetwork], [shared.RemoteError], [shared.ErrDecoding] : search failures
package services
