// Package models defines the domain types shared by the auth, search and presentation layers.
//
//   - [Credential] : bearer credential persisted between runs
//   - [AuthState] : SignedOut, AwaitingRedirect or SignedIn
//   - [SearchQuery] : ordered search terms plus page size
//   - [ResultPage] : one page of [PlaylistSummary] values with an end-of-results flag
//   - [Mood] : a named preset of search terms, see [Moods]
//   - [SearchRecord] : a row of local search history
//
// Types here carry no behaviour beyond small value helpers; persistence lives in repositories and
// remote calls in services.
package models
