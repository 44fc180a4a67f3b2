// Package services implements the HTTP clients LunaStream depends on.
//
// # Providers
//
// Catalog metadata comes from two providers behind small interfaces so the engines in tasks can fan out to them:
//   - [Metadata] is implemented by [TMDBService] for movies and series
//   - [Anime] is implemented by [AniListService] over GraphQL
//   - [Sports] is implemented by [StreamedService] for live matches and embeds
//
// [TMDBService] throttles with a token bucket and keeps detail and season payloads in an expiring LRU.
// [AniListService] strips the HTML AniList embeds in descriptions with goquery.
//
// # LunaStream API
//
// [APIService] talks to a running LunaStream server. With a bearer token, [APIService.Progress] returns
// [RemoteProgress], the identity-scoped progress store used after sign-in.
//
// # Error Handling
//
// Non-2xx responses are mapped to wrapped sentinels from shared:
//   - [shared.ErrNotFound] : 404 or a GraphQL not-found error
//   - [shared.ErrNotAuthenticated] : 401, or a progress call without a token
//   - [shared.ErrMissingCredentials] : TMDB key not configured
//   - [shared.ErrAPIRequest] : any other failure status
package services
