// Package services holds the clients for every external system the pipeline talks to.
//
// # SSO Directory
//
// [DirectoryClient] searches users by a stable external id. Each configured token gets its own
// client and rate limiter; [NewDirectoryPool] groups them into a [CredentialPool]. Quota
// responses (HTTP 429) are retried after the X-Rate-Limit-Reset time, falling back to
// exponential backoff when the header is missing.
//
// # Auth Provider
//
// [AuthProvider] manages accounts through an Identity Toolkit style REST API using the OAuth2
// client credentials grant. Requests pass through a [gobreaker.CircuitBreaker].
//
// # Document Store
//
// [DocumentStore] pages through the legacy store's HTTP query service for extraction.
//
// # Lookups
//
// Queries that may find nothing return a [Lookup] so absence is never signalled with an error.
//
// # Error Handling
//
// Clients use typed errors from the shared package:
//   - [shared.ErrAPIRequest] : transport failure or non-2xx response ([StatusError])
//   - [shared.ErrRateLimited] : quota retries exhausted
//   - [shared.ErrServiceUnavailable] : auth provider circuit is open
package services
