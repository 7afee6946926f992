// Package services implements the remote catalog client used by the importer.
//
// # Resources
//
// [SpotifyService] returns lazily hydrated resources ([Artist], [Album], [Track]). A resource
// built from a search result or a relation page only carries the fields that page returned.
// Reading an attribute that is absent or null through [Resource.Attr] triggers a single full
// fetch of the resource, which replaces the local state. Later reads never fetch again; use
// [Resource.Refresh] to force it.
//
// Attribute names ending in [RefreshSuffix] and names the resource kind does not declare are
// rejected with [shared.ErrUnknownAttribute] and never cause a fetch.
//
// Resources are not safe for concurrent use. Each import run works on its own instances.
//
// # Transport
//
// Requests are authenticated with OAuth2 client credentials and paced by a token bucket.
// Failures are classified for the retry logic of the importer:
//   - [ConnectionError]: transport failure, 429 or 5xx ([shared.ErrConnection])
//   - [HydrationError]: a required attribute is still missing after hydration ([shared.ErrHydration])
//   - [shared.ErrNotFound]: 404
//   - [shared.ErrAPIRequest]: any other non-2xx status
package services
