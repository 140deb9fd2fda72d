// Package tmdb provides access to the reference movie catalog API.
//
// All requests share a token-bucket rate limiter sized to the
// configured budget (40 requests per 10 seconds by default), so any
// number of concurrent resolver workers stays inside the quota.
package tmdb
