// Package apitest runs an in-process fake of the food-delivery API for tests.
//
// The fake issues HS256 JWT access tokens and opaque rotating refresh
// tokens, protects its resource routes with a bearer middleware, and exposes
// knobs to expire every access token, block or fail the refresh endpoint and
// count calls per route.
package apitest
