// Package middleware holds the HTTP middleware of the job control API.
package middleware
