// Package api is the HTTP control surface of the generation engine. It
// decodes and validates requests, calls the job service and maps service
// errors to status codes without leaking internal details.
package api
