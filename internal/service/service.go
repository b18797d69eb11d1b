// Package service holds the application's business logic, sitting between
// the HTTP handlers and the repositories.
package service

import "time"

func nowUTC() time.Time {
	return time.Now().UTC()
}
