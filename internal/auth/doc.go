// Package auth provides local user authentication for the library:
// bcrypt password hashing, account lockout after repeated failures,
// SQLite-backed sessions and Gin middleware that injects the current
// user into the request context.
package auth
