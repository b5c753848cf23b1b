// Package middleware provides net/http middleware for authcore.
//
// Responsibilities:
//   - [Guard]: bearer extraction plus Engine.ValidateBearer enforcement.
//   - [AuthResultFromContext]: typed access to the validated result.
//
// The package deliberately contains no authentication logic of its own; all
// decisions are delegated to Engine.ValidateBearer.
package middleware
