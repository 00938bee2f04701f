// Package mortar provides helpers for building typed API request objects.
//
// An [Action] pairs a request payload with a fixed action type string so that
// callers can dispatch on the kind of request without reserving a field in the
// payload for it. [Encode] turns a request into a form [Payload] following an
// explicit [Commands] table: each listed field is appended as a single value,
// appended once per element, or encoded as JSON. Fields missing from the table
// are never sent. The resulting payload can be written as multipart/form-data
// or application/x-www-form-urlencoded.
package mortar
