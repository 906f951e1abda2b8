// Package template holds the certificate template model: a decoded background
// image plus the ordered text placeholders and QR stamps positioned on it.
//
// A Session is the live, editable copy of a template. Every change goes through
// Session.Mutate, and renderers only ever see the deep copy returned by
// Session.Snapshot.
package template
