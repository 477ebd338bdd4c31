// Package controller turns user intents into remote calls and keeps the
// shared state consistent with their outcomes.
//
// Every intent validates its preconditions synchronously, claims its slot
// in the state store (reload generation, upload flag, in-flight index) and
// always releases it, whatever the remote collaborators do. Failures become
// error notices; ErrBusy intents are dropped without one.
package controller
