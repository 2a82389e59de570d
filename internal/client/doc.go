// Package client implements the zero-knowledge session layer of the
// command-line client.
//
// All key derivation happens here, on the client: the password is stretched
// into an authentication half and an encryption half, only a one-way hash of
// the authentication half ever goes over the wire, and the encryption half
// stays inside the session for sealing and opening secrets locally.
package client
