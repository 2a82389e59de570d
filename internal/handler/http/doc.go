// Package http is the REST transport for the vault server.
//
// It wires the chi router, decodes request payloads into service calls, and
// stacks the middleware every route passes through: bearer-token auth,
// trace-ID propagation, access logging, gzip in both directions, and the
// 404 masking of unroutable methods. Handlers never see raw secrets beyond
// the derived hashes and ciphertexts the protocol carries.
package http
