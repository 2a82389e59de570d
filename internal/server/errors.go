package server

import "errors"

// errNoListenAddress rejects a server built without an HTTP listen
// address; there is nothing to serve on.
var errNoListenAddress = errors.New("server listen address is not configured")
