// Package server is the network listener in front of the worker pool.
//
// The accept loop takes one connection at a time and hands each connection
// to the pool as a single job. The job reads the request line, picks a page
// and writes a minimal HTTP/1.1 response:
//
//	GET / HTTP/1.1       -> 200 OK, hello page
//	GET /sleep HTTP/1.1  -> waits SleepDelay, then 200 OK, hello page
//	anything else        -> 404 NOT FOUND, not-found page
//
// The response is "<status line>\r\nContent-Length: <n>\r\n\r\n<body>" and the
// connection is closed afterwards. This is not an HTTP implementation:
// headers are ignored and there is no keep-alive.
//
// Serve returns when its context is cancelled. It does not stop the pool;
// the owner shuts the pool down afterwards so connections already accepted
// still get their response.
package server
