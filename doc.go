// Package httpc is a compact HTTP/1.1 client: URL parsing and host
// resolution overrides, a protocol state machine for request encoding and
// response framing (Content-Length, chunked, and connection-close bodies),
// plaintext and TLS transport, redirect following with a cap, and a layered
// DNS/connect/read/request timeout system.
//
// A minimal request:
//
//	cfg := httpc.NewClientConfig().UserAgent("myapp/1.0")
//	client := cfg.Build()
//	req, _ := httpc.NewRequest("https://example.com/").Build()
//	var body bytes.Buffer
//	resp, err := client.Run(context.Background(), req, &body)
//
// The core never formats anything to a stream itself: a Response's body is
// streamed directly into the io.Writer passed to Run, and diagnostics are
// emitted as structured trace.Event values through an optional callback
// (ClientConfig.Trace) rather than printed — formatting and presentation
// are the caller's concern (a CLI, a log line, a test assertion).
package httpc
