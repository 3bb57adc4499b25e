// Package cancel provides the cancellation token used by every blocking
// operation in lteconn.
//
// A Token is an externally triggerable signal that operations check at their
// suspension points: before each connection attempt and inside every raw
// receive or write. Cancelling a token only aborts the pending logical
// operation; the socket it was running against stays usable.
//
// There is no package-level default token. Callers that do not need
// cancellation pass a fresh inert token built with [Never]:
//
//	tok := cancel.Never()
//	stream, err := dialer.ConnectWithCancellation(addr, verify, tags, tok)
//
// Timeouts are composed by pairing a timer with a token:
//
//	tok := cancel.New()
//	tok.CancelAfter(10 * time.Second)
package cancel
