// Package link manages the physical link (radio attachment) that must be
// up while connections are being established.
//
// The link is a single shared resource. Every user holds a Handle obtained
// from Manager.Acquire; the first Acquire activates the radio and waits for
// network attachment, and releasing the last Handle deactivates it again.
// Acquire is idempotent from the caller's point of view: acquiring an
// already active link only takes another reference.
//
// # Attachment Polling
//
// After the radio is activated the Manager polls Radio.Attached with
// exponential backoff:
//
//  1. Initial delay: 100 milliseconds
//  2. Exponential increase: 200ms, 400ms, 800ms, ...
//  3. Maximum delay: 5 seconds
//  4. Continue until attached or the context is done
//
// Each delay gets up to 25% random jitter.
//
// # States
//
//	INACTIVE -> ACTIVATING -> ACTIVE -> DEACTIVATING -> INACTIVE
//
// A failed activation returns to INACTIVE after deactivating the radio.
package link
