// Package protocol owns the packet contracts shared by the codec core.
//
// Ownership boundary:
// - packet kinds and directionality
// - field layouts and ordered field storage
// - registry and specialized codec capabilities
//
// Wire primitives live in protocol/wire; decode/encode of whole packets in
// protocol/packet.
package protocol
