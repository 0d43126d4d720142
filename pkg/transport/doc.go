// Package transport defines the datagram link used by the client and the
// responder, with a UDP implementation and an in-process one for tests.
//
// Key concepts:
// - Conn: a connected link to one remote; one datagram in, one datagram out
// - PacketListener: an unconnected socket answering many remotes
// - Stats: counters for logging and debugging
package transport
