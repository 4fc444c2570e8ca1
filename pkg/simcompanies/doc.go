// Package simcompanies knows the Sim Companies chatroom API: the catalog of
// chatroom endpoints and a client that fetches their newest messages with an
// authenticated session.
package simcompanies
