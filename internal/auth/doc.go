// Package auth provides pluggable authentication for the application.
//
// A Service is the contract every provider implements:
//   - MemoryService keeps users and groups in process memory
//   - LDAPService reads and writes an LDAP directory through go-ldap
//   - CrowdService talks to an Atlassian Crowd server over SOAP
//
// Providers may offer two optional capabilities, discovered once by the
// Auth façade: SSO (an externally issued session, such as the Crowd token
// cookie) and Subgroups (groups nested in groups). WithSSO adds OpenID
// Connect single sign-on to any provider.
//
// # Auth façade
//
// Auth wraps one Service for the lifetime of a request or session. It
// caches lookups, resolves transitive group membership through subgroups
// (cycles are safe), tracks the current user and answers IsAdmin. Every
// mutation is audited and invalidates what it can affect. Snapshot and
// Restore carry the state between requests.
//
// Providers report failures as false or empty results; only their
// constructors return errors (see package provider).
package auth
