// Package main is the entry point of the Foundry service.
//
// Foundry authenticates users against a pluggable directory (memory, LDAP
// or Atlassian Crowd, optionally behind OpenID Connect single sign-on),
// grants roles to groups and stores its own data in memory, a SQL database
// through gorm or MongoDB. The JSON web surface is served with Fiber.
package main
