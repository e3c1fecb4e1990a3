// Copyright (c) FabricFlow Authors.
// Licensed under the MIT License.

/*
Package fabric implements the remote workspace inventory client.

The client speaks the workspace item REST surface: paginated inventory
listing, definition fetch, create, updateDefinition, delete, and the
long-running-operation endpoints. Mutating calls return a
types.RemoteResult that either completed inline (200/201) or deferred
(202 Accepted with an operation id); Await resolves both branches, polling
deferred operations at a fixed interval within a bounded attempt budget.

Authentication is a bearer token from an injected TokenProvider; acquiring
the token is the caller's collaborator, not this package's concern. No
call is retried here outside the polling loop.
*/
package fabric
