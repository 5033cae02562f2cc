// Package cli provides the interactive Foamy catalog admin client.
//
// It wires configuration, the local session store, the REST client behind
// the session guard, the catalog services and the cached product list into
// a REPL. Typical flow: restore the saved session or prompt for
// credentials, start the periodic product list revalidation, and execute
// user commands.
//
// Key features:
//   - Login / Logout / WhoAmI, with silent access token refresh
//   - Products: list, show, add, edit, delete (optimistic)
//   - Categories and inventory entries
//
// When the session can no longer be refreshed, the next command asks for a
// fresh login before running.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
