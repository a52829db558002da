// Package cli provides the interactive GophDiary command-line client.
//
// It wires configuration, the local SQLite database, the remote document and
// blob stores and the client services into a REPL. On start the stored
// session is restored and one image reconciliation pass runs in the
// background.
//
// Key features:
//   - Login / Logout with a signed token
//   - List diaries grouped by day, optionally filtered by date
//   - Create, edit, save and delete a diary, attach and detach images
//   - Sync pending image uploads and deletes, inspect the queue
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
