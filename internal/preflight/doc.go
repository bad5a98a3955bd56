// Package preflight provides readiness checks for the filesystem paths and
// provider settings shotsort depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failing check.
//   - The CLI "shotsort check" command prints the full result table, and can
//     optionally scan a folder or probe the provider endpoint.
//
// Checks never send the credential anywhere; CheckCredential only reports the
// masked prefix.
package preflight
