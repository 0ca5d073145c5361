// Package cli implements the apiclient probe: a one-shot command-line tool
// that drives the resilient API client against a running backend.
//
// Commands
//
//	login [email]            prompt for the password and store the token pair
//	get <path>               GET and print the JSON body
//	delete <path>
//	post <path> <json>
//	put <path> <json>
//	patch <path> <json>
//	whoami                   session state and GET /me
//	logout
//	version
//
// Failures print the classified error (kind, code, message). The exit code
// is 2 when the session has expired and the user must log in again.
package cli
