// Command avatarctl is the operator console for the avatar video studio API.
//
// It logs in against the studio, stores the bearer token pair locally, and
// exposes the API as cobra subcommands: video creation with live status
// polling, avatar and user administration, and a doctor command for
// environment checks. Every API call goes through the authenticated gateway,
// so an expired access token is refreshed transparently once per request.
package main
