// Package studio is the typed client for the avatar studio REST API.
//
// Every call goes through the gateway, so credentials and the refresh cycle
// are handled uniformly. The package also owns the quota unit boundary:
// quotas are entered and displayed in minutes but travel as seconds.
package studio
