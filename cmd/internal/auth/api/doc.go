// Package authapi is streamhub's HTTP boundary for the account lifecycle.
//
// It exposes the six account operations under /api/v1/accounts, wraps every
// response in the standard envelope, moves tokens over HttpOnly cookies as
// well as response bodies, and provides the auth guard middleware that
// resolves an access token to a live account before a protected handler
// runs. Uploaded profile images are staged to disk and handed to a
// MediaUploader collaborator.
package authapi
