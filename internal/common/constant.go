// Package common contains shared constants and sentinel errors used across
// classmint components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the admin
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// ErrorDomain is reported in gRPC error details next to the tag.
const ErrorDomain = "classmint"
