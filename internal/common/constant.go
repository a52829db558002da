// Package common contains shared constants and sentinel errors used across
// GophDiary components.
package common

// ImagesPrefix is the top-level blob-store prefix under which every user's
// diary images live: images/<user id>/<file name>.
const ImagesPrefix = "images"

// SessionUserKey is the local metadata key holding the authenticated user id.
const SessionUserKey = "session_user_id"

// SessionTokenKey is the local metadata key holding the raw auth token.
const SessionTokenKey = "session_token"
