package session

import (
	"strings"

	"github.com/google/uuid"
)

// Opaque credentials travel as "<handle-uuid>:<raw-token>". The handle part
// gives O(1) store lookup; the token part is verified against the stored
// hash. Anonymous credentials are JWTs (two dots, no colon), so the two
// forms are structurally unambiguous.

const credentialSeparator = ":"

func encodeCredential(handle uuid.UUID, rawToken string) string {
	return handle.String() + credentialSeparator + rawToken
}

func parseCredential(credential string) (uuid.UUID, string, bool) {
	head, rawToken, found := strings.Cut(credential, credentialSeparator)
	if !found || rawToken == "" {
		return uuid.Nil, "", false
	}

	handle, err := uuid.Parse(head)
	if err != nil {
		return uuid.Nil, "", false
	}

	return handle, rawToken, true
}
