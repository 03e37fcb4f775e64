package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	apperrors "github.com/creator-sync/internal/errors"
	"github.com/creator-sync/internal/types"
)

const userIDHeader = "X-User-ID"

// authorizer resolves the caller of a request into a trigger origin.
// A bearer token equal to the scheduler secret is the scheduler; otherwise the
// session user must be a member of the target organization.
type authorizer struct {
	secret  []byte
	members MembershipChecker
}

func newAuthorizer(secret string, members MembershipChecker) *authorizer {
	return &authorizer{secret: []byte(secret), members: members}
}

func (a *authorizer) authorize(r *http.Request, orgID string) (types.TriggerOrigin, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || len(a.secret) == 0 || subtle.ConstantTimeCompare([]byte(token), a.secret) != 1 {
			return "", apperrors.NewUnauthorizedError("invalid scheduler credential")
		}
		return types.OriginScheduler, nil
	}

	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		return "", apperrors.NewUnauthorizedError("missing credential")
	}
	if a.members == nil {
		return "", apperrors.NewForbiddenError("membership check unavailable")
	}

	ok, err := a.members.IsMember(r.Context(), orgID, userID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperrors.NewForbiddenError("user is not a member of this organization")
	}
	return types.OriginUser, nil
}
