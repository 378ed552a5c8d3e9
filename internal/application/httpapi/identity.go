package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/ersonp/onto-core/internal/domain/errs"
)

// ActorHeader carries the id of the calling actor.
const ActorHeader = "X-Actor-ID"

type actorKey struct{}

func withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor := strings.TrimSpace(r.Header.Get(ActorHeader)); actor != "" {
			r = r.WithContext(context.WithValue(r.Context(), actorKey{}, actor))
		}
		next.ServeHTTP(w, r)
	})
}

// HeaderIdentity resolves the caller from the X-Actor-ID request header.
type HeaderIdentity struct{}

// ActorID returns the actor of the request, or a validation error when the
// header was not sent.
func (HeaderIdentity) ActorID(ctx context.Context) (string, error) {
	actor, _ := ctx.Value(actorKey{}).(string)
	if actor == "" {
		return "", errs.Validation("%s header is required", ActorHeader)
	}
	return actor, nil
}
