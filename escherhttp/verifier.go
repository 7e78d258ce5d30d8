package escherhttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/forestrie/go-escher/escher"
	log "github.com/sirupsen/logrus"
)

type keyIDContextKey struct{}

// KeyIDFromContext returns the key id stored by Verifier.Middleware.
func KeyIDFromContext(ctx context.Context) (string, bool) {
	keyID, ok := ctx.Value(keyIDContextKey{}).(string)
	return keyID, ok
}

// Verifier authenticates incoming requests.
type Verifier struct {
	Config escher.Config
	KeyDB  escher.KeyDB

	// MandatorySignedHeaders must be signed in addition to host and the
	// date header.
	MandatorySignedHeaders []string

	// Now defaults to time.Now.
	Now func() time.Time

	// Metrics is optional.
	Metrics *Metrics
}

func (v *Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// Verify authenticates r and returns the key id it was signed with. The
// body of r is restored.
func (v *Verifier) Verify(r *http.Request) (string, error) {
	start := time.Now()
	keyID, err := v.verify(r)
	v.Metrics.observeAuthentication(start, err)
	return keyID, err
}

func (v *Verifier) verify(r *http.Request) (string, error) {
	req, err := NewRequest(r)
	if err != nil {
		return "", err
	}
	return v.Config.AtTime(v.now()).Authenticate(req, v.KeyDB, v.MandatorySignedHeaders)
}

// Middleware rejects requests that fail Verify with 401 Unauthorized and
// passes the others to next, with the key id in the request context.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keyID, err := v.Verify(r)
		if err != nil {
			var escherErr *escher.Error
			if !errors.As(err, &escherErr) {
				log.Errorf("Failed to authenticate request: %v", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			log.WithFields(log.Fields{
				"reason": escherErr.Code.String(),
				"method": r.Method,
				"path":   r.URL.Path,
			}).Infof("Rejected request: %v", err)
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		log.WithFields(log.Fields{
			"key_id": keyID,
			"method": r.Method,
			"path":   r.URL.Path,
		}).Debug("Authenticated request")
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), keyIDContextKey{}, keyID)))
	})
}
