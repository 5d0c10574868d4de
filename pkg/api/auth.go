package api

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// ownerIDBytes is how much of the token digest becomes the owner reference.
const ownerIDBytes = 16

// requireOwner wraps a session handler with bearer-token identity. The token is
// never validated here; it is reduced to an opaque owner reference.
func (s *Server) requireOwner(next func(w http.ResponseWriter, r *http.Request, ownerID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="clarifier"`)
			s.writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: "missing bearer token", Code: "UNAUTHORIZED"})
			return
		}
		next(w, r, OwnerID(token))
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// OwnerID derives the owner reference stored with a session from a token.
func OwnerID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:ownerIDBytes])
}
