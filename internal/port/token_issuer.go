package port

import "time"

type TokenIssuer interface {
	// Issue signs a bearer token for the user and reports when it expires
	Issue(userID, email string) (token string, expiresAt time.Time, err error)
}
