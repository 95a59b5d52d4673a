package backend

import (
	"context"
	"errors"
	"net/http"

	"github.com/ehr/patientflow/internal/platform/apperr"
	"github.com/ehr/patientflow/internal/platform/session"
)

// Authenticate checks staff credentials with POST /api/auth.
func (c *Client) Authenticate(ctx context.Context, email, password string) (*session.UpstreamLogin, error) {
	var res authResponse
	err := c.do(ctx, call{
		op:     "login",
		method: http.MethodPost,
		path:   "/api/auth",
		body:   map[string]string{"email": email, "password": password},
		result: &res,
	})
	if err != nil {
		// The backend answers bad credentials with 400 or 404 as well as 401.
		var be *apperr.BackendError
		if errors.As(err, &be) && be.Status == http.StatusBadRequest {
			return nil, apperr.Unauthorized("invalid credentials")
		}
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.Unauthorized("unknown user")
		}
		return nil, err
	}
	return &session.UpstreamLogin{
		Token: res.Token,
		User: session.User{
			Name:       res.User.Name,
			Email:      res.User.Email,
			Role:       res.User.Role,
			Department: res.User.Department,
		},
	}, nil
}
