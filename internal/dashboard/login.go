package dashboard

import (
	"context"

	"github.com/and161185/niangadou-pos/internal/apiclient"
	"github.com/and161185/niangadou-pos/internal/model"
)

// LoginAPI is the part of the backend client Login needs.
type LoginAPI interface {
	Login(ctx context.Context, username, password string) (model.LoginResponse, error)
}

// Operator messages of the login form.
const (
	MsgUnknownError = "Erreur inconnue"
	MsgServerError  = "❌ Erreur serveur"
)

// Login sends one login request. On success the token and display names are
// persisted. On failure nothing is written and msg is what the operator sees.
func Login(ctx context.Context, api LoginAPI, store *Store, username, password string) (sess model.Session, msg string, err error) {
	resp, err := api.Login(ctx, username, password)
	if err != nil {
		if se, ok := apiclient.AsServer(err); ok {
			text := se.Text()
			if text == "" {
				text = MsgUnknownError
			}
			return model.Session{}, "❌ " + text, err
		}
		return model.Session{}, MsgServerError, err
	}

	err = store.SetAll(map[string]string{
		KeyToken:    resp.Token,
		KeyFullName: resp.FullName,
		KeyUsername: resp.Username,
	})
	if err != nil {
		return model.Session{}, MsgServerError, err
	}
	return model.Session{Token: resp.Token, FullName: resp.FullName, Username: resp.Username}, "", nil
}
