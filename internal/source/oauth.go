package source

import (
	"context"
	"errors"
	"net/http"

	"github.com/dghubble/oauth1"

	"github.com/mikequentel/tweetharvest/internal/model"
)

// signedClient returns an http.Client that OAuth1-signs every request and
// otherwise behaves like base (transport and timeout).
func signedClient(creds model.Credentials, base *http.Client) (*http.Client, error) {
	if !creds.Complete() {
		return nil, errors.New("all four credentials must be provided")
	}
	config := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret)

	ctx := context.WithValue(context.Background(), oauth1.HTTPClient, base)
	httpClient := config.Client(ctx, token)
	httpClient.Timeout = base.Timeout
	return httpClient, nil
}
