package auth

import (
	"errors"
	"net/url"

	"github.com/tidwall/gjson"
)

var errInvalidGrantBody = errors.New("auth: grant response is not valid json")

func passwordGrantForm(cfg PasswordGrantConfig) url.Values {
	form := url.Values{}
	form.Set("grant_type", GrantTypePassword)
	form.Set("client_id", cfg.ClientID)
	form.Set("client_secret", cfg.ClientSecret)
	form.Set("username", cfg.Username)
	form.Set("password", cfg.Password)
	return form
}

// grantFailureFields never includes the secret or the password.
func grantFailureFields(body []byte, cfg PasswordGrantConfig) map[string]any {
	fields := map[string]any{
		"endpoint":  cfg.Endpoint,
		"client_id": cfg.ClientID,
		"username":  cfg.Username,
	}
	result := gjson.GetManyBytes(body, "error", "error_description")
	if value := result[0].String(); value != "" {
		fields["error"] = value
	}
	if value := result[1].String(); value != "" {
		fields["error_description"] = value
	}
	return fields
}
