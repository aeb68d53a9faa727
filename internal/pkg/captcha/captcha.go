package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Verifier checks Turnstile challenge tokens against the provider's
// siteverify endpoint.
type Verifier struct {
	secret    string
	verifyURL string
	client    *http.Client
}

// Error is a captcha verification failure carrying the provider's detail.
type Error struct {
	// Unavailable is true when the provider itself could not be reached, as
	// opposed to the token being rejected.
	Unavailable bool
	Detail      string
}

func (e *Error) Error() string { return e.Detail }

func New(secret, verifyURL string) *Verifier {
	return &Verifier{
		secret:    secret,
		verifyURL: verifyURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify submits the token and the client IP. A nil return means the
// challenge passed.
func (v *Verifier) Verify(ctx context.Context, clientToken, remoteIP string) error {
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", clientToken)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return &Error{Unavailable: true, Detail: err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return &Error{Unavailable: true, Detail: "captcha service unavailable"}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return &Error{Unavailable: true, Detail: fmt.Sprintf("captcha service error: status %d", resp.StatusCode)}
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return &Error{Unavailable: true, Detail: "captcha service returned malformed response"}
	}
	if !body.Success {
		detail := "captcha verification failed"
		if len(body.ErrorCodes) > 0 {
			detail = fmt.Sprintf("captcha verification failed: %s", strings.Join(body.ErrorCodes, ", "))
		}
		return &Error{Detail: detail}
	}
	return nil
}
