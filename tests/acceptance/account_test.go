package acceptance

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/hungbv115/education-backend/internal/dto"
)

func (s *Suite) signup(email, password string) *http.Response {
	reqBody := dto.SignupRequest{
		Email:     email,
		Password:  password,
		FirstName: "Test",
		LastName:  "User",
	}
	body, _ := json.Marshal(reqBody)

	resp, err := http.Post(
		s.BaseURL+"/api/v1/auth/signup",
		"application/json",
		bytes.NewBuffer(body),
	)
	s.Require().NoError(err)
	return resp
}

// confirmAccount walks the verification flow for an already-signed-up user
func (s *Suite) confirmAccount(email string) {
	token := s.tokenFor(email, "verification")

	resp, err := http.Get(s.BaseURL + "/api/v1/auth/registration/confirm?token=" + token)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
}

func (s *Suite) TestSignup_Success() {
	resp := s.signup("signup@example.com", "Password123")
	defer resp.Body.Close()

	s.Equal(http.StatusCreated, resp.StatusCode)

	var success dto.SuccessResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&success))
	s.Contains(success.Message, "Registered successfully")

	// The account exists but is disabled until verified
	var enabled bool
	err := s.Postgres.DB.QueryRow(
		`SELECT enabled FROM users WHERE email = $1`, "signup@example.com",
	).Scan(&enabled)
	s.Require().NoError(err)
	s.False(enabled)

	// A verification token was issued
	s.NotEmpty(s.tokenFor("signup@example.com", "verification"))
}

func (s *Suite) TestSignup_DuplicateEmail() {
	resp1 := s.signup("duplicate@example.com", "Password123")
	resp1.Body.Close()

	resp2 := s.signup("duplicate@example.com", "Password123")
	defer resp2.Body.Close()

	s.Equal(http.StatusConflict, resp2.StatusCode)
}

func (s *Suite) TestSignup_InvalidEmail() {
	resp := s.signup("not-an-email", "Password123")
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestSignup_WeakPassword() {
	resp := s.signup("weak@example.com", "password")
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestSignup_DeliversVerificationMail() {
	resp := s.signup("mail@example.com", "Password123")
	resp.Body.Close()

	token := s.tokenFor("mail@example.com", "verification")

	// The outbox worker picks the queued mail up asynchronously
	s.Require().Eventually(func() bool {
		return len(s.Dispatcher.Messages()) == 1
	}, 2*time.Second, 50*time.Millisecond)

	msg := s.Dispatcher.Messages()[0]
	s.Equal("mail@example.com", msg.Recipient)
	s.Contains(msg.Body, "/api/v1/auth/registration/confirm?token="+token)
}

func (s *Suite) TestConfirmRegistration_EnablesAccount() {
	resp := s.signup("confirm@example.com", "Password123")
	resp.Body.Close()

	s.confirmAccount("confirm@example.com")

	var enabled bool
	err := s.Postgres.DB.QueryRow(
		`SELECT enabled FROM users WHERE email = $1`, "confirm@example.com",
	).Scan(&enabled)
	s.Require().NoError(err)
	s.True(enabled)
}

func (s *Suite) TestConfirmRegistration_TokenIsSingleUse() {
	resp := s.signup("once@example.com", "Password123")
	resp.Body.Close()

	token := s.tokenFor("once@example.com", "verification")

	resp1, err := http.Get(s.BaseURL + "/api/v1/auth/registration/confirm?token=" + token)
	s.Require().NoError(err)
	resp1.Body.Close()
	s.Equal(http.StatusOK, resp1.StatusCode)

	resp2, err := http.Get(s.BaseURL + "/api/v1/auth/registration/confirm?token=" + token)
	s.Require().NoError(err)
	defer resp2.Body.Close()
	s.Equal(http.StatusBadRequest, resp2.StatusCode)
}

func (s *Suite) TestConfirmRegistration_UnknownToken() {
	resp, err := http.Get(s.BaseURL + "/api/v1/auth/registration/confirm?token=no-such-token")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestConfirmRegistration_ExpiredToken() {
	resp := s.signup("expired@example.com", "Password123")
	resp.Body.Close()

	token := s.tokenFor("expired@example.com", "verification")

	_, err := s.Postgres.DB.Exec(
		`UPDATE account_tokens SET expires_at = NOW() - INTERVAL '1 hour' WHERE token = $1`, token,
	)
	s.Require().NoError(err)

	confirmResp, err := http.Get(s.BaseURL + "/api/v1/auth/registration/confirm?token=" + token)
	s.Require().NoError(err)
	defer confirmResp.Body.Close()
	s.Equal(http.StatusGone, confirmResp.StatusCode)

	// The account stays disabled
	var enabled bool
	err = s.Postgres.DB.QueryRow(
		`SELECT enabled FROM users WHERE email = $1`, "expired@example.com",
	).Scan(&enabled)
	s.Require().NoError(err)
	s.False(enabled)
}

func (s *Suite) TestResendVerification_RotatesToken() {
	resp := s.signup("resend@example.com", "Password123")
	resp.Body.Close()

	original := s.tokenFor("resend@example.com", "verification")

	resendResp, err := http.Post(
		s.BaseURL+"/api/v1/auth/registration/resend?token="+original,
		"application/json", nil,
	)
	s.Require().NoError(err)
	defer resendResp.Body.Close()
	s.Equal(http.StatusCreated, resendResp.StatusCode)

	rotated := s.tokenFor("resend@example.com", "verification")
	s.NotEqual(original, rotated)

	// The rotated token confirms; the original no longer resolves
	confirmResp, err := http.Get(s.BaseURL + "/api/v1/auth/registration/confirm?token=" + rotated)
	s.Require().NoError(err)
	confirmResp.Body.Close()
	s.Equal(http.StatusOK, confirmResp.StatusCode)

	staleResp, err := http.Get(s.BaseURL + "/api/v1/auth/registration/confirm?token=" + original)
	s.Require().NoError(err)
	defer staleResp.Body.Close()
	s.Equal(http.StatusBadRequest, staleResp.StatusCode)
}

func (s *Suite) TestResendVerification_RecoversExpiredToken() {
	resp := s.signup("recover@example.com", "Password123")
	resp.Body.Close()

	original := s.tokenFor("recover@example.com", "verification")

	_, err := s.Postgres.DB.Exec(
		`UPDATE account_tokens SET expires_at = NOW() - INTERVAL '1 hour' WHERE token = $1`, original,
	)
	s.Require().NoError(err)

	resendResp, err := http.Post(
		s.BaseURL+"/api/v1/auth/registration/resend?token="+original,
		"application/json", nil,
	)
	s.Require().NoError(err)
	defer resendResp.Body.Close()
	s.Equal(http.StatusCreated, resendResp.StatusCode)

	rotated := s.tokenFor("recover@example.com", "verification")
	confirmResp, err := http.Get(s.BaseURL + "/api/v1/auth/registration/confirm?token=" + rotated)
	s.Require().NoError(err)
	defer confirmResp.Body.Close()
	s.Equal(http.StatusOK, confirmResp.StatusCode)
}

func (s *Suite) requestPasswordReset(email string) *http.Response {
	body, _ := json.Marshal(dto.PasswordResetRequest{Email: email})

	resp, err := http.Post(
		s.BaseURL+"/api/v1/auth/password/reset",
		"application/json",
		bytes.NewBuffer(body),
	)
	s.Require().NoError(err)
	return resp
}

func (s *Suite) TestPasswordReset_FullFlow() {
	resp := s.signup("reset@example.com", "Password123")
	resp.Body.Close()
	s.confirmAccount("reset@example.com")

	resetResp := s.requestPasswordReset("reset@example.com")
	defer resetResp.Body.Close()
	s.Equal(http.StatusOK, resetResp.StatusCode)

	token := s.tokenFor("reset@example.com", "password_reset")

	saveBody, _ := json.Marshal(dto.SavePasswordRequest{
		Token:       token,
		NewPassword: "NewPassword456",
	})
	saveResp, err := http.Post(
		s.BaseURL+"/api/v1/auth/password/save",
		"application/json",
		bytes.NewBuffer(saveBody),
	)
	s.Require().NoError(err)
	defer saveResp.Body.Close()
	s.Equal(http.StatusOK, saveResp.StatusCode)

	// Old password no longer works, the new one does
	oldResp := s.login("reset@example.com", "Password123")
	oldResp.Body.Close()
	s.Equal(http.StatusUnauthorized, oldResp.StatusCode)

	newResp := s.login("reset@example.com", "NewPassword456")
	newResp.Body.Close()
	s.Equal(http.StatusOK, newResp.StatusCode)
}

func (s *Suite) TestPasswordReset_UnknownEmailIndistinguishable() {
	resp := s.signup("known@example.com", "Password123")
	resp.Body.Close()
	s.confirmAccount("known@example.com")

	knownResp := s.requestPasswordReset("known@example.com")
	defer knownResp.Body.Close()
	unknownResp := s.requestPasswordReset("unknown@example.com")
	defer unknownResp.Body.Close()

	s.Equal(http.StatusOK, knownResp.StatusCode)
	s.Equal(http.StatusOK, unknownResp.StatusCode)

	var knownBody, unknownBody dto.SuccessResponse
	s.Require().NoError(json.NewDecoder(knownResp.Body).Decode(&knownBody))
	s.Require().NoError(json.NewDecoder(unknownResp.Body).Decode(&unknownBody))
	s.Equal(knownBody.Message, unknownBody.Message)
}

func (s *Suite) TestPasswordReset_TokenIsSingleUse() {
	resp := s.signup("single@example.com", "Password123")
	resp.Body.Close()
	s.confirmAccount("single@example.com")

	resetResp := s.requestPasswordReset("single@example.com")
	resetResp.Body.Close()

	token := s.tokenFor("single@example.com", "password_reset")
	saveBody, _ := json.Marshal(dto.SavePasswordRequest{
		Token:       token,
		NewPassword: "NewPassword456",
	})

	saveResp1, err := http.Post(
		s.BaseURL+"/api/v1/auth/password/save",
		"application/json",
		bytes.NewBuffer(saveBody),
	)
	s.Require().NoError(err)
	saveResp1.Body.Close()
	s.Equal(http.StatusOK, saveResp1.StatusCode)

	saveBody, _ = json.Marshal(dto.SavePasswordRequest{
		Token:       token,
		NewPassword: "AnotherPassword789",
	})
	saveResp2, err := http.Post(
		s.BaseURL+"/api/v1/auth/password/save",
		"application/json",
		bytes.NewBuffer(saveBody),
	)
	s.Require().NoError(err)
	defer saveResp2.Body.Close()
	s.Equal(http.StatusBadRequest, saveResp2.StatusCode)
}

func (s *Suite) TestPasswordReset_NewRequestReplacesPriorToken() {
	resp := s.signup("replace@example.com", "Password123")
	resp.Body.Close()
	s.confirmAccount("replace@example.com")

	first := s.requestPasswordReset("replace@example.com")
	first.Body.Close()
	firstToken := s.tokenFor("replace@example.com", "password_reset")

	second := s.requestPasswordReset("replace@example.com")
	second.Body.Close()
	secondToken := s.tokenFor("replace@example.com", "password_reset")

	s.NotEqual(firstToken, secondToken)

	// Only the latest token redeems
	saveBody, _ := json.Marshal(dto.SavePasswordRequest{
		Token:       firstToken,
		NewPassword: "NewPassword456",
	})
	staleResp, err := http.Post(
		s.BaseURL+"/api/v1/auth/password/save",
		"application/json",
		bytes.NewBuffer(saveBody),
	)
	s.Require().NoError(err)
	defer staleResp.Body.Close()
	s.Equal(http.StatusBadRequest, staleResp.StatusCode)
}

func (s *Suite) TestPasswordReset_MailContainsSaveLink() {
	resp := s.signup("resetmail@example.com", "Password123")
	resp.Body.Close()
	s.confirmAccount("resetmail@example.com")

	resetResp := s.requestPasswordReset("resetmail@example.com")
	resetResp.Body.Close()

	token := s.tokenFor("resetmail@example.com", "password_reset")

	s.Require().Eventually(func() bool {
		for _, msg := range s.Dispatcher.Messages() {
			if strings.Contains(msg.Body, "/api/v1/auth/password/save?token="+token) {
				return true
			}
		}
		return false
	}, 2*time.Second, 50*time.Millisecond)
}
