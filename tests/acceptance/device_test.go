package acceptance

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/hungbv115/education-backend/internal/dto"
)

func (s *Suite) deviceLogin(email, password, deviceID, deviceType string) *http.Response {
	body, _ := json.Marshal(dto.DeviceLoginRequest{
		Email:      email,
		Password:   password,
		DeviceID:   deviceID,
		DeviceType: deviceType,
	})

	resp, err := http.Post(
		s.BaseURL+"/api/v1/auth/device/login",
		"application/json",
		bytes.NewBuffer(body),
	)
	s.Require().NoError(err)
	return resp
}

func (s *Suite) TestDeviceLogin_UnknownDeviceParksPending() {
	s.createVerifiedUser("device@example.com", "Password123")

	resp := s.deviceLogin("device@example.com", "Password123", "laptop-1", "laptop")
	defer resp.Body.Close()

	s.Equal(http.StatusAccepted, resp.StatusCode)

	var result dto.DeviceLoginResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&result))
	s.Equal("pending", result.Status)
	s.Nil(result.Session)
	s.Contains(result.ApprovalURL, "/api/v1/auth/device/approve?token=")

	var approved bool
	err := s.Postgres.DB.QueryRow(
		`SELECT d.approved FROM devices d JOIN users u ON u.id = d.user_id
		 WHERE u.email = $1 AND d.device_id = $2`,
		"device@example.com", "laptop-1",
	).Scan(&approved)
	s.Require().NoError(err)
	s.False(approved)
}

func (s *Suite) TestDeviceLogin_PendingStaysPending() {
	s.createVerifiedUser("pending@example.com", "Password123")

	first := s.deviceLogin("pending@example.com", "Password123", "laptop-1", "laptop")
	first.Body.Close()
	s.Equal(http.StatusAccepted, first.StatusCode)

	second := s.deviceLogin("pending@example.com", "Password123", "laptop-1", "laptop")
	defer second.Body.Close()
	s.Equal(http.StatusAccepted, second.StatusCode)

	var result dto.DeviceLoginResponse
	s.Require().NoError(json.NewDecoder(second.Body).Decode(&result))
	s.Equal("pending", result.Status)
}

func (s *Suite) TestDeviceLogin_WrongCredentials() {
	s.createVerifiedUser("devicecreds@example.com", "Password123")

	resp := s.deviceLogin("devicecreds@example.com", "WrongPassword1", "laptop-1", "laptop")
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	// A failed attempt must not create a device record
	var count int
	err := s.Postgres.DB.QueryRow(
		`SELECT COUNT(*) FROM devices d JOIN users u ON u.id = d.user_id WHERE u.email = $1`,
		"devicecreds@example.com",
	).Scan(&count)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *Suite) TestDeviceLogin_InvalidDeviceType() {
	s.createVerifiedUser("devicetype@example.com", "Password123")

	resp := s.deviceLogin("devicetype@example.com", "Password123", "toaster-1", "toaster")
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestDeviceApprove_BySessionThenLogin() {
	s.createVerifiedUser("approve@example.com", "Password123")

	pendingResp := s.deviceLogin("approve@example.com", "Password123", "phone-1", "mobile")
	pendingResp.Body.Close()

	// Owner approves from an established session
	token := s.sessionFor("approve@example.com", "Password123")
	approveBody, _ := json.Marshal(dto.DeviceApproveRequest{
		Email:    "approve@example.com",
		DeviceID: "phone-1",
	})
	approveResp := s.authorizedRequest(http.MethodPost, "/api/v1/auth/device/approve", token, approveBody)
	defer approveResp.Body.Close()
	s.Equal(http.StatusOK, approveResp.StatusCode)

	// The next device login yields a session
	loginResp := s.deviceLogin("approve@example.com", "Password123", "phone-1", "mobile")
	defer loginResp.Body.Close()
	s.Equal(http.StatusOK, loginResp.StatusCode)

	var result dto.DeviceLoginResponse
	s.Require().NoError(json.NewDecoder(loginResp.Body).Decode(&result))
	s.Equal("approved", result.Status)
	s.Require().NotNil(result.Session)
	s.NotEmpty(result.Session.AccessToken)
}

func (s *Suite) TestDeviceApprove_RequiresOwnership() {
	s.createVerifiedUser("owner@example.com", "Password123")
	s.createVerifiedUser("intruder@example.com", "Password123")

	pendingResp := s.deviceLogin("owner@example.com", "Password123", "phone-1", "mobile")
	pendingResp.Body.Close()

	// Another user's session cannot approve the owner's device
	intruderToken := s.sessionFor("intruder@example.com", "Password123")
	approveBody, _ := json.Marshal(dto.DeviceApproveRequest{
		Email:    "owner@example.com",
		DeviceID: "phone-1",
	})
	approveResp := s.authorizedRequest(http.MethodPost, "/api/v1/auth/device/approve", intruderToken, approveBody)
	defer approveResp.Body.Close()
	s.Equal(http.StatusUnauthorized, approveResp.StatusCode)
}

func (s *Suite) TestDeviceApprove_UnknownDevice() {
	s.createVerifiedUser("nodevice@example.com", "Password123")
	token := s.sessionFor("nodevice@example.com", "Password123")

	approveBody, _ := json.Marshal(dto.DeviceApproveRequest{
		Email:    "nodevice@example.com",
		DeviceID: "no-such-device",
	})
	approveResp := s.authorizedRequest(http.MethodPost, "/api/v1/auth/device/approve", token, approveBody)
	defer approveResp.Body.Close()
	s.Equal(http.StatusNotFound, approveResp.StatusCode)
}

func (s *Suite) TestDeviceApprove_ByTokenLink() {
	s.createVerifiedUser("qr@example.com", "Password123")

	pendingResp := s.deviceLogin("qr@example.com", "Password123", "tablet-1", "tablet")
	pendingResp.Body.Close()

	approvalToken := s.tokenFor("qr@example.com", "device_approval")

	approveResp, err := http.Get(s.BaseURL + "/api/v1/auth/device/approve?token=" + approvalToken)
	s.Require().NoError(err)
	approveResp.Body.Close()
	s.Equal(http.StatusOK, approveResp.StatusCode)

	loginResp := s.deviceLogin("qr@example.com", "Password123", "tablet-1", "tablet")
	defer loginResp.Body.Close()
	s.Equal(http.StatusOK, loginResp.StatusCode)

	// The approval link is single use
	replayResp, err := http.Get(s.BaseURL + "/api/v1/auth/device/approve?token=" + approvalToken)
	s.Require().NoError(err)
	defer replayResp.Body.Close()
	s.Equal(http.StatusBadRequest, replayResp.StatusCode)
}

func (s *Suite) TestDeviceApprove_ExpiredTokenLink() {
	s.createVerifiedUser("stale@example.com", "Password123")

	pendingResp := s.deviceLogin("stale@example.com", "Password123", "phone-1", "mobile")
	pendingResp.Body.Close()

	approvalToken := s.tokenFor("stale@example.com", "device_approval")

	_, err := s.Postgres.DB.Exec(
		`UPDATE account_tokens SET expires_at = NOW() - INTERVAL '1 hour' WHERE token = $1`, approvalToken,
	)
	s.Require().NoError(err)

	approveResp, err := http.Get(s.BaseURL + "/api/v1/auth/device/approve?token=" + approvalToken)
	s.Require().NoError(err)
	defer approveResp.Body.Close()
	s.Equal(http.StatusGone, approveResp.StatusCode)

	// The device stays pending
	loginResp := s.deviceLogin("stale@example.com", "Password123", "phone-1", "mobile")
	defer loginResp.Body.Close()
	s.Equal(http.StatusAccepted, loginResp.StatusCode)
}

func (s *Suite) TestListDevices() {
	s.createVerifiedUser("fleet@example.com", "Password123")

	pendingResp := s.deviceLogin("fleet@example.com", "Password123", "laptop-1", "laptop")
	pendingResp.Body.Close()

	token := s.sessionFor("fleet@example.com", "Password123")
	resp := s.authorizedRequest(http.MethodGet, "/api/v1/auth/devices", token, nil)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	var devices []dto.DeviceResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&devices))
	s.Require().Len(devices, 1)
	s.Equal("laptop-1", devices[0].DeviceID)
	s.Equal("pending", devices[0].State)
}

func (s *Suite) TestDeviceLogin_ApprovalMailCarriesLink() {
	s.createVerifiedUser("devicemail@example.com", "Password123")

	resp := s.deviceLogin("devicemail@example.com", "Password123", "phone-1", "mobile")
	defer resp.Body.Close()

	var result dto.DeviceLoginResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&result))
	s.Require().NotEmpty(result.ApprovalURL)

	s.Require().Eventually(func() bool {
		for _, msg := range s.Dispatcher.Messages() {
			if strings.Contains(msg.Body, result.ApprovalURL) {
				return true
			}
		}
		return false
	}, 2*time.Second, 50*time.Millisecond)
}
