package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	licensedomain "github.com/smartkeys/keyserver/internal/license/domain"
	"github.com/smartkeys/keyserver/internal/signing"
)

type activateRequest struct {
	LicenseKey string  `json:"license_key"`
	DeviceID   string  `json:"device_id"`
	DeviceName *string `json:"device_name"`
}

// HandleActivate binds the requesting device to a license. The license key
// itself is the secret; no session is required.
func (s *Server) HandleActivate(c *gin.Context) {
	var req activateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.licenseSvc.Activate(c.Request.Context(), req.LicenseKey, req.DeviceID, req.DeviceName)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.respondSigned(c, result)
}

// HandleVerify checks the license/device binding for the desktop client.
func (s *Server) HandleVerify(c *gin.Context) {
	licenseKey := strings.TrimSpace(c.Query("license_key"))
	deviceID := strings.TrimSpace(c.Query("device_id"))
	if licenseKey == "" || deviceID == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.licenseSvc.Verify(c.Request.Context(), licenseKey, deviceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.respondSigned(c, result)
}

func (s *Server) HandleListLicenses(c *gin.Context) {
	licenses, err := s.licenseSvc.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse{Success: true, Data: licenses})
}

func (s *Server) HandleCreateTestLicense(c *gin.Context) {
	license, err := s.licenseSvc.CreateTest(c.Request.Context(), currentUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse{Success: true, Data: license})
}

func (s *Server) HandleRevoke(c *gin.Context) {
	licenseID, err := licenseIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.licenseSvc.Revoke(c.Request.Context(), licenseID, currentUserID(c)); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse{Success: true, Data: gin.H{"message": "license revoked"}})
}

func (s *Server) HandleUnbind(c *gin.Context) {
	licenseID, err := licenseIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.licenseSvc.Unbind(c.Request.Context(), licenseID, currentUserID(c)); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse{Success: true, Data: gin.H{"message": "device unbound"}})
}

func (s *Server) HandleDeleteLicense(c *gin.Context) {
	licenseID, err := licenseIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.licenseSvc.Delete(c.Request.Context(), licenseID, currentUserID(c)); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse{Success: true, Data: gin.H{"message": "license deleted"}})
}

// respondSigned writes the payload bytes with their HMAC in the
// x-license-sig header. The bytes must go out exactly as signed.
func (s *Server) respondSigned(c *gin.Context, payload any) {
	body, sig, err := s.signer.Sign(payload)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header(signing.HeaderName, sig)
	c.Data(http.StatusOK, "application/json", body)
}

func licenseIDParam(c *gin.Context) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		// A malformed id is indistinguishable from a missing license.
		return 0, licensedomain.ErrNotFound
	}
	return id, nil
}
