package authgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	serrors "github.com/pilab-dev/homefin-auth/errors"
	"github.com/pilab-dev/homefin-auth/middleware"
)

type codeBody struct {
	Code string `json:"code" binding:"required"`
}

type backupCodesResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

func bindCode(c *gin.Context) (string, bool) {
	var body codeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.AbortWithError(c, serrors.NewInvalidRequest("code is required"))
		return "", false
	}
	return body.Code, true
}

func userID(c *gin.Context) string {
	id, _ := middleware.GetIdentity(c)
	return id.UserID
}

// MFASetupHandler handles POST /api/mfa/setup. Repeated calls return the
// same secret until setup is confirmed.
func (api *AuthAPI) MFASetupHandler(c *gin.Context) {
	info, err := api.twoFactor.BeginSetup(c.Request.Context(), userID(c))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// MFAQRCodeHandler handles GET /api/mfa/setup/qr.
func (api *AuthAPI) MFAQRCodeHandler(c *gin.Context) {
	png, err := api.twoFactor.SetupQRCode(c.Request.Context(), userID(c))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// MFAConfirmHandler handles POST /api/mfa/confirm.
func (api *AuthAPI) MFAConfirmHandler(c *gin.Context) {
	code, ok := bindCode(c)
	if !ok {
		return
	}
	codes, err := api.twoFactor.ConfirmSetup(c.Request.Context(), userID(c), code)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, backupCodesResponse{BackupCodes: codes})
}

// BackupCodeVerifyHandler handles POST /api/mfa/backup-codes/verify.
func (api *AuthAPI) BackupCodeVerifyHandler(c *gin.Context) {
	code, ok := bindCode(c)
	if !ok {
		return
	}
	if err := api.twoFactor.VerifyBackupCode(c.Request.Context(), userID(c), code); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// BackupCodeRegenerateHandler handles POST /api/mfa/backup-codes/regenerate.
// The body carries a current TOTP code.
func (api *AuthAPI) BackupCodeRegenerateHandler(c *gin.Context) {
	code, ok := bindCode(c)
	if !ok {
		return
	}
	codes, err := api.twoFactor.RegenerateBackupCodes(c.Request.Context(), userID(c), code)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, backupCodesResponse{BackupCodes: codes})
}

// MFAStatusHandler handles GET /api/mfa/status.
func (api *AuthAPI) MFAStatusHandler(c *gin.Context) {
	status, err := api.twoFactor.Status(c.Request.Context(), userID(c))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
