package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kayler1303/ACS-sub001/internal/shared/server/middleware"
	"github.com/Kayler1303/ACS-sub001/internal/shared/server/respond"
)

// registerMeRoutes attaches the /me endpoint.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

func meHandler(c *gin.Context) {
	staffID := middleware.StaffIDFromContext(c)
	if staffID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}

	response := gin.H{
		"staffId": staffID,
	}
	if email := middleware.StaffEmailFromContext(c); email != "" {
		response["email"] = email
	}
	if name := middleware.StaffNameFromContext(c); name != "" {
		response["name"] = name
	}
	if role := middleware.StaffRoleFromContext(c); role != "" {
		response["role"] = role
	}

	respond.JSON(c, http.StatusOK, response)
}
