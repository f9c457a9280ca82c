package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Mr8lueSky/cooplook-back/internal/auth"
	"github.com/Mr8lueSky/cooplook-back/internal/store"
)

type credentialsRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "name and password are required")
		return
	}

	user, err := s.authSvc.Register(req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateName):
			errorResponse(c, http.StatusBadRequest, "name already taken")
		case errors.Is(err, auth.ErrInvalidCredentials):
			errorResponse(c, http.StatusBadRequest, err.Error())
		default:
			errorResponse(c, http.StatusInternalServerError, "failed to register")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "name": user.Name})
}

func (s *Server) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "name and password are required")
		return
	}

	token, err := s.authSvc.Login(req.Name, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			errorResponse(c, http.StatusUnauthorized, "invalid credentials")
		} else {
			errorResponse(c, http.StatusInternalServerError, "failed to log in")
		}
		return
	}

	s.authSvc.SetTokenCookie(c, token)
	c.JSON(http.StatusOK, gin.H{"name": req.Name})
}

func (s *Server) logout(c *gin.Context) {
	s.authSvc.ClearTokenCookie(c)
	c.Status(http.StatusNoContent)
}
