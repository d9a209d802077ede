package handler

import (
	"encoding/json"
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/foundation-api/internal/middleware"
	"github.com/noah-isme/foundation-api/internal/models"
	appErrors "github.com/noah-isme/foundation-api/pkg/errors"
)

const maxJSONBody = 1 << 20

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// actorFromContext builds the acting user from verified claims plus request
// metadata used for audit rows.
func actorFromContext(c *gin.Context) (models.Actor, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return models.Actor{}, appErrors.ErrUnauthorized
	}
	actor := models.ActorFromClaims(claims)
	actor.IP = c.ClientIP()
	actor.UserAgent = c.Request.UserAgent()
	return actor, nil
}

// bindJSON decodes the request body into dst and rejects unknown fields,
// trailing data and oversized bodies.
func bindJSON(c *gin.Context, dst interface{}) error {
	if c.Request.Body == nil {
		return appErrors.Clone(appErrors.ErrValidation, "request body is required")
	}
	decoder := json.NewDecoder(io.LimitReader(c.Request.Body, maxJSONBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return appErrors.Clone(appErrors.ErrValidation, "request body is required")
		}
		return appErrors.Clone(appErrors.ErrValidation, "invalid request body: "+err.Error())
	}
	if decoder.More() {
		return appErrors.Clone(appErrors.ErrValidation, "request body must contain a single JSON object")
	}
	return nil
}

func pageParams(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, size
}
